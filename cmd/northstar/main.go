// Package main is the unified entry point for Northstar.
// This single binary runs the conversation engine, assistant management,
// goal-management domain and sync services with shared infrastructure.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	// Common packages
	"github.com/northstarhq/northstar/internal/common/config"
	"github.com/northstarhq/northstar/internal/common/httpmw"
	"github.com/northstarhq/northstar/internal/common/logger"

	// Event bus
	"github.com/northstarhq/northstar/internal/events/bus"

	// AI orchestration
	"github.com/northstarhq/northstar/internal/ai/orchestrator"
	"github.com/northstarhq/northstar/internal/ai/provider"

	// Goal-management domain
	domaincontroller "github.com/northstarhq/northstar/internal/domain/controller"
	domainhandlers "github.com/northstarhq/northstar/internal/domain/handlers"
	domainservice "github.com/northstarhq/northstar/internal/domain/service"
	domainstore "github.com/northstarhq/northstar/internal/domain/store"

	// Assistant profiles
	assistantcontroller "github.com/northstarhq/northstar/internal/assistant/controller"
	assistanthandlers "github.com/northstarhq/northstar/internal/assistant/handlers"
	assistantservice "github.com/northstarhq/northstar/internal/assistant/service"
	assistantstore "github.com/northstarhq/northstar/internal/assistant/store"

	// Conversation engine
	"github.com/northstarhq/northstar/internal/conversation/classifier"
	conversationcontroller "github.com/northstarhq/northstar/internal/conversation/controller"
	"github.com/northstarhq/northstar/internal/conversation/dispatch"
	"github.com/northstarhq/northstar/internal/conversation/flow"
	conversationhandlers "github.com/northstarhq/northstar/internal/conversation/handlers"
	conversationservice "github.com/northstarhq/northstar/internal/conversation/service"
	conversationstore "github.com/northstarhq/northstar/internal/conversation/store"

	// Sync engine
	synccontroller "github.com/northstarhq/northstar/internal/sync/controller"
	synchandlers "github.com/northstarhq/northstar/internal/sync/handlers"
	syncservice "github.com/northstarhq/northstar/internal/sync/service"
	"github.com/northstarhq/northstar/internal/sync/version"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting Northstar...")

	// 3. Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Initialize event bus (in-memory by default, NATS if configured)
	var eventBus bus.EventBus
	if cfg.NATS.URL != "" {
		log.Info("Connecting to NATS...", zap.String("url", cfg.NATS.URL))
		natsEventBus, err := bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		eventBus = natsEventBus
		defer natsEventBus.Close()
		log.Info("Connected to NATS event bus")
	} else {
		log.Info("Using in-memory event bus")
		eventBus = bus.NewMemoryEventBus(log)
	}

	// ============================================
	// STORAGE
	// ============================================
	domainStore, err := domainstore.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err), zap.String("db_path", cfg.Database.Path))
	}
	defer domainStore.Close()

	assistantStore, err := assistantstore.NewSQLiteStoreFromDB(domainStore.DB())
	if err != nil {
		log.Fatal("Failed to initialize assistant storage", zap.Error(err))
	}

	conversationRepo, err := conversationstore.NewSQLiteRepository(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to initialize conversation storage", zap.Error(err))
	}
	defer conversationRepo.Close()

	log.Info("SQLite database initialized", zap.String("db_path", cfg.Database.Path))

	// The version clock is shared by every store so sync versions stay
	// strictly increasing across object types.
	clock := version.NewClock()

	// ============================================
	// GOAL-MANAGEMENT DOMAIN
	// ============================================
	domainSvc := domainservice.NewService(domainStore, clock, eventBus, log)
	log.Info("Domain service initialized")

	// ============================================
	// ASSISTANT PROFILES
	// ============================================
	assistantSvc := assistantservice.NewService(assistantStore, clock, eventBus, cfg.AI.MaxAssistantProfilesPerUser, log)
	profileSource := assistantservice.NewProfileSource(assistantSvc)
	log.Info("Assistant service initialized",
		zap.Int("max_profiles_per_user", cfg.AI.MaxAssistantProfilesPerUser))

	// ============================================
	// AI ORCHESTRATOR
	// ============================================
	clients := buildProviderClients(cfg, log)
	orch := orchestrator.New(orchestrator.Options{
		PrimaryProvider: cfg.AI.Provider,
		EnableCaching:   cfg.AI.EnableCaching,
		CacheTTL:        cfg.AI.CacheTTL(),
		RequestTimeout:  cfg.AI.RequestTimeout(),
	}, clients, log)
	log.Info("AI orchestrator initialized",
		zap.String("primary_provider", cfg.AI.Provider),
		zap.Bool("caching", cfg.AI.EnableCaching))

	// ============================================
	// CONVERSATION ENGINE
	// ============================================
	flowMgr := flow.NewManager(
		conversationservice.NewDomainHydrator(domainSvc),
		cfg.AI.SessionIdleTimeout(),
		cfg.AI.IntentConfidenceThreshold,
		log,
	)
	cls := classifier.New(orch, cfg.AI.IntentConfidenceThreshold, log)
	executor := dispatch.NewExecutor(dispatch.NewDomainAdapter(domainSvc))
	conversationSvc := conversationservice.NewService(
		flowMgr, cls, executor, orch, profileSource, conversationRepo, eventBus,
		cfg.AI.IntentConfidenceThreshold, log)
	log.Info("Conversation engine initialized",
		zap.Duration("session_idle_timeout", cfg.AI.SessionIdleTimeout()),
		zap.Float64("intent_confidence_threshold", cfg.AI.IntentConfidenceThreshold))

	// ============================================
	// SYNC ENGINE
	// ============================================
	syncSvc := syncservice.NewService(clock, eventBus, cfg.Sync.DeltaPageLimit, log,
		syncservice.NewGoalHandler(domainStore),
		syncservice.NewTaskHandler(domainStore),
		syncservice.NewProjectHandler(domainStore),
		syncservice.NewLifeRatingHandler(domainStore),
		syncservice.NewPreferencesHandler(domainStore),
		syncservice.NewOnboardingHandler(domainStore),
		syncservice.NewAssistantHandler(assistantStore),
	)
	log.Info("Sync engine initialized", zap.Int("delta_page_limit", cfg.Sync.DeltaPageLimit))

	// ============================================
	// HTTP SERVER
	// ============================================
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(httpmw.RequestID())
	router.Use(httpmw.RequestLogger(log, "northstar"))

	domainhandlers.RegisterRoutes(router, domaincontroller.NewController(domainSvc), log)
	assistanthandlers.RegisterRoutes(router, assistantcontroller.NewController(assistantSvc), log)
	conversationhandlers.RegisterRoutes(router, conversationcontroller.NewController(conversationSvc), log)
	synchandlers.RegisterRoutes(router, synccontroller.NewController(syncSvc), log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "northstar",
		})
	})

	// Provider usage counters for operators
	router.GET("/api/v1/ai/metrics", httpmw.RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, orch.Metrics())
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// ============================================
	// BACKGROUND SWEEPERS
	// ============================================
	go runSweepers(ctx, log, orch, conversationSvc, assistantSvc)

	log.Info("API configured",
		zap.String("health", "/health"),
		zap.String("http", "/api/v1"),
	)

	// ============================================
	// GRACEFUL SHUTDOWN
	// ============================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Northstar...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Northstar stopped")
}

// buildProviderClients assembles the completion clients available to the
// orchestrator. The local mock is always registered by the orchestrator
// itself, so a key-less deployment still answers.
func buildProviderClients(cfg *config.Config, log *logger.Logger) []provider.Client {
	var clients []provider.Client
	if cfg.AI.OpenAIAPIKey != "" {
		c, err := provider.NewOpenAIClientFromAPIKey(cfg.AI.OpenAIAPIKey, "")
		if err != nil {
			log.Warn("Failed to initialize OpenAI client", zap.Error(err))
		} else {
			clients = append(clients, c)
			log.Info("OpenAI provider registered")
		}
	}
	if cfg.AI.AnthropicAPIKey != "" {
		c, err := provider.NewAnthropicClientFromAPIKey(cfg.AI.AnthropicAPIKey, "")
		if err != nil {
			log.Warn("Failed to initialize Anthropic client", zap.Error(err))
		} else {
			clients = append(clients, c)
			log.Info("Anthropic provider registered")
		}
	}
	return clients
}

// sweepInterval paces the periodic cleanup of expired cache entries, idle
// sessions and lapsed permission grants.
const sweepInterval = 5 * time.Minute

func runSweepers(
	ctx context.Context,
	log *logger.Logger,
	orch *orchestrator.Orchestrator,
	conversationSvc *conversationservice.Service,
	assistantSvc *assistantservice.Service,
) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := orch.SweepCache(); n > 0 {
				log.Debug("Swept expired cache entries", zap.Int("count", n))
			}
			if n := conversationSvc.SweepIdleSessions(); n > 0 {
				log.Info("Abandoned idle sessions", zap.Int("count", n))
			}
			if n, err := assistantSvc.SweepExpired(ctx); err != nil {
				log.Warn("Failed to sweep expired permissions", zap.Error(err))
			} else if n > 0 {
				log.Info("Removed expired permission grants", zap.Int("count", n))
			}
		}
	}
}
