package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/ai/cache"
	"github.com/northstarhq/northstar/internal/ai/provider"
	"github.com/northstarhq/northstar/internal/common/logger"
)

// Options configures the orchestrator.
type Options struct {
	// PrimaryProvider is tried first; the local mock always terminates the
	// fallback chain.
	PrimaryProvider string

	// EnableCaching toggles the fingerprint response cache.
	EnableCaching bool

	// CacheTTL is the response cache entry lifetime.
	CacheTTL time.Duration

	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration
}

// Orchestrator routes completion requests through the cache and the provider
// fallback chain, accounting tokens and cost along the way.
type Orchestrator struct {
	providers      map[string]provider.Client
	breakers       map[string]*gobreaker.CircuitBreaker
	primary        string
	cache          *cache.Cache
	cachingEnabled bool
	requestTimeout time.Duration
	metrics        *Metrics
	logger         *logger.Logger
}

// New creates an orchestrator over the given provider clients. The local mock
// client is registered automatically when absent so the fallback chain always
// has a terminal provider.
func New(opts Options, clients []provider.Client, log *logger.Logger) *Orchestrator {
	providers := make(map[string]provider.Client, len(clients)+1)
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(clients)+1)
	for _, c := range clients {
		providers[c.Name()] = c
	}
	if _, ok := providers[provider.NameLocal]; !ok {
		providers[provider.NameLocal] = provider.NewMockClient()
	}
	for name := range providers {
		breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "ai-provider-" + name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}

	primary := opts.PrimaryProvider
	if _, ok := providers[primary]; !ok {
		primary = provider.NameLocal
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Orchestrator{
		providers:      providers,
		breakers:       breakers,
		primary:        primary,
		cache:          cache.New(opts.CacheTTL),
		cachingEnabled: opts.EnableCaching,
		requestTimeout: timeout,
		metrics:        newMetrics(),
		logger:         log.WithFields(zap.String("component", "ai-orchestrator")),
	}
}

// Metrics returns the orchestrator counters.
func (o *Orchestrator) Metrics() MetricsSnapshot {
	return o.metrics.Snapshot()
}

// SweepCache removes expired cache entries and returns the count removed.
func (o *Orchestrator) SweepCache() int {
	return o.cache.Sweep()
}

// Chat routes a completion request. It never returns an error: when every
// provider in the chain fails, the response carries Status = error and a
// sanitized error message.
func (o *Orchestrator) Chat(ctx context.Context, req Request) *AIResponse {
	start := time.Now()
	requestID := uuid.New().String()
	o.metrics.recordRequest()

	chain := o.fallbackChain(req.ProviderOverride)
	primaryCfg := o.resolveModelConfig(chain[0], req)

	if o.cachingEnabled {
		fp := cache.Fingerprint(req.Prompt, primaryCfg.ModelName, primaryCfg.MaxTokens, primaryCfg.Temperature)
		if res, ok := o.cache.Get(fp); ok {
			o.metrics.recordSuccess(res.Usage.TotalTokens, 0, true, false)
			return o.successResponse(requestID, res, o.resolveModelConfig(res.Provider, req), true, false, start)
		}
		res, shared, err := o.cache.GetOrCompute(fp, func() (*provider.CompletionResult, error) {
			return o.runChain(ctx, chain, req)
		})
		if err != nil {
			o.metrics.recordFailure()
			return o.errorResponse(requestID, primaryCfg, err, start)
		}
		// The result carries its producing provider, so attribution survives
		// the single-flight path where another caller ran the chain.
		usedCfg := o.resolveModelConfig(res.Provider, req)
		fallback := res.Provider != chain[0]
		cost := estimateCost(res.Usage.TotalTokens, usedCfg.CostPerToken)
		o.metrics.recordSuccess(res.Usage.TotalTokens, cost, shared, fallback)
		return o.successResponse(requestID, res, usedCfg, shared, fallback, start)
	}

	res, err := o.runChain(ctx, chain, req)
	if err != nil {
		o.metrics.recordFailure()
		return o.errorResponse(requestID, primaryCfg, err, start)
	}
	usedCfg := o.resolveModelConfig(res.Provider, req)
	cost := estimateCost(res.Usage.TotalTokens, usedCfg.CostPerToken)
	fallback := res.Provider != chain[0]
	o.metrics.recordSuccess(res.Usage.TotalTokens, cost, false, fallback)
	return o.successResponse(requestID, res, usedCfg, false, fallback, start)
}

// fallbackChain orders providers for a request: override or primary first,
// the local mock last. Duplicates collapse.
func (o *Orchestrator) fallbackChain(override string) []string {
	first := o.primary
	if override != "" {
		if _, ok := o.providers[override]; ok {
			first = override
		}
	}
	if first == provider.NameLocal {
		return []string{provider.NameLocal}
	}
	return []string{first, provider.NameLocal}
}

// runChain tries each provider in order; the first success wins. Every
// attempt is wrapped in the provider's circuit breaker. The winning result is
// stamped with the producing provider's name.
func (o *Orchestrator) runChain(ctx context.Context, chain []string, req Request) (*provider.CompletionResult, error) {
	var lastErr error
	for _, name := range chain {
		client := o.providers[name]
		cfg := o.resolveModelConfig(name, req)

		v, err := o.breakers[name].Execute(func() (interface{}, error) {
			return client.GenerateCompletion(ctx, provider.CompletionRequest{
				Prompt:       req.Prompt,
				SystemPrompt: req.SystemPrompt,
				Model:        cfg.ModelName,
				MaxTokens:    cfg.MaxTokens,
				Temperature:  cfg.Temperature,
				Timeout:      cfg.Timeout,
			})
		})
		if err != nil {
			lastErr = err
			o.metrics.recordProviderFailure(name)
			o.logger.Warn("provider attempt failed",
				zap.String("provider", name),
				zap.String("use_case", string(req.UseCase)),
				zap.Error(err))
			if ctx.Err() != nil {
				// Whole-request deadline exceeded; do not try further providers.
				break
			}
			continue
		}
		res := v.(*provider.CompletionResult)
		res.Content = sanitizeContent(res.Content)
		res.Provider = name
		return res, nil
	}
	return nil, lastErr
}

func (o *Orchestrator) successResponse(requestID string, res *provider.CompletionResult, cfg ModelConfig, cacheHit, fallback bool, start time.Time) *AIResponse {
	return &AIResponse{
		RequestID: requestID,
		Status:    StatusSuccess,
		Content:   res.Content,
		Metadata: Metadata{
			Provider:     cfg.Provider,
			FinishReason: res.FinishReason,
			CacheHit:     cacheHit,
		},
		TokenUsage:     res.Usage,
		CostEstimate:   estimateCost(res.Usage.TotalTokens, cfg.CostPerToken),
		ModelUsed:      res.Model,
		ProcessingTime: time.Since(start),
	}
}

func (o *Orchestrator) errorResponse(requestID string, cfg ModelConfig, err error, start time.Time) *AIResponse {
	msg := "all providers failed"
	if err != nil {
		msg = sanitizeErrorMessage(err.Error())
	}
	return &AIResponse{
		RequestID:      requestID,
		Status:         StatusError,
		Metadata:       Metadata{Provider: cfg.Provider},
		ProcessingTime: time.Since(start),
		ErrorMessage:   msg,
	}
}

func estimateCost(totalTokens int, costPerToken float64) float64 {
	if costPerToken <= 0 {
		return 0
	}
	return float64(totalTokens) * costPerToken
}

// sanitizeContent trims surrounding whitespace and strips control characters
// other than newline and tab. Deterministic and idempotent.
func sanitizeContent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		if r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// sanitizeErrorMessage keeps error strings free of vendor payload dumps.
func sanitizeErrorMessage(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
