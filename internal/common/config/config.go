// Package config provides configuration management for Northstar.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for Northstar.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	AI       AIConfig       `mapstructure:"ai"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// DatabaseConfig holds the SQLite database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NATSConfig holds NATS messaging configuration.
// An empty URL selects the in-memory event bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClusterID     string `mapstructure:"clusterId"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// AIConfig holds configuration for the AI orchestrator and conversation engine.
type AIConfig struct {
	// Provider selects the primary completion provider: openai, anthropic or local.
	Provider string `mapstructure:"provider"`

	// EnableCaching toggles the fingerprint-keyed response cache.
	EnableCaching bool `mapstructure:"enableCaching"`

	// CacheTTLSeconds is the response cache entry lifetime.
	CacheTTLSeconds int `mapstructure:"cacheTtlSeconds"`

	// IntentConfidenceThreshold is the minimum confidence for an intent to be
	// treated as actionable without clarification.
	IntentConfidenceThreshold float64 `mapstructure:"intentConfidenceThreshold"`

	// MaxAssistantProfilesPerUser caps the assistant profiles a user may own.
	MaxAssistantProfilesPerUser int `mapstructure:"maxAssistantProfilesPerUser"`

	// SessionIdleTimeoutMinutes is the idle window after which a conversation
	// session is considered abandoned.
	SessionIdleTimeoutMinutes int `mapstructure:"sessionIdleTimeoutMinutes"`

	// RequestTimeoutSeconds bounds a single provider call.
	RequestTimeoutSeconds int `mapstructure:"requestTimeoutSeconds"`

	OpenAIAPIKey    string `mapstructure:"openaiApiKey"`
	AnthropicAPIKey string `mapstructure:"anthropicApiKey"`
}

// SyncConfig holds batch synchronization configuration.
type SyncConfig struct {
	// DeltaPageLimit caps the number of changes returned by a delta feed page.
	DeltaPageLimit int `mapstructure:"deltaPageLimit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// CacheTTL returns the response cache TTL as a time.Duration.
func (a *AIConfig) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

// SessionIdleTimeout returns the session idle window as a time.Duration.
func (a *AIConfig) SessionIdleTimeout() time.Duration {
	return time.Duration(a.SessionIdleTimeoutMinutes) * time.Minute
}

// RequestTimeout returns the per-provider call timeout as a time.Duration.
func (a *AIConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// detectDefaultLogFormat returns "json" for production environments and
// "text" for terminal/development use.
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("NORTHSTAR_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database defaults
	v.SetDefault("database.path", "./northstar.db")

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clusterId", "northstar-cluster")
	v.SetDefault("nats.clientId", "northstar-client")
	v.SetDefault("nats.maxReconnects", 10)

	// AI defaults
	v.SetDefault("ai.provider", "local")
	v.SetDefault("ai.enableCaching", true)
	v.SetDefault("ai.cacheTtlSeconds", 3600)
	v.SetDefault("ai.intentConfidenceThreshold", 0.85)
	v.SetDefault("ai.maxAssistantProfilesPerUser", 5)
	v.SetDefault("ai.sessionIdleTimeoutMinutes", 30)
	v.SetDefault("ai.requestTimeoutSeconds", 30)
	v.SetDefault("ai.openaiApiKey", "")
	v.SetDefault("ai.anthropicApiKey", "")

	// Sync defaults
	v.SetDefault("sync.deltaPageLimit", 500)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix NORTHSTAR_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory
// or /etc/northstar/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variables
	v.SetEnvPrefix("NORTHSTAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for the flat AI_* variables used by deployments.
	// AutomaticEnv does not handle camelCase to SNAKE_CASE conversion, so we
	// explicitly bind keys where env var naming differs from config key naming.
	_ = v.BindEnv("ai.provider", "AI_PROVIDER", "NORTHSTAR_AI_PROVIDER")
	_ = v.BindEnv("ai.enableCaching", "AI_ENABLE_CACHING", "NORTHSTAR_AI_ENABLE_CACHING")
	_ = v.BindEnv("ai.cacheTtlSeconds", "AI_CACHE_TTL_SECONDS", "NORTHSTAR_AI_CACHE_TTL_SECONDS")
	_ = v.BindEnv("ai.intentConfidenceThreshold", "AI_INTENT_CONFIDENCE_THRESHOLD", "NORTHSTAR_AI_INTENT_CONFIDENCE_THRESHOLD")
	_ = v.BindEnv("ai.maxAssistantProfilesPerUser", "AI_MAX_ASSISTANT_PROFILES_PER_USER", "NORTHSTAR_AI_MAX_ASSISTANT_PROFILES_PER_USER")
	_ = v.BindEnv("ai.sessionIdleTimeoutMinutes", "AI_SESSION_IDLE_TIMEOUT_MINUTES", "NORTHSTAR_AI_SESSION_IDLE_TIMEOUT_MINUTES")
	_ = v.BindEnv("ai.openaiApiKey", "OPENAI_API_KEY")
	_ = v.BindEnv("ai.anthropicApiKey", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("database.path", "NORTHSTAR_DB_PATH")

	// Configure config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/northstar/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	switch cfg.AI.Provider {
	case "openai", "anthropic", "local":
	default:
		errs = append(errs, "ai.provider must be one of: openai, anthropic, local")
	}
	if cfg.AI.CacheTTLSeconds <= 0 {
		errs = append(errs, "ai.cacheTtlSeconds must be positive")
	}
	if cfg.AI.IntentConfidenceThreshold < 0 || cfg.AI.IntentConfidenceThreshold > 1 {
		errs = append(errs, "ai.intentConfidenceThreshold must be within [0, 1]")
	}
	if cfg.AI.MaxAssistantProfilesPerUser <= 0 {
		errs = append(errs, "ai.maxAssistantProfilesPerUser must be positive")
	}
	if cfg.AI.SessionIdleTimeoutMinutes <= 0 {
		errs = append(errs, "ai.sessionIdleTimeoutMinutes must be positive")
	}
	if cfg.AI.RequestTimeoutSeconds <= 0 {
		errs = append(errs, "ai.requestTimeoutSeconds must be positive")
	}

	if cfg.Sync.DeltaPageLimit <= 0 {
		errs = append(errs, "sync.deltaPageLimit must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
