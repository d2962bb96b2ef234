package orchestrator

import (
	"time"

	"github.com/northstarhq/northstar/internal/ai/provider"
)

// ModelConfig is the resolved configuration for a single provider attempt.
type ModelConfig struct {
	Provider     string
	ModelName    string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	CostPerToken float64
}

// defaultModels maps provider name to the model used per use case.
var defaultModels = map[string]map[UseCase]string{
	provider.NameOpenAI: {
		UseCaseGoalDecomposition: "gpt-4o",
		UseCaseTaskGeneration:    "gpt-4o-mini",
		UseCaseConversation:      "gpt-4o-mini",
	},
	provider.NameAnthropic: {
		UseCaseGoalDecomposition: "claude-sonnet-4-20250514",
		UseCaseTaskGeneration:    "claude-3-5-haiku-20241022",
		UseCaseConversation:      "claude-3-5-haiku-20241022",
	},
	provider.NameLocal: {
		UseCaseGoalDecomposition: "mock-v1",
		UseCaseTaskGeneration:    "mock-v1",
		UseCaseConversation:      "mock-v1",
	},
}

// costPerToken is a rough blended per-token cost estimate in USD. Zero means
// unknown and yields a zero cost estimate.
var costPerToken = map[string]float64{
	"gpt-4o":                    0.00001,
	"gpt-4o-mini":               0.0000006,
	"claude-sonnet-4-20250514":  0.000009,
	"claude-3-5-haiku-20241022": 0.000002,
}

// defaultMaxTokens per use case.
var defaultMaxTokens = map[UseCase]int{
	UseCaseGoalDecomposition: 2048,
	UseCaseTaskGeneration:    1024,
	UseCaseConversation:      1024,
}

// defaultTemperature per use case.
var defaultTemperature = map[UseCase]float64{
	UseCaseGoalDecomposition: 0.4,
	UseCaseTaskGeneration:    0.5,
	UseCaseConversation:      0.7,
}

// resolveModelConfig builds the per-provider configuration for a request.
// Request-level overrides (model, temperature, max tokens) win over use-case
// defaults.
func (o *Orchestrator) resolveModelConfig(providerName string, req Request) ModelConfig {
	cfg := ModelConfig{
		Provider:    providerName,
		MaxTokens:   defaultMaxTokens[req.UseCase],
		Temperature: defaultTemperature[req.UseCase],
		Timeout:     o.requestTimeout,
	}
	if models, ok := defaultModels[providerName]; ok {
		cfg.ModelName = models[req.UseCase]
	}
	if req.Model != "" && providerName != provider.NameLocal {
		cfg.ModelName = req.Model
	}
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		cfg.MaxTokens = req.MaxTokens
	}
	cfg.CostPerToken = costPerToken[cfg.ModelName]
	return cfg
}
