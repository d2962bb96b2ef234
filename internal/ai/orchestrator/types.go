// Package orchestrator routes completion requests to providers with
// fingerprint caching, a circuit-broken fallback chain and cost accounting.
package orchestrator

import (
	"time"

	"github.com/northstarhq/northstar/internal/ai/provider"
)

// UseCase identifies the kind of completion being requested. The model
// configuration is a function of the use case.
type UseCase string

const (
	UseCaseGoalDecomposition UseCase = "goal_decomposition"
	UseCaseTaskGeneration    UseCase = "task_generation"
	UseCaseConversation      UseCase = "conversation"
)

// Status of an AIResponse.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Request is a typed completion request. Temperature and Model, when set,
// override the use-case defaults; an assistant profile's dialogue or intent
// temperature is passed through Temperature by the caller.
type Request struct {
	UseCase          UseCase
	Prompt           string
	SystemPrompt     string
	UserID           string
	ProviderOverride string
	Model            string
	Temperature      *float64
	MaxTokens        int
}

// Metadata describes how a response was produced.
type Metadata struct {
	Provider     string `json:"provider"`
	FinishReason string `json:"finish_reason"`
	CacheHit     bool   `json:"cache_hit"`
}

// AIResponse is the orchestrator's uniform response envelope. A failed chain
// yields Status = error with ErrorMessage set; no error escapes Chat.
type AIResponse struct {
	RequestID      string         `json:"request_id"`
	Status         Status         `json:"status"`
	Content        string         `json:"content"`
	Metadata       Metadata       `json:"metadata"`
	TokenUsage     provider.Usage `json:"token_usage"`
	CostEstimate   float64        `json:"cost_estimate"`
	ModelUsed      string         `json:"model_used"`
	ProcessingTime time.Duration  `json:"processing_time"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}
