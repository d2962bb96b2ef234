// Package classifier implements two-stage intent classification: a
// model-based stage with a strict JSON contract and a rule-based pattern
// fallback, followed by unconditional entity extraction.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/ai/orchestrator"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/conversation/models"
)

// defaultIntentTemperature applies when no assistant profile overrides it.
const defaultIntentTemperature = 0.1

// defaultMergeThreshold is the Stage A confidence below which Stage B also
// runs, when no threshold is configured.
const defaultMergeThreshold = 0.85

// Completer is the orchestrator surface the classifier needs.
type Completer interface {
	Chat(ctx context.Context, req orchestrator.Request) *orchestrator.AIResponse
}

// Params describes one classification request.
type Params struct {
	UserID            string
	Message           string
	Context           Context
	IntentTemperature *float64
	Model             string
	ProviderOverride  string
}

// Classifier runs both stages and entity extraction.
type Classifier struct {
	completer      Completer
	extractor      *Extractor
	mergeThreshold float64
	logger         *logger.Logger
}

// New creates a classifier over the given completion backend.
// confidenceThreshold sets the Stage A merge threshold; zero or negative
// selects the default.
func New(completer Completer, confidenceThreshold float64, log *logger.Logger) *Classifier {
	if confidenceThreshold <= 0 {
		confidenceThreshold = defaultMergeThreshold
	}
	return &Classifier{
		completer:      completer,
		extractor:      NewExtractor(),
		mergeThreshold: confidenceThreshold,
		logger:         log.WithFields(zap.String("component", "intent-classifier")),
	}
}

// Classify returns the merged classification for a message. Stage A (model)
// runs first; on parse failure Stage B is the only answer, and below the
// merge threshold the higher-confidence stage wins. Entity extraction then
// merges its findings regardless of which stage won.
func (c *Classifier) Classify(ctx context.Context, p Params) models.Classification {
	start := time.Now()

	result, stageAOK := c.classifyByModel(ctx, p)
	if !stageAOK {
		result = classifyByPatterns(p.Message)
	} else if result.Confidence < c.mergeThreshold {
		patternResult := classifyByPatterns(p.Message)
		if patternResult.Confidence > result.Confidence {
			result = patternResult
		}
	}

	result.Entities = c.extractor.Extract(p.Message, result.Intent, result.Entities)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

// stageAPayload is the JSON contract the model must honor.
type stageAPayload struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
	Reasoning  string            `json:"reasoning"`
}

// classifyByModel runs Stage A. The second return is false when the model
// call failed or its output did not parse to the contract.
func (c *Classifier) classifyByModel(ctx context.Context, p Params) (models.Classification, bool) {
	temp := defaultIntentTemperature
	if p.IntentTemperature != nil {
		temp = *p.IntentTemperature
	}
	resp := c.completer.Chat(ctx, orchestrator.Request{
		UseCase:          orchestrator.UseCaseConversation,
		Prompt:           buildUserPrompt(p.Message),
		SystemPrompt:     buildSystemPrompt(p.Context),
		UserID:           p.UserID,
		Model:            p.Model,
		ProviderOverride: p.ProviderOverride,
		Temperature:      &temp,
	})
	if resp.Status != orchestrator.StatusSuccess {
		c.logger.Warn("model classification failed",
			zap.String("user_id", p.UserID),
			zap.String("error", resp.ErrorMessage))
		return models.Classification{}, false
	}

	payload, err := parseStageA(resp.Content)
	if err != nil {
		c.logger.Warn("model output did not parse",
			zap.String("user_id", p.UserID),
			zap.Error(err))
		return models.Classification{}, false
	}
	return models.Classification{
		Intent:     payload.Intent,
		Confidence: payload.Confidence,
		Entities:   payload.Entities,
		Reasoning:  payload.Reasoning,
		Source:     models.SourceModel,
	}, true
}

// parseStageA decodes the model's JSON, repairing common formatting damage
// (markdown fences, trailing commas, single quotes) before giving up.
func parseStageA(content string) (*stageAPayload, error) {
	var payload stageAPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return nil, fmt.Errorf("unparseable classification output: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil, fmt.Errorf("unparseable classification output after repair: %w", err)
		}
	}
	if !models.KnownIntents[payload.Intent] {
		payload.Intent = models.IntentUnknown
	}
	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 1 {
		payload.Confidence = 1
	}
	return &payload, nil
}
