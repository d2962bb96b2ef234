// Package dispatch plans and executes the next actions after a classified
// turn: clarification prompts, missing-entity requests and domain mutations.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

// defaultConfidenceThreshold gates action execution when no threshold is
// configured; below it the client is asked to clarify.
const defaultConfidenceThreshold = 0.85

// ActionType enumerates planner outputs.
type ActionType string

const (
	ActionClarificationRequest ActionType = "clarification_request"
	ActionEntityRequest        ActionType = "entity_request"
	ActionExecuteAction        ActionType = "execute_action"
	ActionProvideAdvice        ActionType = "provide_advice"
	ActionContinueConversation ActionType = "continue_conversation"
)

// Action is one planned next step. Only execute_action is performed server
// side; the rest shape the client's next UI step.
type Action struct {
	Type             ActionType        `json:"type"`
	Message          string            `json:"message,omitempty"`
	RequiredEntity   string            `json:"required_entity,omitempty"`
	SuggestedIntents []string          `json:"suggested_intents,omitempty"`
	Action           string            `json:"action,omitempty"`
	Entities         map[string]string `json:"entities,omitempty"`
	Context          map[string]string `json:"context,omitempty"`
}

// PlanNextActions derives the ordered action list from a classification and
// the session context. threshold gates execution; zero or negative selects
// the default.
func PlanNextActions(result models.Classification, session *models.Session, threshold float64) []Action {
	if threshold <= 0 {
		threshold = defaultConfidenceThreshold
	}
	var actions []Action

	if result.Confidence < threshold {
		actions = append(actions, Action{
			Type:             ActionClarificationRequest,
			Message:          "I'm not sure I understood. Could you rephrase that?",
			SuggestedIntents: suggestedIntents(result.Intent),
		})
		return actions
	}

	missing := missingEntities(result)
	if len(missing) > 0 {
		for _, name := range missing {
			actions = append(actions, Action{
				Type:           ActionEntityRequest,
				RequiredEntity: name,
				Message:        entityPrompt(result.Intent, name),
			})
		}
		return actions
	}

	switch result.Intent {
	case models.IntentCreateGoal, models.IntentCreateTask, models.IntentCreateProject,
		models.IntentUpdateSettings, models.IntentRateLifeArea:
		actions = append(actions, Action{
			Type:     ActionExecuteAction,
			Action:   result.Intent,
			Entities: result.Entities,
		})
	case models.IntentGetAdvice:
		actions = append(actions, Action{
			Type:    ActionProvideAdvice,
			Context: result.Entities,
		})
	default:
		ctx := map[string]string{}
		if session != nil {
			ctx["session_id"] = session.ID
			ctx["turn_count"] = fmt.Sprintf("%d", session.TurnCount)
			if session.CurrentIntent != "" {
				ctx["current_intent"] = session.CurrentIntent
			}
		}
		actions = append(actions, Action{
			Type:    ActionContinueConversation,
			Context: ctx,
		})
	}
	return actions
}

func missingEntities(result models.Classification) []string {
	var missing []string
	for _, name := range models.RequiredEntities(result.Intent) {
		if result.Entities[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func entityPrompt(intent, entity string) string {
	if entity == "title" {
		kind := strings.TrimPrefix(intent, "create_")
		return fmt.Sprintf("What would you like to call this %s?", kind)
	}
	if entity == "life_area" {
		return "Which life area would you like to rate?"
	}
	return fmt.Sprintf("Could you tell me the %s?", strings.ReplaceAll(entity, "_", " "))
}

func suggestedIntents(intent string) []string {
	if intent == "" || intent == models.IntentUnknown {
		return []string{models.IntentCreateGoal, models.IntentCreateTask, models.IntentGetAdvice}
	}
	if intent == models.IntentChatContinuation {
		return []string{models.IntentChatContinuation, models.IntentGetAdvice}
	}
	return []string{intent, models.IntentChatContinuation}
}
