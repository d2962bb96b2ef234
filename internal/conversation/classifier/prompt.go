package classifier

import (
	"strings"
)

// Context is the user situation snapshot handed to Stage A so the model can
// disambiguate short messages.
type Context struct {
	RecentGoals    []string
	RecentTasks    []string
	LifeAreas      []string
	Language       string
	PreviousIntent string
}

const intentTaxonomy = `Intents:
- create_goal: the user wants to set a new long-term goal
- create_task: the user wants a reminder or a single actionable item
- create_project: the user wants to start a project grouping several tasks
- update_settings: the user wants to change preferences (language, timezone, notifications)
- rate_life_area: the user rates satisfaction with a life area (1-10)
- get_advice: the user asks for guidance or suggestions
- chat_continuation: the user continues the conversation without a new actionable request
- unknown: none of the above applies

Entities (include only when present in the message):
- title: the goal/task/project title
- due_date: ISO date
- life_area: one of Health, Career, Relationships, Finance, Personal, Education, Recreation, Spiritual
- priority: low, medium or high
- duration: free-form duration string`

// buildSystemPrompt assembles the Stage A classification instruction.
func buildSystemPrompt(ctx Context) string {
	var b strings.Builder
	b.WriteString("You classify the intent of a user message for a personal goal-management assistant.\n\n")
	b.WriteString(intentTaxonomy)
	b.WriteString("\n\nUser context:\n")
	if len(ctx.RecentGoals) > 0 {
		b.WriteString("- recent goals: " + strings.Join(ctx.RecentGoals, "; ") + "\n")
	}
	if len(ctx.RecentTasks) > 0 {
		b.WriteString("- recent tasks: " + strings.Join(ctx.RecentTasks, "; ") + "\n")
	}
	if len(ctx.LifeAreas) > 0 {
		b.WriteString("- life areas of interest: " + strings.Join(ctx.LifeAreas, ", ") + "\n")
	}
	if ctx.Language != "" {
		b.WriteString("- preferred language: " + ctx.Language + "\n")
	}
	if ctx.PreviousIntent != "" {
		b.WriteString("- previous intent: " + ctx.PreviousIntent + "\n")
	}
	b.WriteString("\nRespond with JSON only, no prose, exactly this shape:\n")
	b.WriteString(`{"intent": "<intent>", "confidence": <0.0-1.0>, "entities": {"<name>": "<value>"}, "reasoning": "<one sentence>"}`)
	return b.String()
}

// buildUserPrompt wraps the raw message for classification.
func buildUserPrompt(message string) string {
	return "Classify the intent of this message:\n\n" + message
}
