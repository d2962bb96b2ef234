package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

// Wednesday 2026-03-04.
var fixedNow = time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)

func newFixedExtractor() *Extractor {
	e := NewExtractor()
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestExtractDueDate(t *testing.T) {
	e := newFixedExtractor()

	tests := []struct {
		message string
		want    string
	}{
		{"remind me to call mom tomorrow", "2026-03-05"},
		{"finish the report today", "2026-03-04"},
		{"dentist on friday", "2026-03-06"},
		// Same weekday resolves to next week, strictly future
		{"review on wednesday", "2026-03-11"},
		{"submit taxes by 4/15/2026", "2026-04-15"},
		{"submit taxes by 4-15-2026", "2026-04-15"},
		{"follow up in 3 days", "2026-03-07"},
		{"check back in 2 weeks", "2026-03-18"},
		{"renew in 1 month", "2026-04-03"},
		{"wrap up this week", "2026-03-08"},
		{"plan next week", "2026-03-09"},
		{"close the books this month", "2026-03-31"},
		{"budget for next month", "2026-04-01"},
		{"retrospective this year", "2026-12-31"},
		{"resolutions next year", "2027-01-01"},
	}
	for _, tt := range tests {
		got, ok := e.extractDueDate(tt.message)
		assert.True(t, ok, tt.message)
		assert.Equal(t, tt.want, got, tt.message)
	}

	_, ok := e.extractDueDate("no date here")
	assert.False(t, ok)
}

func TestExtractDueDateTwoWeekdaysDeterministic(t *testing.T) {
	e := newFixedExtractor()

	// Earliest weekday in the Monday..Sunday order wins, every time.
	for i := 0; i < 20; i++ {
		got, ok := e.extractDueDate("move the tuesday standup to friday")
		assert.True(t, ok)
		assert.Equal(t, "2026-03-10", got)
	}
}

func TestExtractLifeArea(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"i want to improve my fitness", "Health"},
		{"thinking about my career", "Career"},
		{"spend more time with family", "Relationships"},
		{"get my budget under control", "Finance"},
		{"learn spanish", "Education"},
		{"plan a vacation", "Recreation"},
		{"daily meditation", "Spiritual"},
		{"build a new habit", "Personal"},
	}
	for _, tt := range tests {
		got, ok := extractLifeArea(tt.message)
		assert.True(t, ok, tt.message)
		assert.Equal(t, tt.want, got, tt.message)
	}

	_, ok := extractLifeArea("buy groceries")
	assert.False(t, ok)
}

func TestExtractPriorityAndDuration(t *testing.T) {
	p, ok := extractPriority("this is urgent")
	assert.True(t, ok)
	assert.Equal(t, "high", p)

	p, ok = extractPriority("a minor thing")
	assert.True(t, ok)
	assert.Equal(t, "low", p)

	p, ok = extractPriority("regular checkup")
	assert.True(t, ok)
	assert.Equal(t, "medium", p)

	_, ok = extractPriority("nothing special")
	assert.False(t, ok)

	d, ok := extractDuration("should take 30 minutes")
	assert.True(t, ok)
	assert.Equal(t, "30 minutes", d)

	d, ok = extractDuration("a 2 hour session")
	assert.True(t, ok)
	assert.Equal(t, "2 hours", d)
}

func TestExtractTitle(t *testing.T) {
	// The date phrase lands in due_date, not the title.
	title, ok := extractTitle("Remind me to buy groceries tomorrow")
	assert.True(t, ok)
	assert.Equal(t, "buy groceries", title)

	title, ok = extractTitle("call the bank by friday")
	assert.True(t, ok)
	assert.Equal(t, "call the bank", title)

	title, ok = extractTitle("I want to create a goal to run a marathon!")
	assert.True(t, ok)
	assert.Equal(t, "run a marathon", title)

	// Too short after stripping
	_, ok = extractTitle("todo: ok")
	assert.False(t, ok)
}

func TestExtractFirstMatchWins(t *testing.T) {
	e := newFixedExtractor()

	// Values already present in base are never overwritten.
	out := e.Extract("urgent: finish report tomorrow", models.IntentCreateTask, map[string]string{
		"priority": "low",
	})
	assert.Equal(t, "low", out["priority"])
	assert.Equal(t, "2026-03-05", out["due_date"])
}

func TestExtractTitleOnlyForCreateIntents(t *testing.T) {
	e := newFixedExtractor()

	out := e.Extract("how can i stay motivated", models.IntentGetAdvice, nil)
	_, hasTitle := out["title"]
	assert.False(t, hasTitle)

	out = e.Extract("remind me to water the plants", models.IntentCreateTask, nil)
	assert.Equal(t, "water the plants", out["title"])
}
