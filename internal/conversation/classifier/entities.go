package classifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

// Extractor pulls structured entities out of a raw message. Extraction is
// first-match-wins per entity type and runs independently of the chosen
// intent; the title rule alone is intent-conditional.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates an extractor using the system clock.
func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// Extract returns the entities found in the message. Already-present keys in
// base win over extracted values.
func (e *Extractor) Extract(message, intent string, base map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range base {
		if v != "" {
			out[k] = v
		}
	}
	lower := strings.ToLower(message)

	if _, ok := out["due_date"]; !ok {
		if d, found := e.extractDueDate(lower); found {
			out["due_date"] = d
		}
	}
	if _, ok := out["life_area"]; !ok {
		if a, found := extractLifeArea(lower); found {
			out["life_area"] = a
		}
	}
	if _, ok := out["priority"]; !ok {
		if p, found := extractPriority(lower); found {
			out["priority"] = p
		}
	}
	if _, ok := out["duration"]; !ok {
		if d, found := extractDuration(lower); found {
			out["duration"] = d
		}
	}
	if _, ok := out["score"]; !ok {
		if s, found := extractScore(lower); found {
			out["score"] = s
		}
	}
	if _, ok := out["title"]; !ok && models.IsCreateIntent(intent) {
		if t, found := extractTitle(message); found {
			out["title"] = t
		}
	}
	return out
}

var (
	dateSlashRe  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	inNUnitsRe   = regexp.MustCompile(`\bin (\d+) (day|days|week|weeks|month|months)\b`)
	boundaryRe   = regexp.MustCompile(`\b(next|this) (week|month|year)\b`)
	durationRe   = regexp.MustCompile(`\b(\d+)\s*(minutes?|mins?|hours?|hrs?|days?)\b`)
	scoreRe      = regexp.MustCompile(`\b(\d{1,2})\s*(?:/|out of)\s*10\b`)
	// Ordered so a message naming several weekdays always resolves to the
	// same one.
	weekdayNames = []struct {
		name string
		day  time.Weekday
	}{
		{"monday", time.Monday}, {"tuesday", time.Tuesday}, {"wednesday", time.Wednesday},
		{"thursday", time.Thursday}, {"friday", time.Friday}, {"saturday", time.Saturday},
		{"sunday", time.Sunday},
	}
)

// extractDueDate resolves relative and absolute date phrases to an ISO date.
// Rules are checked in a fixed order; the first hit wins.
func (e *Extractor) extractDueDate(lower string) (string, bool) {
	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if strings.Contains(lower, "tomorrow") {
		return today.AddDate(0, 0, 1).Format("2006-01-02"), true
	}
	if strings.Contains(lower, "today") {
		return today.Format("2006-01-02"), true
	}
	for _, entry := range weekdayNames {
		if !containsWord(lower, entry.name) {
			continue
		}
		// Next occurrence, strictly in the future.
		days := (int(entry.day) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days).Format("2006-01-02"), true
	}
	if m := dateSlashRe.FindStringSubmatch(lower); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
		}
	}
	if m := inNUnitsRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "day"):
			return today.AddDate(0, 0, n).Format("2006-01-02"), true
		case strings.HasPrefix(m[2], "week"):
			return today.AddDate(0, 0, 7*n).Format("2006-01-02"), true
		default:
			// Months approximate to 30 days.
			return today.AddDate(0, 0, 30*n).Format("2006-01-02"), true
		}
	}
	if m := boundaryRe.FindStringSubmatch(lower); m != nil {
		return boundaryDate(today, m[1], m[2]).Format("2006-01-02"), true
	}
	return "", false
}

// boundaryDate snaps to a period boundary: "this X" is the end of the current
// period, "next X" the start of the following one.
func boundaryDate(today time.Time, qualifier, period string) time.Time {
	switch period {
	case "week":
		// Week runs Monday..Sunday.
		daysToSunday := (7 - int(today.Weekday())) % 7
		endOfWeek := today.AddDate(0, 0, daysToSunday)
		if qualifier == "this" {
			return endOfWeek
		}
		return endOfWeek.AddDate(0, 0, 1)
	case "month":
		firstOfNext := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, 1, 0)
		if qualifier == "this" {
			return firstOfNext.AddDate(0, 0, -1)
		}
		return firstOfNext
	default: // year
		firstOfNext := time.Date(today.Year()+1, time.January, 1, 0, 0, 0, 0, today.Location())
		if qualifier == "this" {
			return firstOfNext.AddDate(0, 0, -1)
		}
		return firstOfNext
	}
}

// lifeAreaLexicon maps trigger keywords to canonical life areas. Checked in a
// stable order so extraction is deterministic.
var lifeAreaLexicon = []struct {
	area     string
	keywords []string
}{
	{"Health", []string{"health", "fitness", "exercise", "workout", "gym", "diet", "sleep", "weight", "run", "running"}},
	{"Career", []string{"career", "job", "work", "promotion", "salary", "interview", "business", "professional"}},
	{"Relationships", []string{"relationship", "family", "friend", "partner", "marriage", "social", "love"}},
	{"Finance", []string{"finance", "money", "saving", "savings", "budget", "debt", "invest", "investment"}},
	{"Education", []string{"education", "learn", "learning", "study", "course", "degree", "school", "language"}},
	{"Recreation", []string{"recreation", "hobby", "travel", "vacation", "fun", "leisure", "game"}},
	{"Spiritual", []string{"spiritual", "meditation", "meditate", "mindfulness", "faith", "prayer"}},
	{"Personal", []string{"personal", "growth", "habit", "confidence", "self"}},
}

func extractLifeArea(lower string) (string, bool) {
	for _, entry := range lifeAreaLexicon {
		for _, kw := range entry.keywords {
			if containsWord(lower, kw) {
				return entry.area, true
			}
		}
	}
	return "", false
}

func extractPriority(lower string) (string, bool) {
	switch {
	case containsAnyWord(lower, "urgent", "critical", "asap"):
		return "high", true
	case containsAnyWord(lower, "low", "minor"):
		return "low", true
	case containsAnyWord(lower, "normal", "medium", "regular"):
		return "medium", true
	}
	return "", false
}

// extractScore reads "N out of 10" style ratings.
func extractScore(lower string) (string, bool) {
	m := scoreRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	n, _ := strconv.Atoi(m[1])
	if n < 1 || n > 10 {
		return "", false
	}
	return m[1], true
}

func extractDuration(lower string) (string, bool) {
	m := durationRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	unit := m[2]
	switch {
	case strings.HasPrefix(unit, "min"):
		unit = "minutes"
	case strings.HasPrefix(unit, "h"):
		unit = "hours"
	default:
		unit = "days"
	}
	return m[1] + " " + unit, true
}

// titlePrefixes are intent-keyword leads stripped from the front of a message
// before the remainder is taken as a title. Longest prefixes first.
var titlePrefixes = []string{
	"i want to create a goal to",
	"i want to create a task to",
	"create a new goal to",
	"create a new task to",
	"i would like to",
	"create a goal to",
	"create a task to",
	"create a project to",
	"create a project for",
	"add a task to",
	"add a goal to",
	"set a goal to",
	"my goal is to",
	"remind me to",
	"don't forget to",
	"dont forget to",
	"i need to",
	"i want to",
	"i have to",
	"new project:",
	"new goal:",
	"new task:",
	"todo:",
	"goal:",
	"task:",
}

// titleDatePhrases are date expressions removed from a candidate title; the
// date itself is captured separately as due_date.
var titleDatePhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*\b(on|by|due|until)?\s*\b(today|tomorrow)\b`),
	regexp.MustCompile(`(?i)\s*\b(on|by|due|until)?\s*\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`(?i)\s*\b(on|by|due|until)?\s*\b\d{1,2}[/-]\d{1,2}[/-]\d{4}\b`),
	regexp.MustCompile(`(?i)\s*\bin \d+ (days?|weeks?|months?)\b`),
	regexp.MustCompile(`(?i)\s*\b(next|this) (week|month|year)\b`),
}

func extractTitle(message string) (string, bool) {
	title := strings.TrimSpace(message)
	// Strip stacked leads ("i want to" + "set a goal to") until none apply.
	for stripped := true; stripped; {
		stripped = false
		lower := strings.ToLower(title)
		for _, prefix := range titlePrefixes {
			if strings.HasPrefix(lower, prefix) {
				title = strings.TrimSpace(title[len(prefix):])
				stripped = true
				break
			}
		}
	}
	for _, re := range titleDatePhrases {
		title = re.ReplaceAllString(title, "")
	}
	title = strings.Join(strings.Fields(title), " ")
	title = strings.Trim(title, " \t\n.,!?;:\"'")
	if len(title) < 3 {
		return "", false
	}
	return title, true
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if containsWord(s, w) {
			return true
		}
	}
	return false
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
