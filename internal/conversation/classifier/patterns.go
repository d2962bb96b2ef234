package classifier

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

//go:embed patterns.yaml
var patternsYAML []byte

// intentPatterns is the rule-based catalog, loaded from the embedded YAML
// file. Each matching pattern for an intent adds to its score; the
// best-scoring intent wins.
var intentPatterns = mustLoadPatterns(patternsYAML)

// mustLoadPatterns parses and compiles the catalog. The file ships inside
// the binary, so a parse failure is a build defect and panics at startup.
func mustLoadPatterns(raw []byte) map[string][]*regexp.Regexp {
	var catalog map[string][]string
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		panic(fmt.Sprintf("classifier: invalid pattern catalog: %v", err))
	}
	compiled := make(map[string][]*regexp.Regexp, len(catalog))
	for intent, patterns := range catalog {
		if !models.KnownIntents[intent] {
			panic(fmt.Sprintf("classifier: pattern catalog names unknown intent %q", intent))
		}
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				panic(fmt.Sprintf("classifier: bad pattern %q for %s: %v", p, intent, err))
			}
			compiled[intent] = append(compiled[intent], re)
		}
	}
	return compiled
}

// classifyByPatterns scores the message against the catalog. Each match adds
// 0.1 on top of a 0.7 base, capped at 0.95. When no intent reaches 0.5 the
// result is chat_continuation at 0.6.
func classifyByPatterns(message string) models.Classification {
	bestIntent := ""
	bestScore := 0.0
	for intent, patterns := range intentPatterns {
		matches := 0
		for _, p := range patterns {
			if p.MatchString(message) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		score := 0.7 + 0.1*float64(matches)
		if score > 0.95 {
			score = 0.95
		}
		if score > bestScore || (score == bestScore && intent < bestIntent) {
			bestIntent, bestScore = intent, score
		}
	}
	if bestScore < 0.5 {
		return models.Classification{
			Intent:       models.IntentChatContinuation,
			Confidence:   0.6,
			Reasoning:    "no pattern matched",
			FallbackUsed: true,
			Source:       models.SourcePatterns,
		}
	}
	return models.Classification{
		Intent:       bestIntent,
		Confidence:   bestScore,
		Reasoning:    "pattern match",
		FallbackUsed: true,
		Source:       models.SourcePatterns,
	}
}
