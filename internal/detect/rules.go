package detect

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type patternEntry struct {
	Pattern  string `yaml:"pattern"`
	Edition  string `yaml:"edition,omitempty"`
	BookType string `yaml:"book_type,omitempty"`
}

type gameRule struct {
	Game      string         `yaml:"game"`
	Keywords  []string       `yaml:"keywords"`
	Editions  []patternEntry `yaml:"editions"`
	BookTypes []patternEntry `yaml:"book_types"`
}

type ruleTable struct {
	Games []gameRule `yaml:"games"`
}

var rules = mustLoadRules()

func mustLoadRules() *ruleTable {
	var t ruleTable
	if err := yaml.Unmarshal(rulesYAML, &t); err != nil {
		panic(fmt.Sprintf("detect: bad embedded rule table: %v", err))
	}
	return &t
}

// fuzzyMinLen is the shortest single-word keyword eligible for
// edit-distance matching. Short keywords match exactly only, otherwise
// "d20" would match "d2o" typos and half the dice notation in a book.
const fuzzyMinLen = 6

// matchFallback scores every rule against the sample and returns the
// winning metadata. Highest keyword overlap wins; ties resolve to the
// earliest rule in the table. A sample matching nothing yields the
// "Unknown" result rather than an error.
func matchFallback(sample string) *GameMetadata {
	lower := strings.ToLower(sample)
	words := tokenize(lower)

	bestIdx, bestHits := -1, 0
	for i, rule := range rules.Games {
		hits := countHits(rule.Keywords, lower, words)
		if hits > bestHits {
			bestIdx, bestHits = i, hits
		}
	}

	if bestIdx < 0 {
		return &GameMetadata{
			GameType:   "Unknown",
			Confidence: fallbackBase,
			Method:     MethodRuleFallback,
			Reasoning:  "no rule-table keywords matched",
		}
	}

	rule := rules.Games[bestIdx]
	meta := &GameMetadata{
		GameType:   rule.Game,
		Edition:    firstPattern(rule.Editions, lower, func(p patternEntry) string { return p.Edition }),
		BookType:   firstPattern(rule.BookTypes, lower, func(p patternEntry) string { return p.BookType }),
		Confidence: fallbackConfidence(bestHits),
		Method:     MethodRuleFallback,
		Reasoning:  fmt.Sprintf("rule table: %d keyword hits for %s", bestHits, rule.Game),
	}
	return meta
}

// countHits counts keyword matches. Multi-word keywords match by
// substring; long single words also match any sample token within edit
// distance one.
func countHits(keywords []string, lower string, words map[string]struct{}) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
			continue
		}
		if len(kw) >= fuzzyMinLen && !strings.ContainsRune(kw, ' ') {
			if fuzzyHit(kw, words) {
				hits++
			}
		}
	}
	return hits
}

func fuzzyHit(kw string, words map[string]struct{}) bool {
	for w := range words {
		if len(w) < fuzzyMinLen {
			continue
		}
		if levenshtein.Distance(kw, w, nil) <= 1 {
			return true
		}
	}
	return false
}

func firstPattern(entries []patternEntry, lower string, pick func(patternEntry) string) string {
	for _, e := range entries {
		if strings.Contains(lower, strings.ToLower(e.Pattern)) {
			return pick(e)
		}
	}
	return ""
}

const (
	fallbackBase   = 0.2
	fallbackPerHit = 0.1
)

// fallbackConfidence grows with hit count but never exceeds the ceiling
// that separates rule results from validated provider results.
func fallbackConfidence(hits int) float64 {
	conf := fallbackBase + fallbackPerHit*float64(hits)
	if conf > FallbackCeiling {
		conf = FallbackCeiling
	}
	return conf
}

// tokenize splits lowered text into a word set for fuzzy matching.
func tokenize(lower string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '\'')
	}) {
		words[w] = struct{}{}
	}
	return words
}
