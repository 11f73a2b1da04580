package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const OfflineName = "offline"

// offlineMarker is one recognizable game fingerprint for the offline
// backend. Matching is deterministic: most keyword hits wins, ties broken
// by table order.
type offlineMarker struct {
	gameType string
	edition  string
	bookType string
	keywords []string
}

var offlineMarkers = []offlineMarker{
	{"D&D", "5th Edition", "Core Rulebook", []string{"armor class", "hit points", "saving throw", "proficiency bonus", "d20"}},
	{"Pathfinder", "2nd Edition", "Core Rulebook", []string{"ancestry", "heritage", "golarion", "three actions"}},
	{"Call of Cthulhu", "7th Edition", "Keeper Rulebook", []string{"sanity", "mythos", "investigator", "keeper"}},
	{"Shadowrun", "6th Edition", "Core Rulebook", []string{"shadowrun", "decker", "essence", "matrix"}},
}

var offlineCategories = []struct {
	category string
	keywords []string
}{
	{"combat", []string{"attack", "initiative", "damage", "armor class"}},
	{"spells", []string{"spell", "casting", "cantrip", "spell slot"}},
	{"monsters", []string{"challenge rating", "bestiary", "creature", "hit dice"}},
	{"equipment", []string{"gp", "weight", "weapon", "armor proficiency"}},
}

// OfflineClassifier is the deterministic, network-free Classifier. It is a
// real gateway implementation, not a shortcut: its output passes through
// the same schema validation as every remote backend, so callers see
// identical failure modes.
type OfflineClassifier struct {
	// Configurable behavior for tests.
	Latency      time.Duration
	FailWith     error           // Returned verbatim on every call when set
	FailAfter    int             // Fail after N requests (0 = never)
	FixedPayload json.RawMessage // Overrides marker matching when set

	requestCount atomic.Int64
}

// NewOfflineClassifier creates an offline backend with defaults.
func NewOfflineClassifier() *OfflineClassifier {
	return &OfflineClassifier{}
}

func (c *OfflineClassifier) Name() string                  { return OfflineName }
func (c *OfflineClassifier) RequestsPerSecond() float64    { return 1000 }
func (c *OfflineClassifier) MaxRetries() int               { return 1 }
func (c *OfflineClassifier) RetryDelayBase() time.Duration { return time.Millisecond }

// Classify produces a deterministic classification from the marker tables.
func (c *OfflineClassifier) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	if c.FailWith != nil {
		return nil, c.FailWith
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return nil, fmt.Errorf("%w: offline backend failed after %d requests", ErrProviderUnavailable, c.FailAfter)
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, mapContextErr(ctx.Err())
		}
	}

	raw := c.FixedPayload
	if raw == nil {
		raw = offlinePayload(req.Kind, req.Sample)
	}

	// Same validation contract as the remote backends.
	classification, err := ParseClassification(req.Kind, raw)
	if err != nil {
		return nil, err
	}

	return &ClassifyResult{
		Classification: *classification,
		Raw:            raw,
		Provider:       OfflineName,
		ModelUsed:      "offline",
		ExecutionTime:  time.Since(start),
		RequestID:      fmt.Sprintf("offline-%d", count),
	}, nil
}

func offlinePayload(kind PromptKind, sample string) json.RawMessage {
	lower := strings.ToLower(sample)
	if kind == PromptCategoryHint {
		return offlineCategoryPayload(lower)
	}
	return offlineGamePayload(lower)
}

func offlineGamePayload(lower string) json.RawMessage {
	bestIdx, bestHits := -1, 0
	for i, m := range offlineMarkers {
		hits := 0
		for _, kw := range m.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestIdx, bestHits = i, hits
		}
	}

	payload := map[string]any{
		"game_type":  "Unknown",
		"edition":    "",
		"book_type":  "",
		"confidence": 0.2,
		"reasoning":  "no known game markers in sample",
	}
	if bestIdx >= 0 {
		m := offlineMarkers[bestIdx]
		conf := 0.6 + 0.1*float64(min(bestHits, 3))
		payload = map[string]any{
			"game_type":  m.gameType,
			"edition":    m.edition,
			"book_type":  m.bookType,
			"confidence": conf,
			"reasoning":  fmt.Sprintf("matched %d marker keywords", bestHits),
		}
	}
	return mustJSON(payload)
}

func offlineCategoryPayload(lower string) json.RawMessage {
	best, bestHits := "general", 0
	for _, c := range offlineCategories {
		hits := 0
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c.category, hits
		}
	}
	conf := 0.5
	if bestHits > 0 {
		conf = 0.6 + 0.1*float64(min(bestHits, 3))
	}
	return mustJSON(map[string]any{
		"category":   best,
		"confidence": conf,
		"reasoning":  fmt.Sprintf("keyword scan (%d hits)", bestHits),
	})
}

// mustJSON marshals payloads built from static tables; they cannot fail.
func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
