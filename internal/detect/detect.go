// Package detect identifies the game system a document belongs to. It
// drives the classifier backends with a content sample and falls back to a
// deterministic rule table when every backend is unavailable or returns
// unusable data, so detection always produces a usable result for
// non-empty input.
package detect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/providers"
)

// FallbackCeiling is the highest confidence a rule-table result can carry.
// Validated provider results are trusted above it, rule results never.
const FallbackCeiling = 0.5

// ErrEmptySample is returned when there is no text to classify.
var ErrEmptySample = errors.New("empty content sample")

// Method records how a classification was derived.
type Method string

const (
	MethodAIAnalysis     Method = "ai_analysis"
	MethodRuleFallback   Method = "rule_fallback"
	MethodManualOverride Method = "manual_override"
)

// GameMetadata is the per-document detection result.
type GameMetadata struct {
	GameType   string  `json:"game_type"`
	Edition    string  `json:"edition"`
	BookType   string  `json:"book_type"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"detection_method"`
	Reasoning  string  `json:"reasoning"`
}

// State tracks one detection pass.
type State int

const (
	StateNotStarted State = iota
	StateAwaitingProvider
	StateValidated
	StateFallback
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateAwaitingProvider:
		return "awaiting_provider"
	case StateValidated:
		return "validated"
	case StateFallback:
		return "fallback"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a Detector.
type Options struct {
	// Registry supplies classifier backends. Nil skips straight to the
	// rule table.
	Registry *providers.Registry

	// Providers is the backend preference order. Names not present in the
	// registry are skipped.
	Providers []string

	// Model overrides each backend's default model when set.
	Model string

	// Timeout bounds each individual provider call.
	Timeout time.Duration

	// CacheSize is the number of detection results kept. Zero disables
	// the cache.
	CacheSize int

	Logger *slog.Logger
}

// Detector classifies content samples.
type Detector struct {
	registry  *providers.Registry
	providers []string
	model     string
	timeout   time.Duration
	cache     *lru.Cache[string, GameMetadata]
	logger    *slog.Logger
}

// New creates a Detector.
func New(opts Options) *Detector {
	if opts.Timeout <= 0 {
		opts.Timeout = providers.DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var cache *lru.Cache[string, GameMetadata]
	if opts.CacheSize > 0 {
		// lru.New only fails for size <= 0.
		cache, _ = lru.New[string, GameMetadata](opts.CacheSize)
	}
	return &Detector{
		registry:  opts.Registry,
		providers: opts.Providers,
		model:     opts.Model,
		timeout:   opts.Timeout,
		cache:     cache,
		logger:    opts.Logger,
	}
}

// Override produces metadata for a caller-asserted classification, skipping
// providers entirely. Confidence is absolute.
func Override(gameType, edition, bookType string) *GameMetadata {
	return &GameMetadata{
		GameType:   gameType,
		Edition:    edition,
		BookType:   bookType,
		Confidence: 1.0,
		Method:     MethodManualOverride,
		Reasoning:  "user-supplied classification",
	}
}

// Detect classifies a content sample. Provider failures of every kind are
// absorbed by the rule-table fallback; the only error is an empty sample
// or caller cancellation.
func (d *Detector) Detect(ctx context.Context, sample string) (*GameMetadata, error) {
	state := StateNotStarted
	if strings.TrimSpace(sample) == "" {
		state = StateFailed
		d.logger.Debug("detection failed", "state", state.String())
		return nil, ErrEmptySample
	}

	key := sampleKey(sample)
	if d.cache != nil {
		if meta, ok := d.cache.Get(key); ok {
			d.logger.Debug("detection cache hit", "game_type", meta.GameType)
			return &meta, nil
		}
	}

	state = StateAwaitingProvider
	meta, err := d.classify(ctx, sample)
	switch {
	case err == nil:
		state = StateValidated
	case errors.Is(err, context.Canceled):
		return nil, err
	default:
		state = StateFallback
		d.logger.Info("provider classification unavailable, using rule table", "error", err)
		meta = matchFallback(sample)
	}
	meta.Confidence = clamp01(meta.Confidence)

	d.logger.Debug("detection complete",
		"state", state.String(),
		"game_type", meta.GameType,
		"edition", meta.Edition,
		"confidence", meta.Confidence,
		"method", meta.Method)

	if d.cache != nil {
		d.cache.Add(key, *meta)
	}
	return meta, nil
}

// classify walks the backend preference order until one returns a valid
// response. Every provider-level failure is folded into the returned error
// so the caller can fall back once.
func (d *Detector) classify(ctx context.Context, sample string) (*GameMetadata, error) {
	if d.registry == nil || len(d.providers) == 0 {
		return nil, providers.ErrProviderUnavailable
	}

	var lastErr error
	for _, name := range d.providers {
		c, err := d.registry.Get(name)
		if err != nil {
			lastErr = err
			continue
		}
		if limiter := d.registry.Limiter(name); limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := c.Classify(ctx, &providers.ClassifyRequest{
			Sample:  sample,
			Kind:    providers.PromptGameDetection,
			Model:   d.model,
			Timeout: d.timeout,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			d.logger.Warn("provider call failed", "provider", name, "error", err)
			lastErr = err
			continue
		}
		if result.GameType == "" {
			lastErr = fmt.Errorf("%w: empty game_type from %s", providers.ErrMalformedResponse, name)
			continue
		}
		return &GameMetadata{
			GameType:   result.GameType,
			Edition:    result.Edition,
			BookType:   result.BookType,
			Confidence: result.Confidence,
			Method:     MethodAIAnalysis,
			Reasoning:  result.Reasoning,
		}, nil
	}
	if lastErr == nil {
		lastErr = providers.ErrProviderUnavailable
	}
	return nil, lastErr
}

func sampleKey(sample string) string {
	sum := sha256.Sum256([]byte(sample))
	return hex.EncodeToString(sum[:])
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
