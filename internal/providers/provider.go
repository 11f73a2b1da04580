// Package providers implements the AI classification gateway: a uniform
// Classifier interface over interchangeable backends, a config-driven
// registry, rate limiting, and structured-response validation shared by
// every implementation (including the offline one).
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for the gateway. Backends wrap these so callers can
// branch with errors.Is regardless of which backend failed.
var (
	// ErrProviderUnavailable indicates the backend could not be reached
	// or refused the request.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderTimeout indicates the call exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrMalformedResponse indicates the backend answered but the payload
	// failed the classification schema.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// PromptKind selects the instruction sent with a content sample.
type PromptKind string

const (
	// PromptGameDetection asks for game system / edition / book type.
	PromptGameDetection PromptKind = "game_detection"

	// PromptCategoryHint asks for a content category for one section.
	PromptCategoryHint PromptKind = "category_hint"
)

// ClassifyRequest is a request to classify a content sample.
type ClassifyRequest struct {
	// Sample is the document text excerpt to classify.
	Sample string

	// Kind selects the instruction/prompt pair.
	Kind PromptKind

	// Model overrides the backend default if set.
	Model string

	// Timeout bounds the call. Backends apply DefaultTimeout if zero.
	Timeout time.Duration

	// RequestID is generated if empty.
	RequestID string
}

// Classification is the normalized payload every backend must produce.
// A low-but-valid Confidence is a successful classification, never an error.
type Classification struct {
	GameType   string  `json:"game_type"`
	Edition    string  `json:"edition,omitempty"`
	BookType   string  `json:"book_type,omitempty"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ClassifyResult is the complete response from a classification call.
type ClassifyResult struct {
	Classification

	// Raw is the validated response payload as returned by the backend.
	Raw json.RawMessage

	// Provider info
	Provider  string
	ModelUsed string

	// Token counts (zero for backends that do not report usage)
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	ExecutionTime time.Duration
	RequestID     string
}

// Classifier is the gateway capability interface. Implementations exist per
// backend plus a deterministic offline implementation; callers cannot
// distinguish them except via configured selection.
type Classifier interface {
	// Classify sends a content sample and returns a validated result.
	Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResult, error)

	// Name returns the backend identifier (e.g. "openrouter").
	Name() string

	// Rate limiting properties, consumed by the worker layer.
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// DefaultTimeout bounds classification calls when the request does not set
// its own. Every backend must honor it; on expiry the caller sees
// ErrProviderTimeout.
const DefaultTimeout = 60 * time.Second

// withTimeout derives the bounded context every backend call runs under.
func withTimeout(ctx context.Context, req *ClassifyRequest) (context.Context, context.CancelFunc) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// mapContextErr translates context errors into gateway sentinels.
func mapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrProviderTimeout
	}
	return err
}
