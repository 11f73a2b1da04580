package providers

import (
	"context"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/calllog"
)

// recordingClassifier wraps a backend and records every call, success or
// failure, into the call log. Recording is fire-and-forget; a full log
// never slows classification.
type recordingClassifier struct {
	inner    Classifier
	recorder *calllog.Recorder
}

// WithCallLog decorates a classifier so each call is persisted to the
// recorder. A nil recorder returns the classifier unchanged.
func WithCallLog(c Classifier, rec *calllog.Recorder) Classifier {
	if rec == nil {
		return c
	}
	return &recordingClassifier{inner: c, recorder: rec}
}

func (r *recordingClassifier) Name() string                  { return r.inner.Name() }
func (r *recordingClassifier) RequestsPerSecond() float64    { return r.inner.RequestsPerSecond() }
func (r *recordingClassifier) MaxRetries() int               { return r.inner.MaxRetries() }
func (r *recordingClassifier) RetryDelayBase() time.Duration { return r.inner.RetryDelayBase() }

func (r *recordingClassifier) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResult, error) {
	start := time.Now()
	result, err := r.inner.Classify(ctx, req)

	entry := &calllog.Entry{
		RequestID: req.RequestID,
		Provider:  r.inner.Name(),
		Model:     req.Model,
		Kind:      string(req.Kind),
		Duration:  time.Since(start),
		Success:   err == nil,
		At:        start,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if result != nil {
		entry.RequestID = result.RequestID
		entry.Model = result.ModelUsed
		entry.PromptTokens = result.PromptTokens
		entry.CompletionTokens = result.CompletionTokens
	}
	r.recorder.Record(entry)

	return result, err
}
