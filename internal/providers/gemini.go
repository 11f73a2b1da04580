package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-2.0-flash"
)

// GeminiConfig holds configuration for the Gemini backend.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	RPS          float64
	MaxRetries   int
	RetryDelay   time.Duration
}

// GeminiClient implements Classifier over the Google Generative AI SDK.
// The underlying client is created lazily on first use because the SDK
// constructor requires a context.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	timeout      time.Duration

	rps        float64
	maxRetries int
	retryDelay time.Duration

	initOnce sync.Once
	client   *genai.Client
	initErr  error
}

// NewGeminiClient creates a new Gemini backend.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RPS == 0 {
		cfg.RPS = 2.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	return &GeminiClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		timeout:      cfg.Timeout,
		rps:          cfg.RPS,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

func (c *GeminiClient) Name() string                  { return GeminiName }
func (c *GeminiClient) RequestsPerSecond() float64    { return c.rps }
func (c *GeminiClient) MaxRetries() int               { return c.maxRetries }
func (c *GeminiClient) RetryDelayBase() time.Duration { return c.retryDelay }

func (c *GeminiClient) init(ctx context.Context) error {
	c.initOnce.Do(func() {
		client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
		if err != nil {
			c.initErr = fmt.Errorf("%w: failed to create gemini client: %v", ErrProviderUnavailable, err)
			return
		}
		c.client = client
	})
	return c.initErr
}

// Classify sends a classification request through the Gemini API.
func (c *GeminiClient) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	modelName := req.Model
	if modelName == "" {
		modelName = c.defaultModel
	}

	if err := c.init(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := withTimeout(ctx, req)
	defer cancel()

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt(req.Kind))},
	}

	resp, err := model.GenerateContent(callCtx, genai.Text(UserPrompt(req.Kind, req.Sample)))
	if err != nil {
		return nil, wrapGeminiErr(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty candidates", ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	raw, err := extractJSON(sb.String())
	if err != nil {
		return nil, err
	}
	classification, err := ParseClassification(req.Kind, raw)
	if err != nil {
		return nil, err
	}

	result := &ClassifyResult{
		Classification: *classification,
		Raw:            raw,
		Provider:       GeminiName,
		ModelUsed:      modelName,
		ExecutionTime:  time.Since(start),
		RequestID:      requestID,
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// wrapGeminiErr maps SDK errors onto gateway sentinels.
func wrapGeminiErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
