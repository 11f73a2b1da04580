package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/google/uuid"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	RPS          float64
	MaxRetries   int
	RetryDelay   time.Duration
	BaseURL      string       // Optional (tests)
	HTTPClient   *http.Client // Optional (tests)
}

// OpenAIClient implements Classifier using the official OpenAI SDK.
// Structured output is enforced by prompt plus local schema validation, the
// same contract every other backend runs.
type OpenAIClient struct {
	defaultModel string
	client       openai.Client

	rps        float64
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIClient creates a new OpenAI backend.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RPS == 0 {
		cfg.RPS = 5.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// SDK-level retries stay off; the worker layer owns retry policy.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
		rps:          cfg.RPS,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

func (c *OpenAIClient) Name() string                  { return OpenAIName }
func (c *OpenAIClient) RequestsPerSecond() float64    { return c.rps }
func (c *OpenAIClient) MaxRetries() int               { return c.maxRetries }
func (c *OpenAIClient) RetryDelayBase() time.Duration { return c.retryDelay }

// Classify sends a classification request through the OpenAI API.
func (c *OpenAIClient) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	callCtx, cancel := withTimeout(ctx, req)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(req.Kind)),
			openai.UserMessage(UserPrompt(req.Kind, req.Sample)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(1024),
	})
	if err != nil {
		return nil, wrapOpenAIErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	raw, err := extractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	classification, err := ParseClassification(req.Kind, raw)
	if err != nil {
		return nil, err
	}

	return &ClassifyResult{
		Classification:   *classification,
		Raw:              raw,
		Provider:         OpenAIName,
		ModelUsed:        model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
		RequestID:        requestID,
	}, nil
}

// wrapOpenAIErr maps SDK errors onto gateway sentinels.
func wrapOpenAIErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, apiErr.StatusCode, apiErr.Message)
	}
	return wrapTransportErr(err)
}
