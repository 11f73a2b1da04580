package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func openRouterReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     120,
			"completion_tokens": 40,
			"total_tokens":      160,
		},
	})
	return string(b)
}

func TestOpenRouterClassify(t *testing.T) {
	var gotAuth string
	var gotReq openRouterRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openRouterReply(
			`{"game_type":"D&D","edition":"5th Edition","book_type":"Core Rulebook","confidence":0.9,"reasoning":"stat block markers"}`)))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	result, err := client.Classify(context.Background(), &ClassifyRequest{
		Sample: "Armor Class 15, Hit Points 22",
		Kind:   PromptGameDetection,
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("unexpected message shape: %+v", gotReq.Messages)
	}
	if result.GameType != "D&D" || result.Edition != "5th Edition" {
		t.Errorf("classification = %+v", result.Classification)
	}
	if result.Provider != OpenRouterName {
		t.Errorf("Provider = %q, want %q", result.Provider, OpenRouterName)
	}
	if result.TotalTokens != 160 {
		t.Errorf("TotalTokens = %d, want 160", result.TotalTokens)
	}
	if result.RequestID == "" {
		t.Error("RequestID not generated")
	}
}

func TestOpenRouterServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, ErrProviderUnavailable},
		{"server error", http.StatusInternalServerError, "boom", ErrProviderUnavailable},
		{"bad gateway", http.StatusBadGateway, "", ErrProviderUnavailable},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, ErrProviderUnavailable},
		{"garbage body", http.StatusOK, "not json", ErrMalformedResponse},
		{"empty choices", http.StatusOK, `{"choices":[]}`, ErrMalformedResponse},
		{"prose only content", http.StatusOK, openRouterReply("I cannot classify this."), ErrMalformedResponse},
		{"schema violation", http.StatusOK, openRouterReply(`{"game_type":"","confidence":2}`), ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Classify(context.Background(), &ClassifyRequest{
				Sample: "sample",
				Kind:   PromptGameDetection,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenRouterTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Classify(context.Background(), &ClassifyRequest{
		Sample:  "sample",
		Kind:    PromptGameDetection,
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, ErrProviderTimeout) {
		t.Errorf("error = %v, want ErrProviderTimeout", err)
	}
}

func TestOpenRouterContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Classify(ctx, &ClassifyRequest{Sample: "sample", Kind: PromptGameDetection})
	if err == nil {
		t.Fatal("expected error after cancel")
	}
	if errors.Is(err, ErrProviderTimeout) {
		t.Errorf("cancellation misreported as timeout: %v", err)
	}
}
