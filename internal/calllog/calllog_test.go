package calllog

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")

	rec, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	rec.Record(&Entry{
		RequestID:        "req-1",
		Provider:         "openrouter",
		Model:            "anthropic/claude-sonnet-4",
		Kind:             "game_detection",
		Duration:         1200 * time.Millisecond,
		PromptTokens:     812,
		CompletionTokens: 64,
		Success:          true,
	})
	rec.Record(&Entry{
		Provider: "openai",
		Kind:     "category_hint",
		Duration: 300 * time.Millisecond,
		Success:  false,
		Error:    "provider unavailable",
	})

	// Close drains the queue before the database shuts down.
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen read-only to verify both rows landed.
	rec2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rec2.Close()

	var count int
	if err := rec2.db.QueryRow(`SELECT COUNT(*) FROM provider_calls`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Fatalf("rows = %d, want 2", count)
	}

	var provider, errMsg string
	var success, durUs int64
	err = rec2.db.QueryRow(
		`SELECT provider, error, success, duration_us FROM provider_calls WHERE request_id = ?`,
		"req-1",
	).Scan(&provider, &errMsg, &success, &durUs)
	if err != nil {
		t.Fatalf("row query: %v", err)
	}
	if provider != "openrouter" || success != 1 || errMsg != "" {
		t.Fatalf("row = %s/%d/%q", provider, success, errMsg)
	}
	if durUs != 1_200_000 {
		t.Fatalf("duration_us = %d, want 1200000", durUs)
	}
}

func TestRecordAfterCloseDropsQuietly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")

	rec, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Record after Close panicked: %v", r)
		}
	}()
	rec.Record(&Entry{Provider: "openrouter", Kind: "game_detection"})
}
