package providers

import (
	"errors"
	"testing"
)

func TestParseClassificationGameDetection(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, c *Classification)
	}{
		{
			name: "valid full payload",
			raw:  `{"game_type":"D&D","edition":"5th Edition","book_type":"Core Rulebook","confidence":0.92,"reasoning":"AC and HP markers"}`,
			check: func(t *testing.T, c *Classification) {
				if c.GameType != "D&D" {
					t.Errorf("GameType = %q, want D&D", c.GameType)
				}
				if c.Confidence != 0.92 {
					t.Errorf("Confidence = %v, want 0.92", c.Confidence)
				}
			},
		},
		{
			name: "edition optional",
			raw:  `{"game_type":"Pathfinder","edition":"","book_type":"","confidence":0.5}`,
			check: func(t *testing.T, c *Classification) {
				if c.Edition != "" {
					t.Errorf("Edition = %q, want empty", c.Edition)
				}
			},
		},
		{
			name:    "missing game_type",
			raw:     `{"edition":"5th Edition","confidence":0.9}`,
			wantErr: true,
		},
		{
			name:    "empty game_type",
			raw:     `{"game_type":"","edition":"","book_type":"","confidence":0.9}`,
			wantErr: true,
		},
		{
			name:    "confidence above one",
			raw:     `{"game_type":"D&D","edition":"","book_type":"","confidence":1.5}`,
			wantErr: true,
		},
		{
			name:    "confidence negative",
			raw:     `{"game_type":"D&D","edition":"","book_type":"","confidence":-0.1}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			raw:     `the game is D&D`,
			wantErr: true,
		},
		{
			name:    "wrong type for confidence",
			raw:     `{"game_type":"D&D","edition":"","book_type":"","confidence":"high"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseClassification(PromptGameDetection, []byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("error = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestParseClassificationCategoryHint(t *testing.T) {
	c, err := ParseClassification(PromptCategoryHint,
		[]byte(`{"category":"combat","subcategory":"initiative","confidence":0.8}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Category != "combat/initiative" {
		t.Errorf("Category = %q, want combat/initiative", c.Category)
	}

	c, err = ParseClassification(PromptCategoryHint, []byte(`{"category":"spells","confidence":0.7}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Category != "spells" {
		t.Errorf("Category = %q, want spells", c.Category)
	}

	if _, err := ParseClassification(PromptCategoryHint, []byte(`{"confidence":0.7}`)); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("missing category: error = %v, want ErrMalformedResponse", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"a":1}`,
			want:    `{"a":1}`,
		},
		{
			name:    "markdown fenced",
			content: "Here you go:\n```json\n{\"a\":1}\n```\nHope that helps.",
			want:    `{"a":1}`,
		},
		{
			name:    "prose wrapped",
			content: `The answer is {"game_type":"D&D"} as requested.`,
			want:    `{"game_type":"D&D"}`,
		},
		{
			name:    "nested objects",
			content: `{"outer":{"inner":2}}`,
			want:    `{"outer":{"inner":2}}`,
		},
		{
			name:    "braces inside strings",
			content: `{"text":"a } b { c"}`,
			want:    `{"text":"a } b { c"}`,
		},
		{
			name:    "escaped quote in string",
			content: `{"text":"say \"}\" loudly"}`,
			want:    `{"text":"say \"}\" loudly"}`,
		},
		{
			name:    "no object",
			content: "no json here",
			wantErr: true,
		},
		{
			name:    "unterminated object",
			content: `{"a":1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("error = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("extractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}
