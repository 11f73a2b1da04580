package detect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/providers"
)

func registryWith(t *testing.T, c *providers.OfflineClassifier) *providers.Registry {
	t.Helper()
	r := providers.NewRegistry()
	r.Register("test", c)
	return r
}

func TestDetectEmptySample(t *testing.T) {
	d := New(Options{})
	for _, sample := range []string{"", "   ", "\n\t"} {
		if _, err := d.Detect(context.Background(), sample); !errors.Is(err, ErrEmptySample) {
			t.Errorf("Detect(%q) error = %v, want ErrEmptySample", sample, err)
		}
	}
}

func TestDetectValidatedPath(t *testing.T) {
	offline := providers.NewOfflineClassifier()
	d := New(Options{
		Registry:  registryWith(t, offline),
		Providers: []string{"test"},
	})

	meta, err := d.Detect(context.Background(),
		"Armor Class 15. Hit Points 22. Roll a d20 against the saving throw DC.")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if meta.Method != MethodAIAnalysis {
		t.Errorf("Method = %q, want ai_analysis", meta.Method)
	}
	if meta.GameType != "D&D" {
		t.Errorf("GameType = %q, want D&D", meta.GameType)
	}
	if meta.Confidence < 0 || meta.Confidence > 1 {
		t.Errorf("Confidence = %v out of [0,1]", meta.Confidence)
	}
}

func TestDetectFallbackOnProviderFailure(t *testing.T) {
	tests := []struct {
		name     string
		failWith error
	}{
		{"unavailable", providers.ErrProviderUnavailable},
		{"timeout", providers.ErrProviderTimeout},
		{"malformed", providers.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offline := providers.NewOfflineClassifier()
			offline.FailWith = tt.failWith
			d := New(Options{
				Registry:  registryWith(t, offline),
				Providers: []string{"test"},
			})

			meta, err := d.Detect(context.Background(),
				"The target's Armor Class is 15 and it has 22 Hit Points.")
			if err != nil {
				t.Fatalf("fallback must absorb provider failures, got: %v", err)
			}
			if meta.Method != MethodRuleFallback {
				t.Errorf("Method = %q, want rule_fallback", meta.Method)
			}
			if meta.GameType == "" {
				t.Error("fallback produced empty game_type")
			}
			if meta.Confidence > FallbackCeiling {
				t.Errorf("Confidence = %v exceeds fallback ceiling %v", meta.Confidence, FallbackCeiling)
			}
		})
	}
}

func TestDetectNoProvidersConfigured(t *testing.T) {
	d := New(Options{})
	meta, err := d.Detect(context.Background(), "Sanity check with mythos and keeper markers.")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if meta.Method != MethodRuleFallback {
		t.Errorf("Method = %q, want rule_fallback", meta.Method)
	}
	if meta.GameType != "Call of Cthulhu" {
		t.Errorf("GameType = %q, want Call of Cthulhu", meta.GameType)
	}
}

func TestDetectUnknownFallback(t *testing.T) {
	d := New(Options{})
	meta, err := d.Detect(context.Background(),
		"A plain essay about gardening. Nothing about games at all.")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if meta.GameType != "Unknown" {
		t.Errorf("GameType = %q, want Unknown", meta.GameType)
	}
	if meta.Method != MethodRuleFallback {
		t.Errorf("Method = %q, want rule_fallback", meta.Method)
	}
	if meta.Confidence > FallbackCeiling {
		t.Errorf("Confidence = %v exceeds ceiling", meta.Confidence)
	}
}

func TestDetectProviderLadder(t *testing.T) {
	failing := providers.NewOfflineClassifier()
	failing.FailWith = providers.ErrProviderUnavailable
	working := providers.NewOfflineClassifier()

	r := providers.NewRegistry()
	r.Register("primary", failing)
	r.Register("secondary", working)

	d := New(Options{Registry: r, Providers: []string{"primary", "secondary"}})
	meta, err := d.Detect(context.Background(), "Armor Class 12, Hit Points 9, d20 rolls.")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if meta.Method != MethodAIAnalysis {
		t.Errorf("Method = %q, want ai_analysis from the second backend", meta.Method)
	}
}

func TestDetectCache(t *testing.T) {
	offline := providers.NewOfflineClassifier()
	offline.FailAfter = 1
	d := New(Options{
		Registry:  registryWith(t, offline),
		Providers: []string{"test"},
		CacheSize: 16,
	})

	sample := "Proficiency bonus and spell slot tables, d20 mechanics."
	first, err := d.Detect(context.Background(), sample)
	if err != nil {
		t.Fatalf("first Detect failed: %v", err)
	}
	if first.Method != MethodAIAnalysis {
		t.Fatalf("first Method = %q, want ai_analysis", first.Method)
	}

	// Backend now fails; the cached result must still come back validated.
	second, err := d.Detect(context.Background(), sample)
	if err != nil {
		t.Fatalf("second Detect failed: %v", err)
	}
	if second.Method != MethodAIAnalysis {
		t.Errorf("second Method = %q, cache should have served the validated result", second.Method)
	}
}

func TestOverride(t *testing.T) {
	meta := Override("D&D", "5th Edition", "PHB")
	if meta.Method != MethodManualOverride {
		t.Errorf("Method = %q, want manual_override", meta.Method)
	}
	if meta.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", meta.Confidence)
	}
}

func TestMatchFallbackTieBreak(t *testing.T) {
	// One keyword from two different rules each: declaration order decides.
	meta := matchFallback("characters track hit points; the keeper narrates")
	if meta.GameType != "D&D" {
		t.Errorf("GameType = %q, want D&D (earlier rule wins ties)", meta.GameType)
	}
}

func TestMatchFallbackFuzzyKeyword(t *testing.T) {
	// "masquerade" with a one-letter typo still counts for long keywords.
	meta := matchFallback("the kindred uphold the masqerade at all costs, vampire society demands it")
	if meta.GameType != "Vampire: The Masquerade" {
		t.Errorf("GameType = %q, want Vampire: The Masquerade", meta.GameType)
	}
}

func TestMatchFallbackEditionAndBookType(t *testing.T) {
	sample := strings.Join([]string{
		"Player's Handbook for the fifth edition.",
		"Armor Class, Hit Points, saving throw rules and d20 resolution.",
	}, " ")
	meta := matchFallback(sample)
	if meta.GameType != "D&D" {
		t.Fatalf("GameType = %q, want D&D", meta.GameType)
	}
	if meta.Edition != "5th Edition" {
		t.Errorf("Edition = %q, want 5th Edition", meta.Edition)
	}
	if meta.BookType != "Core Rulebook" {
		t.Errorf("BookType = %q, want Core Rulebook", meta.BookType)
	}
}

func TestFallbackConfidenceCeiling(t *testing.T) {
	for hits := 0; hits < 12; hits++ {
		if c := fallbackConfidence(hits); c > FallbackCeiling {
			t.Errorf("fallbackConfidence(%d) = %v exceeds ceiling", hits, c)
		}
	}
}
