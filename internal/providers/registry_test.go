package providers

import (
	"testing"
)

func TestRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		Classifiers: map[string]ClassifierConfig{
			"primary":  {Type: "openrouter", Model: "anthropic/claude-3.5-sonnet", APIKey: "k1", RateLimit: 5, Enabled: true},
			"fallback": {Type: "openai", Model: "gpt-4o-mini", APIKey: "k2", RateLimit: 3, Enabled: true},
			"local":    {Type: "offline", Enabled: true},
			"disabled": {Type: "openrouter", APIKey: "k3", Enabled: false},
			"keyless":  {Type: "gemini", Enabled: true},
		},
	}

	r := NewRegistryFromConfig(cfg)

	for _, name := range []string{"primary", "fallback", "local"} {
		if !r.Has(name) {
			t.Errorf("expected %q to be registered", name)
		}
	}
	for _, name := range []string{"disabled", "keyless"} {
		if r.Has(name) {
			t.Errorf("expected %q to be skipped", name)
		}
	}

	c, err := r.Get("primary")
	if err != nil {
		t.Fatalf("Get(primary) failed: %v", err)
	}
	if _, ok := c.(*OpenRouterClient); !ok {
		t.Errorf("primary = %T, want *OpenRouterClient", c)
	}
	if r.Limiter("primary") == nil {
		t.Error("no rate limiter paired with primary")
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Get(missing) should fail")
	}
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		Classifiers: map[string]ClassifierConfig{
			"a": {Type: "openrouter", APIKey: "k", RateLimit: 5, Enabled: true},
			"b": {Type: "offline", Enabled: true},
		},
	})

	before, err := r.Get("a")
	if err != nil {
		t.Fatalf("Get(a) failed: %v", err)
	}

	// Unchanged config keeps the same instance, changed config replaces
	// it, removed config unregisters.
	r.Reload(RegistryConfig{
		Classifiers: map[string]ClassifierConfig{
			"a": {Type: "openrouter", APIKey: "k", RateLimit: 5, Enabled: true},
		},
	})
	after, _ := r.Get("a")
	if before != after {
		t.Error("unchanged config should not recreate backend")
	}
	if r.Has("b") {
		t.Error("removed backend should be unregistered")
	}

	r.Reload(RegistryConfig{
		Classifiers: map[string]ClassifierConfig{
			"a": {Type: "openrouter", APIKey: "k-rotated", RateLimit: 5, Enabled: true},
		},
	})
	rotated, _ := r.Get("a")
	if rotated == before {
		t.Error("changed API key should recreate backend")
	}
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		Classifiers: map[string]ClassifierConfig{
			"weird": {Type: "carrier-pigeon", APIKey: "k", Enabled: true},
		},
	})
	if r.Has("weird") {
		t.Error("unknown backend type must not register")
	}
}
