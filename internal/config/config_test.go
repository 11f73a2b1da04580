package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Providers) == 0 {
		t.Fatal("expected default providers")
	}
	or, ok := cfg.GetProvider("openrouter")
	if !ok {
		t.Fatal("expected openrouter provider")
	}
	if or.APIKey != "${OPENROUTER_API_KEY}" {
		t.Errorf("expected openrouter API key placeholder, got %s", or.APIKey)
	}
	if !or.Enabled {
		t.Error("expected openrouter enabled by default")
	}
	if cfg.Import.Namespace != "rpger" {
		t.Errorf("namespace = %s, want rpger", cfg.Import.Namespace)
	}
	if len(cfg.Detection.Providers) == 0 {
		t.Error("expected a default detection provider ladder")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestEnabledProviders(t *testing.T) {
	cfg := &Config{
		Providers: map[string]ProviderCfg{
			"on":  {Type: "openrouter", Enabled: true},
			"off": {Type: "openai", Enabled: false},
		},
	}
	enabled := cfg.EnabledProviders()
	if len(enabled) != 1 {
		t.Fatalf("enabled = %d, want 1", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("expected provider 'on' in enabled set")
	}
}

func TestToRegistryConfig(t *testing.T) {
	os.Setenv("TEST_REGISTRY_KEY", "rk-42")
	defer os.Unsetenv("TEST_REGISTRY_KEY")

	cfg := &Config{
		Providers: map[string]ProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "anthropic/claude-sonnet-4",
				APIKey:    "${TEST_REGISTRY_KEY}",
				RateLimit: 3.5,
				TimeoutS:  60,
				Enabled:   true,
			},
		},
	}

	reg := cfg.ToRegistryConfig()
	c, ok := reg.Classifiers["openrouter"]
	if !ok {
		t.Fatal("expected openrouter classifier config")
	}
	if c.APIKey != "rk-42" {
		t.Errorf("api key = %s, want resolved rk-42", c.APIKey)
	}
	if c.RateLimit != 3.5 {
		t.Errorf("rate limit = %v, want 3.5", c.RateLimit)
	}
	if c.Timeout != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", c.Timeout)
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	content := string(data)
	for _, want := range []string{"providers:", "docstore:", "vecstore:", "${OPENROUTER_API_KEY}"} {
		if !strings.Contains(content, want) {
			t.Errorf("written config missing %q", want)
		}
	}
}
