package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/calllog"
)

// Registry holds references to classifier backends. It supports
// config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu          sync.RWMutex
	classifiers map[string]Classifier
	configs     map[string]ClassifierConfig
	limiters    map[string]*RateLimiter
	recorder    *calllog.Recorder
	logger      *slog.Logger
}

// NewRegistry creates a new empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		classifiers: make(map[string]Classifier),
		configs:     make(map[string]ClassifierConfig),
		limiters:    make(map[string]*RateLimiter),
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// SetCallLog attaches a call recorder. Every classifier handed out by Get
// afterwards records its calls to it.
func (r *Registry) SetCallLog(rec *calllog.Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder = rec
}

// Register registers a classifier backend by name.
func (r *Registry) Register(name string, c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifiers[name] = c
	r.limiters[name] = NewRateLimiter(c.RequestsPerSecond())
	if r.logger != nil {
		r.logger.Info("registered classifier", "name", name)
	}
}

// Unregister removes a classifier backend by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.classifiers, name)
	delete(r.configs, name)
	delete(r.limiters, name)
	if r.logger != nil {
		r.logger.Info("unregistered classifier", "name", name)
	}
}

// Get returns a classifier backend by name.
func (r *Registry) Get(name string) (Classifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classifiers[name]
	if !ok {
		return nil, fmt.Errorf("%w: classifier not found: %s", ErrProviderUnavailable, name)
	}
	return WithCallLog(c, r.recorder), nil
}

// Limiter returns the rate limiter paired with a backend, or nil if the
// backend is not registered.
func (r *Registry) Limiter(name string) *RateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

// List returns all registered backend names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classifiers))
	for name := range r.classifiers {
		names = append(names, name)
	}
	return names
}

// Has checks if a classifier backend is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classifiers[name]
	return ok
}

// Classifiers returns a map of all registered backends. Used by the
// detection ladder to walk providers in preference order.
func (r *Registry) Classifiers() map[string]Classifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]Classifier, len(r.classifiers))
	for name, c := range r.classifiers {
		result[name] = c
	}
	return result
}

// RegistryConfig defines the backends to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// Classifiers maps backend names to their config with resolved API keys.
	Classifiers map[string]ClassifierConfig
}

// ClassifierConfig matches config.ProviderCfg with resolved API key.
type ClassifierConfig struct {
	Type      string  // "openrouter", "openai", "gemini", "offline"
	Model     string  // Default model name
	APIKey    string  // Resolved API key
	RateLimit float64 // Requests per second
	Timeout   time.Duration
	Enabled   bool
}

// NewRegistryFromConfig creates a registry with backends based on
// configuration. Only enabled backends with valid API keys are registered;
// the offline backend needs no key.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration. Backends that
// are no longer configured are unregistered, and backends with changed
// settings are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.Classifiers {
		if !usable(provCfg) {
			continue
		}
		want[name] = true

		prev, hasExisting := r.configs[name]
		if hasExisting && prev == provCfg {
			continue
		}
		c := createClassifier(provCfg)
		if c == nil {
			if r.logger != nil {
				r.logger.Warn("unknown classifier type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		r.classifiers[name] = c
		r.configs[name] = provCfg
		r.limiters[name] = NewRateLimiter(c.RequestsPerSecond())
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated classifier", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered classifier", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name := range r.classifiers {
		if !want[name] {
			delete(r.classifiers, name)
			delete(r.configs, name)
			delete(r.limiters, name)
			if r.logger != nil {
				r.logger.Info("unregistered classifier", "name", name)
			}
		}
	}
}

// usable reports whether a backend config can produce a working client.
func usable(cfg ClassifierConfig) bool {
	if !cfg.Enabled {
		return false
	}
	if cfg.Type == "offline" {
		return true
	}
	return cfg.APIKey != ""
}

// createClassifier creates a backend based on provider type.
func createClassifier(cfg ClassifierConfig) Classifier {
	switch cfg.Type {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
			Timeout:      cfg.Timeout,
		})
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
			Timeout:      cfg.Timeout,
		})
	case "gemini":
		return NewGeminiClient(GeminiConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
			Timeout:      cfg.Timeout,
		})
	case "offline":
		return NewOfflineClassifier()
	default:
		return nil
	}
}
