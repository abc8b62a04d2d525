package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"roobot/internal/config"
	"roobot/internal/domain"
)

// Factory creates and caches LLM providers from config.
type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client
	cache  map[string]domain.Provider
	mu     sync.Mutex
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
		client: SharedHTTPClient(0),
		cache:  make(map[string]domain.Provider),
	}
}

// Get returns the provider with the given name, or the default if empty.
// Created providers are cached so the same instance is reused across calls.
func (f *Factory) Get(name string) (domain.Provider, error) {
	if name == "" {
		name = config.DefaultProviderName(f.cfg)
	}
	if name == "" {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("provider %s: no API key configured", name)
	}

	var p domain.Provider
	switch name {
	case "claude":
		p = NewClaude(ClaudeConfig{APIKey: pc.APIKey, Model: pc.DefaultModel, Client: f.client, Logger: f.logger})
	case "openai", "gemini":
		p = NewOpenAI(OpenAIConfig{Name: name, APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.DefaultModel, Client: f.client, Logger: f.logger})
	default:
		if pc.APIBase == "" {
			return nil, fmt.Errorf("provider %s: apiBase required for OpenAI-compatible providers", name)
		}
		// Unknown names are treated as OpenAI-compatible.
		p = NewOpenAI(OpenAIConfig{Name: name, APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.DefaultModel, Client: f.client, Logger: f.logger})
	}

	f.cache[name] = p
	return p, nil
}

// DefaultProvider returns the configured default provider.
func (f *Factory) DefaultProvider() (domain.Provider, error) {
	return f.Get("")
}
