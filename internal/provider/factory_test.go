package provider

import (
	"log/slog"
	"os"
	"testing"

	"roobot/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Providers = map[string]config.ProviderConfig{
		"openai": {Enabled: true, APIKey: "sk-test", DefaultModel: "gpt-4o-mini"},
		"claude": {Enabled: true, APIKey: "sk-ant-test"},
		"gemini": {Enabled: false},
	}
	return cfg
}

func TestFactoryDefaultFallsBackToOpenAI(t *testing.T) {
	f := NewFactory(testConfig(), testLogger())
	p, err := f.DefaultProvider()
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("expected openai, got %s", p.Name())
	}
}

func TestFactoryCachesInstances(t *testing.T) {
	f := NewFactory(testConfig(), testLogger())
	p1, err := f.Get("claude")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := f.Get("claude")
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("expected cached instance")
	}
}

func TestFactoryRejectsDisabled(t *testing.T) {
	f := NewFactory(testConfig(), testLogger())
	if _, err := f.Get("gemini"); err == nil {
		t.Error("expected error for disabled provider")
	}
}

func TestFactoryRejectsUnknown(t *testing.T) {
	f := NewFactory(testConfig(), testLogger())
	if _, err := f.Get("nope"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
