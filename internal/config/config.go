package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for Roobot.
type Config struct {
	General        GeneralConfig             `json:"general"`
	Providers      map[string]ProviderConfig `json:"providers"`
	Channels       ChannelsConfig            `json:"channels"`
	Backend        BackendConfig             `json:"backend"`
	ContentFactory ContentFactoryConfig      `json:"contentFactory"`
	Skills         SkillsConfig              `json:"skills"`
	Quests         QuestsConfig              `json:"quests"`
	Metrics        MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel            string `json:"logLevel"`
	DefaultProvider     string `json:"defaultProvider"`
	Timezone            string `json:"timezone"`
	MaxConcurrentEvents int    `json:"maxConcurrentEvents"`
}

type ProviderConfig struct {
	Enabled      bool   `json:"enabled"`
	APIBase      string `json:"apiBase,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

type ChannelsConfig struct {
	Slack SlackConfig `json:"slack"`
	CLI   CLIConfig   `json:"cli"`
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken"`
	AppToken string `json:"appToken"` // required for Socket Mode
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

// BackendConfig points at the community points backend.
type BackendConfig struct {
	BaseURL        string `json:"baseUrl"`
	APIKey         string `json:"apiKey,omitempty"`
	InternalAPIKey string `json:"internalApiKey,omitempty"` // admin/system endpoints
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// ContentFactoryConfig points at the article generation pipeline.
type ContentFactoryConfig struct {
	URL                 string `json:"url,omitempty"`
	APIKey              string `json:"apiKey,omitempty"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds,omitempty"`
}

type SkillsConfig struct {
	Dir string `json:"dir"`
}

// MetricsConfig configures the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"` // listen address, e.g. "127.0.0.1:9090"
}

type QuestsConfig struct {
	Enabled bool   `json:"enabled"`
	Store   string `json:"store"` // "memory" | "sqlite"
	DBPath  string `json:"dbPath,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.roobot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roobot"
	}
	return filepath.Join(home, ".roobot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Quests.DBPath = expandPath(cfg.Quests.DBPath)
	cfg.Skills.Dir = expandPath(cfg.Skills.Dir)
	expandSecrets(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(expandPath(path), data, 0o600)
}

// Validate checks for programmer-facing misconfiguration. These are the only
// conditions treated as fatal, and only at process start.
func Validate(cfg *Config) error {
	if cfg.Channels.Slack.Enabled {
		if cfg.Channels.Slack.BotToken == "" {
			return fmt.Errorf("channels.slack.botToken is required when slack is enabled")
		}
		if cfg.Channels.Slack.AppToken == "" {
			return fmt.Errorf("channels.slack.appToken is required when slack is enabled")
		}
	}
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseUrl is required")
	}
	if cfg.Quests.Enabled && cfg.Quests.Store == "sqlite" && cfg.Quests.DBPath == "" {
		return fmt.Errorf("quests.dbPath is required for the sqlite store")
	}
	anyProvider := false
	for _, pc := range cfg.Providers {
		if pc.Enabled && pc.APIKey != "" {
			anyProvider = true
			break
		}
	}
	if !anyProvider {
		return fmt.Errorf("at least one enabled provider with an API key is required")
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if v := os.Getenv(groups[1]); v != "" {
			return v
		}
		if len(groups) >= 3 {
			return groups[2]
		}
		return ""
	})
}

// expandSecrets resolves ${VAR} references that survive in defaulted fields
// when the config file does not override them.
func expandSecrets(cfg *Config) {
	for name, pc := range cfg.Providers {
		pc.APIKey = ExpandEnvVars(pc.APIKey)
		pc.APIBase = ExpandEnvVars(pc.APIBase)
		cfg.Providers[name] = pc
	}
	cfg.Channels.Slack.BotToken = ExpandEnvVars(cfg.Channels.Slack.BotToken)
	cfg.Channels.Slack.AppToken = ExpandEnvVars(cfg.Channels.Slack.AppToken)
	cfg.Backend.BaseURL = ExpandEnvVars(cfg.Backend.BaseURL)
	cfg.Backend.APIKey = ExpandEnvVars(cfg.Backend.APIKey)
	cfg.Backend.InternalAPIKey = ExpandEnvVars(cfg.Backend.InternalAPIKey)
	cfg.ContentFactory.URL = ExpandEnvVars(cfg.ContentFactory.URL)
	cfg.ContentFactory.APIKey = ExpandEnvVars(cfg.ContentFactory.APIKey)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
