package config

import "path/filepath"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:            "info",
			DefaultProvider:     "",
			Timezone:            "Australia/Melbourne",
			MaxConcurrentEvents: 8,
		},
		Providers: map[string]ProviderConfig{
			"gemini": {
				Enabled:      true,
				APIBase:      "https://generativelanguage.googleapis.com/v1beta/openai/",
				APIKey:       "${GOOGLE_API_KEY:-}",
				DefaultModel: "gemini-2.5-flash",
			},
			"openai": {
				Enabled:      true,
				APIKey:       "${OPENAI_API_KEY:-}",
				DefaultModel: "gpt-4o-mini",
			},
			"claude": {
				Enabled:      true,
				APIKey:       "${ANTHROPIC_API_KEY:-}",
				DefaultModel: "claude-3-5-sonnet-20241022",
			},
		},
		Channels: ChannelsConfig{
			Slack: SlackConfig{
				Enabled:  true,
				BotToken: "${SLACK_BOT_TOKEN:-}",
				AppToken: "${SLACK_APP_TOKEN:-}",
			},
			CLI: CLIConfig{Enabled: false},
		},
		Backend: BackendConfig{
			BaseURL:        "${MLAI_BACKEND_URL:-}",
			APIKey:         "${MLAI_API_KEY:-}",
			InternalAPIKey: "${INTERNAL_API_KEY:-}",
			TimeoutSeconds: 15,
		},
		ContentFactory: ContentFactoryConfig{
			URL:                 "${CONTENT_FACTORY_URL:-}",
			APIKey:              "${CONTENT_FACTORY_API_KEY:-}",
			PollIntervalSeconds: 5,
		},
		Skills: SkillsConfig{
			Dir: filepath.Join(DefaultConfigDir(), "skills"),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
		Quests: QuestsConfig{
			Enabled: true,
			Store:   "memory",
			DBPath:  filepath.Join(DefaultConfigDir(), "quests.db"),
		},
	}
}

// DefaultProviderName picks the default provider the way the service always
// has: prefer Gemini, then OpenAI, then Claude, based on configured keys.
func DefaultProviderName(cfg *Config) string {
	if cfg.General.DefaultProvider != "" {
		return cfg.General.DefaultProvider
	}
	for _, name := range []string{"gemini", "openai", "claude"} {
		if pc, ok := cfg.Providers[name]; ok && pc.Enabled && pc.APIKey != "" {
			return name
		}
	}
	return ""
}
