package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"roobot/internal/agent"
	"roobot/internal/bus"
	"roobot/internal/channel"
	"roobot/internal/config"
	"roobot/internal/dispatch"
	"roobot/internal/domain"
	"roobot/internal/jobs"
	"roobot/internal/metrics"
	"roobot/internal/points"
	"roobot/internal/provider"
	"roobot/internal/quest"
	"roobot/internal/skill"

	"github.com/spf13/cobra"
)

var (
	version    = "0.3.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "roobot",
		Short: "Roo: the MLAI community Slack bot",
		Long:  "Roo answers mentions, awards community points, tracks quests, and runs the content pipeline for the MLAI Slack.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.roobot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and skills directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Skills.Dir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "skills", cfg.Skills.Dir)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bot (Slack Socket Mode + quest tracker)",
		Long:  "Connects to Slack, handles mentions and DMs, tracks quests, and serves metrics. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to Roo interactively on the terminal",
		RunE:  runChat,
	}
}

// loadConfig loads and validates the config file, falling back to
// defaults only where the caller permits it.
func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func timezone(cfg *config.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.General.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", "tz", cfg.General.Timezone, "err", err)
		return time.UTC
	}
	return loc
}

// buildEngine wires the full resolution pipeline from config. The Slack
// channel doubles as the ChatClient; chat may be nil in CLI mode.
func buildEngine(cfg *config.Config, chat domain.ChatClient, collector *metrics.Collector) (*agent.Engine, domain.Provider, *points.Client, error) {
	loc := timezone(cfg)

	provFactory := provider.NewFactory(cfg, logger)
	prov, err := provFactory.DefaultProvider()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("provider: %w", err)
	}

	api := points.NewClient(points.ClientConfig{
		BaseURL:        cfg.Backend.BaseURL,
		APIKey:         cfg.Backend.APIKey,
		InternalAPIKey: cfg.Backend.InternalAPIKey,
		Timeout:        time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		Logger:         logger,
	})

	var jobSvc domain.JobService
	var monitor *jobs.Monitor
	if cfg.ContentFactory.URL != "" {
		factory := jobs.NewContentFactory(jobs.ContentFactoryConfig{
			BaseURL: cfg.ContentFactory.URL,
			APIKey:  cfg.ContentFactory.APIKey,
			Logger:  logger,
		})
		jobSvc = factory
		monitor = jobs.NewMonitor(jobs.MonitorConfig{
			Service:  factory,
			Interval: time.Duration(cfg.ContentFactory.PollIntervalSeconds) * time.Second,
			Logger:   logger,
		})
	}

	registry := skill.NewRegistry(logger)
	registry.RegisterBuiltins()
	if cfg.Skills.Dir != "" {
		loaded, err := skill.LoadFromDirectory(cfg.Skills.Dir, logger)
		if err != nil {
			logger.Warn("skill directory not loaded", "dir", cfg.Skills.Dir, "err", err)
		}
		for _, s := range loaded {
			registry.Register(s)
		}
	}

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherConfig{
		API:      api,
		Provider: prov,
		Chat:     chat,
		Jobs:     jobSvc,
		Monitor:  monitor,
		Location: loc,
		Logger:   logger,
		Metrics:  collector,
	})

	engine := agent.NewEngine(agent.EngineConfig{
		Registry:   registry,
		Provider:   prov,
		Dispatcher: dispatcher,
		Chat:       chat,
		Location:   loc,
		Logger:     logger,
		Metrics:    collector,
	})
	return engine, prov, api, nil
}

func buildTracker(cfg *config.Config, api domain.PointsAPI, chat domain.ChatClient, collector *metrics.Collector) (*quest.Tracker, func(), error) {
	var store domain.ProgressStore
	cleanup := func() {}
	if cfg.Quests.Store == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Quests.DBPath), 0o755); err != nil {
			return nil, nil, err
		}
		sqliteStore, err := quest.NewSQLiteStore(cfg.Quests.DBPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("quest store: %w", err)
		}
		store = sqliteStore
		cleanup = func() { sqliteStore.Close() }
	} else {
		store = quest.NewMemoryStore()
	}

	tracker := quest.NewTracker(quest.TrackerConfig{
		Store:    store,
		API:      api,
		Chat:     chat,
		Location: timezone(cfg),
		Logger:   logger,
		Metrics:  collector,
	})
	return tracker, cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.General.LogLevel)}))

	if !cfg.Channels.Slack.Enabled {
		return fmt.Errorf("channels.slack must be enabled for serve; use 'roobot chat' for the terminal")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	slackCh := channel.NewSlack(channel.SlackConfig{
		BotToken: cfg.Channels.Slack.BotToken,
		AppToken: cfg.Channels.Slack.AppToken,
		Logger:   logger,
	})

	engine, prov, api, err := buildEngine(cfg, slackCh, collector)
	if err != nil {
		return err
	}
	if err := prov.Healthy(ctx); err != nil {
		logger.Warn("provider unhealthy at startup", "provider", prov.Name(), "err", err)
	} else {
		logger.Info("provider healthy", "provider", prov.Name())
	}

	var tracker *quest.Tracker
	if cfg.Quests.Enabled {
		var cleanup func()
		tracker, cleanup, err = buildTracker(cfg, api, slackCh, collector)
		if err != nil {
			return err
		}
		defer cleanup()
		logger.Info("quest tracker enabled", "store", cfg.Quests.Store)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Addr, collector)
	}

	go runEventLoop(ctx, messageBus, engine, tracker, cfg.General.MaxConcurrentEvents)

	logger.Info("roobot serving", "version", version)
	if err := slackCh.Start(ctx, messageBus); err != nil && ctx.Err() == nil {
		return fmt.Errorf("slack channel: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// runEventLoop consumes inbound events until the bus closes. Mentions and
// DMs go to the engine; every message and reaction also feeds the quest
// tracker. A semaphore bounds concurrent handlers so one slow backend
// call cannot stall the Slack event stream.
func runEventLoop(ctx context.Context, messageBus domain.MessageBus, engine *agent.Engine, tracker *quest.Tracker, maxConcurrent int) {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	sem := make(chan struct{}, maxConcurrent)

	for ev := range messageBus.Subscribe() {
		ev := ev
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			handleEvent(ctx, messageBus, engine, tracker, ev)
		}()
	}
}

func handleEvent(ctx context.Context, messageBus domain.MessageBus, engine *agent.Engine, tracker *quest.Tracker, ev domain.InboundEvent) {
	switch ev.Type {
	case domain.EventMention:
		reply := engine.HandleMention(ctx, ev)
		messageBus.SendOutbound(domain.OutboundMessage{
			Channel:  ev.Channel,
			ChatID:   ev.ChatID,
			Content:  reply,
			ThreadID: ev.ThreadID,
		})
	case domain.EventMessage:
		if ev.DM {
			reply := engine.HandleMention(ctx, ev)
			messageBus.SendOutbound(domain.OutboundMessage{
				Channel:  ev.Channel,
				ChatID:   ev.ChatID,
				Content:  reply,
				ThreadID: ev.ThreadID,
			})
		} else if tracker != nil {
			tracker.HandleEvent(ctx, ev)
		}
	case domain.EventReaction:
		if tracker != nil {
			tracker.HandleEvent(ctx, ev)
		}
	}
}

func serveMetrics(ctx context.Context, addr string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		collector.WriteTo(w)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ok uptime=%s\n", collector.Uptime().Round(time.Second))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", "err", err)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.General.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	engine, _, _, err := buildEngine(cfg, nil, collector)
	if err != nil {
		return err
	}

	go runEventLoop(ctx, messageBus, engine, nil, cfg.General.MaxConcurrentEvents)

	cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger})
	return cliCh.Start(ctx, messageBus)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config and provider status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}
			ctx := context.Background()
			factory := provider.NewFactory(cfg, logger)
			prov, err := factory.DefaultProvider()
			if err != nil || prov == nil {
				logger.Info("provider", "healthy", false)
				return nil
			}
			if err := prov.Healthy(ctx); err != nil {
				logger.Info("provider", "name", prov.Name(), "healthy", false, "err", err)
			} else {
				logger.Info("provider", "name", prov.Name(), "healthy", true)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. general.timezone)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. general.timezone Australia/Melbourne)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
