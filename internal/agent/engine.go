// Package agent is the orchestration layer: it turns free-text chat input
// into either a canned fast-path reply, a dispatched skill action, or a
// generated conversational reply.
package agent

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"roobot/internal/dispatch"
	"roobot/internal/domain"
	"roobot/internal/metrics"
	"roobot/internal/skill"
)

// Engine resolves intent for one inbound event at a time. Fast path,
// selection, extraction and dispatch run strictly sequentially per event;
// concurrency lives one level up, with one goroutine per event.
type Engine struct {
	registry   *skill.Registry
	provider   domain.Provider
	dispatcher *dispatch.Dispatcher
	chat       domain.ChatClient
	loc        *time.Location
	logger     *slog.Logger

	fastHits   *metrics.Counter
	modelCalls *metrics.Counter
}

type EngineConfig struct {
	Registry   *skill.Registry
	Provider   domain.Provider
	Dispatcher *dispatch.Dispatcher
	Chat       domain.ChatClient
	Location   *time.Location
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		registry:   cfg.Registry,
		provider:   cfg.Provider,
		dispatcher: cfg.Dispatcher,
		chat:       cfg.Chat,
		loc:        cfg.Location,
		logger:     cfg.Logger,
		fastHits:   cfg.Metrics.Counter("roobot_fastpath_hits_total", "Fast-path command matches"),
		modelCalls: cfg.Metrics.Counter("roobot_model_calls_total", "Model calls made by the engine"),
	}
}

// HandleMention processes one mention or DM end-to-end and returns the
// reply text. It never returns an error to the event loop; every failure
// becomes an apologetic reply.
func (e *Engine) HandleMention(ctx context.Context, ev domain.InboundEvent) string {
	text := e.normalize(ev.Content)
	e.logger.Info("processing mention", "user", ev.SenderID, "chat", ev.ChatID, "text", truncate(text, 100))

	if result, ok := e.tryFastPath(ctx, text, ev); ok {
		e.fastHits.Inc()
		return result.Message
	}

	sk := e.selectSkill(ctx, text)
	if sk == nil {
		e.logger.Debug("no skill matched, generating general reply")
		return e.generalReply(ctx, text)
	}

	e.logger.Info("selected skill", "skill", sk.Name)
	params := e.extractParameters(ctx, sk, text)

	req := &domain.ActionRequest{
		ID:          uuid.NewString(),
		SkillName:   sk.Name,
		Parameters:  params,
		RequesterID: ev.SenderID,
		ChannelID:   ev.ChatID,
		ThreadID:    ev.ThreadID,
		RawText:     text,
	}
	result := e.dispatcher.Dispatch(ctx, sk, req)
	return result.Message
}

// mention tokens like <@U12345> or <@U12345|roo>.
var mentionToken = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// normalize strips the bot's own mention, wherever it appears, and
// collapses whitespace. Other users' mentions are preserved; awards
// depend on them.
func (e *Engine) normalize(text string) string {
	botID := ""
	if e.chat != nil {
		botID = e.chat.BotUserID()
	}
	if botID != "" {
		// Covers the labelled form <@ID|name> too, not just <@ID>.
		text = mentionToken.ReplaceAllStringFunc(text, func(tok string) string {
			if mentionToken.FindStringSubmatch(tok)[1] == botID {
				return ""
			}
			return tok
		})
	} else if m := mentionToken.FindStringIndex(text); m != nil && m[0] == 0 {
		// Without a known bot ID, drop a leading mention only.
		text = text[m[1]:]
	}
	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
