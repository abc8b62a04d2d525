package quest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"roobot/internal/domain"
	"roobot/internal/metrics"
)

// Tracker evaluates inbound events against every quest independently and
// hands out the one-time reward when a counter reaches its target.
type Tracker struct {
	defs   []Definition
	store  domain.ProgressStore
	api    domain.PointsAPI
	chat   domain.ChatClient
	loc    *time.Location
	logger *slog.Logger

	completions *metrics.Counter

	mu       sync.Mutex
	channels map[string]string // channel name -> resolved ID
}

type TrackerConfig struct {
	Definitions []Definition
	Store       domain.ProgressStore
	API         domain.PointsAPI
	Chat        domain.ChatClient
	Location    *time.Location
	Logger      *slog.Logger
	Metrics     *metrics.Collector
}

func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.Definitions == nil {
		cfg.Definitions = Builtins()
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tracker{
		defs:        cfg.Definitions,
		store:       cfg.Store,
		api:         cfg.API,
		chat:        cfg.Chat,
		loc:         cfg.Location,
		logger:      cfg.Logger,
		completions: cfg.Metrics.Counter("roobot_quest_completions_total", "Quests completed"),
		channels:    make(map[string]string),
	}
}

// HandleEvent runs one evaluation pass. Every quest is checked on its own;
// a single event may advance several quests at once.
func (t *Tracker) HandleEvent(ctx context.Context, ev domain.InboundEvent) {
	if ev.SenderID == "" {
		return
	}

	for i := range t.defs {
		def := &t.defs[i]
		if def.Rule == MatchFirstPost {
			t.checkFirstPost(ctx, def, ev)
			continue
		}
		if t.qualifies(ctx, def, ev) {
			t.advance(ctx, def, ev.SenderID)
		}
	}
}

func (t *Tracker) qualifies(ctx context.Context, def *Definition, ev domain.InboundEvent) bool {
	switch def.Rule {
	case MatchAnyReaction:
		return ev.Type == domain.EventReaction
	case MatchEmoji:
		return ev.Type == domain.EventReaction && slices.Contains(def.Emojis, ev.Reaction)
	case MatchReactionChannel:
		id := t.channelID(ctx, def.ChannelName)
		return ev.Type == domain.EventReaction && id != "" && ev.ChatID == id
	case MatchThreadReply:
		return ev.Type == domain.EventMessage && ev.ThreadReply
	case MatchPattern:
		return ev.Type == domain.EventMessage && def.Pattern.MatchString(ev.Content)
	case MatchChannel:
		id := t.channelID(ctx, def.ChannelName)
		return ev.Type == domain.EventMessage && !ev.ThreadReply && id != "" && ev.ChatID == id
	case MatchTimeWindow:
		if ev.Type != domain.EventMessage {
			return false
		}
		hour := ev.Timestamp.In(t.loc).Hour()
		return hour >= def.HourStart && hour < def.HourEnd
	default:
		return false
	}
}

// advance increments the quest counter and completes the quest when the
// target is reached. The counter only moves forward; a completed quest
// ignores all further qualifying events.
func (t *Tracker) advance(ctx context.Context, def *Definition, userID string) {
	done, err := t.store.Completed(userID, def.ID)
	if err != nil {
		t.logger.Error("completion lookup failed", "quest", def.ID, "user", userID, "error", err)
		return
	}
	if done {
		return
	}

	count, err := t.store.Increment(userID, def.ID)
	if err != nil {
		t.logger.Error("progress increment failed", "quest", def.ID, "user", userID, "error", err)
		return
	}
	t.logger.Debug("quest progress", "quest", def.ID, "user", userID, "count", count, "target", def.TargetCount)

	// Exactly one concurrent increment observes the target value, so the
	// reward fires at most once even under interleaved handlers.
	if count == def.TargetCount {
		t.complete(ctx, def, userID)
	}
}

// checkFirstPost consults the backend's first-post record instead of the
// local counter, so the quest holds across restarts.
func (t *Tracker) checkFirstPost(ctx context.Context, def *Definition, ev domain.InboundEvent) {
	if ev.Type != domain.EventMessage || ev.ThreadReply {
		return
	}
	id := t.channelID(ctx, def.ChannelName)
	if id == "" || ev.ChatID != id {
		return
	}

	done, err := t.store.Completed(ev.SenderID, def.ID)
	if err == nil && done {
		return
	}

	hasPosted, err := t.api.HasPostedInChannel(ctx, ev.SenderID, ev.ChatID)
	if err != nil {
		t.logger.Warn("first-post lookup failed", "user", ev.SenderID, "error", err)
		return
	}
	if hasPosted {
		// Already counted, possibly before a restart. Remember locally so
		// we stop asking the backend.
		if err := t.store.MarkCompleted(ev.SenderID, def.ID); err != nil {
			t.logger.Error("marking first-post quest failed", "user", ev.SenderID, "error", err)
		}
		return
	}

	if err := t.api.RecordChannelPost(ctx, ev.SenderID, ev.ChatID); err != nil {
		t.logger.Warn("recording first post failed", "user", ev.SenderID, "error", err)
		return
	}
	t.complete(ctx, def, ev.SenderID)
}

// complete marks the quest done before attempting the award. An award
// failure is logged and not rolled back; the marker guarantees at most
// one reward attempt per (user, quest) even under duplicate delivery.
func (t *Tracker) complete(ctx context.Context, def *Definition, userID string) {
	if err := t.store.MarkCompleted(userID, def.ID); err != nil {
		t.logger.Error("marking quest completed failed", "quest", def.ID, "user", userID, "error", err)
		return
	}
	t.completions.Inc()
	t.logger.Info("quest completed", "quest", def.ID, "user", userID, "points", def.Points)

	botID := ""
	if t.chat != nil {
		botID = t.chat.BotUserID()
	}
	if botID == "" {
		t.logger.Warn("cannot award quest points, bot identity unknown", "quest", def.ID)
		return
	}

	_, err := t.api.SystemAwardPoints(ctx, botID, userID, def.Points, "Completed quest: "+def.Name)
	if err != nil {
		t.logger.Error("quest award failed", "quest", def.ID, "user", userID, "error", err)
		return
	}

	if t.chat != nil {
		msg := fmt.Sprintf("🏆 *Quest Complete!*\n\nYou've completed the *%s* quest and earned %d points! 🌟",
			def.Name, def.Points)
		if err := t.chat.SendDirectMessage(ctx, userID, msg); err != nil {
			t.logger.Warn("quest DM failed", "user", userID, "error", err)
		}
	}
}

// channelID resolves a channel name once and caches it for the process
// lifetime.
func (t *Tracker) channelID(ctx context.Context, name string) string {
	if t.chat == nil || name == "" {
		return ""
	}
	t.mu.Lock()
	if id, ok := t.channels[name]; ok {
		t.mu.Unlock()
		return id
	}
	t.mu.Unlock()

	id, err := t.chat.ChannelID(ctx, name)
	if err != nil {
		t.logger.Warn("channel lookup failed", "channel", name, "error", err)
		return ""
	}
	t.mu.Lock()
	t.channels[name] = id
	t.mu.Unlock()
	return id
}
