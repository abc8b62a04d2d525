package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"roobot/internal/domain"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const slackMaxMsgLen = 4000

// Slack implements domain.Channel over Socket Mode and domain.ChatClient
// for outbound calls made outside the bus (DMs, job-monitor updates).
type Slack struct {
	botToken string
	appToken string
	client   *slack.Client
	socket   *socketmode.Client
	bus      domain.MessageBus
	logger   *slog.Logger
	botUID   string

	mu       sync.RWMutex
	users    map[string]domain.UserInfo
	channels map[string]string // name -> ID
}

type SlackConfig struct {
	BotToken string
	AppToken string
	Logger   *slog.Logger
}

func NewSlack(cfg SlackConfig) *Slack {
	return &Slack{
		botToken: cfg.BotToken,
		appToken: cfg.AppToken,
		logger:   cfg.Logger,
		users:    make(map[string]domain.UserInfo),
		channels: make(map[string]string),
	}
}

func (s *Slack) Name() string { return "slack" }

// Start connects via Socket Mode and pumps events onto the bus until the
// context is cancelled.
func (s *Slack) Start(ctx context.Context, bus domain.MessageBus) error {
	s.bus = bus

	api := slack.New(
		s.botToken,
		slack.OptionAppLevelToken(s.appToken),
	)
	s.client = api

	authResp, err := api.AuthTest()
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.botUID = authResp.UserID
	s.logger.Info("slack bot connected", "user", authResp.User, "user_id", authResp.UserID)

	socketClient := socketmode.New(api)
	s.socket = socketClient

	bus.OnOutbound("slack", func(msg domain.OutboundMessage) {
		if msg.Content == "" {
			return
		}
		s.sendMessage(msg.ChatID, msg.Content, msg.ThreadID)
	})

	go func() {
		for evt := range socketClient.Events {
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				socketClient.Ack(*evt.Request)
				s.handleEventsAPI(eventsAPIEvent)

			case socketmode.EventTypeSlashCommand:
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				socketClient.Ack(*evt.Request)
				s.handleSlashCommand(cmd)

			default:
				// Ack unknown events so Socket Mode does not disconnect.
				if evt.Request != nil {
					socketClient.Ack(*evt.Request)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- socketClient.RunContext(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("slack bot disconnecting")
		return nil
	case err := <-errCh:
		return fmt.Errorf("slack socket mode: %w", err)
	}
}

func (s *Slack) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		s.logger.Info("slack mention received", "user", ev.User, "channel", ev.Channel)
		s.bus.Publish(domain.InboundEvent{
			Channel:     "slack",
			Type:        domain.EventMention,
			ChatID:      ev.Channel,
			SenderID:    ev.User,
			Content:     ev.Text,
			ThreadID:    threadFor(ev.ThreadTimeStamp, ev.TimeStamp),
			ThreadReply: ev.ThreadTimeStamp != "" && ev.ThreadTimeStamp != ev.TimeStamp,
			Timestamp:   slackTime(ev.TimeStamp),
		})

	case *slackevents.MessageEvent:
		// Skip the bot's own messages and edits/joins/etc.
		if ev.User == s.botUID || ev.User == "" || ev.BotID != "" || ev.SubType != "" {
			return
		}
		s.bus.Publish(domain.InboundEvent{
			Channel:     "slack",
			Type:        domain.EventMessage,
			ChatID:      ev.Channel,
			SenderID:    ev.User,
			Content:     ev.Text,
			ThreadID:    threadFor(ev.ThreadTimeStamp, ev.TimeStamp),
			DM:          strings.HasPrefix(ev.Channel, "D"),
			ThreadReply: ev.ThreadTimeStamp != "" && ev.ThreadTimeStamp != ev.TimeStamp,
			Timestamp:   slackTime(ev.TimeStamp),
		})

	case *slackevents.ReactionAddedEvent:
		if ev.User == s.botUID {
			return
		}
		s.bus.Publish(domain.InboundEvent{
			Channel:   "slack",
			Type:      domain.EventReaction,
			ChatID:    ev.Item.Channel,
			SenderID:  ev.User,
			Reaction:  ev.Reaction,
			Timestamp: slackTime(ev.EventTimestamp),
		})
	}
}

func (s *Slack) handleSlashCommand(cmd slack.SlashCommand) {
	content := strings.TrimSpace(strings.TrimPrefix(cmd.Command, "/") + " " + cmd.Text)
	s.logger.Info("slack slash command", "command", cmd.Command, "user", cmd.UserID, "channel", cmd.ChannelID)
	s.bus.Publish(domain.InboundEvent{
		Channel:   "slack",
		Type:      domain.EventMention,
		ChatID:    cmd.ChannelID,
		SenderID:  cmd.UserID,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// threadFor keeps replies in the thread they came from; a top-level
// message starts one keyed by its own timestamp.
func threadFor(threadTS, ts string) string {
	if threadTS != "" {
		return threadTS
	}
	return ts
}

func slackTime(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Now()
	}
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9))
}

func (s *Slack) sendMessage(channelID, content, threadID string) {
	for _, chunk := range splitSlackMessage(content, slackMaxMsgLen) {
		opts := []slack.MsgOption{slack.MsgOptionText(chunk, false)}
		if threadID != "" {
			opts = append(opts, slack.MsgOptionTS(threadID))
		}
		if _, _, err := s.client.PostMessage(channelID, opts...); err != nil {
			s.logger.Error("slack send failed", "channel", channelID, "err", err)
		}
	}
}

func splitSlackMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}
		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}
		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}

// The methods below implement domain.ChatClient.

func (s *Slack) PostMessage(ctx context.Context, chatID, text, threadID string) error {
	for _, chunk := range splitSlackMessage(text, slackMaxMsgLen) {
		opts := []slack.MsgOption{slack.MsgOptionText(chunk, false)}
		if threadID != "" {
			opts = append(opts, slack.MsgOptionTS(threadID))
		}
		if _, _, err := s.client.PostMessageContext(ctx, chatID, opts...); err != nil {
			return fmt.Errorf("slack post: %w", err)
		}
	}
	return nil
}

func (s *Slack) SendDirectMessage(ctx context.Context, userID, text string) error {
	ch, _, _, err := s.client.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	return s.PostMessage(ctx, ch.ID, text, "")
}

func (s *Slack) BotUserID() string { return s.botUID }

func (s *Slack) LookupUser(ctx context.Context, userID string) (domain.UserInfo, error) {
	s.mu.RLock()
	if info, ok := s.users[userID]; ok {
		s.mu.RUnlock()
		return info, nil
	}
	s.mu.RUnlock()

	user, err := s.client.GetUserInfoContext(ctx, userID)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("user lookup: %w", err)
	}
	info := domain.UserInfo{
		ID:          user.ID,
		DisplayName: user.Profile.DisplayName,
		RealName:    user.RealName,
		Email:       user.Profile.Email,
	}
	s.mu.Lock()
	s.users[userID] = info
	s.mu.Unlock()
	return info, nil
}

// ChannelID resolves a channel name to its ID, paging through the
// conversation list once and caching every name seen.
func (s *Slack) ChannelID(ctx context.Context, name string) (string, error) {
	name = strings.TrimPrefix(name, "#")

	s.mu.RLock()
	if id, ok := s.channels[name]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	cursor := ""
	for {
		chans, next, err := s.client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor:          cursor,
			Limit:           200,
			ExcludeArchived: true,
		})
		if err != nil {
			return "", fmt.Errorf("list channels: %w", err)
		}
		s.mu.Lock()
		for _, ch := range chans {
			s.channels[ch.Name] = ch.ID
		}
		id, ok := s.channels[name]
		s.mu.Unlock()
		if ok {
			return id, nil
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return "", fmt.Errorf("channel %q not found", name)
}
