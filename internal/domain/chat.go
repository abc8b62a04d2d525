package domain

import "context"

// UserInfo is the subset of a chat-platform user profile the bot cares about.
type UserInfo struct {
	ID          string
	DisplayName string
	RealName    string
	Email       string
}

// ChatClient is the outbound side of the chat platform (Slack).
// Failures from any of these calls are non-fatal to the caller.
type ChatClient interface {
	PostMessage(ctx context.Context, chatID, text, threadID string) error
	SendDirectMessage(ctx context.Context, userID, text string) error
	BotUserID() string
	LookupUser(ctx context.Context, userID string) (UserInfo, error)
	ChannelID(ctx context.Context, name string) (string, error)
}
