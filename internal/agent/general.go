package agent

import (
	"context"

	"roobot/internal/domain"
)

const personaPrompt = `You are Roo, the friendly AI assistant for the MLAI community.

Your personality:
- Warm and approachable, like a helpful local
- Use casual Australian expressions occasionally (mate, no worries, etc.)
- Helpful and encouraging
- Keep responses concise but friendly

Respond to the user's message in a helpful, conversational way.`

const fallbackReply = "G'day! Sorry, I'm having a bit of trouble at the moment. Mind trying again? 🦘"

// generalReply handles messages no skill claimed. Provider failure never
// reaches the event loop; the reply degrades to a canned apology.
func (e *Engine) generalReply(ctx context.Context, text string) string {
	if e.provider == nil {
		return fallbackReply
	}

	e.modelCalls.Inc()
	resp, err := e.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: personaPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		e.logger.Warn("general reply failed", "error", err)
		return fallbackReply
	}
	return resp.Content
}
