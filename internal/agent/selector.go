package agent

import (
	"context"
	"fmt"
	"strings"

	"roobot/internal/domain"
	"roobot/internal/skill"
)

// selectSkill picks a skill for the text: trigger-keyword containment in
// registry order first, then a single model classification call. A model
// failure or an unrecognized name yields nil; the caller falls back to a
// general reply, never an error.
func (e *Engine) selectSkill(ctx context.Context, text string) *domain.Skill {
	if sk := e.registry.MatchKeyword(text); sk != nil {
		return sk
	}
	if e.provider == nil {
		return nil
	}

	skills := e.registry.List()
	if len(skills) == 0 {
		return nil
	}

	var descriptions strings.Builder
	for _, s := range skills {
		fmt.Fprintf(&descriptions, "- %s: %s\n", s.Name, s.Description)
	}

	prompt := fmt.Sprintf(`You are a skill router. Given the user's message, decide which skill to use.

Available skills:
%s- none: Use this if no skill is appropriate (general conversation)

User message: %q

Respond with ONLY the skill name (e.g., "mlai-points" or "none"):`, descriptions.String(), text)

	e.modelCalls.Inc()
	resp, err := e.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: "You are a skill router. Respond with only the skill name."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		e.logger.Warn("skill selection call failed", "error", err)
		return nil
	}

	name := skill.NormalizeName(strings.TrimSpace(resp.Content))
	if name == "none" {
		return nil
	}
	if sk, ok := e.registry.Get(name); ok {
		return sk
	}
	e.logger.Debug("router returned unknown skill", "name", name)
	return nil
}
