package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"roobot/internal/domain"
)

// extractParameters asks the model for a structured parameter map guided
// by the skill's declared schema. Extraction is best effort: a failed
// call or unparsable output yields an empty map, and downstream handlers
// cope with missing parameters by asking follow-up questions.
func (e *Engine) extractParameters(ctx context.Context, sk *domain.Skill, text string) map[string]any {
	if e.provider == nil || len(sk.Parameters) == 0 {
		return map[string]any{}
	}

	var schema strings.Builder
	for _, p := range sk.Parameters {
		required := "optional"
		if p.Required {
			required = "required"
		}
		fmt.Fprintf(&schema, "- %s (%s): %s\n", p.Name, required, p.Description)
	}

	prompt := fmt.Sprintf(`Extract parameters from the user's message based on these definitions:

%s
User message: %q

Return a JSON object with the extracted parameters. Only include parameters that are clearly present.
Example: {"action": "award_points", "points": 10}

JSON:`, schema.String(), text)

	e.modelCalls.Inc()
	resp, err := e.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: "You extract structured parameters from text. Return valid JSON only."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		e.logger.Warn("parameter extraction call failed", "skill", sk.Name, "error", err)
		return map[string]any{}
	}

	params := map[string]any{}
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &params); err != nil {
		e.logger.Debug("extraction output not parsable", "skill", sk.Name, "output", truncate(resp.Content, 120))
		return map[string]any{}
	}
	return params
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(s, "{") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
