package dispatch

import (
	"regexp"
	"strconv"
	"strings"

	"roobot/internal/domain"
	"roobot/internal/points"
)

var (
	// <@U12345> or <@U12345|handle> platform mention tokens.
	mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)
	// Plain-text @name tokens, a fallback when no platform mentions exist.
	bareMentionPattern = regexp.MustCompile(`@([A-Za-z0-9._-]+)`)
	// "10 points", "5pts", "1 pt".
	amountPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:points?|pts?)\b`)
	// "#42", "task 42" or a bare number.
	taskIDPattern = regexp.MustCompile(`#?(\d+)`)
)

// awardStopWords are bare @tokens that are never a user: prepositions and
// domain vocabulary that show up right after an @ through typos or
// mid-sentence line wrapping.
var awardStopWords = map[string]bool{
	"points": true, "point": true, "pts": true, "pt": true,
	"for": true, "to": true, "the": true, "a": true, "an": true,
	"task": true, "tasks": true, "reward": true, "rewards": true,
	"coworking": true, "award": true, "channel": true, "here": true,
	"everyone": true,
}

// resolveTargets finds the users an award is aimed at. Platform mention
// tokens in the text win; the bot's own mention is never a target. Only
// when the text has no usable mentions do extracted parameters count.
func resolveTargets(req *domain.ActionRequest, botID string) []string {
	var targets []string
	seen := map[string]bool{}

	add := func(id string) {
		id = points.CleanUserID(id)
		if id == "" || id == botID || seen[id] {
			return
		}
		seen[id] = true
		targets = append(targets, id)
	}

	for _, m := range mentionPattern.FindAllStringSubmatch(req.RawText, -1) {
		add(m[1])
	}
	if len(targets) > 0 {
		return targets
	}

	for _, m := range bareMentionPattern.FindAllStringSubmatch(req.RawText, -1) {
		if awardStopWords[strings.ToLower(m[1])] {
			continue
		}
		add(m[1])
	}
	if len(targets) > 0 {
		return targets
	}

	if p := stringParam(req.Parameters, "target_user", "user", "target"); p != "" {
		add(p)
	}
	return targets
}

// resolveAmount finds an explicit point amount: extracted parameters
// first, then a number-with-unit match on the text. The rate card is the
// caller's fallback when neither is present.
func resolveAmount(req *domain.ActionRequest) (int, bool) {
	if n, ok := intParam(req.Parameters, "points", "amount"); ok {
		return n, true
	}
	if m := amountPattern.FindStringSubmatch(req.RawText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// awardReason extracts the free-text reason for an award, stripping
// mention tokens and leading filler so it matches rate-card entries.
func awardReason(req *domain.ActionRequest) string {
	if r := stringParam(req.Parameters, "reason"); r != "" {
		return r
	}
	text := mentionPattern.ReplaceAllString(req.RawText, "")
	text = amountPattern.ReplaceAllString(text, "")
	if idx := strings.LastIndex(strings.ToLower(text), " for "); idx >= 0 {
		text = text[idx+len(" for "):]
	}
	return strings.TrimSpace(text)
}
