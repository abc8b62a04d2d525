package agent

import (
	"context"
	"regexp"
	"time"

	"roobot/internal/dispatch"
	"roobot/internal/domain"
)

// fastPaths are whole-string matches for high-frequency commands, checked
// in order with first match winning. A hit bypasses skill selection and
// parameter extraction entirely; no model call is made.
var fastPaths = []struct {
	pattern *regexp.Regexp
	action  string
	today   bool // derive today's date as the date parameter
}{
	{regexp.MustCompile(`(?i)^(?:points|balance|my points)$`), dispatch.ActionBalance, false},
	{regexp.MustCompile(`(?i)^(?:points\s+earn|earn\s+points|tasks|ways\s+to\s+earn)$`), dispatch.ActionListTasks, false},
	{regexp.MustCompile(`(?i)^(?:points\s+rewards|rewards)$`), dispatch.ActionListRewards, false},
	{regexp.MustCompile(`(?i)^coworking\s+book\s+today$`), dispatch.ActionBookCoworking, true},
	{regexp.MustCompile(`(?i)^coworking\s+cancel$`), dispatch.ActionCancelCoworking, true},
}

// tryFastPath returns (result, true) when the text is a fast-path command.
// On a hit there is no further fallback, so any backend failure degrades
// to an apology rather than propagating.
func (e *Engine) tryFastPath(ctx context.Context, text string, ev domain.InboundEvent) (domain.ActionResult, bool) {
	for _, fp := range fastPaths {
		if !fp.pattern.MatchString(text) {
			continue
		}

		params := map[string]any{}
		if fp.today {
			params["date"] = time.Now().In(e.loc).Format("2006-01-02")
		}
		req := &domain.ActionRequest{
			ID:          "fast-" + fp.action,
			SkillName:   "mlai-points",
			Parameters:  params,
			RequesterID: ev.SenderID,
			ChannelID:   ev.ChatID,
			ThreadID:    ev.ThreadID,
			RawText:     text,
		}

		result := e.dispatcher.ExecuteDirect(ctx, fp.action, req)
		if !result.Success {
			e.logger.Warn("fast path degraded", "action", fp.action, "kind", result.ErrorKind)
			return domain.ActionResult{
				Success:   true,
				Message:   "Sorry mate, having trouble connecting to the points system right now. Try again in a tic!",
				ErrorKind: domain.ErrUpstreamUnavailable,
			}, true
		}
		return result, true
	}
	return domain.ActionResult{}, false
}
