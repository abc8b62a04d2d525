package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roobot/internal/domain"
	"roobot/internal/jobs"
)

// generateArticle starts a content pipeline job and hands it to the
// monitor. The reply is immediate; progress and the final result arrive
// in the originating thread as the detached monitor reports in.
func (d *Dispatcher) generateArticle(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	if d.jobs == nil || d.monitor == nil {
		return domain.Fail(domain.ErrUpstreamUnavailable,
			"The content factory isn't wired up on this deployment, sorry!")
	}

	topic := stringParam(req.Parameters, "topic")
	if topic == "" {
		topic = topicFromText(req.RawText)
	}
	if topic == "" {
		return domain.Ask("What should the article be about? Give me a topic, e.g. `write an article about RAG pipelines`.")
	}

	site := stringParam(req.Parameters, "domain")
	if site == "" {
		site = "mlai.au"
	}

	jobID, err := d.jobs.Start(ctx, domain.JobParams{
		Domain:        site,
		Topic:         topic,
		TargetKeyword: stringParam(req.Parameters, "target_keyword"),
		Context:       stringParam(req.Parameters, "context"),
	})
	if err != nil {
		return domain.Fail(domain.ErrUpstreamUnavailable,
			"Couldn't reach the content factory, sorry. Try again in a bit!")
	}

	chatID, threadID := req.ChannelID, req.ThreadID
	d.activeJobs.Inc()

	// The monitor outlives this request on purpose; give it a fresh
	// context so the reply returning does not cancel the poll loop.
	d.monitor.Watch(context.Background(), jobID,
		func(h domain.JobHandle) {
			d.post(chatID, threadID, fmt.Sprintf("⏳ %s... (%d%%)", stepLabel(h.CurrentStep), h.Progress))
		},
		func(result *domain.PublishResult, err error) {
			d.activeJobs.Dec()
			switch {
			case err == nil:
				d.post(chatID, threadID, fmt.Sprintf(
					"Done! 🎉 Your article about *%s* is published.\n• Preview: %s\n• PR: %s",
					topic, result.PreviewURL, result.PRURL))
			case isJobFailure(err):
				var failed *jobs.JobFailedError
				errors.As(err, &failed)
				d.post(chatID, threadID, fmt.Sprintf(
					"Bad news, the article job hit a snag: %s", failed.Reason))
			default:
				d.post(chatID, threadID,
					"Lost touch with the content factory while watching that job. It may still finish; check back with me in a bit.")
			}
		})

	return domain.OK(fmt.Sprintf("On it! 🦘 Generating an article about *%s*. I'll keep you posted in this thread.", topic),
		map[string]any{"job_id": jobID})
}

func isJobFailure(err error) bool {
	var failed *jobs.JobFailedError
	return errors.As(err, &failed)
}

func stepLabel(step string) string {
	if step == "" {
		return "Working on it"
	}
	return strings.ToUpper(step[:1]) + step[1:]
}

// topicFromText pulls a topic out of "write an article about X" phrasing.
func topicFromText(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range []string{" about ", " on "} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			return strings.TrimSpace(text[idx+len(marker):])
		}
	}
	return ""
}

func (d *Dispatcher) post(chatID, threadID, text string) {
	if d.chat == nil {
		return
	}
	if err := d.chat.PostMessage(context.Background(), chatID, text, threadID); err != nil {
		d.logger.Warn("posting job update failed", "chat", chatID, "error", err)
	}
}
