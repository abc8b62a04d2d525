// Package dispatch maps a selected skill plus free text onto one canonical
// backend action, applies authorization and allowance policy, executes the
// action and formats a user-facing reply.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roobot/internal/domain"
	"roobot/internal/jobs"
	"roobot/internal/metrics"
	"roobot/internal/points"
)

// Dispatcher executes skill actions against the points backend and the
// content pipeline. One Dispatch call handles one inbound request.
type Dispatcher struct {
	api      domain.PointsAPI
	provider domain.Provider
	chat     domain.ChatClient
	jobs     domain.JobService
	monitor  *jobs.Monitor
	ratecard *RateCardResolver
	loc      *time.Location
	logger   *slog.Logger

	actionCount *metrics.Counter
	actionFails *metrics.Counter
	activeJobs  *metrics.Gauge
}

type DispatcherConfig struct {
	API      domain.PointsAPI
	Provider domain.Provider
	Chat     domain.ChatClient
	Jobs     domain.JobService
	Monitor  *jobs.Monitor
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.Collector
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	return &Dispatcher{
		api:         cfg.API,
		provider:    cfg.Provider,
		chat:        cfg.Chat,
		jobs:        cfg.Jobs,
		monitor:     cfg.Monitor,
		ratecard:    NewRateCardResolver(cfg.API, cfg.Logger),
		loc:         cfg.Location,
		logger:      cfg.Logger,
		actionCount: cfg.Metrics.Counter("roobot_actions_total", "Dispatched actions"),
		actionFails: cfg.Metrics.Counter("roobot_action_failures_total", "Failed actions"),
		activeJobs:  cfg.Metrics.Gauge("roobot_active_jobs", "Content jobs being monitored"),
	}
}

// Dispatch resolves a canonical action for the request and executes it.
// It never returns an error; every failure becomes a user-facing result.
func (d *Dispatcher) Dispatch(ctx context.Context, sk *domain.Skill, req *domain.ActionRequest) domain.ActionResult {
	d.actionCount.Inc()

	action := d.resolveAction(sk, req)
	req.Action = action

	d.logger.Debug("dispatching action",
		"request_id", req.ID, "skill", sk.Name, "action", action, "user", req.RequesterID)

	var result domain.ActionResult
	switch {
	case action != "" && sk.Handler == handlerPoints:
		result = d.executePoints(ctx, action, req)
	case action != "" && sk.Handler == handlerContent:
		result = d.executeContent(ctx, action, req)
	default:
		result = d.executeGeneric(ctx, sk, req)
	}

	if !result.Success {
		d.actionFails.Inc()
		d.logger.Warn("action failed",
			"request_id", req.ID, "action", action, "kind", result.ErrorKind)
	}
	return result
}

const (
	handlerPoints  = "mlai-points"
	handlerContent = "content-factory"
)

// ExecuteDirect runs an already-resolved points action, skipping alias
// and keyword resolution. The fast-path matcher uses this to go straight
// from a literal command to the backend.
func (d *Dispatcher) ExecuteDirect(ctx context.Context, action string, req *domain.ActionRequest) domain.ActionResult {
	d.actionCount.Inc()
	req.Action = action
	result := d.executePoints(ctx, action, req)
	if !result.Success {
		d.actionFails.Inc()
	}
	return result
}

// actionAliases collapses known mis-extractions of the action parameter
// onto canonical action names. Entries flagged corroborate are only
// accepted when other signals back them up.
var actionAliases = map[string]struct {
	canonical   string
	corroborate bool
}{
	"balance":          {canonical: actBalance},
	"get_balance":      {canonical: actBalance},
	"points":           {canonical: actBalance},
	"my points":        {canonical: actBalance},
	"history":          {canonical: actHistory},
	"ledger":           {canonical: actHistory},
	"list_tasks":       {canonical: actListTasks},
	"tasks":            {canonical: actListTasks},
	"earn":             {canonical: actListTasks},
	"get_task":         {canonical: actTaskDetail},
	"task_detail":      {canonical: actTaskDetail},
	"claim":            {canonical: actClaimTask},
	"claim_task":       {canonical: actClaimTask},
	"submit":           {canonical: actSubmitTask},
	"submit_task":      {canonical: actSubmitTask},
	"check_coworking":  {canonical: actCheckCoworking},
	"availability":     {canonical: actCheckCoworking},
	"book":             {canonical: actBookCoworking},
	"book_coworking":   {canonical: actBookCoworking},
	"cancel":           {canonical: actCancelCoworking},
	"cancel_coworking": {canonical: actCancelCoworking},
	"my_bookings":      {canonical: actMyBookings},
	"bookings":         {canonical: actMyBookings},
	"list_rewards":     {canonical: actListRewards},
	"rewards":          {canonical: actListRewards},
	"request_reward":   {canonical: actRequestReward},
	"redeem":           {canonical: actRequestReward},
	"buy":              {canonical: actRequestReward},
	"create_task":      {canonical: actCreateTask},
	"create":           {canonical: actCreateTask, corroborate: true},
	"task":             {canonical: actCreateTask, corroborate: true},
	"approve":          {canonical: actApproveTask},
	"approve_task":     {canonical: actApproveTask},
	"reject":           {canonical: actRejectTask},
	"reject_task":      {canonical: actRejectTask},
	"award_task":       {canonical: actAwardTask},
	"award":            {canonical: actAwardPoints},
	"award_points":     {canonical: actAwardPoints},
	"give_points":      {canonical: actAwardPoints},
	"generate":         {canonical: actGenerateArticle},
	"generate_article": {canonical: actGenerateArticle},
	"write_article":    {canonical: actGenerateArticle},
}

// keywordRules is scanned in order against the raw text when no usable
// action parameter was extracted; first matching rule wins. Each rule is
// a disjunction of substrings.
var keywordRules = []struct {
	action string
	any    []string
}{
	{actClaimTask, []string{"claim"}},
	{actSubmitTask, []string{"submit"}},
	{actApproveTask, []string{"approve"}},
	{actRejectTask, []string{"reject"}},
	{actAwardPoints, []string{"award", "give points", "points to"}},
	{actCreateTask, []string{"create task", "create a task", "new task", "add task", "add a task"}},
	{actMyBookings, []string{"my booking"}},
	{actBookCoworking, []string{"book"}},
	{actCancelCoworking, []string{"cancel"}},
	{actCheckCoworking, []string{"coworking", "availability", "available"}},
	{actRequestReward, []string{"redeem", "buy "}},
	{actListRewards, []string{"reward"}},
	{actHistory, []string{"history", "ledger"}},
	{actGenerateArticle, []string{"article", "blog post", "write a post", "generate content"}},
	{actListTasks, []string{"task", "earn"}},
	{actBalance, []string{"balance", "points", "how many"}},
}

// resolveAction produces a canonical action name, or empty when the
// request should take the generic model-driven path.
func (d *Dispatcher) resolveAction(sk *domain.Skill, req *domain.ActionRequest) string {
	text := strings.ToLower(req.RawText)

	if raw := stringParam(req.Parameters, "action"); raw != "" {
		key := strings.ToLower(strings.TrimSpace(raw))
		key = strings.ReplaceAll(key, "-", "_")
		if alias, ok := actionAliases[key]; ok {
			if !alias.corroborate || d.corroborated(alias.canonical, req, text) {
				return alias.canonical
			}
		}
	}

	for _, rule := range keywordRules {
		for _, sub := range rule.any {
			if strings.Contains(text, sub) {
				return rule.action
			}
		}
	}
	return ""
}

// corroborated confirms a weak alias hit against independent signals.
func (d *Dispatcher) corroborated(action string, req *domain.ActionRequest, text string) bool {
	if action != actCreateTask {
		return true
	}
	return stringParam(req.Parameters, "title") != "" || strings.Contains(text, "create")
}

func (d *Dispatcher) executePoints(ctx context.Context, action string, req *domain.ActionRequest) domain.ActionResult {
	switch action {
	case actBalance:
		return d.balance(ctx, req)
	case actHistory:
		return d.history(ctx, req)
	case actListTasks:
		return d.listTasks(ctx, req)
	case actTaskDetail:
		return d.taskDetail(ctx, req)
	case actClaimTask:
		return d.claimTask(ctx, req)
	case actSubmitTask:
		return d.submitTask(ctx, req)
	case actCheckCoworking:
		return d.checkCoworking(ctx, req)
	case actBookCoworking:
		return d.bookCoworking(ctx, req)
	case actCancelCoworking:
		return d.cancelCoworking(ctx, req)
	case actMyBookings:
		return d.myBookings(ctx, req)
	case actListRewards:
		return d.listRewards(ctx, req)
	case actRequestReward:
		return d.requestReward(ctx, req)
	case actCreateTask:
		return d.createTask(ctx, req)
	case actApproveTask:
		return d.approveTask(ctx, req)
	case actRejectTask:
		return d.rejectTask(ctx, req)
	case actAwardTask:
		return d.awardTask(ctx, req)
	case actAwardPoints:
		return d.awardPoints(ctx, req)
	default:
		return domain.Ask("Not sure what you're after, mate. Try `points`, `tasks`, `rewards` or `coworking book today`.")
	}
}

func (d *Dispatcher) executeContent(ctx context.Context, action string, req *domain.ActionRequest) domain.ActionResult {
	switch action {
	case actGenerateArticle:
		return d.generateArticle(ctx, req)
	default:
		return domain.Ask("I can write articles for you. Try `write an article about <topic>`.")
	}
}

// executeGeneric hands the skill's instructions to the model verbatim with
// the extracted parameters as context. Provider failure degrades to an
// apology, never an error to the caller.
func (d *Dispatcher) executeGeneric(ctx context.Context, sk *domain.Skill, req *domain.ActionRequest) domain.ActionResult {
	if d.provider == nil || sk.Instructions == "" {
		return domain.Ask("Not quite sure what you're after there. Can you rephrase it for me?")
	}

	prompt := fmt.Sprintf(`You are Roo, executing the %q skill.

Skill description: %s

Skill instructions:
%s

User's original request: %q
Extracted parameters: %v
Requesting user ID: %s

Follow the skill instructions to generate an appropriate response.
Be helpful, friendly, and use casual Australian expressions occasionally.
Keep the response concise but informative.`,
		sk.Name, sk.Description, sk.Instructions, req.RawText, req.Parameters, req.RequesterID)

	resp, err := d.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: "You are Roo, a friendly AI assistant for the MLAI community."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		d.logger.Error("generic skill execution failed", "request_id", req.ID, "skill", sk.Name, "error", err)
		return domain.Fail(domain.ErrUpstreamUnavailable,
			"Sorry, I ran into a problem executing that skill. Can you try again?")
	}
	return domain.OK(resp.Content, req.Parameters)
}

// today returns today's date in the configured time zone, ISO formatted.
func (d *Dispatcher) today() string {
	return time.Now().In(d.loc).Format("2006-01-02")
}

// failFrom maps a backend error onto a friendly reply. The noun names
// what was being looked up so not-found messages read naturally.
func (d *Dispatcher) failFrom(err error, noun string) domain.ActionResult {
	kind := points.KindOf(err)
	switch kind {
	case domain.ErrNotFound:
		return domain.Fail(kind, fmt.Sprintf("Hmm, couldn't find that %s. Double-check the ID for me?", noun))
	case domain.ErrUnauthorized:
		return domain.Fail(kind, "Sorry mate, you're not authorised to do that.")
	case domain.ErrBadRequest:
		if reason := points.ReasonOf(err); reason != "" {
			return domain.Fail(kind, reason)
		}
		return domain.Fail(kind, "That request didn't quite work. Mind checking the details and trying again?")
	default:
		return domain.Fail(domain.ErrUpstreamUnavailable,
			"Sorry mate, having trouble connecting to the points system right now. Try again in a tic!")
	}
}
