package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"roobot/internal/domain"
)

// Canonical action names. Everything the resolver produces is one of these.
const (
	actBalance         = "balance"
	actHistory         = "history"
	actListTasks       = "list tasks"
	actTaskDetail      = "task detail"
	actClaimTask       = "claim task"
	actSubmitTask      = "submit task"
	actCheckCoworking  = "check coworking"
	actBookCoworking   = "book coworking"
	actCancelCoworking = "cancel coworking"
	actMyBookings      = "my bookings"
	actListRewards     = "list rewards"
	actRequestReward   = "request reward"
	actCreateTask      = "create task"
	actApproveTask     = "approve task"
	actRejectTask      = "reject task"
	actAwardTask       = "award task"
	actAwardPoints     = "award points"
	actGenerateArticle = "generate article"
)

// Exported names for callers that resolve an action themselves and go
// through ExecuteDirect.
const (
	ActionBalance         = actBalance
	ActionListTasks       = actListTasks
	ActionListRewards     = actListRewards
	ActionBookCoworking   = actBookCoworking
	ActionCancelCoworking = actCancelCoworking
)

// stringParam fetches the first present, non-empty string under any of
// the given keys. Numbers are stringified since extraction output is
// loosely typed.
func stringParam(params map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := params[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case float64:
			return strconv.Itoa(int(val))
		case int:
			return strconv.Itoa(val)
		}
	}
	return ""
}

// intParam fetches an integer under any of the given keys, tolerating the
// JSON float64 and numeric-string forms extraction produces.
func intParam(params map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		v, ok := params[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case int:
			return val, true
		case float64:
			return int(val), true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func (d *Dispatcher) balance(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	bal, err := d.api.Balance(ctx, req.RequesterID)
	if err != nil {
		return d.failFrom(err, "account")
	}
	msg := fmt.Sprintf("G'day mate! Here's your points summary:\n\n"+
		"💰 **Current Balance:** %d points\n"+
		"📈 **Lifetime Earned:** %d points\n"+
		"Nice work! Check out `@Roo points earn` to get more! 🦘",
		bal.Balance, bal.LifetimeEarned)
	return domain.OK(msg, map[string]any{"balance": bal.Balance})
}

func (d *Dispatcher) history(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	entries, err := d.api.History(ctx, req.RequesterID, 10)
	if err != nil {
		return d.failFrom(err, "account")
	}
	if len(entries) == 0 {
		return domain.OK("No points activity yet. Check out `@Roo tasks` to start earning! 🦘", nil)
	}
	lines := []string{"📜 **Recent Points Activity:**\n"}
	for _, e := range entries {
		sign := "+"
		if e.Points < 0 {
			sign = ""
		}
		lines = append(lines, fmt.Sprintf("• %s%d pts - %s", sign, e.Points, e.Reason))
	}
	return domain.OK(strings.Join(lines, "\n"), nil)
}

func (d *Dispatcher) listTasks(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	tasks, err := d.api.ListTasks(ctx, "open")
	if err != nil {
		return d.failFrom(err, "task list")
	}
	if len(tasks) == 0 {
		return domain.OK("No open tasks at the moment. Check back soon! 🦘", nil)
	}
	lines := []string{"📋 **Open Tasks:**\n"}
	for i, t := range tasks {
		if i == 10 {
			break
		}
		lines = append(lines, fmt.Sprintf("• **#%d** - %s (%d pts) 📂 %s", t.ID, t.Title, t.Points, t.Portfolio))
	}
	lines = append(lines, "\nTo claim one, just say `@Roo claim task <ID>`")
	return domain.OK(strings.Join(lines, "\n"), nil)
}

// taskID pulls a task identifier from parameters first, then from the
// first "#123" or bare number in the text.
func taskID(req *domain.ActionRequest) (int, bool) {
	if id, ok := intParam(req.Parameters, "task_id", "id"); ok {
		return id, true
	}
	if m := taskIDPattern.FindStringSubmatch(req.RawText); m != nil {
		id, err := strconv.Atoi(m[1])
		if err == nil {
			return id, true
		}
	}
	return 0, false
}

func (d *Dispatcher) taskDetail(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	id, ok := taskID(req)
	if !ok {
		return domain.Ask("Which task? Give me the ID, e.g. `task 42`.")
	}
	task, err := d.api.GetTask(ctx, id)
	if err != nil {
		return d.failFrom(err, "task")
	}
	msg := fmt.Sprintf("**#%d - %s**\n%d pts 📂 %s\nStatus: %s", task.ID, task.Title, task.Points, task.Portfolio, task.Status)
	return domain.OK(msg, nil)
}

func (d *Dispatcher) claimTask(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	id, ok := taskID(req)
	if !ok {
		return domain.Ask("Which task do you want to claim? Give me the ID, e.g. `claim task 42`.")
	}
	task, err := d.api.ClaimTask(ctx, id, req.RequesterID)
	if err != nil {
		return d.failFrom(err, "task")
	}
	return domain.OK(fmt.Sprintf("You beauty! Task **#%d - %s** is yours. Say `submit task %d` with your work when you're done. 🦘",
		task.ID, task.Title, task.ID), nil)
}

func (d *Dispatcher) submitTask(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	id, ok := taskID(req)
	if !ok {
		return domain.Ask("Which task are you submitting? Give me the ID, e.g. `submit task 42`.")
	}
	text := stringParam(req.Parameters, "submission_text", "text")
	if text == "" {
		text = req.RawText
	}
	submissionURL := stringParam(req.Parameters, "submission_url", "url")
	task, err := d.api.SubmitTask(ctx, id, req.RequesterID, text, submissionURL)
	if err != nil {
		return d.failFrom(err, "task")
	}
	return domain.OK(fmt.Sprintf("Got it! Submission for **#%d - %s** is in. An admin will review it soon. 🤞", task.ID, task.Title), nil)
}

func (d *Dispatcher) checkCoworking(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	date := stringParam(req.Parameters, "date")
	days, ok := intParam(req.Parameters, "days")
	if !ok {
		days = 7
	}
	availability, err := d.api.CheckCoworking(ctx, date, days)
	if err != nil {
		return d.failFrom(err, "coworking calendar")
	}
	if len(availability) == 0 {
		return domain.OK("No coworking days coming up. Check back later!", nil)
	}
	lines := []string{"🏢 **Coworking Availability:**\n"}
	for _, day := range availability {
		lines = append(lines, fmt.Sprintf("• %s - %d spots left", day.Date, day.SpotsLeft))
	}
	lines = append(lines, "\nSay `coworking book today` or `book coworking on <date>` to grab a spot.")
	return domain.OK(strings.Join(lines, "\n"), nil)
}

func (d *Dispatcher) bookCoworking(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	date := stringParam(req.Parameters, "date")
	if date == "" || strings.EqualFold(date, "today") {
		date = d.today()
	}
	booking, err := d.api.BookCoworking(ctx, req.RequesterID, date, req.ChannelID)
	if err != nil {
		return d.failFrom(err, "coworking day")
	}
	msg := fmt.Sprintf("You beauty! 🎉\nBooked you in for **%s**. Cost: %d point.", booking.Date, booking.PointsCost)
	return domain.OK(msg, map[string]any{"date": booking.Date})
}

func (d *Dispatcher) cancelCoworking(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	date := stringParam(req.Parameters, "date")
	if date == "" || strings.EqualFold(date, "today") {
		date = d.today()
	}
	cancellation, err := d.api.CancelCoworking(ctx, req.RequesterID, date)
	if err != nil {
		return d.failFrom(err, "booking")
	}
	msg := fmt.Sprintf("No worries, cancelled your booking for %s. Refunded %d points.", date, cancellation.RefundAmount)
	return domain.OK(msg, nil)
}

func (d *Dispatcher) myBookings(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	bookings, err := d.api.MyBookings(ctx, req.RequesterID)
	if err != nil {
		return d.failFrom(err, "bookings")
	}
	if len(bookings) == 0 {
		return domain.OK("You've got no coworking bookings coming up. Say `coworking book today` to grab a spot!", nil)
	}
	lines := []string{"🗓️ **Your Bookings:**\n"}
	for _, b := range bookings {
		lines = append(lines, fmt.Sprintf("• %s (%d pt)", b.Date, b.PointsCost))
	}
	return domain.OK(strings.Join(lines, "\n"), nil)
}

func (d *Dispatcher) listRewards(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	rewards, err := d.api.ListRewards(ctx, req.RequesterID)
	if err != nil {
		return d.failFrom(err, "rewards menu")
	}
	if len(rewards) == 0 {
		return domain.OK("No rewards available right now.", nil)
	}
	lines := []string{"🎁 **Rewards Menu:**\n"}
	for _, r := range rewards {
		lines = append(lines, fmt.Sprintf("• **%s** - %s (%d pts)", r.Code, r.Name, r.CostPoints))
	}
	lines = append(lines, "\nAsk me to `buy a sticker` or similar to redeem!")
	return domain.OK(strings.Join(lines, "\n"), nil)
}

func (d *Dispatcher) requestReward(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	code := stringParam(req.Parameters, "reward_code", "code")
	if code == "" {
		return domain.Ask("Which reward would you like? Say `rewards` to see the menu, then tell me the code.")
	}
	quantity, ok := intParam(req.Parameters, "quantity")
	if !ok || quantity < 1 {
		quantity = 1
	}
	notes := stringParam(req.Parameters, "notes")
	redemption, err := d.api.RequestReward(ctx, req.RequesterID, code, quantity, notes, req.ChannelID, req.ThreadID)
	if err != nil {
		return d.failFrom(err, "reward")
	}
	return domain.OK(fmt.Sprintf("Request's in! 🎁 Your **%s** redemption is %s. An admin will sort it out soon.", code, redemption.Status), nil)
}
