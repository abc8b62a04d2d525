package dispatch

import (
	"context"
	"fmt"
	"strings"

	"roobot/internal/domain"
)

// adminCheck caches one admin lookup for the lifetime of a single
// request. It must never outlive the request; admin status is re-queried
// on the next call so revocations take effect immediately.
type adminCheck struct {
	checked bool
	admin   bool
}

func (d *Dispatcher) isAdmin(ctx context.Context, userID string, cache *adminCheck) bool {
	if cache.checked {
		return cache.admin
	}
	admin, err := d.api.IsAdmin(ctx, userID)
	if err != nil {
		d.logger.Warn("admin lookup failed", "user", userID, "error", err)
		admin = false
	}
	cache.checked = true
	cache.admin = admin
	return admin
}

var notAdminResult = domain.Fail(domain.ErrUnauthorized,
	"Sorry mate, that one's for points admins only.")

// checkAllowance verifies the requester's remaining weekly budget covers
// the whole award, summed across every recipient. The allowance is always
// re-fetched; a stale read here could let two concurrent awards
// double-spend.
func (d *Dispatcher) checkAllowance(ctx context.Context, adminID string, total, recipients int) (domain.ActionResult, bool) {
	allowance, err := d.api.AdminAllowance(ctx, adminID)
	if err != nil {
		return d.failFrom(err, "allowance"), false
	}
	if allowance.Remaining <= 0 {
		return domain.Fail(domain.ErrQuotaExceeded,
			fmt.Sprintf("You've used your full weekly allowance (%d pts). It resets on Monday.", allowance.Allowance)), false
	}
	if total > allowance.Remaining {
		if recipients > 1 {
			return domain.Fail(domain.ErrQuotaExceeded,
				fmt.Sprintf("That's %d pts across %d people, but you only have %d left this week (out of %d).",
					total, recipients, allowance.Remaining, allowance.Allowance)), false
		}
		return domain.Fail(domain.ErrQuotaExceeded,
			fmt.Sprintf("You only have %d pts left this week (out of %d). Try awarding %d or less.",
				allowance.Remaining, allowance.Allowance, allowance.Remaining)), false
	}
	return domain.ActionResult{}, true
}

func (d *Dispatcher) createTask(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	var cache adminCheck
	if !d.isAdmin(ctx, req.RequesterID, &cache) {
		return notAdminResult
	}

	title := stringParam(req.Parameters, "title")
	if title == "" {
		return domain.Ask("What should the task be called? Give me a title and how many points it pays.")
	}
	pts, ok := intParam(req.Parameters, "points")
	if !ok {
		return domain.Ask(fmt.Sprintf("How many points is *%s* worth?", title))
	}
	portfolio := stringParam(req.Parameters, "portfolio")
	if portfolio == "" {
		portfolio = "events"
	}

	task, err := d.api.CreateTask(ctx, domain.CreateTaskRequest{
		AdminID:     req.RequesterID,
		Title:       title,
		Points:      pts,
		Description: stringParam(req.Parameters, "description"),
		Portfolio:   portfolio,
		DueDate:     stringParam(req.Parameters, "due_date"),
		AssignedTo:  stringParam(req.Parameters, "target_user", "assigned_to"),
		ChannelID:   req.ChannelID,
		ThreadID:    req.ThreadID,
	})
	if err != nil {
		return d.failFrom(err, "task")
	}
	return domain.OK(fmt.Sprintf("Done! Created task **#%d - %s** worth %d pts. 📋", task.ID, task.Title, task.Points), nil)
}

func (d *Dispatcher) approveTask(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	var cache adminCheck
	if !d.isAdmin(ctx, req.RequesterID, &cache) {
		return notAdminResult
	}
	id, ok := taskID(req)
	if !ok {
		return domain.Ask("Which task are you approving? Give me the ID, e.g. `approve task 42`.")
	}
	task, err := d.api.ApproveTask(ctx, id, req.RequesterID)
	if err != nil {
		return d.failFrom(err, "task")
	}
	return domain.OK(fmt.Sprintf("Approved! **#%d - %s** is done and points are on their way. 🎉", task.ID, task.Title), nil)
}

func (d *Dispatcher) rejectTask(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	var cache adminCheck
	if !d.isAdmin(ctx, req.RequesterID, &cache) {
		return notAdminResult
	}
	id, ok := taskID(req)
	if !ok {
		return domain.Ask("Which task are you rejecting? Give me the ID, e.g. `reject task 42`.")
	}
	reason := stringParam(req.Parameters, "reason")
	task, err := d.api.RejectTask(ctx, id, req.RequesterID, reason)
	if err != nil {
		return d.failFrom(err, "task")
	}
	return domain.OK(fmt.Sprintf("Righto, sent **#%d - %s** back for another go.", task.ID, task.Title), nil)
}

func (d *Dispatcher) awardTask(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	var cache adminCheck
	if !d.isAdmin(ctx, req.RequesterID, &cache) {
		return notAdminResult
	}
	id, ok := taskID(req)
	if !ok {
		return domain.Ask("Which task are you awarding? Give me the ID.")
	}
	targets := resolveTargets(req, d.botID())
	if len(targets) == 0 {
		return domain.Ask("Who's it for? Mention them, e.g. `award task 42 to @sam`.")
	}
	task, err := d.api.AwardTask(ctx, id, req.RequesterID, targets[0])
	if err != nil {
		return d.failFrom(err, "task")
	}
	return domain.OK(fmt.Sprintf("Done! **#%d - %s** awarded to <@%s>. 🎉", task.ID, task.Title, targets[0]), nil)
}

// awardPoints is the manual award flow. Checks run in a fixed order:
// deductions are refused outright, then admin status, then self-award,
// then the weekly allowance, and only then does the backend call happen.
// A missing amount defers to the rate card, which proposes but never
// awards.
func (d *Dispatcher) awardPoints(ctx context.Context, req *domain.ActionRequest) domain.ActionResult {
	targets := resolveTargets(req, d.botID())
	if len(targets) == 0 {
		return domain.Ask("Who are the points for? Mention them, e.g. `award 10 points to @sam for the newsletter`.")
	}

	amount, haveAmount := resolveAmount(req)
	if haveAmount && amount < 0 {
		return domain.Fail(domain.ErrBadRequest,
			"Point deductions are disabled. Only positive awards are allowed.")
	}

	var cache adminCheck
	if !d.isAdmin(ctx, req.RequesterID, &cache) {
		return notAdminResult
	}

	for _, target := range targets {
		if target == req.RequesterID {
			return domain.Fail(domain.ErrBadRequest, "Nice try! You can't award points to yourself. 😉")
		}
	}

	reason := awardReason(req)
	if !haveAmount {
		return d.proposeFromRateCard(ctx, targets, reason)
	}
	if amount == 0 {
		return domain.Ask("Zero points? Give me a positive amount, e.g. `award 10 points`.")
	}

	if result, ok := d.checkAllowance(ctx, req.RequesterID, amount*len(targets), len(targets)); !ok {
		return result
	}

	var lines []string
	for _, target := range targets {
		award, err := d.api.AwardPoints(ctx, req.RequesterID, target, amount, reason)
		if err != nil {
			fail := d.failFrom(err, "member")
			if len(lines) > 0 {
				// Earlier awards in the batch already landed; say so
				// instead of hiding them behind the error.
				fail.Message = strings.Join(lines, "\n") + "\n" +
					fmt.Sprintf("The award to <@%s> didn't go through though. %s", target, fail.Message)
			}
			return fail
		}
		lines = append(lines, fmt.Sprintf("Awarded %d points to <@%s>! 🎉 New balance: %d.", amount, target, award.NewBalance))
	}
	return domain.OK(strings.Join(lines, "\n"), map[string]any{"points": amount})
}

// proposeFromRateCard turns a missing amount into a question. Confident
// matches ask for confirmation of the inferred value; comparable
// candidates ask which one was meant; no match asks for a number.
func (d *Dispatcher) proposeFromRateCard(ctx context.Context, targets []string, reason string) domain.ActionResult {
	resolution, err := d.ratecard.Resolve(ctx, reason)
	if err != nil {
		return d.failFrom(err, "rate card")
	}

	switch {
	case resolution.Confident:
		top := resolution.Candidates[0]
		return domain.Ask(fmt.Sprintf(
			"Looks like you mean *%s* (%d pts). Want me to award %d points to <@%s>? Say `award %d points to <@%s> for %s` to confirm.",
			top.Entry.Name, top.Entry.Points, top.Entry.Points, targets[0], top.Entry.Points, targets[0], reason))
	case len(resolution.Candidates) > 1:
		var options []string
		for _, c := range resolution.Candidates {
			options = append(options, fmt.Sprintf("*%s* (%d pts)", c.Entry.Name, c.Entry.Points))
		}
		return domain.Ask(fmt.Sprintf("Did you mean %s? Tell me which one, or give me an exact amount.",
			strings.Join(options, " or ")))
	default:
		return domain.Ask("How many points? Give me a number, e.g. `award 10 points to @sam for newsletter`.")
	}
}

func (d *Dispatcher) botID() string {
	if d.chat == nil {
		return ""
	}
	return d.chat.BotUserID()
}
