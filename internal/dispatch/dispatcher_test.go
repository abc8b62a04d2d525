package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"roobot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// fakeAPI is a scriptable stand-in for the points backend. Zero values
// answer every call; tests override the fields they care about.
type fakeAPI struct {
	balance   domain.Balance
	history   []domain.LedgerEntry
	tasks     []domain.Task
	task      domain.Task
	rewards   []domain.Reward
	bookings  []domain.Booking
	days      []domain.CoworkingDay
	rateCard  []domain.RateCardEntry
	admin     bool
	allowance domain.AdminAllowance

	awardCalls  int
	awardTarget string
	awardPoints int
	awardReason string
	adminChecks int
	awardErrAt  int // fail the Nth AwardPoints call (1-based)
	awardErr    error
	err         error
}

func (f *fakeAPI) Balance(ctx context.Context, userID string) (*domain.Balance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.balance, nil
}

func (f *fakeAPI) History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	return f.history, f.err
}

func (f *fakeAPI) ListTasks(ctx context.Context, status string) ([]domain.Task, error) {
	return f.tasks, f.err
}

func (f *fakeAPI) GetTask(ctx context.Context, taskID int) (*domain.Task, error) {
	return &f.task, f.err
}

func (f *fakeAPI) ClaimTask(ctx context.Context, taskID int, userID string) (*domain.Task, error) {
	return &f.task, f.err
}

func (f *fakeAPI) SubmitTask(ctx context.Context, taskID int, userID, text, url string) (*domain.Task, error) {
	return &f.task, f.err
}

func (f *fakeAPI) CheckCoworking(ctx context.Context, date string, days int) ([]domain.CoworkingDay, error) {
	return f.days, f.err
}

func (f *fakeAPI) BookCoworking(ctx context.Context, userID, date, channelID string) (*domain.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Booking{Date: date, PointsCost: 1}, nil
}

func (f *fakeAPI) CancelCoworking(ctx context.Context, userID, date string) (*domain.Cancellation, error) {
	return &domain.Cancellation{RefundAmount: 1}, f.err
}

func (f *fakeAPI) MyBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	return f.bookings, f.err
}

func (f *fakeAPI) ListRewards(ctx context.Context, userID string) ([]domain.Reward, error) {
	return f.rewards, f.err
}

func (f *fakeAPI) RequestReward(ctx context.Context, userID, code string, quantity int, notes, channelID, threadID string) (*domain.Redemption, error) {
	return &domain.Redemption{ID: "r1", Status: "pending"}, f.err
}

func (f *fakeAPI) RateCard(ctx context.Context) ([]domain.RateCardEntry, error) {
	return f.rateCard, f.err
}

func (f *fakeAPI) IsAdmin(ctx context.Context, userID string) (bool, error) {
	f.adminChecks++
	return f.admin, nil
}

func (f *fakeAPI) AdminAllowance(ctx context.Context, userID string) (*domain.AdminAllowance, error) {
	return &f.allowance, nil
}

func (f *fakeAPI) CreateTask(ctx context.Context, req domain.CreateTaskRequest) (*domain.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Task{ID: 7, Title: req.Title, Points: req.Points}, nil
}

func (f *fakeAPI) ApproveTask(ctx context.Context, taskID int, adminID string) (*domain.Task, error) {
	return &f.task, f.err
}

func (f *fakeAPI) RejectTask(ctx context.Context, taskID int, adminID, reason string) (*domain.Task, error) {
	return &f.task, f.err
}

func (f *fakeAPI) AwardTask(ctx context.Context, taskID int, adminID, targetID string) (*domain.Task, error) {
	return &f.task, f.err
}

func (f *fakeAPI) AwardPoints(ctx context.Context, adminID, targetID string, pts int, reason string) (*domain.Award, error) {
	f.awardCalls++
	f.awardTarget = targetID
	f.awardPoints = pts
	f.awardReason = reason
	if f.err != nil {
		return nil, f.err
	}
	if f.awardErrAt > 0 && f.awardCalls >= f.awardErrAt {
		return nil, f.awardErr
	}
	return &domain.Award{NewBalance: 100 + pts}, nil
}

func (f *fakeAPI) SystemAwardPoints(ctx context.Context, adminID, targetID string, pts int, reason string) (*domain.Award, error) {
	return f.AwardPoints(ctx, adminID, targetID, pts, reason)
}

func (f *fakeAPI) HasPostedInChannel(ctx context.Context, userID, channelID string) (bool, error) {
	return false, nil
}

func (f *fakeAPI) RecordChannelPost(ctx context.Context, userID, channelID string) error {
	return nil
}

func testDispatcher(api domain.PointsAPI) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		API:    api,
		Logger: testLogger(),
	})
}

func pointsSkill() *domain.Skill {
	return &domain.Skill{Name: "mlai-points", Handler: "mlai-points"}
}

func request(text string, params map[string]any) *domain.ActionRequest {
	if params == nil {
		params = map[string]any{}
	}
	return &domain.ActionRequest{
		ID:          "req-1",
		SkillName:   "mlai-points",
		Parameters:  params,
		RequesterID: "UADMIN",
		ChannelID:   "C1",
		RawText:     text,
	}
}

func TestResolveActionAliases(t *testing.T) {
	d := testDispatcher(&fakeAPI{})
	sk := pointsSkill()

	cases := []struct {
		text   string
		params map[string]any
		want   string
	}{
		{"book me in", map[string]any{"action": "book"}, actBookCoworking},
		{"what's my balance", map[string]any{"action": "get_balance"}, actBalance},
		{"give sam some points", map[string]any{"action": "award"}, actAwardPoints},
		// "task" alone only means create when corroborated; otherwise the
		// keyword scan decides.
		{"create one for the meetup", map[string]any{"action": "task", "title": "Meetup setup"}, actCreateTask},
		{"show me the open tasks", map[string]any{"action": "task"}, actListTasks},
		{"task 5 please", map[string]any{"action": "get_task"}, actTaskDetail},
	}
	for _, tc := range cases {
		got := d.resolveAction(sk, request(tc.text, tc.params))
		if got != tc.want {
			t.Errorf("resolveAction(%q, %v) = %q, want %q", tc.text, tc.params, got, tc.want)
		}
	}
}

func TestResolveActionKeywordOrder(t *testing.T) {
	d := testDispatcher(&fakeAPI{})
	sk := pointsSkill()

	cases := []struct {
		text string
		want string
	}{
		{"claim task 42", actClaimTask},
		{"award 10 points to <@U2> for the talk", actAwardPoints},
		{"book coworking on friday", actBookCoworking},
		{"cancel my spot", actCancelCoworking},
		{"what rewards are there", actListRewards},
		{"show my points history", actHistory},
	}
	for _, tc := range cases {
		got := d.resolveAction(sk, request(tc.text, nil))
		if got != tc.want {
			t.Errorf("resolveAction(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestBalanceMessage(t *testing.T) {
	api := &fakeAPI{balance: domain.Balance{Balance: 42, LifetimeEarned: 100}}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(), request("points balance", nil))
	if !res.Success {
		t.Fatalf("balance failed: %+v", res)
	}
	if !strings.Contains(res.Message, "42") || !strings.Contains(res.Message, "100") {
		t.Errorf("message missing balance figures: %q", res.Message)
	}
}

func TestAwardHappyPath(t *testing.T) {
	api := &fakeAPI{admin: true, allowance: domain.AdminAllowance{Allowance: 50, Used: 0, Remaining: 50}}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points to <@U2> for the newsletter", nil))
	if !res.Success {
		t.Fatalf("award failed: %+v", res)
	}
	if api.awardCalls != 1 || api.awardTarget != "U2" || api.awardPoints != 10 {
		t.Errorf("award call = (%d, %q, %d)", api.awardCalls, api.awardTarget, api.awardPoints)
	}
}

func TestAwardQuotaExceededMakesNoBackendCall(t *testing.T) {
	api := &fakeAPI{admin: true, allowance: domain.AdminAllowance{Allowance: 50, Used: 50, Remaining: 0}}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 5 points to <@U2> for helping out", nil))
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.ErrorKind != domain.ErrQuotaExceeded {
		t.Errorf("kind = %q, want quota_exceeded", res.ErrorKind)
	}
	if !strings.Contains(res.Message, "50") {
		t.Errorf("message should surface the quota: %q", res.Message)
	}
	if api.awardCalls != 0 {
		t.Errorf("backend award called %d times, want 0", api.awardCalls)
	}
}

func TestAwardPartialAllowanceSurfacesRemaining(t *testing.T) {
	api := &fakeAPI{admin: true, allowance: domain.AdminAllowance{Allowance: 50, Used: 45, Remaining: 5}}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points to <@U2> for helping out", nil))
	if res.ErrorKind != domain.ErrQuotaExceeded {
		t.Fatalf("kind = %q, want quota_exceeded", res.ErrorKind)
	}
	if !strings.Contains(res.Message, "5") {
		t.Errorf("message should name the remaining budget: %q", res.Message)
	}
	if api.awardCalls != 0 {
		t.Error("no backend call expected")
	}
}

func TestMultiTargetAwardCheckedAgainstTotal(t *testing.T) {
	api := &fakeAPI{admin: true, allowance: domain.AdminAllowance{Allowance: 20, Used: 5, Remaining: 15}}
	d := testDispatcher(api)

	// 10 pts each to two people is 20, over the 15 remaining.
	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points to <@UAAA> and <@UBBB> for the meetup", nil))
	if res.ErrorKind != domain.ErrQuotaExceeded {
		t.Fatalf("kind = %q, want quota_exceeded", res.ErrorKind)
	}
	if !strings.Contains(res.Message, "20") || !strings.Contains(res.Message, "15") {
		t.Errorf("message should name the total and the remaining budget: %q", res.Message)
	}
	if api.awardCalls != 0 {
		t.Errorf("backend award called %d times, want 0", api.awardCalls)
	}
}

func TestMultiTargetAwardWithinAllowance(t *testing.T) {
	api := &fakeAPI{admin: true, allowance: domain.AdminAllowance{Allowance: 50, Used: 0, Remaining: 50}}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points to <@UAAA> and <@UBBB> for the meetup", nil))
	if !res.Success {
		t.Fatalf("award failed: %+v", res)
	}
	if api.awardCalls != 2 {
		t.Errorf("award calls = %d, want 2", api.awardCalls)
	}
	if !strings.Contains(res.Message, "UAAA") || !strings.Contains(res.Message, "UBBB") {
		t.Errorf("message should name both recipients: %q", res.Message)
	}
}

func TestMultiTargetAwardReportsLandedOnFailure(t *testing.T) {
	api := &fakeAPI{
		admin:      true,
		allowance:  domain.AdminAllowance{Allowance: 50, Remaining: 50},
		awardErrAt: 2,
		awardErr:   errors.New("connection reset"),
	}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points to <@UAAA> and <@UBBB> for the meetup", nil))
	if res.Success {
		t.Fatal("expected failure when the second award errors")
	}
	if !strings.Contains(res.Message, "<@UAAA>") {
		t.Errorf("message should report the award that landed: %q", res.Message)
	}
	if !strings.Contains(res.Message, "<@UBBB>") {
		t.Errorf("message should name the recipient that missed out: %q", res.Message)
	}
}

func TestSelfAwardAlwaysRejected(t *testing.T) {
	api := &fakeAPI{admin: true, allowance: domain.AdminAllowance{Allowance: 50, Remaining: 50}}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points to <@UADMIN> for being great", nil))
	if res.Success {
		t.Fatal("self-award must be rejected")
	}
	if api.awardCalls != 0 {
		t.Error("no backend call expected for self-award")
	}
	if !strings.Contains(res.Message, "yourself") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestDeductionRefusedRegardlessOfAdmin(t *testing.T) {
	api := &fakeAPI{admin: false}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("take some points off <@U2>", map[string]any{"action": "award", "points": -5}))
	if res.Success {
		t.Fatal("deduction must be refused")
	}
	if !strings.Contains(res.Message, "deductions are disabled") {
		t.Errorf("message = %q", res.Message)
	}
	if api.awardCalls != 0 {
		t.Error("no backend call expected")
	}
	// The refusal is unconditional; it must not even consult admin status.
	if api.adminChecks != 0 {
		t.Errorf("admin checked %d times before the refusal", api.adminChecks)
	}
}

func TestNonAdminAwardRejected(t *testing.T) {
	api := &fakeAPI{admin: false}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points to <@U2> for the talk", nil))
	if res.ErrorKind != domain.ErrUnauthorized {
		t.Errorf("kind = %q, want unauthorized", res.ErrorKind)
	}
	if api.awardCalls != 0 {
		t.Error("no backend call expected")
	}
}

func TestAmbiguousAwardAsksConfirmation(t *testing.T) {
	api := &fakeAPI{
		admin:     true,
		allowance: domain.AdminAllowance{Allowance: 50, Remaining: 50},
		rateCard: []domain.RateCardEntry{
			{Alias: "newsletter", Name: "Weekly Newsletter", Points: 10},
			{Alias: "talk", Name: "Meetup Talk", Points: 50},
		},
	}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award <@U2> for newsletter", nil))
	if !res.Success {
		t.Fatalf("expected a clarifying question, got %+v", res)
	}
	if !strings.Contains(res.Message, "10") {
		t.Errorf("question should name the inferred 10 points: %q", res.Message)
	}
	if api.awardCalls != 0 {
		t.Errorf("award endpoint called %d times, want 0", api.awardCalls)
	}
}

func TestAwardNoTargetAsksWho(t *testing.T) {
	api := &fakeAPI{admin: true}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("award 10 points for the newsletter", nil))
	if !res.Success {
		t.Fatalf("clarifying question should be a success: %+v", res)
	}
	if api.awardCalls != 0 {
		t.Error("no backend call expected")
	}
}

func TestBookTodayUsesConfiguredZone(t *testing.T) {
	api := &fakeAPI{}
	d := testDispatcher(api)

	res := d.Dispatch(context.Background(), pointsSkill(),
		request("book coworking today", nil))
	if !res.Success {
		t.Fatalf("booking failed: %+v", res)
	}
	if !strings.Contains(res.Message, d.today()) {
		t.Errorf("message should echo today's date %s: %q", d.today(), res.Message)
	}
	if !strings.Contains(res.Message, "Cost: 1 point") {
		t.Errorf("message should echo the cost: %q", res.Message)
	}
}

func TestGenericPathWithoutProviderAsksToRephrase(t *testing.T) {
	d := testDispatcher(&fakeAPI{})
	sk := &domain.Skill{Name: "community-connect", Instructions: "Find people."}

	res := d.Dispatch(context.Background(), sk, request("who knows about transformers", nil))
	if !res.Success {
		t.Fatalf("generic fallback should degrade gracefully: %+v", res)
	}
}
