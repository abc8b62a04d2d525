package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"roobot/internal/dispatch"
	"roobot/internal/domain"
	"roobot/internal/skill"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// stubAPI answers only the backend calls these tests exercise; anything
// else panics via the embedded nil interface.
type stubAPI struct {
	domain.PointsAPI
	balance domain.Balance
	fail    bool
	booked  string
}

var errBackendDown = errors.New("backend down")

func (s *stubAPI) Balance(ctx context.Context, userID string) (*domain.Balance, error) {
	if s.fail {
		return nil, errBackendDown
	}
	return &s.balance, nil
}

func (s *stubAPI) ListTasks(ctx context.Context, status string) ([]domain.Task, error) {
	if s.fail {
		return nil, errBackendDown
	}
	return []domain.Task{{ID: 1, Title: "Write docs", Points: 5, Portfolio: "content"}}, nil
}

func (s *stubAPI) ListRewards(ctx context.Context, userID string) ([]domain.Reward, error) {
	return []domain.Reward{{Code: "sticker", Name: "Laptop Sticker", CostPoints: 5}}, nil
}

func (s *stubAPI) BookCoworking(ctx context.Context, userID, date, channelID string) (*domain.Booking, error) {
	s.booked = date
	return &domain.Booking{Date: date, PointsCost: 1}, nil
}

func (s *stubAPI) CancelCoworking(ctx context.Context, userID, date string) (*domain.Cancellation, error) {
	return &domain.Cancellation{RefundAmount: 1}, nil
}

// stubProvider records chat calls and replies from a script.
type stubProvider struct {
	replies []string
	calls   int
	fail    bool
}

func (p *stubProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	p.calls++
	if p.fail {
		return nil, errors.New("provider down")
	}
	reply := "g'day!"
	if len(p.replies) > 0 {
		reply = p.replies[0]
		p.replies = p.replies[1:]
	}
	return &domain.ChatResponse{Content: reply}, nil
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float64, error) { return nil, nil }
func (p *stubProvider) Name() string                                              { return "stub" }
func (p *stubProvider) Healthy(ctx context.Context) error                         { return nil }

type stubChat struct{ botID string }

func (c *stubChat) PostMessage(ctx context.Context, chatID, text, threadID string) error { return nil }
func (c *stubChat) SendDirectMessage(ctx context.Context, userID, text string) error     { return nil }
func (c *stubChat) BotUserID() string                                                    { return c.botID }
func (c *stubChat) LookupUser(ctx context.Context, userID string) (domain.UserInfo, error) {
	return domain.UserInfo{ID: userID}, nil
}
func (c *stubChat) ChannelID(ctx context.Context, name string) (string, error) { return "", nil }

func testEngine(api domain.PointsAPI, provider domain.Provider) *Engine {
	logger := testLogger()
	registry := skill.NewRegistry(logger)
	registry.RegisterBuiltins()

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherConfig{
		API:    api,
		Logger: logger,
	})
	return NewEngine(EngineConfig{
		Registry:   registry,
		Provider:   provider,
		Dispatcher: dispatcher,
		Chat:       &stubChat{botID: "UROO"},
		Location:   time.UTC,
		Logger:     logger,
	})
}

func event(text string) domain.InboundEvent {
	return domain.InboundEvent{
		Channel:  "slack",
		Type:     domain.EventMention,
		ChatID:   "C1",
		SenderID: "U1",
		Content:  text,
	}
}

func TestFastPathShortCircuitsModel(t *testing.T) {
	provider := &stubProvider{}
	eng := testEngine(&stubAPI{balance: domain.Balance{Balance: 42, LifetimeEarned: 100}}, provider)

	reply := eng.HandleMention(context.Background(), event("points"))
	if !strings.Contains(reply, "42") || !strings.Contains(reply, "100") {
		t.Errorf("reply missing balance figures: %q", reply)
	}
	if provider.calls != 0 {
		t.Errorf("fast path made %d model calls, want 0", provider.calls)
	}
}

func TestFastPathMatchesWholeStringOnly(t *testing.T) {
	provider := &stubProvider{replies: []string{"none"}}
	api := &stubAPI{balance: domain.Balance{Balance: 7}}
	eng := testEngine(api, provider)

	// "points" embedded in a sentence is not a fast-path hit, but it does
	// trigger the points skill via keyword match.
	reply := eng.HandleMention(context.Background(), event("how do points work around here"))
	if reply == "" {
		t.Fatal("empty reply")
	}
	if strings.Contains(reply, "Lifetime Earned: 0") && provider.calls == 0 {
		// A whole-string match would have gone straight to the balance
		// endpoint without any model involvement.
		t.Error("sentence input must not take the balance fast path")
	}
}

func TestFastPathBookTodayEchoesCost(t *testing.T) {
	api := &stubAPI{}
	eng := testEngine(api, &stubProvider{})

	reply := eng.HandleMention(context.Background(), event("coworking book today"))
	today := time.Now().UTC().Format("2006-01-02")
	if api.booked != today {
		t.Errorf("booked date = %q, want %q", api.booked, today)
	}
	if !strings.Contains(reply, "Cost: 1 point") {
		t.Errorf("reply should echo the cost: %q", reply)
	}
}

func TestFastPathDegradesOnBackendError(t *testing.T) {
	eng := testEngine(&stubAPI{fail: true}, &stubProvider{})

	reply := eng.HandleMention(context.Background(), event("tasks"))
	if !strings.Contains(reply, "Try again in a tic") {
		t.Errorf("want fast-path apology, got %q", reply)
	}
}

func TestNormalizeStripsOwnMentionOnly(t *testing.T) {
	eng := testEngine(&stubAPI{}, &stubProvider{})

	got := eng.normalize("<@UROO>  award   10 points to <@U2>")
	want := "award 10 points to <@U2>"
	if got != want {
		t.Errorf("normalize = %q, want %q", got, want)
	}

	// The labelled mention form must be stripped the same way, wherever
	// it appears, so the bot never looks like an award target.
	got = eng.normalize("hey <@UROO|roo> award 5 points to <@U2|sam>")
	want = "hey award 5 points to <@U2|sam>"
	if got != want {
		t.Errorf("normalize = %q, want %q", got, want)
	}
}

func TestGeneralReplyWhenNothingMatches(t *testing.T) {
	provider := &stubProvider{replies: []string{"none", "happy to help, mate!"}}
	eng := testEngine(&stubAPI{}, provider)

	reply := eng.HandleMention(context.Background(), event("how was your weekend"))
	if reply != "happy to help, mate!" {
		t.Errorf("reply = %q", reply)
	}
	// One call for routing, one for the reply itself.
	if provider.calls != 2 {
		t.Errorf("model calls = %d, want 2", provider.calls)
	}
}

func TestGeneralReplyDegradesOnProviderFailure(t *testing.T) {
	eng := testEngine(&stubAPI{}, &stubProvider{fail: true})

	reply := eng.HandleMention(context.Background(), event("how was your weekend"))
	if !strings.Contains(reply, "trouble") {
		t.Errorf("want apology, got %q", reply)
	}
}

func TestSelectorKeywordBeatsModel(t *testing.T) {
	provider := &stubProvider{}
	eng := testEngine(&stubAPI{}, provider)

	sk := eng.selectSkill(context.Background(), "can you book coworking for friday")
	if sk == nil || sk.Name != "mlai-points" {
		t.Fatalf("skill = %+v", sk)
	}
	if provider.calls != 0 {
		t.Errorf("keyword match made %d model calls", provider.calls)
	}
}

func TestSelectorModelFallbackNormalizesName(t *testing.T) {
	provider := &stubProvider{replies: []string{"MLAI_Points"}}
	eng := testEngine(&stubAPI{}, provider)

	sk := eng.selectSkill(context.Background(), "sort me out with that thing")
	if sk == nil || sk.Name != "mlai-points" {
		t.Fatalf("skill = %+v", sk)
	}
}

func TestSelectorUnrecognizedNameSelectsNothing(t *testing.T) {
	provider := &stubProvider{replies: []string{"time-travel"}}
	eng := testEngine(&stubAPI{}, provider)

	if sk := eng.selectSkill(context.Background(), "sort me out"); sk != nil {
		t.Fatalf("skill = %+v", sk)
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"{\"a\": 1}", "{\"a\": 1}"},
		{"```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"```\n{\"a\": 1}\n```", "{\"a\": 1}"},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
