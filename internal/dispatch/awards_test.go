package dispatch

import (
	"testing"

	"roobot/internal/domain"
)

func awardReq(text string, params map[string]any) *domain.ActionRequest {
	if params == nil {
		params = map[string]any{}
	}
	return &domain.ActionRequest{RawText: text, Parameters: params, RequesterID: "UADMIN"}
}

func TestResolveTargetsFromMentions(t *testing.T) {
	targets := resolveTargets(awardReq("award 10 points to <@U2> and <@U3|sam>", nil), "UBOT")
	if len(targets) != 2 || targets[0] != "U2" || targets[1] != "U3" {
		t.Fatalf("targets = %v", targets)
	}
}

func TestResolveTargetsExcludesBot(t *testing.T) {
	targets := resolveTargets(awardReq("<@UBOT> award 10 points to <@U2>", nil), "UBOT")
	if len(targets) != 1 || targets[0] != "U2" {
		t.Fatalf("targets = %v", targets)
	}
}

func TestResolveTargetsStopWords(t *testing.T) {
	// Bare @tokens that are domain words or prepositions are noise.
	targets := resolveTargets(awardReq("give @points @for the newsletter to @sam", nil), "UBOT")
	if len(targets) != 1 || targets[0] != "sam" {
		t.Fatalf("targets = %v", targets)
	}
}

func TestResolveTargetsParamFallback(t *testing.T) {
	targets := resolveTargets(awardReq("award ten points for the talk", map[string]any{"target_user": "<@U9>"}), "UBOT")
	if len(targets) != 1 || targets[0] != "U9" {
		t.Fatalf("targets = %v", targets)
	}
}

func TestMentionsInTextBeatParams(t *testing.T) {
	targets := resolveTargets(awardReq("award 5 points to <@U2>", map[string]any{"target_user": "U9"}), "UBOT")
	if len(targets) != 1 || targets[0] != "U2" {
		t.Fatalf("targets = %v", targets)
	}
}

func TestResolveAmount(t *testing.T) {
	cases := []struct {
		text   string
		params map[string]any
		want   int
		ok     bool
	}{
		{"award 10 points to <@U2>", nil, 10, true},
		{"give <@U2> 5pts for helping", nil, 5, true},
		{"1 pt for the coffee run", nil, 1, true},
		{"award points", map[string]any{"points": float64(25)}, 25, true},
		{"award points", map[string]any{"points": "15"}, 15, true},
		{"award <@U2> for the newsletter", nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := resolveAmount(awardReq(tc.text, tc.params))
		if got != tc.want || ok != tc.ok {
			t.Errorf("resolveAmount(%q, %v) = (%d, %v), want (%d, %v)", tc.text, tc.params, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAwardReason(t *testing.T) {
	cases := []struct {
		text   string
		params map[string]any
		want   string
	}{
		{"award 10 points to <@U2> for the newsletter", nil, "the newsletter"},
		{"whatever", map[string]any{"reason": "meetup talk"}, "meetup talk"},
		{"award <@U2> for newsletter", nil, "newsletter"},
	}
	for _, tc := range cases {
		if got := awardReason(awardReq(tc.text, tc.params)); got != tc.want {
			t.Errorf("awardReason(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
