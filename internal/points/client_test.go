package points

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"roobot/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return NewClient(ClientConfig{
		BaseURL:        srv.URL,
		APIKey:         "member-key",
		InternalAPIKey: "internal-key",
		Logger:         logger,
	})
}

func TestCleanUserID(t *testing.T) {
	cases := map[string]string{
		"<@U12345>":      "U12345",
		"<@U12345|vika>": "U12345",
		"@U12345":        "U12345",
		"U12345":         "U12345",
	}
	for in, want := range cases {
		if got := CleanUserID(in); got != want {
			t.Errorf("CleanUserID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBalance(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/points/users/U1/balance/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "member-key" {
			t.Errorf("member endpoint should use member key, got %q", r.Header.Get("X-API-Key"))
		}
		w.Write([]byte(`{"balance": 42, "lifetime_earned": 100}`))
	})

	bal, err := c.Balance(context.Background(), "<@U1>")
	if err != nil {
		t.Fatal(err)
	}
	if bal.Balance != 42 || bal.LifetimeEarned != 100 {
		t.Errorf("unexpected balance: %+v", bal)
	}
}

func TestAdminEndpointUsesInternalKey(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "internal-key" {
			t.Errorf("admin endpoint should use internal key, got %q", r.Header.Get("X-API-Key"))
		}
		w.Write([]byte(`{"allowance": 50, "used": 10, "remaining": 40}`))
	})

	a, err := c.AdminAllowance(context.Background(), "U9")
	if err != nil {
		t.Fatal(err)
	}
	if a.Remaining != 40 {
		t.Errorf("unexpected allowance: %+v", a)
	}
}

func TestErrorKindMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   domain.ErrorKind
	}{
		{404, domain.ErrNotFound},
		{403, domain.ErrUnauthorized},
		{400, domain.ErrBadRequest},
		{502, domain.ErrUpstreamUnavailable},
	}
	for _, tc := range cases {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error": "nope"}`))
		})
		_, err := c.GetTask(context.Background(), 7)
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := KindOf(err); got != tc.kind {
			t.Errorf("status %d: kind = %s, want %s", tc.status, got, tc.kind)
		}
		if tc.status == 400 && ReasonOf(err) != "nope" {
			t.Errorf("upstream reason lost: %q", ReasonOf(err))
		}
	}
}

func TestIsAdminNotFoundMeansFalse(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ok, err := c.IsAdmin(context.Background(), "U2")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("404 should mean not an admin")
	}
}

func TestRecordChannelPostConflictIsOK(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	if err := c.RecordChannelPost(context.Background(), "U1", "C1"); err != nil {
		t.Errorf("409 should be tolerated: %v", err)
	}
}

func TestHistoryTruncatesToLimit(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"points":1},{"points":2},{"points":3}]`))
	})
	entries, err := c.History(context.Background(), "U1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}
