package skill

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"roobot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestGetNormalizesNames(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(domain.Skill{Name: "connect-users"})

	for _, name := range []string{"connect-users", "connect_users", "Connect_Users", " CONNECT-USERS "} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("lookup failed for %q", name)
		}
	}
	if _, ok := r.Get("other"); ok {
		t.Error("unexpected match")
	}
}

func TestMatchKeywordFirstHitWins(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(domain.Skill{Name: "first", TriggerKeywords: []string{"points"}})
	r.Register(domain.Skill{Name: "second", TriggerKeywords: []string{"points balance"}})

	s := r.MatchKeyword("what is my Points balance?")
	if s == nil || s.Name != "first" {
		t.Fatalf("expected first, got %+v", s)
	}
}

func TestMatchKeywordNoMatch(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(domain.Skill{Name: "points", TriggerKeywords: []string{"points"}})
	if s := r.MatchKeyword("hello there"); s != nil {
		t.Errorf("expected no match, got %s", s.Name)
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(domain.Skill{Name: "points", Description: "old"})
	r.Register(domain.Skill{Name: "points", Description: "new"})

	if len(r.List()) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(r.List()))
	}
	s, _ := r.Get("points")
	if s.Description != "new" {
		t.Errorf("expected replacement, got %s", s.Description)
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	content := `
name: connect-users
description: Find community members by expertise
trigger_keywords: ["who knows", "connect me"]
parameters:
  - name: query
    description: The expertise to search for
    required: true
instructions: |
  Search member profiles for the requested expertise and suggest introductions.
`
	if err := os.WriteFile(filepath.Join(dir, "connect_users.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Non-YAML files are skipped.
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o600)

	skills, err := LoadFromDirectory(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(skills))
	}
	s := skills[0]
	if s.Name != "connect-users" || len(s.Parameters) != 1 || !s.Parameters[0].Required {
		t.Errorf("unexpected skill: %+v", s)
	}
}

func TestLoadFromMissingDirectory(t *testing.T) {
	skills, err := LoadFromDirectory("/nonexistent/skills", testLogger())
	if err != nil || skills != nil {
		t.Errorf("missing dir should be a no-op, got %v %v", skills, err)
	}
}

func TestBuiltins(t *testing.T) {
	r := NewRegistry(testLogger())
	r.RegisterBuiltins()

	s, ok := r.Get("mlai-points")
	if !ok {
		t.Fatal("mlai-points builtin missing")
	}
	if s.Handler != "mlai-points" {
		t.Errorf("builtin should carry a native handler, got %q", s.Handler)
	}
	if _, ok := r.Get("content-factory"); !ok {
		t.Fatal("content-factory builtin missing")
	}
}
