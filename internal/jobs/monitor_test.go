package jobs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"roobot/internal/domain"
)

type scriptedService struct {
	statuses  []domain.JobHandle
	statusErr []error
	index     int
	published bool
	pubResult *domain.PublishResult
	pubErr    error
}

func (s *scriptedService) Start(ctx context.Context, params domain.JobParams) (string, error) {
	return "job-1", nil
}

func (s *scriptedService) Status(ctx context.Context, jobID string) (*domain.JobHandle, error) {
	i := s.index
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.index++
	if i < len(s.statusErr) && s.statusErr[i] != nil {
		return nil, s.statusErr[i]
	}
	h := s.statuses[i]
	return &h, nil
}

func (s *scriptedService) Result(ctx context.Context, jobID string) (map[string]any, error) {
	return nil, nil
}

func (s *scriptedService) Publish(ctx context.Context, jobID string) (*domain.PublishResult, error) {
	s.published = true
	return s.pubResult, s.pubErr
}

func testMonitor(svc domain.JobService) *Monitor {
	return NewMonitor(MonitorConfig{
		Service:  svc,
		Interval: time.Millisecond,
		Timeout:  time.Second,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
}

func TestMonitorPublishesOnCompletion(t *testing.T) {
	svc := &scriptedService{
		statuses: []domain.JobHandle{
			{Status: domain.JobRunning, Progress: 10, CurrentStep: "research"},
			{Status: domain.JobCompleted, Progress: 100},
		},
		pubResult: &domain.PublishResult{PreviewURL: "https://preview.example/a", PRURL: "https://github.com/x/y/pull/1"},
	}

	result, err := testMonitor(svc).Run(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !svc.published {
		t.Fatal("expected publish call on completion")
	}
	if result.PreviewURL != "https://preview.example/a" {
		t.Errorf("preview URL = %q", result.PreviewURL)
	}
}

func TestMonitorDampsProgressNotifications(t *testing.T) {
	svc := &scriptedService{
		statuses: []domain.JobHandle{
			{Status: domain.JobRunning, Progress: 5, CurrentStep: "research"},
			{Status: domain.JobRunning, Progress: 12, CurrentStep: "research"}, // +7, same step: silent
			{Status: domain.JobRunning, Progress: 18, CurrentStep: "research"}, // +13, same step: silent
			{Status: domain.JobRunning, Progress: 26, CurrentStep: "research"}, // +21: notify
			{Status: domain.JobRunning, Progress: 30, CurrentStep: "outline"},  // step change: notify
			{Status: domain.JobCompleted, Progress: 100},
		},
		pubResult: &domain.PublishResult{},
	}

	var seen []int
	_, err := testMonitor(svc).Run(context.Background(), "job-1", func(h domain.JobHandle) {
		seen = append(seen, h.Progress)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []int{5, 26, 30}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", seen, want)
		}
	}
}

func TestMonitorReportsJobFailureVerbatim(t *testing.T) {
	svc := &scriptedService{
		statuses: []domain.JobHandle{
			{Status: domain.JobRunning, Progress: 40, CurrentStep: "draft"},
			{Status: domain.JobFailed, Error: "research step timed out after 3 attempts"},
		},
	}

	_, err := testMonitor(svc).Run(context.Background(), "job-1", nil)
	var failed *JobFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("want JobFailedError, got %v", err)
	}
	if failed.Reason != "research step timed out after 3 attempts" {
		t.Errorf("reason = %q, not passed through verbatim", failed.Reason)
	}
	if svc.published {
		t.Error("failed job must not be published")
	}
}

func TestMonitorDistinguishesTransportFailure(t *testing.T) {
	svc := &scriptedService{
		statuses:  []domain.JobHandle{{Status: domain.JobRunning}},
		statusErr: []error{errors.New("connection refused")},
	}

	_, err := testMonitor(svc).Run(context.Background(), "job-1", nil)
	var poll *PollError
	if !errors.As(err, &poll) {
		t.Fatalf("want PollError, got %v", err)
	}
	var failed *JobFailedError
	if errors.As(err, &failed) {
		t.Fatal("transport failure must not look like a job failure")
	}
}

func TestMonitorWatchReportsThroughCallback(t *testing.T) {
	svc := &scriptedService{
		statuses:  []domain.JobHandle{{Status: domain.JobCompleted, Progress: 100}},
		pubResult: &domain.PublishResult{PRURL: "https://github.com/x/y/pull/2"},
	}

	done := make(chan *domain.PublishResult, 1)
	testMonitor(svc).Watch(context.Background(), "job-1", nil, func(r *domain.PublishResult, err error) {
		if err != nil {
			t.Errorf("watch: %v", err)
		}
		done <- r
	})

	select {
	case r := <-done:
		if r.PRURL != "https://github.com/x/y/pull/2" {
			t.Errorf("PR URL = %q", r.PRURL)
		}
	case <-time.After(time.Second):
		t.Fatal("watch did not complete")
	}
}
