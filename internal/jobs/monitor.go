package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roobot/internal/domain"
)

// progressThreshold is the minimum progress advance, in points, that
// triggers a new notification on its own.
const progressThreshold = 20

// JobFailedError is a failure reported by the job itself. The reason is
// the job's own error text, passed through unchanged.
type JobFailedError struct {
	JobID  string
	Reason string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Reason)
}

// PollError is a transport failure while asking about a job. It says
// nothing about whether the job itself succeeded or failed.
type PollError struct {
	JobID string
	Err   error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("polling job %s: %v", e.JobID, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// ProgressFunc receives damped progress notifications during a run.
type ProgressFunc func(handle domain.JobHandle)

// Monitor follows generation jobs to completion, throttling progress
// notifications so watchers are not flooded on every poll.
type Monitor struct {
	service  domain.JobService
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

type MonitorConfig struct {
	Service  domain.JobService
	Interval time.Duration // poll interval, defaults to 10s
	Timeout  time.Duration // overall deadline, defaults to 30m
	Logger   *slog.Logger
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &Monitor{
		service:  cfg.Service,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Run polls the job until it reaches a terminal state. Progress callbacks
// fire on the first poll and afterwards only when progress has advanced by
// at least progressThreshold points or the reported step has changed. On
// completion the job is published and the publish result returned. A
// failed job yields a JobFailedError carrying the job's error text; a
// transport problem yields a PollError.
func (m *Monitor) Run(ctx context.Context, jobID string, onProgress ProgressFunc) (*domain.PublishResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	lastProgress := -1
	lastStep := ""

	for {
		handle, err := m.service.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &PollError{JobID: jobID, Err: ctx.Err()}
			}
			return nil, &PollError{JobID: jobID, Err: err}
		}

		switch handle.Status {
		case domain.JobCompleted:
			m.logger.Info("job completed, publishing", "job_id", jobID)
			result, err := m.service.Publish(ctx, jobID)
			if err != nil {
				return nil, &PollError{JobID: jobID, Err: err}
			}
			return result, nil
		case domain.JobFailed:
			return nil, &JobFailedError{JobID: jobID, Reason: handle.Error}
		}

		if onProgress != nil && m.shouldNotify(handle, lastProgress, lastStep) {
			onProgress(*handle)
			lastProgress = handle.Progress
			lastStep = handle.CurrentStep
		}

		select {
		case <-ctx.Done():
			return nil, &PollError{JobID: jobID, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

func (m *Monitor) shouldNotify(handle *domain.JobHandle, lastProgress int, lastStep string) bool {
	if lastProgress < 0 {
		return true
	}
	if handle.Progress-lastProgress >= progressThreshold {
		return true
	}
	return handle.CurrentStep != "" && handle.CurrentStep != lastStep
}

// Watch runs the monitor in a detached goroutine. The caller gets the
// outcome through onDone and is otherwise free to move on.
func (m *Monitor) Watch(ctx context.Context, jobID string, onProgress ProgressFunc, onDone func(*domain.PublishResult, error)) {
	go func() {
		result, err := m.Run(ctx, jobID, onProgress)
		if err != nil {
			m.logger.Error("job monitor finished with error", "job_id", jobID, "error", err)
		}
		if onDone != nil {
			onDone(result, err)
		}
	}()
}
