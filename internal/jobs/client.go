// Package jobs contains the content pipeline client and the detached monitor
// that follows a generation job to completion.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"roobot/internal/domain"
)

// ContentFactory talks to the article generation pipeline.
// It implements domain.JobService.
type ContentFactory struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type ContentFactoryConfig struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewContentFactory(cfg ContentFactoryConfig) *ContentFactory {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ContentFactory{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

func (f *ContentFactory) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("content factory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("content factory HTTP %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *ContentFactory) Start(ctx context.Context, params domain.JobParams) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := f.do(ctx, http.MethodPost, "/api/pipeline/generate", params, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("no job_id returned from generate endpoint")
	}
	f.logger.Info("content generation started", "job_id", out.JobID, "topic", params.Topic)
	return out.JobID, nil
}

func (f *ContentFactory) Status(ctx context.Context, jobID string) (*domain.JobHandle, error) {
	var out domain.JobHandle
	if err := f.do(ctx, http.MethodGet, "/api/pipeline/status/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	out.JobID = jobID
	return &out, nil
}

func (f *ContentFactory) Result(ctx context.Context, jobID string) (map[string]any, error) {
	var out struct {
		Result map[string]any `json:"result"`
	}
	if err := f.do(ctx, http.MethodGet, "/api/pipeline/result/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (f *ContentFactory) Publish(ctx context.Context, jobID string) (*domain.PublishResult, error) {
	var out struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Data   struct {
			PreviewURL string `json:"preview_url"`
			PRURL      string `json:"pr_url"`
		} `json:"data"`
	}
	if err := f.do(ctx, http.MethodPost, "/api/pipeline/publish/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("publish failed: %s", out.Error)
	}
	return &domain.PublishResult{PreviewURL: out.Data.PreviewURL, PRURL: out.Data.PRURL}, nil
}
