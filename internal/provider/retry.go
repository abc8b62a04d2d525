package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

const maxAttempts = 4

// transient reports whether a response status is worth retrying.
// Model gateways throttle with 429 and shed load with 5xx.
func transient(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// backoffFor returns the sleep before the given retry attempt,
// quadratic with up to 50% jitter.
func backoffFor(attempt int) time.Duration {
	base := time.Duration(attempt*attempt) * time.Second
	return base + time.Duration(rand.Int63n(int64(base/2+1)))
}

// doWithRetry executes an HTTP request, retrying transient failures.
// buildReq is called fresh per attempt so request bodies can be re-read.
func doWithRetry(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := backoffFor(attempt)
			logger.Warn("retrying request", "attempt", attempt+1, "backoff", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			logger.Warn("request failed", "attempt", attempt+1, "err", err)
			continue
		}
		if transient(resp.StatusCode) {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
			logger.Warn("transient server error", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}
