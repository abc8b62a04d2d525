// Package points implements the HTTP client for the community points backend.
package points

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roobot/internal/domain"
)

// Client talks to the points backend REST API.
// It implements domain.PointsAPI.
type Client struct {
	baseURL        string
	apiKey         string
	internalAPIKey string
	client         *http.Client
	logger         *slog.Logger
}

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	InternalAPIKey string // secure key for admin/system endpoints
	Timeout        time.Duration
	Client         *http.Client
	Logger         *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		internalAPIKey: cfg.InternalAPIKey,
		client:         cfg.Client,
		logger:         cfg.Logger,
	}
}

// CleanUserID extracts a bare Slack ID from mention formats like
// "<@U12345>", "<@U12345|name>" or "@U12345".
func CleanUserID(id string) string {
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		inner := id[2 : len(id)-1]
		if idx := strings.Index(inner, "|"); idx >= 0 {
			inner = inner[:idx]
		}
		return inner
	}
	return strings.TrimPrefix(id, "@")
}

func (c *Client) pointsURL(path string) string {
	return c.baseURL + "/api/v1/points" + path
}

func (c *Client) apiURL(path string) string {
	return c.baseURL + "/api/v1" + path
}

// do performs one request. admin selects the internal key header; the internal
// key falls back to the standard key so admin endpoints still authenticate
// when only one key is configured.
func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body, out any, admin bool) error {
	if query != nil {
		rawURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	key := c.apiKey
	if admin && c.internalAPIKey != "" {
		key = c.internalAPIKey
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Reason: upstreamReason(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// upstreamReason pulls a human-readable message out of an error body.
func upstreamReason(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		for _, s := range []string{payload.Error, payload.Detail, payload.Message} {
			if s != "" {
				return s
			}
		}
	}
	return ""
}

// --- Member endpoints ---

func (c *Client) Balance(ctx context.Context, userID string) (*domain.Balance, error) {
	var out domain.Balance
	err := c.do(ctx, http.MethodGet, c.pointsURL("/users/"+CleanUserID(userID)+"/balance/"), nil, nil, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	q := url.Values{"slack_user_id": {CleanUserID(userID)}}
	var out []domain.LedgerEntry
	if err := c.do(ctx, http.MethodGet, c.pointsURL("/ledger/"), q, nil, &out, false); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Client) ListTasks(ctx context.Context, status string) ([]domain.Task, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	var out []domain.Task
	if err := c.do(ctx, http.MethodGet, c.pointsURL("/tasks/"), q, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, taskID int) (*domain.Task, error) {
	var out domain.Task
	err := c.do(ctx, http.MethodGet, c.pointsURL("/tasks/"+strconv.Itoa(taskID)+"/"), nil, nil, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClaimTask(ctx context.Context, taskID int, userID string) (*domain.Task, error) {
	body := map[string]any{"slack_user_id": CleanUserID(userID)}
	var out domain.Task
	err := c.do(ctx, http.MethodPost, c.pointsURL("/tasks/"+strconv.Itoa(taskID)+"/claim/"), nil, body, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitTask(ctx context.Context, taskID int, userID, text, submissionURL string) (*domain.Task, error) {
	body := map[string]any{
		"slack_user_id":   CleanUserID(userID),
		"submission_text": text,
	}
	if submissionURL != "" {
		body["submission_url"] = submissionURL
	}
	var out domain.Task
	err := c.do(ctx, http.MethodPost, c.pointsURL("/tasks/"+strconv.Itoa(taskID)+"/submit/"), nil, body, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckCoworking(ctx context.Context, date string, days int) ([]domain.CoworkingDay, error) {
	if days <= 0 {
		days = 7
	}
	q := url.Values{"days": {strconv.Itoa(days)}}
	if date != "" {
		q.Set("date", date)
	}
	var out []domain.CoworkingDay
	if err := c.do(ctx, http.MethodGet, c.pointsURL("/coworking/availability/"), q, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BookCoworking(ctx context.Context, userID, date, channelID string) (*domain.Booking, error) {
	body := map[string]any{
		"slack_user_id": CleanUserID(userID),
		"date":          date,
		"current_time":  time.Now().Format(time.RFC3339),
	}
	if channelID != "" {
		body["slack_channel_id"] = channelID
	}
	var out domain.Booking
	if err := c.do(ctx, http.MethodPost, c.pointsURL("/coworking/book/"), nil, body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelCoworking(ctx context.Context, userID, date string) (*domain.Cancellation, error) {
	body := map[string]any{"slack_user_id": CleanUserID(userID)}
	if date != "" {
		body["date"] = date
	}
	var out domain.Cancellation
	if err := c.do(ctx, http.MethodPost, c.pointsURL("/coworking/cancel/"), nil, body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	q := url.Values{"slack_user_id": {CleanUserID(userID)}}
	var out []domain.Booking
	if err := c.do(ctx, http.MethodGet, c.pointsURL("/coworking/my-bookings/"), q, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRewards(ctx context.Context, userID string) ([]domain.Reward, error) {
	var q url.Values
	if userID != "" {
		q = url.Values{"slack_user_id": {CleanUserID(userID)}}
	}
	var out []domain.Reward
	if err := c.do(ctx, http.MethodGet, c.pointsURL("/rewards/"), q, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RequestReward(ctx context.Context, userID, code string, quantity int, notes, channelID, threadID string) (*domain.Redemption, error) {
	if quantity <= 0 {
		quantity = 1
	}
	body := map[string]any{
		"slack_user_id": CleanUserID(userID),
		"reward_code":   code,
		"quantity":      quantity,
	}
	if notes != "" {
		body["notes"] = notes
	}
	if channelID != "" {
		body["slack_channel_id"] = channelID
	}
	if threadID != "" {
		body["slack_thread_ts"] = threadID
	}
	var out domain.Redemption
	if err := c.do(ctx, http.MethodPost, c.pointsURL("/rewards/request/"), nil, body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Admin endpoints ---

// RateCard fetches the live award price list. The snapshot is never cached:
// prices may change between resolution attempts.
func (c *Client) RateCard(ctx context.Context) ([]domain.RateCardEntry, error) {
	var out []domain.RateCardEntry
	if err := c.do(ctx, http.MethodGet, c.pointsURL("/rate-card/"), nil, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// IsAdmin checks points-admin status. Queried per call; callers may cache the
// answer only within a single request's lifetime.
func (c *Client) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, c.pointsURL("/admins/"+CleanUserID(userID)+"/"), nil, nil, &out, false)
	if err != nil {
		var apiErr *APIError
		if asAPIError(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AdminAllowance fetches the admin's weekly award budget. Recomputed from the
// backend on every check to avoid double-spend races.
func (c *Client) AdminAllowance(ctx context.Context, userID string) (*domain.AdminAllowance, error) {
	q := url.Values{"slack_id": {CleanUserID(userID)}}
	var out domain.AdminAllowance
	if err := c.do(ctx, http.MethodGet, c.pointsURL("/admin/allowance/"), q, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, req domain.CreateTaskRequest) (*domain.Task, error) {
	if req.Portfolio == "" {
		req.Portfolio = "events"
	}
	body := map[string]any{
		"title":              req.Title,
		"points":             req.Points,
		"description":        req.Description,
		"portfolio":          req.Portfolio,
		"created_by_user_id": CleanUserID(req.AdminID),
		"status":             "open",
	}
	if req.DueDate != "" {
		body["due_date"] = req.DueDate
	}
	if req.AssignedTo != "" {
		body["assigned_to_user_id"] = CleanUserID(req.AssignedTo)
		body["status"] = "claimed"
	}
	if req.ChannelID != "" {
		body["slack_channel_id"] = req.ChannelID
	}
	if req.ThreadID != "" {
		body["slack_thread_ts"] = req.ThreadID
	}
	var out domain.Task
	if err := c.do(ctx, http.MethodPost, c.pointsURL("/tasks/"), nil, body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApproveTask(ctx context.Context, taskID int, adminID string) (*domain.Task, error) {
	body := map[string]any{"slack_user_id": CleanUserID(adminID)}
	var out domain.Task
	err := c.do(ctx, http.MethodPost, c.pointsURL("/tasks/"+strconv.Itoa(taskID)+"/approve/"), nil, body, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RejectTask(ctx context.Context, taskID int, adminID, reason string) (*domain.Task, error) {
	body := map[string]any{
		"slack_user_id": CleanUserID(adminID),
		"reason":        reason,
	}
	var out domain.Task
	err := c.do(ctx, http.MethodPost, c.pointsURL("/tasks/"+strconv.Itoa(taskID)+"/reject/"), nil, body, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AwardTask direct-awards an existing task (claim + approve) to a user.
func (c *Client) AwardTask(ctx context.Context, taskID int, adminID, targetID string) (*domain.Task, error) {
	body := map[string]any{
		"created_by_user_id":  CleanUserID(adminID),
		"assigned_to_user_id": CleanUserID(targetID),
	}
	var out domain.Task
	err := c.do(ctx, http.MethodPost, c.pointsURL("/tasks/"+strconv.Itoa(taskID)+"/award/"), nil, body, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AwardPoints posts a manual award. Authorization and allowance checks are the
// dispatcher's job; the backend independently re-validates server-side.
func (c *Client) AwardPoints(ctx context.Context, adminID, targetID string, pts int, reason string) (*domain.Award, error) {
	body := map[string]any{
		"admin_slack_id":  CleanUserID(adminID),
		"target_slack_id": CleanUserID(targetID),
		"points":          pts,
		"reason":          reason,
	}
	var out domain.Award
	if err := c.do(ctx, http.MethodPost, c.pointsURL("/admin/award/"), nil, body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// SystemAwardPoints awards on behalf of the bot itself (quest rewards).
// Same endpoint as AwardPoints but authenticated with the internal key and
// without client-side pre-flight checks.
func (c *Client) SystemAwardPoints(ctx context.Context, adminID, targetID string, pts int, reason string) (*domain.Award, error) {
	body := map[string]any{
		"admin_slack_id":  CleanUserID(adminID),
		"target_slack_id": CleanUserID(targetID),
		"points":          pts,
		"reason":          reason,
	}
	var out domain.Award
	if err := c.do(ctx, http.MethodPost, c.pointsURL("/admin/award/"), nil, body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Channel activity endpoints ---

func (c *Client) HasPostedInChannel(ctx context.Context, userID, channelID string) (bool, error) {
	var out struct {
		HasPosted bool `json:"has_posted"`
	}
	err := c.do(ctx, http.MethodGet, c.apiURL("/activity/first-post/"+CleanUserID(userID)+"/"+channelID+"/"), nil, nil, &out, true)
	if err != nil {
		var apiErr *APIError
		if asAPIError(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return out.HasPosted, nil
}

func (c *Client) RecordChannelPost(ctx context.Context, userID, channelID string) error {
	body := map[string]any{
		"slack_user_id": CleanUserID(userID),
		"channel_id":    channelID,
	}
	err := c.do(ctx, http.MethodPost, c.apiURL("/activity/first-post/"), nil, body, nil, true)
	if err != nil {
		// 409 means the post was already recorded.
		var apiErr *APIError
		if asAPIError(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return nil
		}
		return err
	}
	return nil
}
