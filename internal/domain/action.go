package domain

// ErrorKind classifies a failed (or degraded) action outcome.
// Call sites branch on the kind; no typed errors cross the dispatch boundary.
type ErrorKind string

const (
	ErrUnauthorized        ErrorKind = "unauthorized"
	ErrQuotaExceeded       ErrorKind = "quota_exceeded"
	ErrNotFound            ErrorKind = "not_found"
	ErrBadRequest          ErrorKind = "bad_request"
	ErrUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrExtractionFailed    ErrorKind = "extraction_failed"
)

// ActionRequest carries everything the dispatcher needs for one inbound event.
// Created per event, consumed once, never persisted.
type ActionRequest struct {
	ID          string // correlation ID for logs
	SkillName   string
	Action      string // canonical action name, empty until resolved
	Parameters  map[string]any
	RequesterID string
	ChannelID   string
	ThreadID    string
	RawText     string
}

// ActionResult is the only externally observable output of dispatch.
// A clarifying question is a success with empty data, not an error.
type ActionResult struct {
	Success   bool
	Message   string
	Data      map[string]any
	ErrorKind ErrorKind
}

// OK builds a successful result.
func OK(message string, data map[string]any) ActionResult {
	return ActionResult{Success: true, Message: message, Data: data}
}

// Ask builds a clarifying-question result.
func Ask(question string) ActionResult {
	return ActionResult{Success: true, Message: question}
}

// Fail builds a failed result with a user-facing message.
func Fail(kind ErrorKind, message string) ActionResult {
	return ActionResult{Success: false, Message: message, ErrorKind: kind}
}
