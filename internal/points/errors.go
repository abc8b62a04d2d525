package points

import (
	"errors"
	"fmt"

	"roobot/internal/domain"
)

// APIError is a non-2xx response from the backend. The Reason carries the
// upstream's human-readable message when one was returned.
type APIError struct {
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Reason)
}

// Kind maps the status code onto the dispatch error taxonomy.
func (e *APIError) Kind() domain.ErrorKind {
	switch e.StatusCode {
	case 404:
		return domain.ErrNotFound
	case 403:
		return domain.ErrUnauthorized
	case 400:
		return domain.ErrBadRequest
	default:
		return domain.ErrUpstreamUnavailable
	}
}

func asAPIError(err error, target **APIError) bool {
	return errors.As(err, target)
}

// KindOf classifies any error from a PointsAPI call.
// Transport failures and unexpected statuses are upstream_unavailable.
func KindOf(err error) domain.ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}
	return domain.ErrUpstreamUnavailable
}

// ReasonOf returns the upstream reason when the error carries one.
func ReasonOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}
