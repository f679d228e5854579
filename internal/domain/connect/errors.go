package connect

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the well-known provider failure modes. Callers
// match these with errors.Is; the HTTP layer translates them into
// localized user-facing messages.
var (
	ErrInvalidCredentials  = errors.New("provider rejected client credentials")
	ErrForbidden           = errors.New("provider denied access")
	ErrRateLimited         = errors.New("provider rate limit exceeded")
	ErrProviderUnavailable = errors.New("provider temporarily unavailable")
	ErrIncompleteData      = errors.New("item received without pending name and email")
)

// ProviderError is returned for non-200 provider responses that don't
// map to one of the sentinel errors above.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider request failed with status %d: %s", e.StatusCode, e.Body)
}

// InvalidResponseError is returned when a 200 provider response is not
// valid JSON or is missing a required field.
type InvalidResponseError struct {
	Field string
	Err   error
}

func (e *InvalidResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid provider response: %v", e.Err)
	}
	return fmt.Sprintf("invalid provider response: missing %q", e.Field)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// NetworkError wraps transport-level failures (timeouts, refused
// connections). These are transient and safe to retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StoreError wraps database failures. The session flow reports these
// as "try again later" and never crashes the process.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store error: %v", e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError reports form fields that failed validation, keyed by
// field name. It is raised before any external call is made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	return "invalid form fields: " + strings.Join(names, ", ")
}

// Retryable reports whether the error represents a transient condition
// the user should be invited to retry.
func Retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
