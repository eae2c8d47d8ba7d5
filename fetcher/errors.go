package fetcher

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing page (HTTP 404). Never retried; the
// remote answered, it just has nothing there.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrBlocked indicates the remote served a challenge or rate-limit page
// instead of content. This can arrive with an HTTP success status, so
// detection inspects the body, not just the code.
type ErrBlocked struct {
	StatusCode int
	Reason     string
}

func (e ErrBlocked) Error() string {
	return fmt.Sprintf("blocked: status=%d reason=%s", e.StatusCode, e.Reason)
}

// ErrExhausted indicates all retry attempts for one URL were consumed.
type ErrExhausted struct {
	Attempts int
	Err      error
}

func (e ErrExhausted) Error() string {
	return fmt.Errorf("exhausted after %d attempts: %w", e.Attempts, e.Err).Error()
}

func (e ErrExhausted) Unwrap() error {
	return e.Err
}

// IsBlocked reports whether err carries a block classification anywhere in
// its chain, including inside ErrExhausted.
func IsBlocked(err error) bool {
	var blocked ErrBlocked
	return errors.As(err, &blocked)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var blocked ErrBlocked
	if errors.As(err, &blocked) {
		return "blocked"
	}
	var exhausted ErrExhausted
	if errors.As(err, &exhausted) {
		return "exhausted"
	}
	return "other"
}
