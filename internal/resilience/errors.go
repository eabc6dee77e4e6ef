package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// StatusError is a provider reply carrying an HTTP status code.
type StatusError struct {
	Err        error
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// WithStatus attaches an HTTP status code to err.
func WithStatus(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	return &StatusError{Err: err, StatusCode: statusCode}
}

// IsOutage reports whether err looks like the provider being unavailable
// rather than the request being wrong: timeouts, connection failures and
// 408/429/5xx statuses. Caller cancellation is not an outage.
func IsOutage(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return IsTransientHTTPStatus(se.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset by peer",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side problem.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
