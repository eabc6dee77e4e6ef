package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOutage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("malformed json"), false},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"503", WithStatus(errors.New("unavailable"), 503), true},
		{"429", WithStatus(errors.New("slow down"), 429), true},
		{"401", WithStatus(errors.New("bad key"), 401), false},
		{"400", WithStatus(errors.New("bad request"), 400), false},
		{"wrapped status", fmt.Errorf("x: %w", WithStatus(errors.New("boom"), 502)), true},
		{"conn reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"dns text", errors.New("dial tcp: lookup api: no such host"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOutage(tt.err))
		})
	}
}

func TestWithStatus(t *testing.T) {
	assert.NoError(t, WithStatus(nil, 500))

	inner := errors.New("boom")
	err := WithStatus(inner, 500)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "boom", err.Error())

	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.StatusCode)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 413, 415, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
