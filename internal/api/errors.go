package api

import (
	"context"
	"errors"

	"github.com/dgnsrekt/charsync/internal/throttle"
)

var (
	ErrNotFound          = errors.New("resource not found upstream")
	ErrRateLimited       = errors.New("rate limited by upstream")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrTransient         = errors.New("transient upstream failure")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrUnexpectedStatus  = errors.New("unexpected upstream status")
)

// IsRetryable reports whether err is worth another attempt: network and
// server failures, upstream rate limiting and local throttle backpressure.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, throttle.ErrBackpressure)
}

// IsNotFound reports whether the upstream said the resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isErr(err, target error) bool {
	return errors.Is(err, target)
}
