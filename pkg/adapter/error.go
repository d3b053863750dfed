package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AdapterError carries the provider name and HTTP status behind a
// failed call so the dispatcher can tell a passing outage from a
// dead-end request.
type AdapterError struct {
	Provider  string
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s adapter error (status=%d)", e.Provider, e.Status)
	}
	return fmt.Sprintf("adapter error (status=%d)", e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the provider signalled a condition worth
// another attempt: an explicit temporary flag, rate limiting, or a
// server-side failure.
func (e *AdapterError) Retryable() bool {
	if e == nil {
		return false
	}
	if e.Temporary || e.Status == http.StatusTooManyRequests {
		return true
	}
	return e.Status >= 500 && e.Status < 600
}

// IsTransient classifies a failed call for the dispatcher, which
// stamps the verdict on its result. Cancellation is never transient;
// timeouts and retryable provider errors are.
func IsTransient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Retryable()
}
