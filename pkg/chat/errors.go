package chat

import (
	"errors"
	"fmt"
	"time"
)

// ErrAborted is returned when the caller cancels an in-flight request.
var ErrAborted = errors.New("request aborted")

// TimeoutError reports that a request exceeded its deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return "Request timeout. Please try again."
}

// Timeout lets callers test the error with a net.Error-style check.
func (e *TimeoutError) Timeout() bool { return true }

// HTTPError is a non-success status from a reachable backend. Body holds
// the response text verbatim.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NetworkError is a failure before a usable response was received,
// including a success body that could not be parsed.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return "network error"
	}
	return e.Cause.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
