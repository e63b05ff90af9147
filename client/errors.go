package client

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed matches every *StatusError.
	ErrRequestFailed = errors.New("request failed")
	// ErrNetworkFailure wraps transport errors (DNS, refused connection, timeout).
	ErrNetworkFailure = errors.New("network failure")
	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("response decode failed")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRequestFailed
}

// IsStatus reports whether err is a *StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == status
}
