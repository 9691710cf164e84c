package advisor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotJSON means a success response did not declare a JSON body.
	ErrNotJSON = errors.New("invalid response format, expected JSON")
	// ErrMalformed means the body could not be read as the expected payload.
	ErrMalformed = errors.New("malformed response body")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded with %d", e.StatusCode)
}

func (e *StatusError) ServerMessage() string {
	return e.Message
}

// PayloadError wraps a 2xx response whose body failed validation. Message
// carries the server's own explanation when the body had one.
type PayloadError struct {
	Endpoint string
	Message  string
	Err      error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

func (e *PayloadError) ServerMessage() string {
	return e.Message
}

// ServerMessage returns the message the server attached to a failed
// response, or "" when there is none.
func ServerMessage(err error) string {
	var sm interface{ ServerMessage() string }
	if errors.As(err, &sm) {
		return sm.ServerMessage()
	}
	return ""
}

// IsTransport reports whether err happened before any response was read.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	var pe *PayloadError
	return !errors.As(err, &se) && !errors.As(err, &pe) && !errors.Is(err, ErrNotJSON) && !errors.Is(err, ErrMalformed)
}
