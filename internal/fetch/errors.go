package fetch

import (
	"fmt"
	"strings"
)

// Error reports a failed page retrieval. Its message is shown to users as is.
type Error struct {
	URL string
	// Status is the HTTP status code when the server answered, else zero.
	Status int
	Err    error
}

func (e *Error) Error() string {
	cause := "unknown error"
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return "Error scraping the website: " + cause
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	s := strings.TrimSpace(e.Status)
	if s == "" {
		return fmt.Sprintf("unexpected status: %d", e.Code)
	}
	return "unexpected status: " + s
}
