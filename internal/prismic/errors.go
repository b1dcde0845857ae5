package prismic

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCursor is returned by FetchPage when there is no next-page URL.
	ErrNoCursor = errors.New("prismic: no next page cursor")

	// ErrForeignCursor is returned by FetchPage when the cursor is not an
	// absolute URL on the configured repository host.
	ErrForeignCursor = errors.New("prismic: cursor does not point at the configured repository")

	// ErrMalformedResponse matches every *DecodeError.
	ErrMalformedResponse = errors.New("prismic: malformed response")
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prismic: unexpected status %d from %s", e.Code, e.URL)
}

// DecodeError describes a response body that could not be decoded or failed
// validation.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prismic: malformed response: %s: %v", e.Reason, e.Err)
	}
	return "prismic: malformed response: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedResponse.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformedResponse
}
