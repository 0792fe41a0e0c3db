package fbplus

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrThreadIDNotFound = errors.New("thread id not found")
	ErrTitleNotFound    = errors.New("thread title not found")
	ErrInvalidRange     = errors.New("invalid page range")
)

// FetchError reports a transport failure or a non-success HTTP status from the
// forum. StatusCode is zero when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: bad http status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DecodeError reports a body that could not be mapped from the forum's legacy
// encoding.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// MalformedPostError is returned when a post container lacks one of the
// fragments every post must have. It fails the whole page.
type MalformedPostError struct {
	// PostID is empty when the id itself is missing.
	PostID  string
	Missing []string
}

func (e *MalformedPostError) Error() string {
	return fmt.Sprintf("malformed post %q: missing %s", e.PostID, strings.Join(e.Missing, ", "))
}
