package transport

import (
	"errors"
	"fmt"

	"github.com/nao1215/lyricsmaster/internal/model"
)

var (
	// ErrRequestFailed is the kind of every non-transient fetch failure:
	// DNS errors, invalid URLs and 4xx statuses outside the allow-list.
	ErrRequestFailed = errors.New("request failed")

	// ErrBodyTooLarge is returned when a response exceeds the configured
	// maximum body size.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is not
	// in "host:port" format.
	ErrInvalidProxyAddress = fmt.Errorf("%w: invalid proxy address format: expected host:port", model.ErrConfiguration)
)

// FetchError describes a fetch that did not produce a page.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status of the last attempt, or 0 when no
	// response was received.
	StatusCode int

	// Attempts is the number of requests issued, 1 or 2.
	Attempts int

	// Transient reports whether the last failure was a timeout, reset or
	// retryable status.
	Transient bool

	// Err is the underlying error of the last attempt.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

// Unwrap returns the underlying error and the error kind, so that both
// errors.Is(err, model.ErrTransientNetwork) and errors.Is(err, context.Canceled)
// work on the same value.
func (e *FetchError) Unwrap() []error {
	kind := ErrRequestFailed
	if e.Transient {
		kind = model.ErrTransientNetwork
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}

// statusError carries an unexpected HTTP status between attempts.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.code)
}
