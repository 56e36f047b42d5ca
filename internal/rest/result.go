package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel status codes. Both are negative so they never collide with HTTP.
const (
	StatusNoCredential  = -10
	StatusRequestFailed = -1
)

// Static errors for err113 compliance.
var (
	ErrNoCredential  = errors.New("no credential could be obtained")
	ErrRequestFailed = errors.New("request failed before an HTTP response")
)

// StatusError is an HTTP answer outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Result is the outcome of one authenticated call. Callers check StatusCode
// or Err; a negative StatusCode means no HTTP answer was produced.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte

	cause error
}

func failure(status int, cause error) *Result {
	return &Result{StatusCode: status, cause: cause}
}

// OK reports a 2xx answer.
func (r *Result) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Err returns nil for a 2xx answer and a matching error otherwise.
func (r *Result) Err() error {
	switch {
	case r.OK():
		return nil
	case r.StatusCode == StatusNoCredential:
		return wrap(ErrNoCredential, r.cause)
	case r.StatusCode == StatusRequestFailed:
		return wrap(ErrRequestFailed, r.cause)
	default:
		return &StatusError{StatusCode: r.StatusCode, Body: r.Text()}
	}
}

func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}

	return fmt.Errorf("%w: %w", sentinel, cause)
}

// DecodeJSON unmarshals the body of a 2xx answer into v.
func (r *Result) DecodeJSON(v interface{}) error {
	err := r.Err()
	if err != nil {
		return err
	}

	err = json.Unmarshal(r.Body, v)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// Text returns the body as a string.
func (r *Result) Text() string {
	return string(r.Body)
}

// IsJSON reports whether the answer declares a JSON body.
func (r *Result) IsJSON() bool {
	return strings.Contains(r.ContentType, "json")
}
