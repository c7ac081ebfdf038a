package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrShapeMismatch marks a response that arrived with a success status but
// did not match the expected schema.
var ErrShapeMismatch = errors.New("api: response shape mismatch")

// ErrMissingToken is returned by Login when the backend answered without an
// access token.
var ErrMissingToken = errors.New("api: no access token received")

// Error is a transport or status failure. StatusCode is 0 when the request
// never produced a response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if detail, ok := e.Detail(); ok {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail extracts the server-provided `detail` message. Validation failures
// come back as a list of objects with a `msg` field.
func (e *Error) Detail() (string, bool) {
	if len(e.Body) == 0 {
		return "", false
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil || len(body.Detail) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s, s != ""
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; "), true
		}
	}
	return string(body.Detail), true
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// DetailMessage returns the server detail carried by err, if any.
func DetailMessage(err error) (string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail()
	}
	return "", false
}
