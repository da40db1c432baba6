package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoAccessToken = errors.New("refresh returned no access token")
)

// generalErrorKeys hold messages that are not bound to a form field.
var generalErrorKeys = map[string]bool{
	"non_field_errors": true,
	"detail":           true,
	"error":            true,
	"message":          true,
}

// APIError is a backend response with status >= 400. Body is the decoded
// JSON object when the response was one.
type APIError struct {
	Status int
	Body   map[string]any
	Raw    []byte
}

func newAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status, Raw: raw}
	var body map[string]any
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
		e.Body = body
	}
	return e
}

func (e *APIError) Error() string {
	if msgs := e.GeneralErrors(); len(msgs) > 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, strings.Join(msgs, "; "))
	}
	if fields := e.FieldErrors(); len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(fields[k], ", "))
		}
		return fmt.Sprintf("api error %d: %s", e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
}

// Is matches ErrUnauthorized for 401/403 and ErrUnavailable for 5xx.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// FieldErrors returns per-field messages, passing field names through
// untouched.
func (e *APIError) FieldErrors() map[string][]string {
	out := make(map[string][]string)
	for k, v := range e.Body {
		if generalErrorKeys[k] {
			continue
		}
		if msgs := messages(v); len(msgs) > 0 {
			out[k] = msgs
		}
	}
	return out
}

// GeneralErrors returns the non-field messages. A non-JSON body is
// returned as a single message.
func (e *APIError) GeneralErrors() []string {
	if e.Body == nil {
		if s := strings.TrimSpace(string(e.Raw)); s != "" && len(s) < 200 {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, k := range []string{"non_field_errors", "detail", "error", "message"} {
		out = append(out, messages(e.Body[k])...)
	}
	return out
}

func messages(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, x := range t {
			out = append(out, messages(x)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, messages(t[k])...)
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}
