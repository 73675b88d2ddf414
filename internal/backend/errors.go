package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxErrorBody = 200

var (
	ErrUnauthorized      = errors.New("backend: unauthorized")
	ErrNotFound          = errors.New("backend: not found")
	ErrMalformedResponse = errors.New("backend: malformed response")
)

// StatusError is a non-2xx answer. 401 and 404 unwrap to ErrUnauthorized
// and ErrNotFound so callers can use errors.Is.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	}
	return nil
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, body)
}

// Detail returns the backend's "detail" message when the body carries one.
func (e *StatusError) Detail() string {
	return detailOf([]byte(e.Body))
}

// Detail digs a user-facing message out of err, or returns fallback.
func Detail(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) {
		if d := se.Detail(); d != "" {
			return d
		}
	}
	return fallback
}

func detailOf(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// validation errors come back as a list of objects with "msg"
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, m := range list {
			if m.Msg != "" {
				msgs = append(msgs, m.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// statusCode extracts the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
