package dmapi

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// ConnectionMessage is shown when no usable server response was received.
const ConnectionMessage = "通信エラーが発生しました。時間をおいて再度お試しください。"

// Error is the single error type returned by Client. Message is safe to show
// to the user; Status is 0 for transport failures.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is an HTTP 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func connectionError(err error) *Error {
	return &Error{Message: ConnectionMessage, Err: err}
}

type errorPayload struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

// statusError builds an Error from a non-2xx response body.
func statusError(status int, body []byte) *Error {
	e := &Error{Status: status, Message: ConnectionMessage}
	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return e
	}
	switch {
	case strings.TrimSpace(p.Message) != "":
		e.Message = p.Message
	case firstFieldError(p.Errors) != "":
		e.Message = firstFieldError(p.Errors)
	case strings.TrimSpace(p.Error) != "":
		e.Message = p.Error
	}
	return e
}

func firstFieldError(errs map[string][]string) string {
	for _, k := range slices.Sorted(maps.Keys(errs)) {
		for _, msg := range errs[k] {
			if msg != "" {
				return msg
			}
		}
	}
	return ""
}
