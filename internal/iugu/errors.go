package iugu

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is matched by an *APIError carrying a 404.
	ErrNotFound = errors.New("iugu: resource not found")
	// ErrMissingAPIKey is returned before any request when no key is configured.
	ErrMissingAPIKey = errors.New("iugu: api key not configured")
)

// APIError is a non-2xx answer from the gateway. Errors holds the raw
// "errors" member, which Iugu sends either as a string or as a map of field
// name to messages.
type APIError struct {
	StatusCode int
	Errors     json.RawMessage
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("iugu: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("iugu: request failed with status %d: %s", e.StatusCode, string(e.Errors))
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
