package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the backend. Message carries the
// backend's own text unchanged.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("manifest: %d %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// newAPIError extracts the message from a Manifest error body. Validation
// failures carry a list of messages, everything else a single string.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: body}

	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Message) > 0 {
		var single string
		if json.Unmarshal(payload.Message, &single) == nil {
			e.Message = single
			return e
		}
		var many []string
		if json.Unmarshal(payload.Message, &many) == nil {
			e.Message = strings.Join(many, "; ")
			return e
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		e.Message = text
	} else {
		e.Message = http.StatusText(status)
	}
	return e
}
