package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nomis52/signup/activities"
)

const maxErrorBody = 4 << 10

// APIError is returned when the server answers with a non-2xx status.
// It unwraps to the matching activities error, so callers can use errors.Is
// with activities.ErrActivityNotFound and friends.
type APIError struct {
	StatusCode int
	Detail     string
	op         string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Detail)
}

// Unwrap maps the status code back to the registry error it stands for.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound && e.op != "":
		return activities.ErrActivityNotFound
	case e.StatusCode == http.StatusBadRequest && e.op == opSignup:
		return activities.ErrAlreadyRegistered
	case e.StatusCode == http.StatusBadRequest && e.op == opUnregister:
		return activities.ErrNotRegistered
	default:
		return nil
	}
}

func newAPIError(resp *http.Response, op string) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, op: op}

	body := drain(resp.Body, maxErrorBody)
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		apiErr.Detail = parsed.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	return apiErr
}
