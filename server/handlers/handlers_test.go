package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/signup/activities"
)

func newService(t *testing.T) *activities.Service {
	t.Helper()
	return activities.NewService(activities.NewMemoryStore(activities.DefaultCatalog()))
}

// rosterRequestFor builds a POST request as the router would hand it over,
// with the activity path value already extracted.
func rosterRequestFor(op, activity, email string) *http.Request {
	target := "/activities/" + url.PathEscape(activity) + "/" + op
	if email != "" {
		target += "?email=" + url.QueryEscape(email)
	}
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.SetPathValue(activityNameParam, activity)
	return req
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp MessageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Message
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Detail
}

// stubRegistry fails every call with err.
type stubRegistry struct {
	err error
}

func (s *stubRegistry) Activities(context.Context) (map[string]activities.Activity, error) {
	return nil, s.err
}

func (s *stubRegistry) Signup(context.Context, string, string) (string, error) {
	return "", s.err
}

func (s *stubRegistry) Unregister(context.Context, string, string) (string, error) {
	return "", s.err
}

func (s *stubRegistry) Check(context.Context) error {
	return s.err
}

func TestActivitiesHandler(t *testing.T) {
	handler := NewActivitiesHandler(newService(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]activities.Activity
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Contains(t, resp, "Basketball Team")
	require.Contains(t, resp, "Math Club")
	assert.Contains(t, resp["Math Club"].Participants, "james@mergington.edu")
	assert.NotEmpty(t, resp["Math Club"].Schedule)
}

func TestActivitiesHandler_FieldNames(t *testing.T) {
	handler := NewActivitiesHandler(newService(t), nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activities", nil))

	var raw map[string]map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	for _, field := range []string{"description", "schedule", "max_participants", "participants"} {
		assert.Contains(t, raw["Chess Club"], field)
	}
}

func TestActivitiesHandler_StoreFailure(t *testing.T) {
	handler := NewActivitiesHandler(&stubRegistry{err: errors.New("connection refused")}, nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activities", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeDetail(t, w))
}

func TestSignupAndUnregister(t *testing.T) {
	svc := newService(t)
	signup := NewSignupHandler(svc, nil)
	unregister := NewUnregisterHandler(svc, nil)
	const email = "testuser@mergington.edu"

	w := httptest.NewRecorder()
	signup.ServeHTTP(w, rosterRequestFor("signup", "Math Club", email))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Signed up testuser@mergington.edu for Math Club", decodeMessage(t, w))

	w = httptest.NewRecorder()
	signup.ServeHTTP(w, rosterRequestFor("signup", "Math Club", email))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, activities.ErrAlreadyRegistered.Error(), decodeDetail(t, w))

	w = httptest.NewRecorder()
	unregister.ServeHTTP(w, rosterRequestFor("unregister", "Math Club", email))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Unregistered testuser@mergington.edu from Math Club", decodeMessage(t, w))

	w = httptest.NewRecorder()
	unregister.ServeHTTP(w, rosterRequestFor("unregister", "Math Club", email))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, activities.ErrNotRegistered.Error(), decodeDetail(t, w))
}

func TestRosterHandlers_UnknownActivity(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name    string
		op      string
		handler http.Handler
	}{
		{name: "signup", op: "signup", handler: NewSignupHandler(svc, nil)},
		{name: "unregister", op: "unregister", handler: NewUnregisterHandler(svc, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, rosterRequestFor(tt.op, "Nonexistent", "nobody@mergington.edu"))

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, activities.ErrActivityNotFound.Error(), decodeDetail(t, w))
		})
	}
}

func TestRosterHandlers_MissingEmail(t *testing.T) {
	svc := newService(t)

	for _, handler := range []http.Handler{NewSignupHandler(svc, nil), NewUnregisterHandler(svc, nil)} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, rosterRequestFor("signup", "Math Club", ""))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "email is required", decodeDetail(t, w))
	}
}

func TestSignupHandler_FormBody(t *testing.T) {
	handler := NewSignupHandler(newService(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/activities/Chess%20Club/signup",
		strings.NewReader("email=ada%40mergington.edu"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetPathValue(activityNameParam, "Chess Club")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Signed up ada@mergington.edu for Chess Club", decodeMessage(t, w))
}

func TestRosterHandlers_StoreFailure(t *testing.T) {
	stub := &stubRegistry{err: errors.New("connection refused")}

	w := httptest.NewRecorder()
	NewSignupHandler(stub, nil).ServeHTTP(w, rosterRequestFor("signup", "Math Club", "a@b.c"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	NewUnregisterHandler(stub, nil).ServeHTTP(w, rosterRequestFor("unregister", "Math Club", "a@b.c"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: activities.ErrActivityNotFound, want: http.StatusNotFound},
		{err: activities.ErrAlreadyRegistered, want: http.StatusBadRequest},
		{err: activities.ErrNotRegistered, want: http.StatusBadRequest},
		{err: errors.Join(errors.New("wrapped"), activities.ErrNotRegistered), want: http.StatusBadRequest},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteJSON_EncodeFailureUsesInjectedLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	w := httptest.NewRecorder()
	writeJSON(w, logger, http.StatusOK, map[string]float64{"bad": math.Inf(1)})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logs.String(), "failed to encode JSON response")
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
}
