package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		checker  HealthChecker
		wantCode int
		wantBody string
	}{
		{name: "no checker", checker: nil, wantCode: http.StatusOK, wantBody: "ok"},
		{name: "healthy store", checker: &stubRegistry{}, wantCode: http.StatusOK, wantBody: "ok"},
		{name: "store down", checker: &stubRegistry{err: errors.New("dial tcp: refused")}, wantCode: http.StatusServiceUnavailable, wantBody: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()

			NewHealthHandler(tt.checker, nil).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}
