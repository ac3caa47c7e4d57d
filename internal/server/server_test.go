package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, s *Server, url string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	s.Engine.ServeHTTP(resp, req)
	return resp
}

func TestHealth_SourceReachable(t *testing.T) {
	s := New(":0", pingFunc(func(context.Context) error { return nil }), "release")

	resp := get(t, s, "/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"healthy"`)
}

func TestHealth_SourceUnreachable(t *testing.T) {
	s := New(":0", pingFunc(func(context.Context) error { return errors.New("login failed") }), "release")

	resp := get(t, s, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Contains(t, resp.Body.String(), "unhealthy")
}

func TestRequestID_Generated(t *testing.T) {
	s := New(":0", nil, "release")

	resp := get(t, s, "/health", nil)
	require.NotEmpty(t, resp.Header().Get(RequestIDHeader))
}

func TestRequestID_Preserved(t *testing.T) {
	s := New(":0", nil, "release")

	resp := get(t, s, "/health", map[string]string{RequestIDHeader: "req-123"})
	require.Equal(t, "req-123", resp.Header().Get(RequestIDHeader))
}
