package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mut-lab/power-monitor/internal/core/metering"
	"github.com/mut-lab/power-monitor/internal/source"
	"github.com/stretchr/testify/require"
)

func newTestRouter(f *fakeFetcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := newTestService(f)
	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func doGet(t *testing.T, r *gin.Engine, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandlers_StatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		fetcher        *fakeFetcher
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "latest ok",
			url:            "/v1/records/latest?n=5",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "non-integer limit returns 400",
			url:            "/v1/summary?n=ten",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_limit",
		},
		{
			name:           "explicit zero limit returns 400",
			url:            "/v1/summary?n=0",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_limit",
		},
		{
			name:           "negative limit returns 400",
			url:            "/v1/records/latest?n=-3",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_limit",
		},
		{
			name:           "out of range limit returns 400",
			url:            "/v1/summary?n=9999",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_limit",
		},
		{
			name:           "unknown window kind returns 400",
			url:            "/v1/summary/window/fortnight",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_params",
		},
		{
			name:           "range missing params returns 400",
			url:            "/v1/summary/range",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_params",
		},
		{
			name:           "range with reversed bounds returns 400",
			url:            "/v1/summary/range?start=2023-06-10&end=2023-06-01",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_window",
		},
		{
			name:           "range over span limit returns 400",
			url:            "/v1/summary/range?start=2023-06-01&end=2023-06-09",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "window_too_large",
		},
		{
			name:           "bad time format returns 400",
			url:            "/v1/summary/half-hourly?reference=june-1st",
			fetcher:        &fakeFetcher{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_time_format",
		},
		{
			name:           "upstream failure returns 502",
			url:            "/v1/summary?n=1",
			fetcher:        &fakeFetcher{err: fmt.Errorf("%w: connection refused", source.ErrUpstream)},
			expectedStatus: http.StatusBadGateway,
			expectedType:   "upstream_unavailable",
		},
		{
			name:           "fetch failure returns 500",
			url:            "/v1/summary/daily-stats",
			fetcher:        &fakeFetcher{err: errBoom},
			expectedStatus: http.StatusInternalServerError,
			expectedType:   "internal_error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doGet(t, newTestRouter(tc.fetcher), tc.url)
			require.Equal(t, tc.expectedStatus, resp.Code, "body: %s", resp.Body.String())

			if tc.expectedType != "" {
				var body struct {
					ErrorType string `json:"error_type"`
				}
				require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
				require.Equal(t, tc.expectedType, body.ErrorType)
			}
		})
	}
}

var errBoom = errors.New("boom")

func TestHandleSummary_Body(t *testing.T) {
	now := fixedNow()
	f := &fakeFetcher{records: []metering.Record{
		rec(now, "A", 1.5),
		rec(now, "B", 2),
		rec(now, "A", 0.5),
	}}

	resp := doGet(t, newTestRouter(f), "/v1/summary?n=3")
	require.Equal(t, http.StatusOK, resp.Code)

	var body LimitSummaryResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, 3, body.Limit)
	require.Equal(t, 3, body.RecordCount)
	require.Equal(t, metering.BuildingSummary{"A": 2, "B": 2}, body.Summary)
}

func TestHandleHalfHourly_Body(t *testing.T) {
	f := &fakeFetcher{records: []metering.Record{
		rec(time.Date(2023, 6, 1, 12, 5, 0, 0, time.UTC), "A", 10),
	}}

	resp := doGet(t, newTestRouter(f), "/v1/summary/half-hourly?reference=2023-06-01T13:30:00")
	require.Equal(t, http.StatusOK, resp.Code)

	var body HalfHourlyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Buckets, 48)
	require.Equal(t, "12:30", body.Buckets[45].Label)
	require.Equal(t, metering.BuildingSummary{"A": 10}, body.Buckets[45].Summary)
}
