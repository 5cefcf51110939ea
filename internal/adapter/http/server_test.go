package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/weather-window-etl/internal/adapter/http"
	"github.com/couchcryptid/weather-window-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	readyErr error
	batch    *domain.Batch
}

func (s *stubEngine) CheckReadiness(_ context.Context) error { return s.readyErr }

func (s *stubEngine) LatestBatch() (domain.Batch, bool) {
	if s.batch == nil {
		return domain.Batch{}, false
	}
	return *s.batch, true
}

func serve(t *testing.T, engine *stubEngine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	srv := httpadapter.NewServer(":0", engine, slog.Default())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if path == "/window" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	rec, _ := serve(t, &stubEngine{readyErr: errors.New("starting")}, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	rec, _ := serve(t, &stubEngine{}, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_NotReady(t *testing.T) {
	rec, _ := serve(t, &stubEngine{readyErr: errors.New("engine has not emitted a window yet")}, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWindow_NoneYet(t *testing.T) {
	rec, body := serve(t, &stubEngine{}, "/window")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no window emitted yet", body["error"])
}

func TestWindow_LatestBatch(t *testing.T) {
	tick := time.Date(2024, time.April, 26, 15, 0, 10, 0, time.UTC)
	engine := &stubEngine{batch: &domain.Batch{
		TickAt:      tick,
		WindowStart: tick.Add(-10 * time.Second),
		Results: []domain.AggregationResult{{
			Key:     domain.AggregationKey{Country: "DE", Year: "2020"},
			TempMin: 10, TempMax: 20, WindMin: 1, WindMax: 5,
		}},
	}}

	rec, _ := serve(t, engine, "/window")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"tick_at": "2024-04-26T15:00:10Z",
		"window_start": "2024-04-26T15:00:00Z",
		"results": [{"country":"DE","year":"2020","temp_min":10,"temp_max":20,"wind_min":1,"wind_max":5}]
	}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := serve(t, &stubEngine{}, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
