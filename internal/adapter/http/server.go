package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-window-etl/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BatchProvider exposes the most recently emitted window.
type BatchProvider interface {
	LatestBatch() (domain.Batch, bool)
}

// Engine is what the server needs from the pipeline engine.
type Engine interface {
	sharedobs.ReadinessChecker
	BatchProvider
}

// Server exposes health, readiness, window and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /window and
// /metrics routes.
func NewServer(addr string, engine Engine, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(engine))
	mux.HandleFunc("GET /window", handleWindow(engine))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// windowResponse is the /window payload.
type windowResponse struct {
	TickAt      time.Time          `json:"tick_at"`
	WindowStart time.Time          `json:"window_start"`
	Results     []windowResultJSON `json:"results"`
}

type windowResultJSON struct {
	Country string  `json:"country"`
	Year    string  `json:"year"`
	TempMin float64 `json:"temp_min"`
	TempMax float64 `json:"temp_max"`
	WindMin float64 `json:"wind_min"`
	WindMax float64 `json:"wind_max"`
}

func handleWindow(provider BatchProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		batch, ok := provider.LatestBatch()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no window emitted yet"})
			return
		}

		resp := windowResponse{
			TickAt:      batch.TickAt,
			WindowStart: batch.WindowStart,
			Results:     make([]windowResultJSON, len(batch.Results)),
		}
		for i, r := range batch.Results {
			resp.Results[i] = windowResultJSON{
				Country: r.Key.Country,
				Year:    r.Key.Year,
				TempMin: r.TempMin,
				TempMax: r.TempMax,
				WindMin: r.WindMin,
				WindMax: r.WindMax,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
