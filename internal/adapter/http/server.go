package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
	"github.com/couchcryptid/wildfire-alert-service/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Registrar registers a subscriber for an area code.
type Registrar interface {
	Subscribe(ctx context.Context, contact, areaCode string) (domain.Subscriber, error)
}

// RunTrigger performs an on-demand monitoring run.
type RunTrigger interface {
	RunNow(ctx context.Context) (pipeline.RunReport, error)
}

const internalErrorMessage = "Internal server error"

// maxBodyBytes bounds subscription request bodies.
const maxBodyBytes = 1 << 16

// Server exposes health, readiness, metrics, subscription and run endpoints.
type Server struct {
	httpServer *http.Server
	registrar  Registrar
	runs       RunTrigger
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// POST /subscriptions and POST /runs routes.
func NewServer(addr string, ready ReadinessChecker, registrar Registrar, runs RunTrigger, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		registrar: registrar,
		runs:      runs,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /subscriptions", s.handleSubscribe)
	mux.HandleFunc("POST /runs", s.handleRun)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type subscribeRequest struct {
	Email   string `json:"email"`
	ZipCode string `json:"zip_code"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Invalid request body",
			"message": "Body must be a JSON object with email and zip_code",
		})
		return
	}
	if req.Email == "" || req.ZipCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Missing required fields",
			"message": "Please provide both email and zip_code",
		})
		return
	}

	sub, err := s.registrar.Subscribe(r.Context(), req.Email, req.ZipCode)
	if domain.IsValidation(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Invalid input",
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		s.logger.Error("subscription failed", "error", err, "area_code", req.ZipCode)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": internalErrorMessage})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Subscription successful!",
		"email":    sub.Contact,
		"zip_code": sub.AreaCode,
	})
}

type runResponse struct {
	Message   string `json:"message"`
	RunID     string `json:"run_id,omitempty"`
	Processed int    `json:"processed"`
	Notified  int    `json:"notified"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	// A run can outlast the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	// The run is not abandoned when the client disconnects.
	report, err := s.runs.RunNow(context.WithoutCancel(r.Context()))
	if err != nil {
		s.logger.Error("on-demand run failed", "run_id", report.RunID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": internalErrorMessage})
		return
	}

	if report.Status == pipeline.StatusNoSubscribers {
		writeJSON(w, http.StatusOK, runResponse{Message: "No subscriptions to process", RunID: report.RunID})
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		Message:   "Daily check completed",
		RunID:     report.RunID,
		Processed: report.Processed,
		Notified:  report.Notified,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

