package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bigman/internal/config"
	"bigman/internal/database"
	"bigman/internal/domain"
	"bigman/internal/export"
	"bigman/internal/metrics"
	"bigman/internal/models"
	"bigman/internal/service"
	"bigman/internal/wizard"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer carries the public booking API and the admin surface.
type HTTPServer struct {
	cfg          *config.Config
	catalog      *models.Catalog
	reservation  domain.ReservationService
	availability domain.AvailabilityService
	lifecycle    domain.LifecycleService
	products     domain.ProductService
	wizard       *wizard.Manager
	exporter     *export.Exporter
	server       *http.Server
	auth         *HTTPAuth
	logger       *zerolog.Logger
}

func NewHTTPServer(
	cfg *config.Config,
	catalog *models.Catalog,
	reservation domain.ReservationService,
	availability domain.AvailabilityService,
	lifecycle domain.LifecycleService,
	products domain.ProductService,
	wizardManager *wizard.Manager,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		catalog:      catalog,
		reservation:  reservation,
		availability: availability,
		lifecycle:    lifecycle,
		products:     products,
		wizard:       wizardManager,
		exporter:     exporter,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg.Auth, cfg.RateLimit)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/appointments", srv.handleCreateAppointment)
	mux.HandleFunc("GET /api/v1/appointments", srv.handleListAppointments)
	mux.HandleFunc("GET /api/v1/appointments/{id}", srv.handleGetAppointment)
	mux.HandleFunc("PATCH /api/v1/appointments/{id}/status", srv.handleUpdateStatus)
	mux.HandleFunc("PATCH /api/v1/appointments/{id}/reschedule", srv.handleReschedule)

	mux.HandleFunc("GET /api/v1/availability", srv.handleAvailability)
	mux.HandleFunc("GET /api/v1/availability/month", srv.handleMonthAvailability)

	mux.HandleFunc("POST /api/v1/sessions", srv.handleSessionStart)
	mux.HandleFunc("GET /api/v1/sessions/{token}", srv.handleSessionGet)
	mux.HandleFunc("POST /api/v1/sessions/{token}/next", srv.handleSessionNext)
	mux.HandleFunc("POST /api/v1/sessions/{token}/back", srv.handleSessionBack)
	mux.HandleFunc("POST /api/v1/sessions/{token}/submit", srv.handleSessionSubmit)
	mux.HandleFunc("DELETE /api/v1/sessions/{token}", srv.handleSessionAbandon)

	mux.HandleFunc("GET /api/v1/catalog", srv.handleCatalog)

	mux.HandleFunc("GET /api/v1/products", srv.handleListProducts)
	mux.HandleFunc("POST /api/v1/products", srv.handleCreateProduct)
	mux.HandleFunc("GET /api/v1/products/{id}", srv.handleGetProduct)
	mux.HandleFunc("PUT /api/v1/products/{id}", srv.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/v1/products/{id}", srv.handleDeleteProduct)

	mux.HandleFunc("POST /api/v1/export", srv.handleExport)

	mux.HandleFunc("GET /healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const requestIDHeader = "X-Request-Id"

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = r.URL.Path
		}
		metrics.IncHTTP(endpoint)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, service.ErrPastDate), errors.Is(err, service.ErrDateTooFar):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot already taken")
	case errors.Is(err, wizard.ErrStepMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid status transition")
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, wizard.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, wizard.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
