package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"swarmsync/internal/constants"
	"swarmsync/internal/database"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/metrics"
	"swarmsync/internal/middleware"
	"swarmsync/internal/models"
	"swarmsync/internal/validation"
)

// StatusSource reports whether each background component is live.
type StatusSource func() map[string]bool

// TypingSource lists the senders typing in a thread.
type TypingSource func(threadID string) []string

type Server struct {
	router *mux.Router
	logger *logrus.Logger
	db     *database.Database
	status StatusSource
	typing TypingSource
	cfg    models.ServerConfig
	server *http.Server
}

type healthResponse struct {
	Status        string          `json:"status"`
	SchemaVersion int             `json:"schema_version"`
	Components    map[string]bool `json:"components,omitempty"`
}

type interactionsResponse struct {
	Thread       *models.Thread       `json:"thread"`
	Interactions []models.Interaction `json:"interactions"`
	Typing       []string             `json:"typing,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewServer(cfg models.ServerConfig, db *database.Database, gatherer prometheus.Gatherer, m *metrics.Metrics, status StatusSource, typing TypingSource, verbose bool, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		db:     db,
		status: status,
		typing: typing,
		cfg:    cfg,
	}

	s.router.Use(middleware.ObservabilityMiddleware(logger, m))
	if verbose {
		s.router.Use(middleware.DetailedLoggingMiddleware(logger, middleware.DefaultDetailedLoggingConfig()))
	}
	s.setupRoutes(gatherer)
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/threads/{id}/interactions", s.handleInteractions()).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSec) * time.Second,
	}

	s.logger.WithField("addr", s.cfg.ListenAddr).Info("Starting status server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if s.status != nil {
			resp.Components = s.status()
		}

		version, err := s.db.SchemaVersion(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("Health check failed to reach database")
			resp.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.SchemaVersion = version
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleInteractions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threadID := mux.Vars(r)["id"]
		if err := validation.ValidateThreadID(threadID); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		limit, err := validation.ParsePageLimit(r.URL.Query().Get("limit"),
			constants.DefaultInteractionPageSize, constants.MaxInteractionPageSize)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		var resp interactionsResponse
		err = s.db.Read(r.Context(), func(tx *database.Tx) error {
			thread, err := tx.FetchThread(threadID)
			if err != nil || thread == nil {
				return err
			}
			resp.Thread = thread
			resp.Interactions, err = tx.ListInteractions(threadID, limit)
			return err
		})
		if err != nil {
			s.logger.WithError(err).Error("Failed to load interactions")
			writeError(w, http.StatusInternalServerError, apperrors.New(apperrors.ErrCodeInternalError, "failed to load interactions"))
			return
		}
		if resp.Thread == nil {
			writeError(w, http.StatusNotFound, apperrors.New(apperrors.ErrCodeNotFound, "thread not found"))
			return
		}
		if resp.Interactions == nil {
			resp.Interactions = []models.Interaction{}
		}
		if s.typing != nil {
			resp.Typing = s.typing(threadID)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	writeJSON(w, status, errorResponse{Code: string(apperrors.GetCode(err)), Message: msg})
}
