package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pushrelay/internal/config"
	"pushrelay/internal/constants"
	apperrors "pushrelay/internal/errors"
	"pushrelay/internal/middleware"
	"pushrelay/internal/models"
	"pushrelay/internal/service"
	"pushrelay/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router    *mux.Router
	logger    *logrus.Logger
	webhooks  *service.WebhookService
	processor *service.Processor
	procCfg   service.ProcessorConfig
	server    *http.Server
}

func NewServer(cfg *config.Config, webhooks *service.WebhookService, processor *service.Processor, procCfg service.ProcessorConfig, logger *logrus.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		webhooks:  webhooks,
		processor: processor,
		procCfg:   procCfg,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/", s.handleStatus()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	webhooks := s.router.PathPrefix("/webhooks").Subrouter()
	webhooks.HandleFunc("/chatwoot", s.handleChatwootWebhook()).Methods(http.MethodPost)
	webhooks.HandleFunc("/chat", s.handleChatWebhook()).Methods(http.MethodPost)

	s.router.HandleFunc("/queue/process", s.handleQueueProcess()).Methods(http.MethodPost)

	// mux dispatches these outside the router's middleware chain, so wrap
	// them explicitly to keep their logs, metrics and duration_ms.
	observed := middleware.Observability(s.logger)
	s.router.MethodNotAllowedHandler = observed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}))
	s.router.NotFoundHandler = observed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not found")
	}))
}

func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting server")
	return s.server.ListenAndServe()
}

// Close stops the listener immediately. In-flight work is not drained; the
// external caller retries if it cares.
func (s *Server) Close() error {
	return s.server.Close()
}

// Handler implementations

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":             true,
			"service":        "pushrelay",
			"version":        Version,
			"batch_limit":    s.procCfg.BatchLimit,
			"chunk_size":     s.procCfg.ChunkSize,
			"chunk_delay_ms": s.procCfg.ChunkDelay.Milliseconds(),
		})
	}
}

func (s *Server) handleChatwootWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer s.recoverPanic(w, r)

		var payload models.ChatwootWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		ack, err := s.webhooks.HandleChatwootEvent(r.Context(), &payload)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		s.writeAck(w, r, ack)
	}
}

func (s *Server) handleChatWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer s.recoverPanic(w, r)

		var payload models.ChatWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		ack, err := s.webhooks.HandleChatEvent(r.Context(), &payload)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		s.writeAck(w, r, ack)
	}
}

func (s *Server) handleQueueProcess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer s.recoverPanic(w, r)

		summary, err := s.processor.ProcessPending(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":          true,
			"processed":   summary.Processed,
			"sent":        summary.Sent,
			"deactivated": summary.Deactivated,
			"duration_ms": tracing.Duration(r.Context()).Milliseconds(),
		})
	}
}

// Response helpers

func (s *Server) writeAck(w http.ResponseWriter, r *http.Request, ack *service.WebhookAck) {
	body := map[string]interface{}{
		"ok":          true,
		"handled":     ack.Handled,
		"sent":        ack.Sent,
		"deactivated": ack.Deactivated,
		"duration_ms": tracing.Duration(r.Context()).Milliseconds(),
	}
	if ack.Reason != "" {
		body["reason"] = ack.Reason
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	tracing.RecordError(r.Context(), err)
	s.logger.WithError(err).WithField("url", r.URL.Path).Error("Request failed")
	s.writeError(w, r, apperrors.HTTPStatus(err), apperrors.GetUserMessage(err))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"ok":          false,
		"error":       message,
		"duration_ms": tracing.Duration(r.Context()).Milliseconds(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// recoverPanic converts an uncaught panic inside a handler into a 500 JSON
// error with duration. The process stays up.
func (s *Server) recoverPanic(w http.ResponseWriter, r *http.Request) {
	if rec := recover(); rec != nil {
		err := fmt.Errorf("panic: %v", rec)
		tracing.RecordError(r.Context(), err)
		s.logger.WithField("panic", rec).WithField("url", r.URL.Path).Error("Recovered from panic in handler")
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
