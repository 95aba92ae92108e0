// Package server provides the HTTP server for the replay-guard service.
//
// The service lets message processors that do not embed the library share
// one replay cache and the algorithm suite table.
//
// # Replay API
//
//   - POST /v1/nonces          - Record a nonce: {"nonce": "<base64>"}
//     201 accepted, 409 replay, 503 nonce cache full
//   - POST /v1/headers/verify  - Check the Security header of a SOAP envelope
//     200 verified, 400 malformed, 409 replay, 422 rejected timestamp or
//     derived key, 503 nonce cache full
//
// # Algorithm Suites
//
//   - GET /v1/suites        - List the named suites
//   - GET /v1/suites/{name} - Describe one suite
//
// # Health
//
//   - GET /health - Liveness probe
//   - GET /ready  - Readiness probe (nonce store reachable)
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sirosfoundation/go-wssec/internal/config"
	"github.com/sirosfoundation/go-wssec/internal/storage"
	"github.com/sirosfoundation/go-wssec/pkg/cache"
	"github.com/sirosfoundation/go-wssec/pkg/header"
	"github.com/sirosfoundation/go-wssec/pkg/protocol"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
)

// Server is the replay-guard HTTP server
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	httpSrv *http.Server
	factory *protocol.Factory
	store   storage.NonceStore
}

// New creates a new server. The server takes ownership of factory and
// store and releases both on Shutdown.
func New(cfg *config.Config, factory *protocol.Factory, store storage.NonceStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:  cfg,
		logger:  logger,
		factory: factory,
		store:   store,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins listening on the specified address
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	s.logger.Info("starting server", "addr", addr, "tls", s.config.Server.TLS.Enabled)
	if s.config.Server.TLS.Enabled {
		return s.httpSrv.ListenAndServeTLS(
			s.config.Server.TLS.CertFile,
			s.config.Server.TLS.KeyFile,
		)
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server, then closes the protocol factory
// and the nonce store. Each step runs even if an earlier one fails.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if s.factory != nil {
		if err := s.factory.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("security protocol factory: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("nonce store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /v1/nonces", s.withRequestLog(s.handleAddNonce))
	mux.HandleFunc("POST /v1/headers/verify", s.withRequestLog(s.handleVerifyHeader))

	mux.HandleFunc("GET /v1/suites", s.handleListSuites)
	mux.HandleFunc("GET /v1/suites/{name}", s.handleGetSuite)
}

// Middleware

func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("nonce store not ready", "error", err)
			s.jsonError(w, "nonce store not ready", http.StatusServiceUnavailable)
			return
		}
	}
	s.jsonResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// Replay handlers

type addNonceRequest struct {
	Nonce []byte `json:"nonce"`
}

func (s *Server) handleAddNonce(w http.ResponseWriter, r *http.Request) {
	var req addNonceRequest
	body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Nonce) == 0 {
		s.jsonError(w, "nonce is required", http.StatusBadRequest)
		return
	}

	if err := s.factory.CheckReplay(r.Context(), req.Nonce); err != nil {
		s.replayError(w, err)
		return
	}
	s.jsonResponse(w, map[string]string{"status": "accepted"}, http.StatusCreated)
}

type verifyResponse struct {
	Status         string     `json:"status"`
	Created        *time.Time `json:"created,omitempty"`
	Expires        *time.Time `json:"expires,omitempty"`
	Signatures     int        `json:"signatures"`
	UsernameTokens int        `json:"usernameTokens"`
	DerivedKeys    int        `json:"derivedKeys"`
}

func (s *Server) handleVerifyHeader(w http.ResponseWriter, r *http.Request) {
	envelope, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes))
	if err != nil {
		s.jsonError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	h, err := header.Parse(envelope)
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.factory.ProcessIncomingHeader(r.Context(), h); err != nil {
		s.replayError(w, err)
		return
	}

	resp := verifyResponse{
		Status:         "verified",
		Signatures:     len(h.SignatureValues),
		UsernameTokens: len(h.UsernameTokens),
		DerivedKeys:    len(h.DerivedKeyTokens),
	}
	if h.Timestamp != nil {
		resp.Created = &h.Timestamp.Created
		if !h.Timestamp.Expires.IsZero() {
			resp.Expires = &h.Timestamp.Expires
		}
	}
	s.jsonResponse(w, resp, http.StatusOK)
}

// replayError maps factory errors to HTTP status codes
func (s *Server) replayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, protocol.ErrReplayDetected):
		s.jsonError(w, "replay detected", http.StatusConflict)
	case errors.Is(err, cache.ErrQuotaExceeded):
		s.logger.Warn("nonce cache full", "error", err)
		s.jsonError(w, "nonce cache full", http.StatusServiceUnavailable)
	case errors.Is(err, protocol.ErrInvalidTimestamp),
		errors.Is(err, protocol.ErrStaleMessage),
		errors.Is(err, protocol.ErrMissingTimestamp),
		errors.Is(err, protocol.ErrUnsupportedDerivation),
		errors.Is(err, protocol.ErrDerivedKeyTooLong):
		s.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, protocol.ErrReplayDetectionDisabled):
		s.jsonError(w, "replay detection is disabled", http.StatusNotImplemented)
	case errors.Is(err, protocol.ErrFactoryClosed):
		s.jsonError(w, "shutting down", http.StatusServiceUnavailable)
	default:
		s.logger.Error("replay check failed", "error", err)
		s.jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// Suite handlers

func (s *Server) handleListSuites(w http.ResponseWriter, r *http.Request) {
	all := suite.All()
	out := make([]suite.Description, 0, len(all))
	for _, st := range all {
		out = append(out, st.Describe())
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) handleGetSuite(w http.ResponseWriter, r *http.Request) {
	st, ok := suite.Lookup(r.PathValue("name"))
	if !ok {
		s.jsonError(w, "algorithm suite not found", http.StatusNotFound)
		return
	}
	s.jsonResponse(w, st.Describe(), http.StatusOK)
}

// Helpers

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, message string, status int) {
	s.jsonResponse(w, map[string]string{"error": message}, status)
}
