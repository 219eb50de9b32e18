// Package server exposes the guard engine over HTTP.
//
// Routes:
//
//   - GET  /healthz         — liveness probe
//   - GET  /readyz          — readiness probe over registered checkers
//   - GET  /metrics         — Prometheus scrape endpoint
//   - GET  /status          — current verdict and escalation snapshot
//   - POST /utterance       — one text dialogue turn, returns the reply
//   - POST /utterance/audio — one audio dialogue turn (raw float32 PCM body)
//   - GET  /events          — WebSocket stream of engine events
//   - GET/POST/DELETE /faces — trusted face enrollment management
//
// All routes run behind the observability middleware, so every request
// carries a trace span and a latency metric.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenhq/warden/internal/guard"
	"github.com/wardenhq/warden/internal/health"
	"github.com/wardenhq/warden/internal/observe"
	"github.com/wardenhq/warden/pkg/facestore"
)

const (
	shutdownTimeout = 10 * time.Second

	// maxAudioBody caps an audio turn at ~30 s of 16 kHz float32 PCM.
	maxAudioBody = 30 * 16000 * 4

	// maxUtteranceBody caps a text turn request body.
	maxUtteranceBody = 64 << 10
)

// Engine is the slice of the guard engine the HTTP layer needs.
type Engine interface {
	Snapshot() guard.Status
	OnUserUtterance(ctx context.Context, text string) (string, error)
	OnAudio(ctx context.Context, samples []float32) (string, error)
	Subscribe() (<-chan guard.Event, func())
}

// Config holds the listener settings for a [Server].
type Config struct {
	// ListenAddr is the host:port to bind ("" means ":8080").
	ListenAddr string

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string
}

// Server serves the guard API. Create one with New and drive it with Run.
type Server struct {
	cfg     Config
	engine  Engine
	store   facestore.Store
	httpSrv *http.Server
}

// New assembles the route table and wraps it in the observability
// middleware. The health checkers back the /readyz endpoint. A nil store
// disables the /faces enrollment routes.
func New(cfg Config, engine Engine, store facestore.Store, checkers ...health.Checker) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	s := &Server{cfg: cfg, engine: engine, store: store}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /utterance", s.handleUtterance)
	mux.HandleFunc("POST /utterance/audio", s.handleUtteranceAudio)
	mux.HandleFunc("GET /events", s.handleEvents)
	if store != nil {
		mux.HandleFunc("GET /faces", s.handleListFaces)
		mux.HandleFunc("POST /faces", s.handleEnrollFace)
		mux.HandleFunc("DELETE /faces/{name}", s.handleRemoveFace)
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's root handler, middleware included. Intended
// for tests that drive the API through httptest.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run binds the listener and serves until ctx is cancelled, then drains
// in-flight requests. It returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}

	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			ln.Close()
			return fmt.Errorf("server: load TLS keypair: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(ln)
	}()
	observe.Logger(ctx).Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// handleStatus serves the engine's current snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// utteranceRequest is the POST /utterance body.
type utteranceRequest struct {
	Text string `json:"text"`
}

// utteranceResponse is the reply payload for both turn endpoints.
type utteranceResponse struct {
	Reply string `json:"reply"`
}

// handleUtterance runs one text dialogue turn.
func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	var req utteranceRequest
	body := http.MaxBytesReader(w, r.Body, maxUtteranceBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	reply, err := s.engine.OnUserUtterance(r.Context(), req.Text)
	if err != nil {
		observe.Logger(r.Context()).Error("utterance turn failed", "err", err)
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}
	writeJSON(w, http.StatusOK, utteranceResponse{Reply: reply})
}

// handleUtteranceAudio runs one audio dialogue turn. The request body is
// raw mono little-endian float32 PCM at the transcriber's sample rate.
func (s *Server) handleUtteranceAudio(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxAudioBody)
	samples, err := readPCM(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid PCM body: "+err.Error())
		return
	}
	if len(samples) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio body")
		return
	}

	reply, err := s.engine.OnAudio(r.Context(), samples)
	switch {
	case errors.Is(err, guard.ErrNoTranscriber):
		writeError(w, http.StatusNotImplemented, "no transcriber configured")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("audio turn failed", "err", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	writeJSON(w, http.StatusOK, utteranceResponse{Reply: reply})
}

// errorResponse is the JSON body for non-2xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
