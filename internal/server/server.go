// Package server exposes the simulation service over HTTP and
// per-session websocket streams.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/motionlab/kinema/internal/handlers"
	"github.com/motionlab/kinema/internal/preset"
	"github.com/motionlab/kinema/internal/session"
	"github.com/motionlab/kinema/pkg/core"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Dependencies holds all dependencies for the server.
type Dependencies struct {
	Service *handlers.Service
	Presets *preset.Library
	Hub     *Hub
	Logger  *slog.Logger
}

// Server is the HTTP/websocket front end.
type Server struct {
	cfg        Config
	deps       Dependencies
	httpServer *http.Server
}

// New builds the server and its route table.
func New(cfg Config, deps Dependencies) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{cfg: cfg, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleRemoveSession)
	mux.HandleFunc("POST /api/sessions/{id}/start", s.handleStartSession)
	mux.HandleFunc("POST /api/sessions/{id}/stop", s.handleStopSession)
	mux.HandleFunc("PATCH /api/sessions/{id}/params", s.handleSetParam)
	mux.HandleFunc("GET /api/sessions/{id}/trail", s.handleTrail)
	mux.HandleFunc("GET /api/sessions/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("GET /api/presets/{module}", s.handleModulePresets)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.withLogging(mux),
	}
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.deps.Logger.Info("HTTP server listening", "addr", s.cfg.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes stream clients.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.deps.Hub != nil {
		s.deps.Hub.CloseAll()
	}
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.deps.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// askRequest is the body for POST /api/ask.
type askRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, handlers.AskResult{
			Inputs:      map[string]any{},
			Explanation: "Error processing request",
		})
		return
	}

	res, err := s.deps.Service.Ask(r.Context(), req.Prompt)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// createSessionRequest creates a session either from an explicit module
// or from a free-form prompt.
type createSessionRequest struct {
	Module string         `json:"module"`
	Inputs map[string]any `json:"inputs"`
	Prompt string         `json:"prompt"`
}

// sessionResource is the wire shape of one session.
type sessionResource struct {
	ID        string         `json:"id"`
	Module    string         `json:"module"`
	Inputs    map[string]any `json:"inputs"`
	Time      float64        `json:"time"`
	IsRunning bool           `json:"isRunning"`
	TrailLen  int            `json:"trailLength"`
}

func toResource(sess *session.Session) sessionResource {
	state := sess.State()
	return sessionResource{
		ID:        sess.ID(),
		Module:    sess.Module(),
		Inputs:    sess.Inputs(),
		Time:      state.Time,
		IsRunning: state.IsRunning,
		TrailLen:  state.TrailLen,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	switch {
	case req.Module != "":
		sess, err := s.deps.Service.CreateSession(req.Module, req.Inputs)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, toResource(sess))

	case req.Prompt != "":
		sess, ask, err := s.deps.Service.CreateFromPrompt(r.Context(), req.Prompt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Error processing request")
			return
		}
		if sess == nil {
			// No module matched; hand back the classifier's explanation.
			writeJSON(w, http.StatusUnprocessableEntity, ask)
			return
		}
		writeJSON(w, http.StatusCreated, toResource(sess))

	default:
		writeError(w, http.StatusBadRequest, "module or prompt required")
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.deps.Service.ListSessions()
	out := make([]sessionResource, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toResource(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Service.GetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResource(sess))
}

func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Service.RemoveSession(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Service.StartSession(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sess, _ := s.deps.Service.GetSession(r.PathValue("id"))
	writeJSON(w, http.StatusOK, toResource(sess))
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Service.StopSession(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sess, _ := s.deps.Service.GetSession(r.PathValue("id"))
	writeJSON(w, http.StatusOK, toResource(sess))
}

// setParamRequest is the body for PATCH .../params.
type setParamRequest struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	var req setParamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.deps.Service.SetParam(r.PathValue("id"), req.Name, req.Value); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sess, _ := s.deps.Service.GetSession(r.PathValue("id"))
	writeJSON(w, http.StatusOK, toResource(sess))
}

func (s *Server) handleTrail(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Service.GetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	trail := sess.Trail()
	if trail == nil {
		trail = []core.Frame{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"frames": trail})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.deps.Presets.All()})
}

func (s *Server) handleModulePresets(w http.ResponseWriter, r *http.Request) {
	presets := s.deps.Presets.ForModule(r.PathValue("module"))
	if presets == nil {
		presets = []preset.Preset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sample := s.deps.Service.Status()
	if sample == nil {
		writeError(w, http.StatusServiceUnavailable, "monitor not running")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
