package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nassav/internal/config"
	"nassav/internal/ident"
	"nassav/internal/logging"
	"nassav/internal/stream"
	"nassav/internal/task"
)

// FetchRequest is the body of POST /api/fetch. Keys holds one asset key or a
// newline-separated batch.
type FetchRequest struct {
	Keys string `json:"keys"`
}

// TaskListResponse is the body of GET /api/tasks.
type TaskListResponse struct {
	Tasks []task.Task `json:"tasks"`
}

type apiServer struct {
	bind             string
	logger           *slog.Logger
	daemon           *Daemon
	progressInterval time.Duration
	logInterval      time.Duration

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	srv := &apiServer{
		bind:             strings.TrimSpace(cfg.Paths.APIBind),
		logger:           logger,
		daemon:           d,
		progressInterval: time.Duration(cfg.Workflow.ProgressIntervalMillis) * time.Millisecond,
		logInterval:      time.Duration(cfg.Workflow.LogIntervalMillis) * time.Millisecond,
	}
	if srv.bind == "" {
		return srv, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/fetch", srv.handleFetch)
	mux.HandleFunc("/api/stop", srv.handleStop)
	mux.HandleFunc("/api/tasks", srv.handleTasks)
	mux.HandleFunc("/api/tasks/", srv.handleTask)
	mux.HandleFunc("/api/status", srv.handleStatus)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.daemon.Fetch(req.Keys)
	if err != nil {
		if errors.Is(err, ident.ErrEmptyKey) {
			s.writeError(w, http.StatusBadRequest, "no asset keys supplied")
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, result)
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.StopAll())
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, TaskListResponse{Tasks: s.daemon.Tasks()})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

// handleTask routes /api/tasks/{id}, /api/tasks/{id}/progress, and
// /api/tasks/{id}/logs.
func (s *apiServer) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	switch sub {
	case "":
		rec, ok := s.daemon.Task(id)
		if !ok {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeJSON(w, http.StatusOK, rec)
	case "progress":
		s.serveProgress(w, r, id)
	case "logs":
		s.serveLogs(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "task not found")
	}
}

func (s *apiServer) serveProgress(w http.ResponseWriter, r *http.Request, id string) {
	snapshots, err := stream.Progress(r.Context(), s.daemon.Store(), id, s.progressInterval)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	flusher := s.prepareSSE(w)
	if flusher == nil {
		return
	}
	for snap := range snapshots {
		if !s.writeEvent(w, flusher, snap) {
			return
		}
	}
}

func (s *apiServer) serveLogs(w http.ResponseWriter, r *http.Request, id string) {
	afterSeq, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	entries, err := stream.Logs(r.Context(), s.daemon.Store(), id, s.logInterval)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	flusher := s.prepareSSE(w)
	if flusher == nil {
		return
	}
	for entry := range entries {
		if entry.Seq <= afterSeq {
			continue
		}
		if !s.writeEvent(w, flusher, entry) {
			return
		}
	}
}

func (s *apiServer) prepareSSE(w http.ResponseWriter) http.Flusher {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher
}

func (s *apiServer) writeEvent(w http.ResponseWriter, flusher http.Flusher, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log().Error("failed to encode event", logging.Error(err))
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
