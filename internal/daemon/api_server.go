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

	"aerial/internal/api"
	"aerial/internal/config"
	"aerial/internal/logging"
	"aerial/internal/logs"
	"aerial/internal/queue"
)

// apiServer exposes daemon status and run control over HTTP. The bind address
// comes from configuration and defaults to loopback.
type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	runSvc   *api.RunService
	listener net.Listener
	server   *http.Server
}

// newAPIServer returns nil when no bind address is configured.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	return &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
		runSvc: api.NewRunService(d.store),
	}, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunSubtree)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/notify-test", s.handleNotifyTest)
	mux.HandleFunc("/api/logs", s.handleLogs)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server terminated", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("addr", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// addr returns the bound listen address, which differs from the configured
// bind when port 0 was requested.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		PlaylistPath: status.PlaylistPath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencyStatuses(status.Dependencies),
	})
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []queue.Status
	for _, raw := range r.URL.Query()["status"] {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
			return
		}
		statuses = append(statuses, parsed)
	}
	runs, err := s.runSvc.List(r.Context(), statuses...)
	if err != nil {
		s.logger.Error("list runs failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, api.RunListResponse{Runs: runs})
}

func (s *apiServer) handleRunSubtree(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	switch suffix {
	case "clear":
		s.handleRunsClear(w, r)
	case "retry":
		s.handleRunsRetry(w, r)
	case "reset":
		s.handleRunsReset(w, r)
	default:
		s.handleRunByID(w, r, suffix)
	}
}

func (s *apiServer) handleRunByID(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "run id must be a positive integer")
		return
	}
	run, err := s.runSvc.Describe(r.Context(), id)
	if err != nil {
		s.logger.Error("describe run failed",
			logging.Int64(logging.FieldRunID, id),
			logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, api.RunResponse{Run: *run})
}

func (s *apiServer) handleRunsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var updated int64
	var err error
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	switch scope {
	case "completed":
		updated, err = s.daemon.ClearCompleted(r.Context())
	case "failed":
		updated, err = s.daemon.ClearFailed(r.Context())
	case "", "all":
		updated, err = s.daemon.ClearRuns(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown clear scope %q", scope))
		return
	}
	if err != nil {
		s.logger.Error("clear runs failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear runs")
		return
	}
	writeJSON(w, http.StatusOK, api.ActionResponse{Updated: updated})
}

func (s *apiServer) handleRunsRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var ids []int64
	for _, raw := range r.URL.Query()["id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid run id %q", raw))
			return
		}
		ids = append(ids, id)
	}
	updated, err := s.daemon.RetryFailed(r.Context(), ids)
	if err != nil {
		s.logger.Error("retry runs failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to retry runs")
		return
	}
	writeJSON(w, http.StatusOK, api.ActionResponse{Updated: updated})
}

func (s *apiServer) handleRunsReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	updated, err := s.daemon.ResetStuck(r.Context())
	if err != nil {
		s.logger.Error("reset runs failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to reset runs")
		return
	}
	writeJSON(w, http.StatusOK, api.ActionResponse{Updated: updated})
}

func (s *apiServer) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.logger.Warn("test notification failed", logging.Error(err))
	}
	writeJSON(w, http.StatusOK, api.NotifyTestResponse{Sent: sent, Message: message})
}

// maxLogWait caps long-poll duration so requests finish well inside the
// client's HTTP timeout.
const maxLogWait = 5 * time.Second

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	opts := logs.Options{Offset: -1, Lines: 100}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid offset %q", raw))
			return
		}
		opts.Offset = offset
	}
	if raw := r.URL.Query().Get("lines"); raw != "" {
		lines, err := strconv.Atoi(raw)
		if err != nil || lines <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid line count %q", raw))
			return
		}
		opts.Lines = lines
	}
	if raw := r.URL.Query().Get("wait"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid wait %q", raw))
			return
		}
		opts.Wait = time.Duration(seconds) * time.Second
		if opts.Wait > maxLogWait {
			opts.Wait = maxLogWait
		}
	}
	result, err := logs.Tail(r.Context(), logs.CurrentPath(s.daemon.cfg), opts)
	if err != nil {
		s.logger.Error("log tail failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read log file")
		return
	}
	writeJSON(w, http.StatusOK, api.LogTailResponse{Lines: result.Lines, Offset: result.Offset})
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	run, created, err := s.daemon.Scan(r.Context(), queue.OriginAPI)
	if err != nil {
		s.logger.Error("scan request failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to enqueue scan")
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusAccepted
	}
	writeJSON(w, code, api.ScanResponse{Run: api.FromRun(run), Created: created})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
