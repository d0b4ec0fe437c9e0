// Package httpapi is the thin authenticated read layer over Orchestrator
// state: listing workers, tailing a worker's log file, and an
// unauthenticated health/status pair. Grounded in a market-data
// provider's HTTP handler routing style, built on gorilla/mux.
package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/blueenergy/strategy-supervisor/internal/authz"
	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/orchestrator"
	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
)

// Server wires the Orchestrator, AuthzFilter, and a per-worker log file
// path resolver into a mux.Router exposing the read-only worker API.
type Server struct {
	orch   *orchestrator.Orchestrator
	authz  *authz.Filter
	log    *logger.Logger
	logDir string
	router *mux.Router
}

// New builds the Server's routes. logDir is the same directory
// EngineAdapter writes worker log files under (logDir/workers/...).
func New(orch *orchestrator.Orchestrator, az *authz.Filter, log *logger.Logger, logDir string) *Server {
	s := &Server{orch: orch, authz: az, log: log, logDir: logDir, router: mux.NewRouter()}
	s.router.Use(s.requestIDMiddleware)
	s.routes()

	return s
}

// requestIDMiddleware tags every request with a UUID so a worker's log
// lines and the HTTP access log for the request that triggered them can
// be correlated after the fact.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-Id", requestID)
		s.log.Debug("http request", zap.String("request_id", requestID), zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/workers", s.handleListWorkers).Methods(http.MethodGet)
	s.router.HandleFunc("/api/workers/{key}", s.handleGetWorker).Methods(http.MethodGet)
	s.router.HandleFunc("/api/workers/{key}/console", s.handleConsole).Methods(http.MethodGet)
	s.router.HandleFunc("/api/workers/{key}/logs", s.handleLogs).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.orch.GetStatus()

	body := map[string]any{"worker_count": len(statuses)}

	if schema, err := config.ParamsSchema(); err != nil {
		s.log.Warn("failed to build params schema for status response", zap.Error(err))
	} else {
		body["params_schema"] = json.RawMessage(schema)
	}

	writeJSON(w, http.StatusOK, body)
}

type workerView struct {
	Key          string `json:"key"`
	State        string `json:"state"`
	Symbol       string `json:"symbol"`
	StrategyKey  string `json:"strategy_key"`
	Alive        bool   `json:"alive"`
	LogStreamURL string `json:"log_stream_url"`
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authz.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)

		return
	}

	var views []workerView

	for _, status := range s.orch.GetStatus() {
		wk, ok := s.orch.Worker(status.Key)
		if !ok || !identity.MayAccess(wk.UserID()) {
			continue
		}

		views = append(views, workerView{
			Key:          string(status.Key),
			State:        status.Stats.State.String(),
			Symbol:       status.Stats.Symbol,
			StrategyKey:  status.Stats.StrategyKey,
			Alive:        wk.IsRunning(),
			LogStreamURL: wk.GetLogStreamURL(),
		})
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) lookupAuthorized(w http.ResponseWriter, r *http.Request) (workerkey.Key, bool) {
	identity, err := s.authz.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)

		return "", false
	}

	key := workerkey.Key(mux.Vars(r)["key"])

	wk, ok := s.orch.Worker(key)
	if !ok {
		writeError(w, http.StatusNotFound, supervisorerrors.ErrNotFound)

		return "", false
	}

	if err := authz.RequireOwnership(identity, wk.UserID()); err != nil {
		writeError(w, http.StatusForbidden, err)

		return "", false
	}

	return key, true
}

func (s *Server) handleGetWorker(w http.ResponseWriter, r *http.Request) {
	key, ok := s.lookupAuthorized(w, r)
	if !ok {
		return
	}

	wk, _ := s.orch.Worker(key)
	stats := wk.GetStats()

	writeJSON(w, http.StatusOK, workerView{
		Key:          string(key),
		State:        stats.State.String(),
		Symbol:       stats.Symbol,
		StrategyKey:  stats.StrategyKey,
		Alive:        wk.IsRunning(),
		LogStreamURL: wk.GetLogStreamURL(),
	})
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	key, ok := s.lookupAuthorized(w, r)
	if !ok {
		return
	}

	wk, _ := s.orch.Worker(key)
	writeJSON(w, http.StatusOK, map[string]string{"log_stream_url": wk.GetLogStreamURL()})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	key, ok := s.lookupAuthorized(w, r)
	if !ok {
		return
	}

	wk, _ := s.orch.Worker(key)

	tail := 0
	if raw := r.URL.Query().Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil && n > 0 {
			tail = n
		}
	}

	path := logFilePath(s.logDir, wk.UserID(), wk.Symbol(), wk.StrategyKey())

	lines, err := readTail(path, tail)
	if err != nil {
		writeError(w, http.StatusNotFound, supervisorerrors.ErrNotFound)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func logFilePath(logDir, userID, symbol, strategyKey string) string {
	if userID == "" {
		userID = "anon"
	}

	return logDir + "/workers/" + userID + "_" + symbol + "_" + strategyKey + ".log"
}

func readTail(path string, tail int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}

	return lines, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
