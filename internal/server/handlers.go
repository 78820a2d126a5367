// File: internal/server/handlers.go
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/protocol"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

const (
	maxBodyBytes    = 64 << 10
	defaultRunLimit = 20
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoHistory   = errors.New("run history is not configured")
)

// RunRequest starts a whole run. Kind is "full" (the default) or
// "parts-and-serial".
type RunRequest struct {
	Kind       string                `json:"kind,omitempty"`
	Values     config.OperatorValues `json:"values"`
	PartNumber string                `json:"partNumber,omitempty"`
}

// runView is the wire form of a history entry.
type runView struct {
	ID         string              `json:"id"`
	Kind       string              `json:"kind"`
	OK         bool                `json:"ok"`
	Status     string              `json:"status"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Report     jsoniter.RawMessage `json:"report,omitempty"`
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/actions", s.handleActions)
		r.Get("/runs", s.handleRuns)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/command", s.handleCommand)
			r.Post("/run", s.handleRun)
		})
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleActions(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]interface{}{"actions": s.runner.Actions()})
}

// handleCommand runs one message-contract action. The body is a StepRequest
// and the answer is always the {ok, results, error} envelope.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respond(w, http.StatusBadRequest, protocol.Failure(fmt.Errorf("failed to read request: %w", err)))
		return
	}
	req, err := protocol.DecodeRequest(body)
	if err != nil {
		s.respond(w, http.StatusBadRequest, protocol.Failure(err))
		return
	}

	s.tab.Lock()
	defer s.tab.Unlock()

	s.logger.Info("Received command.", zap.String("action", string(req.Action)))
	resp := s.runner.Dispatch(r.Context(), req)
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusUnprocessableEntity
	}
	s.respond(w, status, resp)
}

// handleRun executes a full or parts-and-serial run and answers with its report.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respond(w, http.StatusBadRequest, protocol.Failure(fmt.Errorf("invalid run request: %w", err)))
		return
	}

	s.tab.Lock()
	defer s.tab.Unlock()

	var (
		report *workflow.Report
		err    error
	)
	switch req.Kind {
	case "", workflow.KindFull:
		report, err = s.orch.Run(r.Context(), workflow.Input{Values: req.Values, PartNumber: req.PartNumber})
	case workflow.KindPartsAndSerial:
		report, err = s.orch.RunPartsAndSerial(r.Context(), req.PartNumber)
	default:
		s.respond(w, http.StatusBadRequest, protocol.Failure(fmt.Errorf("unknown run kind %q", req.Kind)))
		return
	}
	if report == nil {
		if err == nil {
			err = errors.New("run produced no report")
		}
		s.respond(w, http.StatusInternalServerError, protocol.Failure(err))
		return
	}
	s.recordRun(r, report)

	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	s.respond(w, status, report)
}

func (s *Server) recordRun(r *http.Request, report *workflow.Report) {
	if s.history == nil {
		return
	}
	rec, err := report.Record()
	if err == nil {
		err = s.history.RecordRun(r.Context(), rec)
	}
	if err != nil {
		s.logger.Warn("Failed to record run.", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respond(w, http.StatusServiceUnavailable, protocol.Failure(errNoHistory))
		return
	}
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respond(w, http.StatusBadRequest, protocol.Failure(fmt.Errorf("invalid limit %q", v)))
			return
		}
		limit = n
	}

	runs, err := s.history.Runs(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list runs.", zap.Error(err))
		s.respond(w, http.StatusInternalServerError, protocol.Failure(err))
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, runView{
			ID:         run.ID,
			Kind:       run.Kind,
			OK:         run.OK,
			Status:     run.Status,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Report:     jsoniter.RawMessage(run.Report),
		})
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"runs": out})
}

// respond writes data as JSON with the given status.
func (s *Server) respond(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}
