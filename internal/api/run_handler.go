package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/repo"
	"github.com/shaiso/LocalAutomator/internal/runner"
)

// ListRuns возвращает историю runs с фильтрацией.
// GET /api/v1/runs?flow=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.RunFilter{
		FlowName: q.Get("flow"),
		Status:   domain.RunStatus(q.Get("status")),
		Limit:    parseInt(q.Get("limit"), 50),
		Offset:   parseInt(q.Get("offset"), 0),
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run, false)
	}

	List(w, result, len(result))
}

// CreateRun запускает flow в фоне.
// POST /api/v1/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Flow == "" {
		BadRequest(w, "flow is required")
		return
	}

	runID, err := h.launcher.Start(req.Flow, runner.Options{
		Trigger: domain.TriggerRemote,
		Vars:    req.Vars,
	})
	if HandleError(w, h.logger, err, "flow not found") {
		return
	}

	h.logger.Info("run requested over http", "flow", req.Flow, "run_id", runID)
	Accepted(w, CreateRunResponse{RunID: runID, Flow: req.Flow})
}

// GetRun возвращает run по ID вместе с шагами.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run, true))
}

// parseInt парсит строку в int со значением по умолчанию.
func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
