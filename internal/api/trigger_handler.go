package api

import (
	"encoding/json"
	"net/http"
)

// ListTriggers возвращает все триггеры.
// GET /api/v1/triggers
func (h *Handler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	triggers := h.triggers.List()
	List(w, triggers, len(triggers))
}

// CreateTrigger добавляет триггер.
// POST /api/v1/triggers
func (h *Handler) CreateTrigger(w http.ResponseWriter, r *http.Request) {
	var req CreateTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Flow == "" {
		BadRequest(w, "flow is required")
		return
	}

	flowPath, err := h.resolveFlow(req.Flow)
	if HandleError(w, h.logger, err, "flow not found") {
		return
	}

	created, err := h.triggers.Add(req.ToDomain(flowPath))
	if HandleError(w, h.logger, err, "") {
		return
	}

	Created(w, created)
}

// GetTrigger возвращает триггер по ID.
// GET /api/v1/triggers/{id}
func (h *Handler) GetTrigger(w http.ResponseWriter, r *http.Request) {
	t, err := h.triggers.Get(r.PathValue("id"))
	if HandleError(w, h.logger, err, "trigger not found") {
		return
	}

	Success(w, t)
}

// DeleteTrigger удаляет триггер.
// DELETE /api/v1/triggers/{id}
func (h *Handler) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	err := h.triggers.Remove(r.PathValue("id"))
	if HandleError(w, h.logger, err, "trigger not found") {
		return
	}

	NoContent(w)
}

// SetTriggerEnabled включает или выключает триггер.
// PUT /api/v1/triggers/{id}/enabled
func (h *Handler) SetTriggerEnabled(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if HandleError(w, h.logger, h.triggers.SetEnabled(id, req.Enabled), "trigger not found") {
		return
	}

	t, err := h.triggers.Get(id)
	if HandleError(w, h.logger, err, "trigger not found") {
		return
	}

	Success(w, t)
}
