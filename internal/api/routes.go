package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Flows
	mux.Handle("GET /api/v1/flows", chain(http.HandlerFunc(h.ListFlows)))
	mux.Handle("GET /api/v1/flows/{name}", chain(http.HandlerFunc(h.GetFlow)))

	// Actions
	mux.Handle("GET /api/v1/actions", chain(http.HandlerFunc(h.ListActions)))

	// Runs
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("POST /api/v1/runs", chain(http.HandlerFunc(h.CreateRun)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))

	// Triggers
	mux.Handle("GET /api/v1/triggers", chain(http.HandlerFunc(h.ListTriggers)))
	mux.Handle("POST /api/v1/triggers", chain(http.HandlerFunc(h.CreateTrigger)))
	mux.Handle("GET /api/v1/triggers/{id}", chain(http.HandlerFunc(h.GetTrigger)))
	mux.Handle("DELETE /api/v1/triggers/{id}", chain(http.HandlerFunc(h.DeleteTrigger)))
	mux.Handle("PUT /api/v1/triggers/{id}/enabled", chain(http.HandlerFunc(h.SetTriggerEnabled)))
}
