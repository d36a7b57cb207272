package api

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shaiso/LocalAutomator/internal/engine"
)

// ListFlows возвращает файлы flow из каталога flows.
// Файлы, которые не удалось прочитать, попадают в список с полем error.
// GET /api/v1/flows
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.flowsDir)
	if err != nil && !os.IsNotExist(err) {
		InternalError(w, h.logger, err)
		return
	}

	result := make([]FlowSummary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := engine.FormatFromPath(e.Name()); err != nil {
			continue
		}

		summary := FlowSummary{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			File: e.Name(),
		}
		flow, err := engine.LoadFlow(filepath.Join(h.flowsDir, e.Name()))
		if err != nil {
			summary.Error = err.Error()
		} else {
			summary.Description = flow.Description
			summary.Steps = len(flow.Actions)
		}
		result = append(result, summary)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].File < result[j].File })
	List(w, result, len(result))
}

// GetFlow возвращает определение flow.
// GET /api/v1/flows/{name}
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	path, err := h.resolveFlow(r.PathValue("name"))
	if HandleError(w, h.logger, err, "flow not found") {
		return
	}

	flow, err := engine.LoadFlow(path)
	if err != nil {
		InvalidState(w, err.Error())
		return
	}

	Success(w, flow)
}

// ListActions возвращает описания зарегистрированных действий.
// GET /api/v1/actions
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	specs := h.dispatcher.Describe()
	List(w, specs, len(specs))
}
