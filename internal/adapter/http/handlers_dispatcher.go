package http

import (
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/domain/agent"
)

type dispatchErrorRequest struct {
	Error string `json:"error"`
}

type containerStateRequest struct {
	State agent.ContainerState `json:"state"`
}

// MarkDispatched handles POST /api/v1/dispatcher/tasks/{id}/dispatched.
func (h *Handlers) MarkDispatched(w http.ResponseWriter, r *http.Request) {
	if err := h.Dispatch.MarkDispatched(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// ReportDispatchError handles POST /api/v1/dispatcher/tasks/{id}/error.
func (h *Handlers) ReportDispatchError(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[dispatchErrorRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Error, "error") {
		return
	}
	if err := h.Dispatch.ReportError(r.Context(), urlParam(r, "id"), req.Error); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// UpdateContainerState handles PUT /api/v1/dispatcher/agents/{name}/container.
func (h *Handlers) UpdateContainerState(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[containerStateRequest](w, r)
	if !ok {
		return
	}
	if err := h.Dispatch.UpdateContainerState(r.Context(), urlParam(r, "name"), req.State); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// requireField writes a 400 error and returns false when value is empty.
func requireField(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		writeError(w, http.StatusBadRequest, fieldName+" is required")
		return false
	}
	return true
}
