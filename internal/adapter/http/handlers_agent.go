package http

import (
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/domain/agent"
)

type agentStatusRequest struct {
	Status agent.Status `json:"status"`
}

// UpdateAgent handles PATCH /api/v1/agents/{id}.
func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.UpdateRequest](w, r)
	if !ok {
		return
	}
	a, err := h.Agents.Update(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateAgentStatus handles PUT /api/v1/agents/{id}/status.
func (h *Handlers) UpdateAgentStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agentStatusRequest](w, r)
	if !ok {
		return
	}
	if err := h.Agents.UpdateStatus(r.Context(), urlParam(r, "id"), req.Status); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
