package http

import (
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
)

type statusRequest struct {
	Status  task.Status `json:"status"`
	AgentID string      `json:"agent_id"`
}

type assigneesRequest struct {
	AssigneeIDs []string `json:"assignee_ids"`
	AgentID     string   `json:"agent_id"`
}

type taskUpdateRequest struct {
	task.UpdateRequest
	AgentID string `json:"agent_id"`
}

type actorRequest struct {
	AgentID string `json:"agent_id"`
}

type linkRunRequest struct {
	RunID string `json:"run_id"`
}

// UpdateTaskStatus handles PUT /api/v1/tasks/{id}/status.
func (h *Handlers) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[statusRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.UpdateStatus(r.Context(), urlParam(r, "id"), req.Status, req.AgentID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTaskAssignees handles PUT /api/v1/tasks/{id}/assignees.
func (h *Handlers) UpdateTaskAssignees(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[assigneesRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.UpdateAssignees(r.Context(), urlParam(r, "id"), req.AssigneeIDs, req.AgentID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTask handles PATCH /api/v1/tasks/{id}.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[taskUpdateRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Update(r.Context(), urlParam(r, "id"), req.UpdateRequest, req.AgentID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ArchiveTask handles POST /api/v1/tasks/{id}/archive.
func (h *Handlers) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[actorRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Archive(r.Context(), urlParam(r, "id"), req.AgentID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// LinkTaskRun handles POST /api/v1/tasks/{id}/run.
func (h *Handlers) LinkTaskRun(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[linkRunRequest](w, r)
	if !ok {
		return
	}
	if err := h.Tasks.LinkRun(r.Context(), urlParam(r, "id"), req.RunID); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// SendMessage handles POST /api/v1/tasks/{id}/messages.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[message.CreateRequest](w, r)
	if !ok {
		return
	}
	req.TaskID = urlParam(r, "id")
	m, err := h.Messages.Send(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
