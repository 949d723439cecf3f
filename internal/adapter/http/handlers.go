package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/domain/runevent"
	"github.com/Strob0t/missioncontrol/internal/port/messagequeue"
	"github.com/Strob0t/missioncontrol/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Events     *service.EventProcessor
	Dispatch   *service.DispatchService
	Tasks      *service.TaskService
	Agents     *service.AgentService
	Messages   *service.MessageService
	Documents  *service.DocumentService
	Activities *service.ActivityService
	Usage      *service.UsageService
	Reconciler *service.UsageReconciler // nil when no billing key is configured
	Auth       *service.AuthService
	Settings   *service.SettingsService
}

// HandleRunEvent handles POST /openclaw/event.
func (h *Handlers) HandleRunEvent(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := messagequeue.Validate(messagequeue.SubjectRunEvent, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var ev runevent.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Events.Process(r.Context(), &ev); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleDispatch handles POST /dispatch.
func (h *Handlers) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := messagequeue.Validate(messagequeue.SchemaDispatchRequest, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req service.DispatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.Dispatch.Dispatch(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("Agent %q not found", req.Agent))
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, TaskID: t.ID})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
