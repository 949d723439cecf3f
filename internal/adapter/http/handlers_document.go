package http

import (
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/domain/document"
	"github.com/Strob0t/missioncontrol/internal/service"
)

// ListDocuments handles GET /api/v1/documents?type=&agent_id=&task_id=.
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := h.Documents.List(r.Context(), document.Filter{
		Type:    document.Type(q.Get("type")),
		AgentID: q.Get("agent_id"),
		TaskID:  q.Get("task_id"),
	})
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(docs))
}

// ListActivities handles GET /api/v1/activities?agent_id=&task_id=&type=&limit=.
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acts, err := h.Activities.Feed(r.Context(), service.FeedQuery{
		AgentID: q.Get("agent_id"),
		TaskID:  q.Get("task_id"),
		Type:    q.Get("type"),
		Limit:   queryInt(r, "limit"),
	})
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(acts))
}
