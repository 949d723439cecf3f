package http

import (
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
	"github.com/Strob0t/missioncontrol/internal/domain/tenant"
)

// CreateToken handles POST /api/v1/tokens. The plaintext token is only
// returned here.
func (h *Handlers) CreateToken(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[apitoken.CreateRequest](w, r)
	if !ok {
		return
	}
	created, err := h.Auth.CreateToken(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// RevokeToken handles DELETE /api/v1/tokens/{id}.
func (h *Handlers) RevokeToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.Auth.RevokeToken(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "token not found")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// GetSettings handles GET /api/v1/settings.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Settings.Get(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings handles PUT /api/v1/settings.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.UpdateRequest](w, r)
	if !ok {
		return
	}
	st, err := h.Settings.Update(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SeedAgents handles POST /api/v1/seed.
func (h *Handlers) SeedAgents(w http.ResponseWriter, r *http.Request) {
	created, err := h.Agents.Seed(r.Context())
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(created))
}
