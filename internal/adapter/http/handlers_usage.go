package http

import (
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/domain/usage"
	"github.com/Strob0t/missioncontrol/internal/service"
)

// UsageToday handles GET /api/v1/usage/today.
func (h *Handlers) UsageToday(w http.ResponseWriter, r *http.Request) {
	today, err := h.Usage.Today(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, today)
}

// UsageDaily handles GET /api/v1/usage/daily?days=N.
func (h *Handlers) UsageDaily(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Usage.Daily(r.Context(), queryInt(r, "days"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

// UsageHourly handles GET /api/v1/usage/hourly?hours=N.
func (h *Handlers) UsageHourly(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Usage.Hourly(r.Context(), queryInt(r, "hours"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

// ReconcileUsage handles POST /api/v1/usage/reconcile?granularity=1d|1h.
func (h *Handlers) ReconcileUsage(w http.ResponseWriter, r *http.Request) {
	if h.Reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "usage reporting is not configured")
		return
	}
	var (
		res service.ReconcileResult
		err error
	)
	switch usage.Granularity(r.URL.Query().Get("granularity")) {
	case usage.Hourly:
		res, err = h.Reconciler.ReconcileHourly(r.Context())
	case usage.Daily, "":
		res, err = h.Reconciler.ReconcileDaily(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "granularity must be 1d or 1h")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
