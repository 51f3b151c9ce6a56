package api

import (
	"net/http"

	"github.com/consultorio/backend/internal/insights"
	"github.com/consultorio/backend/internal/repo"
)

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	if h.Insights == nil {
		http.Error(w, `{"error":"insights not configured"}`, http.StatusServiceUnavailable)
		return
	}
	d, err := h.Insights.Dashboard(r.Context(), tid, h.now())
	if err != nil {
		h.serverError(w, r, err, "dashboard")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	if h.Insights == nil {
		http.Error(w, `{"error":"insights not configured"}`, http.StatusServiceUnavailable)
		return
	}
	list, err := h.Insights.Suggestions(r.Context(), tid, h.now())
	if err != nil {
		h.serverError(w, r, err, "suggestions")
		return
	}
	if list == nil {
		list = []insights.Suggestion{}
	}
	writeJSON(w, http.StatusOK, list)
}

// AuditTimeline lista os eventos de auditoria do próprio terapeuta.
func (h *Handler) AuditTimeline(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	limit, offset := ParseLimitOffset(r)
	list, err := repo.ListAuditEvents(r.Context(), h.Pool, tid, limit, offset)
	if err != nil {
		h.serverError(w, r, err, "audit_timeline")
		return
	}
	if list == nil {
		list = []repo.AuditRow{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": list, "limit": limit, "offset": offset})
}
