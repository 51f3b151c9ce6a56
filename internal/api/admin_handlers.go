package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListTherapists: painel admin. Filtros: status, q (nome ou e-mail).
func (h *Handler) ListTherapists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.ToUpper(strings.TrimSpace(q.Get("status")))
	if status != "" && !oneOf(status, repo.TherapistActive, repo.TherapistSuspended) {
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	}
	limit, offset := ParseLimitOffset(r)
	list, err := repo.ListTherapists(r.Context(), h.Pool, status, strings.TrimSpace(q.Get("q")), limit, offset)
	if err != nil {
		h.serverError(w, r, err, "admin_list_therapists")
		return
	}
	if list == nil {
		list = []repo.TherapistRow{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"therapists": list, "limit": limit, "offset": offset})
}

type TherapistStatusRequest struct {
	Status string `json:"status"`
}

// PatchTherapistStatus suspende ou reativa uma conta. Conta suspensa não consegue logar.
func (h *Handler) PatchTherapistStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TherapistStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !oneOf(status, repo.TherapistActive, repo.TherapistSuspended) {
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	}
	if c := auth.ClaimsFrom(r.Context()); c != nil && c.UserID == id.String() && status == repo.TherapistSuspended {
		http.Error(w, `{"error":"cannot suspend yourself"}`, http.StatusBadRequest)
		return
	}
	if err := repo.SetTherapistStatus(r.Context(), h.Pool, id, status); err != nil {
		h.repoError(w, r, err, "admin_therapist_status")
		return
	}
	actor := adminActor(r)
	h.audit(r, repo.AuditEvent{
		Action: "THERAPIST_STATUS_CHANGED", ActorType: repo.ActorTherapist, ActorID: actor, TherapistID: &id,
		Metadata: map[string]string{"status": status},
	})
	w.WriteHeader(http.StatusNoContent)
}

// AdminTimeline une auditoria e acessos a prontuário. Filtros: from, to
// (RFC3339 ou YYYY-MM-DD; "to" inclui o dia), therapist_id, patient_id,
// request_id, severity, source, resource_type.
func (h *Handler) AdminTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repo.TimelineFilter{
		RequestID:    strings.TrimSpace(q.Get("request_id")),
		Severity:     strings.ToUpper(strings.TrimSpace(q.Get("severity"))),
		Source:       strings.ToUpper(strings.TrimSpace(q.Get("source"))),
		ResourceType: strings.TrimSpace(q.Get("resource_type")),
	}
	f.Limit, f.Offset = ParseLimitOffset(r)
	var bad string
	f.From, bad = parseTimeParam(q.Get("from"), false, "from", bad)
	f.To, bad = parseTimeParam(q.Get("to"), true, "to", bad)
	f.TherapistID, bad = parseUUIDParam(q.Get("therapist_id"), "therapist_id", bad)
	f.PatientID, bad = parseUUIDParam(q.Get("patient_id"), "patient_id", bad)
	if bad != "" {
		jsonError(w, "invalid "+bad, http.StatusBadRequest)
		return
	}
	list, err := repo.ListTimeline(r.Context(), h.Pool, f)
	if err != nil {
		h.serverError(w, r, err, "admin_timeline")
		return
	}
	if list == nil {
		list = []repo.TimelineRow{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": list, "limit": f.Limit, "offset": f.Offset})
}

// AdminTriggerReminders roda o job de lembretes no processo da API.
// therapist_id opcional restringe a um terapeuta.
func (h *Handler) AdminTriggerReminders(w http.ResponseWriter, r *http.Request) {
	if h.Reminder == nil {
		http.Error(w, `{"error":"reminder not configured"}`, http.StatusServiceUnavailable)
		return
	}
	tid, bad := parseUUIDParam(r.URL.Query().Get("therapist_id"), "therapist_id", "")
	if bad != "" {
		jsonError(w, "invalid therapist_id", http.StatusBadRequest)
		return
	}
	res, err := h.Reminder.Run(r.Context(), tid)
	if err != nil {
		h.serverError(w, r, err, "admin_trigger_reminders")
		return
	}
	h.log().Info("reminders disparados pelo admin", zap.Int("sent", res.Sent), zap.Int("skipped", res.Skipped))
	writeJSON(w, http.StatusOK, res)
}

func adminActor(r *http.Request) *uuid.UUID {
	c := auth.ClaimsFrom(r.Context())
	if c == nil {
		return nil
	}
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return nil
	}
	return &id
}

// parseTimeParam devolve nil para vazio; bad acumula o primeiro parâmetro inválido.
func parseTimeParam(s string, endOfDay bool, name, bad string) (*time.Time, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, bad
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, bad
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		if bad == "" {
			bad = name
		}
		return nil, bad
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, bad
}

func parseUUIDParam(s, name, bad string) (*uuid.UUID, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, bad
	}
	id, err := uuid.Parse(s)
	if err != nil {
		if bad == "" {
			bad = name
		}
		return nil, bad
	}
	return &id, bad
}
