package api

import (
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/agenda"
	"github.com/consultorio/backend/internal/automations"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/whatsapp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListAutomations semeia o catálogo padrão na primeira leitura do terapeuta.
func (h *Handler) ListAutomations(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	defaults, err := automations.Defaults()
	if err != nil {
		h.serverError(w, r, err, "automation_defaults")
		return
	}
	if err := repo.EnsureAutomations(r.Context(), h.DB, tid, defaults); err != nil {
		h.serverError(w, r, err, "ensure_automations")
		return
	}
	list, err := repo.ListAutomations(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "list_automations")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type AutomationPatchRequest struct {
	Active   *bool   `json:"active"`
	Template *string `json:"template"`
}

func (h *Handler) PatchAutomation(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AutomationPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil && req.Template == nil {
		http.Error(w, `{"error":"nothing to update"}`, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateAutomation(r.Context(), h.DB, tid, id, repo.AutomationPatch{Active: req.Active, Template: req.Template}); err != nil {
		h.repoError(w, r, err, "patch_automation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleAutomation(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	active, err := repo.ToggleAutomation(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "toggle_automation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

// RunReminders dispara o job de lembretes só para as sessões do terapeuta logado.
func (h *Handler) RunReminders(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	if h.Reminder == nil {
		http.Error(w, `{"error":"reminders not configured"}`, http.StatusServiceUnavailable)
		return
	}
	res, err := h.Reminder.Run(r.Context(), &tid)
	if err != nil {
		h.serverError(w, r, err, "run_reminders")
		return
	}
	h.log().Info("lembretes enviados", zap.String("therapist_id", tid.String()), zap.Int("sent", res.Sent), zap.Int("skipped", res.Skipped))
	writeJSON(w, http.StatusOK, res)
}

type PreviewRequest struct {
	Kind          string  `json:"kind"`
	PatientID     string  `json:"patient_id"`
	AppointmentID *string `json:"appointment_id"`
	Template      *string `json:"template"`
}

// PreviewAutomation renderiza a mensagem de um kind para um paciente.
// O template do corpo tem prioridade sobre o salvo.
func (h *Handler) PreviewAutomation(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !oneOf(req.Kind, automations.KindReminder, automations.KindPayment, automations.KindFollowUp, automations.KindBirthday, automations.KindWelcome) {
		http.Error(w, `{"error":"invalid kind"}`, http.StatusBadRequest)
		return
	}
	pid, err := uuid.Parse(strings.TrimSpace(req.PatientID))
	if err != nil {
		http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
		return
	}
	p, err := repo.PatientByID(r.Context(), h.DB, tid, pid)
	if err != nil {
		h.repoError(w, r, err, "preview_automation")
		return
	}
	vars := automations.Vars{Name: p.Name, Amount: p.SessionValueCents}
	if req.Kind == automations.KindPayment {
		vars.PixKey = h.pixKey(r, tid)
	}
	if req.AppointmentID != nil {
		aid, err := uuid.Parse(*req.AppointmentID)
		if err != nil {
			http.Error(w, `{"error":"invalid appointment_id"}`, http.StatusBadRequest)
			return
		}
		a, err := repo.AppointmentByID(r.Context(), h.DB, tid, aid)
		if err != nil {
			h.repoError(w, r, err, "preview_automation")
			return
		}
		vars.DateBR, vars.HHMM = agenda.FormatDateBR(a.Date), repo.NormalizeHHMM(a.Time)
		if a.MeetLink != nil {
			vars.MeetLink = *a.MeetLink
		}
	}
	tpl := ""
	if req.Template != nil {
		tpl = *req.Template
	} else if a, err := repo.AutomationByKind(r.Context(), h.DB, tid, req.Kind); err == nil {
		tpl = a.Template
	} else if !repo.IsNotFound(err) {
		h.serverError(w, r, err, "preview_automation")
		return
	}
	msg, err := automations.Message(req.Kind, tpl, vars)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := map[string]string{"message": msg}
	if p.Phone != nil && *p.Phone != "" {
		out["link"] = whatsapp.Link(*p.Phone, msg)
	}
	writeJSON(w, http.StatusOK, out)
}
