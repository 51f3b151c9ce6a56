package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/agenda"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/whatsapp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	apptStatuses = []string{repo.ApptPendente, repo.ApptConfirmado, repo.ApptRealizado, repo.ApptCancelado, repo.ApptFaltou}
	apptTypes    = []string{repo.ApptPresencial, repo.ApptOnline}
)

type AppointmentRequest struct {
	PatientID *string `json:"patient_id"`
	Date      *string `json:"date"`
	Time      *string `json:"time"`
	Duration  *int    `json:"duration"`
	Type      *string `json:"type"`
	Status    *string `json:"status"`
	MeetLink  *string `json:"meet_link"`
	Notes     *string `json:"notes"`
}

func (req *AppointmentRequest) apply(in *repo.AppointmentInput) string {
	if req.PatientID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*req.PatientID))
		if err != nil {
			return "invalid patient_id"
		}
		in.PatientID = id
	}
	if in.PatientID == uuid.Nil {
		return "patient_id required"
	}
	if req.Date != nil {
		in.Date = strings.TrimSpace(*req.Date)
	}
	if ValidateDate(in.Date) != nil {
		return "invalid date"
	}
	if req.Time != nil {
		in.Time = repo.NormalizeHHMM(*req.Time)
		if in.Time == "" {
			return "invalid time"
		}
	}
	if in.Time == "" {
		return "time required"
	}
	if req.Duration != nil {
		in.Duration = *req.Duration
	}
	if in.Duration <= 0 || in.Duration > 24*60 {
		return "invalid duration"
	}
	if req.Type != nil {
		if !oneOf(*req.Type, apptTypes...) {
			return "invalid type"
		}
		in.Type = *req.Type
	}
	if req.Status != nil {
		if !oneOf(*req.Status, apptStatuses...) {
			return "invalid status"
		}
		in.Status = *req.Status
	}
	if req.MeetLink != nil {
		in.MeetLink = optString(req.MeetLink)
	}
	if req.Notes != nil {
		in.Notes = optString(req.Notes)
	}
	return ""
}

// checkConflict responde 409 quando o horário sobrepõe outra sessão não cancelada.
func (h *Handler) checkConflict(w http.ResponseWriter, r *http.Request, tid uuid.UUID, in repo.AppointmentInput, exclude *uuid.UUID) bool {
	if in.Status == repo.ApptCancelado {
		return true
	}
	slots, err := repo.ActiveSlotsOnDate(r.Context(), h.DB, tid, in.Date, exclude)
	if err != nil {
		h.serverError(w, r, err, "appointment_conflict")
		return false
	}
	if c := agenda.FindConflict(slots, in.Time, in.Duration); c != nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":       agenda.ErrConflict.Error(),
			"conflict_id": c.ID.String(),
			"conflict_at": repo.NormalizeHHMM(c.Time),
		})
		return false
	}
	return true
}

// ensureMeetLink gera o link de sessões online que chegam sem um.
func (h *Handler) ensureMeetLink(r *http.Request, tid uuid.UUID, in *repo.AppointmentInput) {
	if in.Type != repo.ApptOnline || in.MeetLink != nil || h.Meet == nil {
		return
	}
	name := ""
	if p, err := repo.PatientByID(r.Context(), h.DB, tid, in.PatientID); err == nil {
		name = p.Name
	}
	ev, err := h.Meet.Create(name, in.Date, in.Time)
	if err != nil {
		h.log().Warn("meet link não gerado", zap.Error(err))
		return
	}
	in.MeetLink = &ev.MeetLink
}

// ListAppointments: from/to (YYYY-MM-DD); sem eles, a semana atual (seg–sáb).
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	from, to := agenda.WeekRange(h.localNow())
	if v := r.URL.Query().Get("from"); v != "" {
		from = v
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to = v
	}
	if ValidateDate(from) != nil || ValidateDate(to) != nil || from > to {
		http.Error(w, `{"error":"invalid range"}`, http.StatusBadRequest)
		return
	}
	list, err := repo.ListAppointments(r.Context(), h.DB, tid, from, to)
	if err != nil {
		h.serverError(w, r, err, "list_appointments")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) PatientAppointments(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := repo.ListAppointmentsByPatient(r.Context(), h.DB, tid, pid)
	if err != nil {
		h.serverError(w, r, err, "patient_appointments")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) WeekAppointments(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	ref := h.localNow()
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, h.loc())
		if err != nil {
			http.Error(w, `{"error":"invalid start"}`, http.StatusBadRequest)
			return
		}
		ref = t
	}
	from, to := agenda.WeekRange(ref)
	list, err := repo.ListAppointments(r.Context(), h.DB, tid, from, to)
	if err != nil {
		h.serverError(w, r, err, "week_appointments")
		return
	}
	writeJSON(w, http.StatusOK, agenda.BuildWeek(ref, list))
}

// AvailableSlots lista as horas cheias livres de date para uma sessão de duration minutos.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if ValidateDate(date) != nil {
		http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
		return
	}
	dur := agenda.DefaultDuration
	if v := r.URL.Query().Get("duration"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"invalid duration"}`, http.StatusBadRequest)
			return
		}
		dur = n
	}
	slots, err := repo.ActiveSlotsOnDate(r.Context(), h.DB, tid, date, nil)
	if err != nil {
		h.serverError(w, r, err, "available_slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"date": date, "duration": dur, "slots": agenda.AvailableSlots(slots, dur)})
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req AppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.AppointmentInput{Duration: agenda.DefaultDuration, Type: repo.ApptPresencial, Status: repo.ApptPendente}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if !h.checkConflict(w, r, tid, in, nil) {
		return
	}
	h.ensureMeetLink(r, tid, &in)
	id, err := repo.CreateAppointment(r.Context(), h.DB, tid, in)
	if err != nil {
		h.repoError(w, r, err, "create_appointment")
		return
	}
	h.invalidate(r.Context(), tid)
	a, err := repo.AppointmentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_appointment")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.AppointmentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_appointment")
		return
	}
	in := repo.InputFromAppointment(cur)
	in.Time = repo.NormalizeHHMM(in.Time)
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if !h.checkConflict(w, r, tid, in, &id) {
		return
	}
	h.ensureMeetLink(r, tid, &in)
	if err := repo.UpdateAppointment(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_appointment")
		return
	}
	h.invalidate(r.Context(), tid)
	a, err := repo.AppointmentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_appointment")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.DeleteAppointment(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_appointment")
		return
	}
	h.invalidate(r.Context(), tid)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkReminderSent(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.MarkReminderSent(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "reminder_sent")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reminder_sent": true})
}

// ReminderLink devolve o wa.me com a mensagem de lembrete da sessão.
func (h *Handler) ReminderLink(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := repo.AppointmentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "reminder_link")
		return
	}
	if a.Patient.Phone == nil || strings.TrimSpace(*a.Patient.Phone) == "" {
		http.Error(w, `{"error":"paciente sem telefone"}`, http.StatusBadRequest)
		return
	}
	meetLink := ""
	if a.Type == repo.ApptOnline && a.MeetLink != nil {
		meetLink = *a.MeetLink
	}
	msg := whatsapp.ReminderMessage(a.Patient.Name, agenda.FormatDateBR(a.Date), repo.NormalizeHHMM(a.Time), meetLink)
	writeJSON(w, http.StatusOK, map[string]string{"message": msg, "link": whatsapp.Link(*a.Patient.Phone, msg)})
}

// GetConfirmation é público: o paciente abre o link recebido no lembrete.
func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		http.Error(w, `{"error":"token required"}`, http.StatusBadRequest)
		return
	}
	info, err := repo.AppointmentByConfirmToken(r.Context(), h.DB, token)
	if err != nil {
		if repo.IsNotFound(err) {
			http.Error(w, `{"error":"link inválido ou expirado"}`, http.StatusNotFound)
			return
		}
		h.serverError(w, r, err, "get_confirmation")
		return
	}
	info.Time = repo.NormalizeHHMM(info.Time)
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		http.Error(w, `{"error":"token required"}`, http.StatusBadRequest)
		return
	}
	changed, err := repo.ConfirmAppointmentByToken(r.Context(), h.DB, token)
	if err != nil {
		if repo.IsNotFound(err) {
			http.Error(w, `{"error":"link inválido ou expirado"}`, http.StatusNotFound)
			return
		}
		h.serverError(w, r, err, "confirm")
		return
	}
	if !changed {
		http.Error(w, `{"error":"sessão não pode mais ser confirmada"}`, http.StatusConflict)
		return
	}
	h.audit(r, repo.AuditEvent{Action: "APPOINTMENT_CONFIRMED", ActorType: repo.ActorPatient, Source: "USER"})
	writeJSON(w, http.StatusOK, map[string]string{"status": repo.ApptConfirmado})
}
