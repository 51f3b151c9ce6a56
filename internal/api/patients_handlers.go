package api

import (
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/agenda"
	"github.com/consultorio/backend/internal/crypto"
	"github.com/consultorio/backend/internal/money"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/whatsapp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	patientStatuses   = []string{repo.PatientAtivo, repo.PatientInativo, repo.PatientPendente, repo.PatientListaEspera}
	paymentStatuses   = []string{"Em dia", "Pendente", "Atrasado"}
	patientCategories = []string{"Particular", "Convênio", "Reembolso"}
)

// PatientRequest serve para criar e para PATCH: campo ausente não altera.
type PatientRequest struct {
	Name               *string      `json:"name"`
	Email              *string      `json:"email"`
	Phone              *string      `json:"phone"`
	CPF                *string      `json:"cpf"`
	BirthDate          *string      `json:"birth_date"`
	Address            *string      `json:"address"`
	EmergencyContact   *string      `json:"emergency_contact"`
	EmergencyPhone     *string      `json:"emergency_phone"`
	Notes              *string      `json:"notes"`
	Status             *string      `json:"status"`
	PaymentStatus      *string      `json:"payment_status"`
	SessionValue       *money.Cents `json:"session_value"`
	Category           *string      `json:"category"`
	PaymentMethod      *string      `json:"payment_method"`
	AutomaticReminders *bool        `json:"automatic_reminders"`
	ReminderTime       *string      `json:"reminder_time"`
}

// apply valida e copia os campos presentes; devolve a mensagem de erro para o cliente.
func (req *PatientRequest) apply(in *repo.PatientInput, cipher *crypto.FieldCipher) string {
	if req.Name != nil {
		in.Name = strings.TrimSpace(*req.Name)
	}
	if in.Name == "" {
		return "name required"
	}
	if req.Email != nil {
		in.Email = optString(req.Email)
		if in.Email != nil && ValidateEmailRegex(*in.Email) != nil {
			return "invalid email"
		}
	}
	if req.Phone != nil {
		in.Phone = optString(req.Phone)
		if in.Phone != nil && !validPhone(*in.Phone) {
			return "invalid phone"
		}
	}
	if req.CPF != nil {
		norm := crypto.NormalizeCPF(*req.CPF)
		if norm == "" {
			in.CPFEncrypted, in.CPFHash = nil, nil
		} else {
			if !crypto.ValidCPF(norm) {
				return "invalid cpf"
			}
			if cipher == nil {
				return "cpf storage unavailable"
			}
			sealed, err := cipher.Seal(norm)
			if err != nil {
				return "cpf storage unavailable"
			}
			hash := crypto.CPFHash(norm)
			in.CPFEncrypted, in.CPFHash = &sealed, &hash
		}
	}
	if req.BirthDate != nil {
		in.BirthDate = optString(req.BirthDate)
		if in.BirthDate != nil && ValidateDate(*in.BirthDate) != nil {
			return "invalid birth_date"
		}
	}
	if req.Address != nil {
		in.Address = optString(req.Address)
	}
	if req.EmergencyContact != nil {
		in.EmergencyContact = optString(req.EmergencyContact)
	}
	if req.EmergencyPhone != nil {
		in.EmergencyPhone = optString(req.EmergencyPhone)
	}
	if req.Notes != nil {
		in.Notes = optString(req.Notes)
	}
	if req.Status != nil {
		if !oneOf(*req.Status, patientStatuses...) {
			return "invalid status"
		}
		in.Status = *req.Status
	}
	if req.PaymentStatus != nil {
		if !oneOf(*req.PaymentStatus, paymentStatuses...) {
			return "invalid payment_status"
		}
		in.PaymentStatus = *req.PaymentStatus
	}
	if req.SessionValue != nil {
		if *req.SessionValue < 0 {
			return "invalid session_value"
		}
		in.SessionValueCents = *req.SessionValue
	}
	if req.Category != nil {
		if !oneOf(*req.Category, patientCategories...) {
			return "invalid category"
		}
		in.Category = *req.Category
	}
	if req.PaymentMethod != nil {
		in.PaymentMethod = optString(req.PaymentMethod)
	}
	if req.AutomaticReminders != nil {
		in.AutomaticReminders = *req.AutomaticReminders
	}
	if req.ReminderTime != nil {
		in.ReminderTime = optString(req.ReminderTime)
	}
	return ""
}

type patientResponse struct {
	*repo.Patient
	CPF *string `json:"cpf"`
}

func (h *Handler) patientOut(p *repo.Patient) patientResponse {
	out := patientResponse{Patient: p}
	if p.CPFEncrypted != nil && h.Cipher != nil {
		if plain, err := h.Cipher.Open(*p.CPFEncrypted); err == nil {
			f := crypto.FormatCPF(plain)
			out.CPF = &f
		} else {
			h.log().Warn("cpf não decifrado", zap.String("patient_id", p.ID.String()), zap.Error(err))
		}
	}
	return out
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	limit, offset := ParseLimitOffset(r)
	f := repo.PatientFilter{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  limit,
		Offset: offset,
	}
	total, err := repo.CountPatients(r.Context(), h.DB, tid, f)
	if err != nil {
		h.serverError(w, r, err, "list_patients")
		return
	}
	list, err := repo.ListPatients(r.Context(), h.DB, tid, f)
	if err != nil {
		h.serverError(w, r, err, "list_patients")
		return
	}
	out := make([]patientResponse, len(list))
	for i := range list {
		out[i] = h.patientOut(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": out,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := repo.PatientByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "get_patient")
		return
	}
	writeJSON(w, http.StatusOK, h.patientOut(p))
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req PatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.PatientInput{
		Status: repo.PatientAtivo, PaymentStatus: "Em dia", Category: "Particular", AutomaticReminders: true,
	}
	if msg := req.apply(&in, h.Cipher); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	id, err := repo.CreatePatient(r.Context(), h.DB, tid, in)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			http.Error(w, `{"error":"cpf já cadastrado"}`, http.StatusConflict)
			return
		}
		h.repoError(w, r, err, "create_patient")
		return
	}
	h.invalidate(r.Context(), tid)
	h.audit(r, repo.AuditEvent{Action: "PATIENT_CREATED", ActorType: repo.ActorTherapist, ActorID: &tid, TherapistID: &tid, PatientID: &id})
	p, err := repo.PatientByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_patient")
		return
	}
	writeJSON(w, http.StatusCreated, h.patientOut(p))
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req PatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.PatientByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_patient")
		return
	}
	in := repo.InputFromPatient(cur)
	if msg := req.apply(&in, h.Cipher); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := repo.UpdatePatient(r.Context(), h.DB, tid, id, in); err != nil {
		if repo.IsUniqueViolation(err) {
			http.Error(w, `{"error":"cpf já cadastrado"}`, http.StatusConflict)
			return
		}
		h.repoError(w, r, err, "update_patient")
		return
	}
	h.invalidate(r.Context(), tid)
	h.audit(r, repo.AuditEvent{Action: "PATIENT_UPDATED", ActorType: repo.ActorTherapist, ActorID: &tid, TherapistID: &tid, PatientID: &id})
	p, err := repo.PatientByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_patient")
		return
	}
	writeJSON(w, http.StatusOK, h.patientOut(p))
}

// DeletePatient remove agenda e prontuário junto; transações ficam sem paciente.
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.DeletePatient(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_patient")
		return
	}
	h.invalidate(r.Context(), tid)
	h.audit(r, repo.AuditEvent{Action: "PATIENT_DELETED", ActorType: repo.ActorTherapist, ActorID: &tid, TherapistID: &tid, PatientID: &id, Severity: "WARN"})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PatientSummary(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := repo.PatientByID(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "patient_summary")
		return
	}
	s, err := repo.PatientSummaryByID(r.Context(), h.DB, tid, id, h.today())
	if err != nil {
		h.serverError(w, r, err, "patient_summary")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type birthdayResponse struct {
	agenda.Birthday
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

// Birthdays: ativos com aniversário de hoje até 7 dias, no máximo 5.
func (h *Handler) Birthdays(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	rows, err := repo.ActivePatientsWithBirthDate(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "birthdays")
		return
	}
	list := agenda.UpcomingBirthdays(rows, h.localNow())
	out := make([]birthdayResponse, len(list))
	for i, b := range list {
		out[i] = birthdayResponse{Birthday: b}
		if b.Phone != nil && *b.Phone != "" {
			out[i].WhatsAppLink = whatsapp.Link(*b.Phone, whatsapp.BirthdayMessage(b.Name))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// PaymentReminderLink monta o wa.me de cobrança com o valor da sessão e a chave Pix do terapeuta.
func (h *Handler) PaymentReminderLink(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := repo.PatientByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "payment_link")
		return
	}
	if p.Phone == nil || strings.TrimSpace(*p.Phone) == "" {
		http.Error(w, `{"error":"paciente sem telefone"}`, http.StatusBadRequest)
		return
	}
	pix := h.pixKey(r, tid)
	msg := whatsapp.PaymentMessage(p.Name, p.SessionValueCents, pix)
	writeJSON(w, http.StatusOK, map[string]string{"message": msg, "link": whatsapp.Link(*p.Phone, msg)})
}

// pixKey prefere a chave do perfil; sem ela, a padrão do ambiente.
func (h *Handler) pixKey(r *http.Request, tid uuid.UUID) string {
	if h.Pool != nil {
		if t, err := repo.TherapistByID(r.Context(), h.Pool, tid); err == nil && t.PixKey != nil && *t.PixKey != "" {
			return *t.PixKey
		}
	}
	if h.Cfg != nil {
		return h.Cfg.DefaultPixKey
	}
	return ""
}
