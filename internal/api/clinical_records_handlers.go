package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/crypto"
	"github.com/consultorio/backend/internal/middleware"
	"github.com/consultorio/backend/internal/pdf"
	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var sentiments = []string{"positive", "neutral", "negative"}

type ClinicalRecordRequest struct {
	AppointmentID  *string `json:"appointment_id"`
	SessionDate    *string `json:"session_date"`
	Content        *string `json:"content"`
	Observations   *string `json:"observations"`
	Goals          *string `json:"goals"`
	WellbeingScore *int    `json:"wellbeing_score"`
	Sentiment      *string `json:"sentiment"`
}

// ClinicalRecordResponse é o registro já decifrado.
type ClinicalRecordResponse struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	AppointmentID  *uuid.UUID `json:"appointment_id"`
	SessionDate    string     `json:"session_date"`
	Content        string     `json:"content"`
	Observations   *string    `json:"observations"`
	Goals          *string    `json:"goals"`
	WellbeingScore *int       `json:"wellbeing_score"`
	Sentiment      *string    `json:"sentiment"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// clinicalText guarda o texto claro enquanto o PATCH é aplicado; a cifra vem no fim.
type clinicalText struct {
	appointmentID  *uuid.UUID
	sessionDate    string
	content        string
	observations   *string
	goals          *string
	wellbeingScore *int
	sentiment      *string
}

func (req *ClinicalRecordRequest) apply(t *clinicalText) string {
	if req.AppointmentID != nil {
		if s := strings.TrimSpace(*req.AppointmentID); s == "" {
			t.appointmentID = nil
		} else {
			id, err := uuid.Parse(s)
			if err != nil {
				return "invalid appointment_id"
			}
			t.appointmentID = &id
		}
	}
	if req.SessionDate != nil {
		t.sessionDate = strings.TrimSpace(*req.SessionDate)
	}
	if ValidateDate(t.sessionDate) != nil {
		return "invalid session_date"
	}
	if req.Content != nil {
		t.content = strings.TrimSpace(*req.Content)
	}
	if t.content == "" {
		return "content required"
	}
	if req.Observations != nil {
		t.observations = optString(req.Observations)
	}
	if req.Goals != nil {
		t.goals = optString(req.Goals)
	}
	if req.WellbeingScore != nil {
		if *req.WellbeingScore < 1 || *req.WellbeingScore > 10 {
			return "wellbeing_score must be between 1 and 10"
		}
		v := *req.WellbeingScore
		t.wellbeingScore = &v
	}
	if req.Sentiment != nil {
		if s := strings.TrimSpace(*req.Sentiment); s == "" {
			t.sentiment = nil
		} else {
			if !oneOf(s, sentiments...) {
				return "invalid sentiment"
			}
			t.sentiment = &s
		}
	}
	return ""
}

func sealOpt(c *crypto.FieldCipher, s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v, err := c.Seal(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func openOpt(c *crypto.FieldCipher, s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v, err := c.Open(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t clinicalText) seal(c *crypto.FieldCipher) (repo.ClinicalRecordInput, error) {
	in := repo.ClinicalRecordInput{
		AppointmentID: t.appointmentID, SessionDate: t.sessionDate,
		WellbeingScore: t.wellbeingScore, Sentiment: t.sentiment,
	}
	var err error
	if in.ContentEncrypted, err = c.Seal(t.content); err != nil {
		return in, err
	}
	if in.ObservationsEncrypted, err = sealOpt(c, t.observations); err != nil {
		return in, err
	}
	in.GoalsEncrypted, err = sealOpt(c, t.goals)
	return in, err
}

func openClinical(c *crypto.FieldCipher, rec *repo.ClinicalRecord) (ClinicalRecordResponse, error) {
	out := ClinicalRecordResponse{
		ID: rec.ID, PatientID: rec.PatientID, AppointmentID: rec.AppointmentID, SessionDate: rec.SessionDate,
		WellbeingScore: rec.WellbeingScore, Sentiment: rec.Sentiment, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt,
	}
	var err error
	if out.Content, err = c.Open(rec.ContentEncrypted); err != nil {
		return out, fmt.Errorf("clinical record %s: %w", rec.ID, err)
	}
	if out.Observations, err = openOpt(c, rec.ObservationsEncrypted); err != nil {
		return out, fmt.Errorf("clinical record %s: %w", rec.ID, err)
	}
	if out.Goals, err = openOpt(c, rec.GoalsEncrypted); err != nil {
		return out, fmt.Errorf("clinical record %s: %w", rec.ID, err)
	}
	return out, nil
}

func (h *Handler) requireCipher(w http.ResponseWriter) bool {
	if h.Cipher == nil {
		http.Error(w, `{"error":"encryption not configured"}`, http.StatusServiceUnavailable)
		return false
	}
	return true
}

// accessLog registra a leitura de prontuário; falha só vira log.
func (h *Handler) accessLog(r *http.Request, tid uuid.UUID, action string, resourceID, patientID *uuid.UUID) {
	if h.Pool == nil {
		return
	}
	l := repo.AccessLog{
		TherapistID: tid, Action: action, ResourceType: "clinical_record", ResourceID: resourceID, PatientID: patientID,
		IP: middleware.ClientIP(r), UserAgent: r.UserAgent(), RequestID: middleware.RequestIDFromContext(r.Context()),
	}
	if err := repo.CreateAccessLog(r.Context(), h.Pool, l); err != nil {
		h.log().Warn("access_log não gravado", zap.String("action", action), zap.Error(err))
	}
}

func (h *Handler) ListClinicalRecords(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok || !h.requireCipher(w) {
		return
	}
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := repo.PatientByID(r.Context(), h.DB, tid, pid); err != nil {
		h.repoError(w, r, err, "list_clinical_records")
		return
	}
	list, err := repo.ListClinicalRecords(r.Context(), h.DB, tid, pid)
	if err != nil {
		h.serverError(w, r, err, "list_clinical_records")
		return
	}
	out := make([]ClinicalRecordResponse, 0, len(list))
	for i := range list {
		rec, err := openClinical(h.Cipher, &list[i])
		if err != nil {
			h.serverError(w, r, err, "list_clinical_records")
			return
		}
		out = append(out, rec)
	}
	h.accessLog(r, tid, "CLINICAL_RECORDS_LIST", nil, &pid)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetClinicalRecord(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok || !h.requireCipher(w) {
		return
	}
	id, ok := pathID(w, r, "rid")
	if !ok {
		return
	}
	rec, err := repo.ClinicalRecordByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "get_clinical_record")
		return
	}
	out, err := openClinical(h.Cipher, rec)
	if err != nil {
		h.serverError(w, r, err, "get_clinical_record")
		return
	}
	h.accessLog(r, tid, "CLINICAL_RECORD_READ", &rec.ID, &rec.PatientID)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateClinicalRecord(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok || !h.requireCipher(w) {
		return
	}
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ClinicalRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t := clinicalText{sessionDate: h.today()}
	if msg := req.apply(&t); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	in, err := t.seal(h.Cipher)
	if err != nil {
		h.serverError(w, r, err, "seal_clinical_record")
		return
	}
	id, err := repo.CreateClinicalRecord(r.Context(), h.DB, tid, pid, in)
	if err != nil {
		h.repoError(w, r, err, "create_clinical_record")
		return
	}
	h.invalidate(r.Context(), tid)
	rt := "clinical_record"
	h.audit(r, repo.AuditEvent{Action: "CLINICAL_RECORD_CREATED", ActorType: repo.ActorTherapist, ActorID: &tid, TherapistID: &tid, ResourceType: &rt, ResourceID: &id, PatientID: &pid})
	rec, err := repo.ClinicalRecordByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_clinical_record")
		return
	}
	out, err := openClinical(h.Cipher, rec)
	if err != nil {
		h.serverError(w, r, err, "create_clinical_record")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) UpdateClinicalRecord(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok || !h.requireCipher(w) {
		return
	}
	id, ok := pathID(w, r, "rid")
	if !ok {
		return
	}
	var req ClinicalRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := repo.ClinicalRecordByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_clinical_record")
		return
	}
	cur, err := openClinical(h.Cipher, rec)
	if err != nil {
		h.serverError(w, r, err, "update_clinical_record")
		return
	}
	t := clinicalText{
		appointmentID: cur.AppointmentID, sessionDate: cur.SessionDate, content: cur.Content,
		observations: cur.Observations, goals: cur.Goals, wellbeingScore: cur.WellbeingScore, sentiment: cur.Sentiment,
	}
	if msg := req.apply(&t); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	in, err := t.seal(h.Cipher)
	if err != nil {
		h.serverError(w, r, err, "seal_clinical_record")
		return
	}
	if err := repo.UpdateClinicalRecord(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_clinical_record")
		return
	}
	h.invalidate(r.Context(), tid)
	rec, err = repo.ClinicalRecordByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_clinical_record")
		return
	}
	out, err := openClinical(h.Cipher, rec)
	if err != nil {
		h.serverError(w, r, err, "update_clinical_record")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteClinicalRecord(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "rid")
	if !ok {
		return
	}
	if err := repo.DeleteClinicalRecord(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_clinical_record")
		return
	}
	h.invalidate(r.Context(), tid)
	rt := "clinical_record"
	h.audit(r, repo.AuditEvent{Action: "CLINICAL_RECORD_DELETED", ActorType: repo.ActorTherapist, ActorID: &tid, TherapistID: &tid, ResourceType: &rt, ResourceID: &id, Severity: "WARN"})
	w.WriteHeader(http.StatusNoContent)
}

// ExportClinicalRecordsPDF gera o prontuário completo do paciente em PDF.
func (h *Handler) ExportClinicalRecordsPDF(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok || !h.requireCipher(w) {
		return
	}
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := repo.PatientByID(r.Context(), h.DB, tid, pid)
	if err != nil {
		h.repoError(w, r, err, "export_clinical_records")
		return
	}
	list, err := repo.ListClinicalRecords(r.Context(), h.DB, tid, pid)
	if err != nil {
		h.serverError(w, r, err, "export_clinical_records")
		return
	}
	entries := make([]pdf.ClinicalEntry, 0, len(list))
	for i := range list {
		rec, err := openClinical(h.Cipher, &list[i])
		if err != nil {
			h.serverError(w, r, err, "export_clinical_records")
			return
		}
		e := pdf.ClinicalEntry{SessionDate: rec.SessionDate, Content: rec.Content, WellbeingScore: rec.WellbeingScore}
		if rec.Observations != nil {
			e.Observations = *rec.Observations
		}
		if rec.Goals != nil {
			e.Goals = *rec.Goals
		}
		if rec.Sentiment != nil {
			e.Sentiment = *rec.Sentiment
		}
		entries = append(entries, e)
	}
	now := h.localNow()
	b, err := pdf.BuildClinicalRecordsPDF(p.Name, entries, now)
	if err != nil {
		h.serverError(w, r, err, "export_clinical_records")
		return
	}
	h.accessLog(r, tid, "CLINICAL_RECORDS_EXPORT", nil, &pid)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdf.ClinicalFilename(p.Name, now)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
