package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/leads"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/whatsapp"
)

type LeadRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Source  *string `json:"source"`
	Urgency *string `json:"urgency"`
	Status  *string `json:"status"`
	Notes   *string `json:"notes"`
}

func (req *LeadRequest) apply(in *repo.LeadInput) string {
	if req.Name != nil {
		in.Name = strings.TrimSpace(*req.Name)
	}
	if in.Name == "" {
		return "name required"
	}
	if req.Phone != nil {
		in.Phone = optString(req.Phone)
	}
	if req.Email != nil {
		in.Email = optString(req.Email)
		if in.Email != nil && ValidateEmailRegex(*in.Email) != nil {
			return "invalid email"
		}
	}
	if req.Source != nil {
		in.Source = optString(req.Source)
	}
	if req.Urgency != nil {
		if !leads.ValidUrgency(*req.Urgency) {
			return "invalid urgency"
		}
		in.Urgency = *req.Urgency
	}
	if req.Status != nil {
		// Convertido só via /convert
		if !leads.ValidStatus(*req.Status) || *req.Status == leads.StatusConvertido {
			return "invalid status"
		}
		in.Status = *req.Status
	}
	if req.Notes != nil {
		in.Notes = optString(req.Notes)
	}
	return ""
}

func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	list, err := repo.ListLeads(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "list_leads")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) LeadsBoard(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	list, err := repo.ListLeads(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "leads_board")
		return
	}
	writeJSON(w, http.StatusOK, leads.Board(list))
}

func (h *Handler) LeadsStats(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	list, err := repo.ListLeads(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "leads_stats")
		return
	}
	writeJSON(w, http.StatusOK, leads.ComputeStats(list, h.localNow()))
}

func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	l, err := repo.LeadByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "get_lead")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req LeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.LeadInput{Urgency: leads.UrgencyMedium, Status: leads.StatusLead}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	id, err := repo.CreateLead(r.Context(), h.DB, tid, in)
	if err != nil {
		h.repoError(w, r, err, "create_lead")
		return
	}
	l, err := repo.LeadByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_lead")
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req LeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.LeadByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_lead")
		return
	}
	in := repo.InputFromLead(cur)
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateLead(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_lead")
		return
	}
	l, err := repo.LeadByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_lead")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type LeadStatusRequest struct {
	Status string `json:"status"`
}

// PatchLeadStatus move o card no quadro; a coluna Convertido só é alcançada via conversão.
func (h *Handler) PatchLeadStatus(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req LeadStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !leads.ValidStatus(req.Status) || req.Status == leads.StatusConvertido {
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateLeadStatus(r.Context(), h.DB, tid, id, req.Status); err != nil {
		h.repoError(w, r, err, "lead_status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.DeleteLead(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_lead")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type conversionResponse struct {
	*leads.Conversion
	WelcomeLink string `json:"welcome_link,omitempty"`
}

func (h *Handler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := leads.Convert(r.Context(), h.DB, tid, id)
	if errors.Is(err, leads.ErrAlreadyConverted) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.repoError(w, r, err, "convert_lead")
		return
	}
	h.invalidate(r.Context(), tid)
	h.audit(r, repo.AuditEvent{Action: "LEAD_CONVERTED", ActorType: repo.ActorTherapist, ActorID: &tid, TherapistID: &tid, PatientID: &c.PatientID})
	out := conversionResponse{Conversion: c}
	if c.Lead.Phone != nil && *c.Lead.Phone != "" {
		out.WelcomeLink = whatsapp.Link(*c.Lead.Phone, whatsapp.WelcomeMessage(c.Lead.Name))
	}
	writeJSON(w, http.StatusCreated, out)
}
