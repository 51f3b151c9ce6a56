package api

import (
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/repo"
)

type PartnerRequest struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
	Contact   *string `json:"contact"`
	Status    *string `json:"status"`
}

func (req *PartnerRequest) apply(in *repo.PartnerInput) string {
	if req.Name != nil {
		in.Name = strings.TrimSpace(*req.Name)
	}
	if in.Name == "" {
		return "name required"
	}
	if req.Specialty != nil {
		in.Specialty = optString(req.Specialty)
	}
	if req.Contact != nil {
		in.Contact = optString(req.Contact)
	}
	if req.Status != nil {
		if !oneOf(*req.Status, "Ativo", "Inativo") {
			return "invalid status"
		}
		in.Status = *req.Status
	}
	return ""
}

func (h *Handler) ListPartners(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	list, err := repo.ListPartners(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "list_partners")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetPartner(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := repo.PartnerByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "get_partner")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req PartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.PartnerInput{Status: "Ativo"}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	id, err := repo.CreatePartner(r.Context(), h.DB, tid, in)
	if err != nil {
		h.repoError(w, r, err, "create_partner")
		return
	}
	p, err := repo.PartnerByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_partner")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePartner(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req PartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.PartnerByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_partner")
		return
	}
	in := repo.PartnerInput{Name: cur.Name, Specialty: cur.Specialty, Contact: cur.Contact, Status: cur.Status}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := repo.UpdatePartner(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_partner")
		return
	}
	p, err := repo.PartnerByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_partner")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AddPartnerReferral(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := repo.IncrementPartnerReferrals(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "partner_referral")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"referrals_count": n})
}

func (h *Handler) DeletePartner(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.DeletePartner(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_partner")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
