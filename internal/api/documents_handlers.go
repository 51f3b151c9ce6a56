package api

import (
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/pdf"
	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var documentTypes = []string{"Atestado", "Relatório", "Contrato", "Encaminhamento"}

type DocumentRequest struct {
	PatientID *string `json:"patient_id"`
	Title     *string `json:"title"`
	Type      *string `json:"type"`
	Category  *string `json:"category"`
	Content   *string `json:"content"`
	Status    *string `json:"status"`
}

func (req *DocumentRequest) apply(in *repo.DocumentInput) string {
	if req.PatientID != nil {
		if s := strings.TrimSpace(*req.PatientID); s == "" {
			in.PatientID = nil
		} else {
			id, err := uuid.Parse(s)
			if err != nil {
				return "invalid patient_id"
			}
			in.PatientID = &id
		}
	}
	if req.Title != nil {
		in.Title = strings.TrimSpace(*req.Title)
	}
	if in.Title == "" {
		return "title required"
	}
	if req.Type != nil {
		in.Type = *req.Type
	}
	if !oneOf(in.Type, documentTypes...) {
		return "invalid type"
	}
	if req.Category != nil {
		in.Category = optString(req.Category)
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Status != nil {
		if !oneOf(*req.Status, repo.DocRascunho, repo.DocFinalizado) {
			return "invalid status"
		}
		in.Status = *req.Status
	}
	return ""
}

// finalize carimba generated_at, token e hash sempre que o documento é salvo como Finalizado.
// O token é mantido entre edições para não invalidar QR codes já impressos.
func (h *Handler) finalize(in *repo.DocumentInput) error {
	if in.Status != repo.DocFinalizado {
		return nil
	}
	now := h.now()
	in.GeneratedAt = &now
	if in.VerificationToken == nil {
		tok, err := repo.NewToken()
		if err != nil {
			return err
		}
		in.VerificationToken = &tok
	}
	hash := pdf.ContentHash(pdf.PlainText(in.Content))
	in.ContentHash = &hash
	return nil
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	list, err := repo.ListDocuments(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "list_documents")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := repo.DocumentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "get_document")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.DocumentInput{Status: repo.DocRascunho}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := h.finalize(&in); err != nil {
		h.serverError(w, r, err, "finalize_document")
		return
	}
	id, err := repo.CreateDocument(r.Context(), h.DB, tid, in)
	if err != nil {
		h.repoError(w, r, err, "create_document")
		return
	}
	d, err := repo.DocumentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_document")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.DocumentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_document")
		return
	}
	in := repo.InputFromDocument(cur)
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := h.finalize(&in); err != nil {
		h.serverError(w, r, err, "finalize_document")
		return
	}
	if err := repo.UpdateDocument(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_document")
		return
	}
	d, err := repo.DocumentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_document")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.DeleteDocument(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DocumentPDF renderiza o documento; finalizados levam QR code de verificação.
func (h *Handler) DocumentPDF(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := repo.DocumentByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "document_pdf")
		return
	}
	page := pdf.DocumentPage{Title: d.Title, Type: d.Type, Body: pdf.PlainText(d.Content), GeneratedAt: d.GeneratedAt}
	if d.PatientName != nil {
		page.PatientName = *d.PatientName
	}
	if h.Pool != nil {
		if t, err := repo.TherapistByID(r.Context(), h.Pool, tid); err == nil {
			page.TherapistName = t.FullName
			if t.CRP != nil {
				page.TherapistCRP = *t.CRP
			}
		}
	}
	if d.Status == repo.DocFinalizado && d.VerificationToken != nil {
		page.VerificationToken = *d.VerificationToken
		if h.Cfg != nil {
			page.VerificationURL = pdf.VerificationURL(h.Cfg.AppPublicURL, *d.VerificationToken)
		}
		if d.ContentHash != nil {
			page.ContentHash = *d.ContentHash
		}
	}
	b, err := pdf.BuildDocumentPDF(page)
	if err != nil {
		h.serverError(w, r, err, "document_pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="documento_`+d.ID.String()[:8]+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// VerifyDocument é público: confirma autenticidade sem expor o conteúdo.
func (h *Handler) VerifyDocument(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		http.Error(w, `{"error":"token required"}`, http.StatusBadRequest)
		return
	}
	v, err := repo.DocumentByVerificationToken(r.Context(), h.DB, token)
	if err != nil {
		if repo.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"valid": false})
			return
		}
		h.serverError(w, r, err, "verify_document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "document": v})
}
