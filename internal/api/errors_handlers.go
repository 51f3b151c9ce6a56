package api

import (
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/middleware"
	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FrontendErrorIngestRequest struct {
	RequestID  *string                `json:"request_id"`
	Severity   string                 `json:"severity"` // WARN|ERROR
	Kind       string                 `json:"kind"`
	Message    string                 `json:"message"`
	Stack      *string                `json:"stack,omitempty"`
	HTTPMethod *string                `json:"http_method,omitempty"`
	Path       *string                `json:"path,omitempty"`
	Status     *int                   `json:"status,omitempty"`
	ActionName *string                `json:"action_name,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// IngestFrontendError aceita erros do front com ou sem JWT.
func (h *Handler) IngestFrontendError(w http.ResponseWriter, r *http.Request) {
	var req FrontendErrorIngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sev := strings.ToUpper(strings.TrimSpace(req.Severity))
	if sev != "WARN" && sev != "ERROR" {
		http.Error(w, `{"error":"severity inválida"}`, http.StatusBadRequest)
		return
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = "FRONTEND_ERROR"
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		msg = "frontend error"
	}

	ev := repo.ErrorEvent{
		Source:     "FRONTEND",
		Severity:   sev,
		HTTPMethod: upperOpt(req.HTTPMethod),
		Path:       optString(req.Path),
		ActionName: optString(req.ActionName),
		Kind:       &kind,
		Message:    &msg,
		Stack:      req.Stack,
	}
	if c := auth.ClaimsFrom(r.Context()); c != nil {
		if id, err := uuid.Parse(c.UserID); err == nil {
			ev.TherapistID = &id
		}
	}

	rid := middleware.RequestIDFromContext(r.Context())
	if req.RequestID != nil && strings.TrimSpace(*req.RequestID) != "" {
		rid = strings.TrimSpace(*req.RequestID)
	}
	if rid != "" {
		ev.RequestID = &rid
	}

	// o front não deve mandar PII no metadata
	meta := map[string]interface{}{}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.Status != nil {
		meta["status"] = *req.Status
	}
	ev.Metadata = meta

	if h.Pool != nil {
		if err := repo.CreateErrorEvent(r.Context(), h.Pool, ev); err != nil {
			h.log().Warn("frontend error não gravado", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func upperOpt(s *string) *string {
	v := optString(s)
	if v == nil {
		return nil
	}
	u := strings.ToUpper(*v)
	return &u
}

// ListErrorEvents: painel do super admin; filtro opcional source=FRONTEND|BACKEND|JOB.
func (h *Handler) ListErrorEvents(w http.ResponseWriter, r *http.Request) {
	source := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("source")))
	if source != "" && !oneOf(source, "FRONTEND", "BACKEND", "JOB") {
		http.Error(w, `{"error":"invalid source"}`, http.StatusBadRequest)
		return
	}
	limit, offset := ParseLimitOffset(r)
	list, err := repo.ListErrorEvents(r.Context(), h.Pool, source, limit, offset)
	if err != nil {
		h.serverError(w, r, err, "list_error_events")
		return
	}
	if list == nil {
		list = []repo.ErrorEventRow{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": list, "limit": limit, "offset": offset})
}
