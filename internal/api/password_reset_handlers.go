package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/repo"
	"go.uber.org/zap"
)

const resetTokenTTL = time.Hour

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangeMyPasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

const forgotOK = `{"message":"Se o e-mail existir, você receberá instruções."}`

// ForgotPassword responde sempre 200 para não revelar quais e-mails existem.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	_ = json.NewDecoder(r.Body).Decode(&req)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != "" {
		h.sendReset(r, email)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(forgotOK))
}

func (h *Handler) sendReset(r *http.Request, email string) {
	t, err := repo.TherapistByEmail(r.Context(), h.Pool, email)
	if err != nil {
		if !repo.IsNotFound(err) {
			h.log().Error("password reset lookup", zap.Error(err))
		}
		return
	}
	tok, err := repo.CreatePasswordResetToken(r.Context(), h.Pool, t.ID, resetTokenTTL)
	if err != nil {
		h.log().Error("password reset token", zap.Error(err))
		return
	}
	if h.Mailer == nil {
		h.log().Info("password reset: e-mail desativado", zap.String("therapist_id", t.ID.String()))
		return
	}
	resetURL := strings.TrimRight(h.Cfg.AppPublicURL, "/") + "/reset-password?token=" + url.QueryEscape(tok)
	if err := h.Mailer.SendPasswordReset(t.Email, resetURL); err != nil {
		h.log().Warn("password reset: falha ao enviar", zap.String("therapist_id", t.ID.String()), zap.Error(err))
	}
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" || req.NewPassword == "" {
		http.Error(w, `{"error":"token and new_password required"}`, http.StatusBadRequest)
		return
	}
	hash, err := h.hash(req.NewPassword)
	if errors.Is(err, auth.ErrWeakPassword) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.serverError(w, r, err, "reset_password")
		return
	}
	tid, err := repo.ConsumePasswordResetToken(r.Context(), h.Pool, req.Token)
	if err != nil {
		if repo.IsNotFound(err) {
			http.Error(w, `{"error":"token inválido ou expirado"}`, http.StatusBadRequest)
			return
		}
		h.serverError(w, r, err, "reset_password")
		return
	}
	if err := repo.UpdateTherapistPassword(r.Context(), h.Pool, tid, hash); err != nil {
		h.repoError(w, r, err, "reset_password")
		return
	}
	h.audit(r, repo.AuditEvent{Action: "PASSWORD_RESET", ActorType: repo.ActorTherapist, ActorID: &tid, TherapistID: &tid})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Senha redefinida."})
}

func (h *Handler) ChangeMyPassword(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req ChangeMyPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, `{"error":"current_password and new_password required"}`, http.StatusBadRequest)
		return
	}
	t, err := repo.TherapistByID(r.Context(), h.Pool, tid)
	if err != nil {
		h.repoError(w, r, err, "change_password")
		return
	}
	if !auth.CheckPassword(t.PasswordHash, req.CurrentPassword) {
		http.Error(w, `{"error":"senha atual inválida"}`, http.StatusBadRequest)
		return
	}
	hash, err := h.hash(req.NewPassword)
	if errors.Is(err, auth.ErrWeakPassword) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.serverError(w, r, err, "change_password")
		return
	}
	if err := repo.UpdateTherapistPassword(r.Context(), h.Pool, tid, hash); err != nil {
		h.repoError(w, r, err, "change_password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Senha atualizada."})
}
