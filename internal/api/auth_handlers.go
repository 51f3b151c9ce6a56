package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := ValidateEmailRegex(req.Email); err != nil {
		http.Error(w, `{"error":"invalid email"}`, http.StatusBadRequest)
		return
	}
	if req.FullName == "" {
		http.Error(w, `{"error":"full_name required"}`, http.StatusBadRequest)
		return
	}
	hash, err := h.hash(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.serverError(w, r, err, "register")
		return
	}
	id, err := repo.CreateTherapist(r.Context(), h.Pool, req.Email, hash, req.FullName, auth.RoleTherapist)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			http.Error(w, `{"error":"email already registered"}`, http.StatusConflict)
			return
		}
		h.serverError(w, r, err, "register")
		return
	}
	h.audit(r, repo.AuditEvent{Action: "THERAPIST_REGISTERED", ActorType: repo.ActorTherapist, ActorID: &id, TherapistID: &id})
	h.issueToken(w, r, http.StatusCreated, UserInfo{ID: id.String(), Email: req.Email, FullName: req.FullName, Role: auth.RoleTherapist})
}

// Login autentica por e-mail e senha. Qualquer falha devolve a mesma resposta genérica.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password required"}`, http.StatusBadRequest)
		return
	}
	t, err := repo.TherapistByEmail(r.Context(), h.Pool, req.Email)
	if err != nil {
		if !repo.IsNotFound(err) {
			h.log().Error("login lookup", zap.Error(err))
		}
		genericLoginError(w)
		return
	}
	if t.Status != repo.TherapistActive || !auth.CheckPassword(t.PasswordHash, req.Password) {
		genericLoginError(w)
		return
	}
	h.audit(r, repo.AuditEvent{Action: "LOGIN", ActorType: repo.ActorTherapist, ActorID: &t.ID, TherapistID: &t.ID})
	h.issueToken(w, r, http.StatusOK, UserInfo{ID: t.ID.String(), Email: t.Email, FullName: t.FullName, Role: t.Role})
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, status int, u UserInfo) {
	tok, err := auth.BuildJWT(h.Cfg.JWTSecret, u.ID, u.Role, u.FullName, auth.TokenTTL)
	if err != nil {
		h.serverError(w, r, err, "jwt")
		return
	}
	writeJSON(w, status, LoginResponse{Token: tok, ExpiresAt: time.Now().Add(auth.TokenTTL), User: u})
}

func genericLoginError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c := auth.ClaimsFrom(r.Context())
	if c == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, UserInfo{ID: c.UserID, FullName: c.Name, Role: c.Role})
}

func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	t, err := repo.TherapistByID(r.Context(), h.Pool, tid)
	if err != nil {
		h.repoError(w, r, err, "get_profile")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type ProfilePatch struct {
	FullName   *string `json:"full_name"`
	Phone      *string `json:"phone"`
	CRP        *string `json:"crp"`
	Specialty  *string `json:"specialty"`
	ClinicName *string `json:"clinic_name"`
	PixKey     *string `json:"pix_key"`
}

func (h *Handler) PatchMyProfile(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req ProfilePatch
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := repo.TherapistByID(r.Context(), h.Pool, tid)
	if err != nil {
		h.repoError(w, r, err, "patch_profile")
		return
	}
	p := repo.TherapistProfile{FullName: t.FullName, Phone: t.Phone, CRP: t.CRP, Specialty: t.Specialty, ClinicName: t.ClinicName, PixKey: t.PixKey}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			http.Error(w, `{"error":"full_name required"}`, http.StatusBadRequest)
			return
		}
		p.FullName = name
	}
	if req.Phone != nil {
		p.Phone = optString(req.Phone)
	}
	if req.CRP != nil {
		p.CRP = optString(req.CRP)
	}
	if req.Specialty != nil {
		p.Specialty = optString(req.Specialty)
	}
	if req.ClinicName != nil {
		p.ClinicName = optString(req.ClinicName)
	}
	if req.PixKey != nil {
		p.PixKey = optString(req.PixKey)
	}
	if err := repo.UpdateTherapistProfile(r.Context(), h.Pool, tid, p); err != nil {
		h.repoError(w, r, err, "patch_profile")
		return
	}
	h.GetMyProfile(w, r)
}

// UploadAvatar recebe multipart "file" (png, jpeg, gif ou webp detectado pelo conteúdo,
// até 2 MB) e substitui o avatar anterior.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	if h.Storage == nil {
		http.Error(w, `{"error":"storage not configured"}`, http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAvatarBytes+64<<10)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"file required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()
	ct, body, err := storage.Sniff(file)
	if err != nil {
		http.Error(w, `{"error":"file required"}`, http.StatusBadRequest)
		return
	}
	key, err := storage.AvatarKey(tid.String(), ct)
	if errors.Is(err, storage.ErrNotImage) {
		http.Error(w, `{"error":"apenas imagens são permitidas"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.serverError(w, r, err, "avatar_key")
		return
	}
	if _, err := h.Storage.Put(key, body, storage.MaxAvatarBytes); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			http.Error(w, `{"error":"imagem deve ter no máximo 2MB"}`, http.StatusRequestEntityTooLarge)
			return
		}
		h.serverError(w, r, err, "avatar_put")
		return
	}
	url := h.Storage.URL(key) + "?v=" + uuid.NewString()[:8]
	prev, err := repo.SetTherapistAvatar(r.Context(), h.Pool, tid, url, key)
	if err != nil {
		_ = h.Storage.Delete(key)
		h.repoError(w, r, err, "avatar_save")
		return
	}
	if prev != nil && *prev != "" && *prev != key {
		if err := h.Storage.Delete(*prev); err != nil {
			h.log().Warn("avatar antigo não removido", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}
