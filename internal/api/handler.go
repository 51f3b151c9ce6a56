package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/cache"
	"github.com/consultorio/backend/internal/config"
	"github.com/consultorio/backend/internal/crypto"
	"github.com/consultorio/backend/internal/email"
	"github.com/consultorio/backend/internal/insights"
	"github.com/consultorio/backend/internal/meet"
	"github.com/consultorio/backend/internal/middleware"
	"github.com/consultorio/backend/internal/payments"
	"github.com/consultorio/backend/internal/reminder"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/storage"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxBodyBytes = 1 << 20

// Handler concentra as dependências das rotas. Campos opcionais (Mailer,
// Payments, Storage...) desligam só as rotas que precisam deles.
type Handler struct {
	DB       *gorm.DB
	Pool     *pgxpool.Pool
	Cfg      *config.Config
	Logger   *zap.Logger
	Cache    cache.Cache
	Cipher   *crypto.FieldCipher
	Storage  *storage.Local
	Mailer   email.Mailer
	Payments *payments.Service
	Meet     meet.Generator
	Reminder *reminder.Service
	Insights *insights.Service
	Location *time.Location
	Now      func() time.Time

	hashPassword func(string) (string, error)
}

func (h *Handler) SetHashPassword(fn func(string) (string, error)) { h.hashPassword = fn }

func (h *Handler) hash(plain string) (string, error) {
	if h.hashPassword != nil {
		return h.hashPassword(plain)
	}
	return auth.HashPassword(plain)
}

func (h *Handler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// localNow é o "agora" no fuso do consultório (datas de agenda e relatórios).
func (h *Handler) localNow() time.Time { return h.now().In(h.loc()) }

func (h *Handler) today() string { return h.localNow().Format("2006-01-02") }

// invalidate descarta dashboard e relatórios do terapeuta após uma escrita.
func (h *Handler) invalidate(ctx context.Context, therapistID uuid.UUID) {
	if h.Cache != nil {
		h.Cache.DeletePrefix(ctx, cache.TherapistPrefix(therapistID.String()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	b, _ := json.Marshal(map[string]string{"error": msg})
	http.Error(w, string(b), code)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return false
	}
	return true
}

// therapistID lê o dono dos dados a partir do JWT.
func therapistID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(auth.TherapistIDFrom(r.Context()))
	if err != nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		jsonError(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// repoError traduz erros de banco: 404, 409 (unique), 400 (check) ou 500.
func (h *Handler) repoError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case repo.IsNotFound(err):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	case repo.IsUniqueViolation(err):
		http.Error(w, `{"error":"already exists"}`, http.StatusConflict)
	case repo.IsCheckViolation(err):
		http.Error(w, `{"error":"invalid value"}`, http.StatusBadRequest)
	default:
		h.serverError(w, r, err, action)
	}
}

// serverError responde 500, loga e grava um error_event BACKEND.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error, action string) {
	rid := middleware.RequestIDFromContext(r.Context())
	h.log().Error("handler error", zap.String("action", action), zap.String("request_id", rid), zap.Error(err))
	h.recordError(r, err, action, rid)
	http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
}

func (h *Handler) recordError(r *http.Request, err error, action, rid string) {
	if h.Pool == nil {
		return
	}
	ev := repo.ErrorEvent{Source: "BACKEND", Severity: "ERROR"}
	if rid != "" {
		ev.RequestID = &rid
	}
	if id, perr := uuid.Parse(auth.TherapistIDFrom(r.Context())); perr == nil {
		ev.TherapistID = &id
	}
	method, path, kind, msg := r.Method, r.URL.Path, "HANDLER_ERROR", err.Error()
	ev.HTTPMethod, ev.Path, ev.ActionName, ev.Kind, ev.Message = &method, &path, &action, &kind, &msg
	ev.PGCode, ev.PGMessage = repo.PgDetails(err)
	// o contexto da requisição pode já ter estourado o timeout
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if e := repo.CreateErrorEvent(ctx, h.Pool, ev); e != nil {
		h.log().Warn("error_event não gravado", zap.Error(e))
	}
}

// audit grava o evento sem falhar a requisição.
func (h *Handler) audit(r *http.Request, ev repo.AuditEvent) {
	if h.Pool == nil {
		return
	}
	ev.RequestID = middleware.RequestIDFromContext(r.Context())
	ev.IP = middleware.ClientIP(r)
	ev.UserAgent = r.UserAgent()
	if err := repo.CreateAuditEvent(r.Context(), h.Pool, ev); err != nil {
		h.log().Warn("audit não gravado", zap.String("action", ev.Action), zap.Error(err))
	}
}

// optString normaliza: espaços aparados; vazio vira nil.
func optString(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
