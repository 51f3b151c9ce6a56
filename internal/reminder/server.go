package reminder

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server expõe o disparo do job por HTTP para um agendador externo (cron).
type Server struct {
	svc    *Service
	apiKey string
	logger *zap.Logger
}

func NewServer(svc *Service, apiKey string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, apiKey: apiKey, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /trigger", s.trigger)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// trigger exige X-API-Key quando a chave está configurada.
// therapist_id opcional restringe a um terapeuta.
func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	if s.apiKey != "" {
		key := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
	}
	var therapistID *uuid.UUID
	if idStr := r.URL.Query().Get("therapist_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, `{"error":"therapist_id inválido"}`, http.StatusBadRequest)
			return
		}
		therapistID = &id
	}
	res, err := s.svc.Run(r.Context(), therapistID)
	if err != nil {
		s.logger.Error("reminder trigger failed", zap.Error(err))
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
