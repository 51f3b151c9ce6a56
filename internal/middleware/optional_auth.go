package middleware

import (
	"net/http"

	"github.com/consultorio/backend/internal/auth"
)

// OptionalAuth tenta ler o token, mas não bloqueia se estiver ausente/inválido.
// Se válido, injeta claims no context (ingestão de erros do frontend).
func OptionalAuth(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := extractToken(r); raw != "" {
			if claims, err := auth.ParseJWT(secret, raw); err == nil {
				r = r.WithContext(auth.WithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func OptionalAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return OptionalAuth(secret, next) }
}
