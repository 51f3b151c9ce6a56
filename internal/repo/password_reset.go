package repo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewToken gera 32 bytes aleatórios em hex (reset de senha, confirmação de sessão, verificação de documento).
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func CreatePasswordResetToken(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID, exp time.Duration) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, therapist_id, expires_at) VALUES ($1, $2, $3)
	`, token, therapistID, time.Now().Add(exp))
	return token, err
}

// ConsumePasswordResetToken marca o token como usado. pgx.ErrNoRows se inválido, expirado ou já usado.
func ConsumePasswordResetToken(ctx context.Context, pool *pgxpool.Pool, token string) (uuid.UUID, error) {
	var therapistID uuid.UUID
	err := pool.QueryRow(ctx, `
		UPDATE password_reset_tokens SET used_at = now()
		WHERE token = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING therapist_id
	`, token).Scan(&therapistID)
	return therapistID, err
}
