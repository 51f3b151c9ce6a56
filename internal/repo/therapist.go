package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Therapist struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	Phone        *string   `json:"phone"`
	CRP          *string   `json:"crp"`
	Specialty    *string   `json:"specialty"`
	ClinicName   *string   `json:"clinic_name"`
	PixKey       *string   `json:"pix_key"`
	AvatarURL    *string   `json:"avatar_url"`
	AvatarPath   *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

const therapistCols = `id, email, password_hash, full_name, role, status, phone, crp, specialty, clinic_name, pix_key, avatar_url, avatar_path, created_at`

func scanTherapist(row pgx.Row) (*Therapist, error) {
	var t Therapist
	err := row.Scan(&t.ID, &t.Email, &t.PasswordHash, &t.FullName, &t.Role, &t.Status,
		&t.Phone, &t.CRP, &t.Specialty, &t.ClinicName, &t.PixKey, &t.AvatarURL, &t.AvatarPath, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TherapistByEmail ignora maiúsculas. Retorna pgx.ErrNoRows se não existir.
func TherapistByEmail(ctx context.Context, pool *pgxpool.Pool, email string) (*Therapist, error) {
	return scanTherapist(pool.QueryRow(ctx, `SELECT `+therapistCols+` FROM therapists WHERE lower(email) = lower($1)`, email))
}

func TherapistByID(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (*Therapist, error) {
	return scanTherapist(pool.QueryRow(ctx, `SELECT `+therapistCols+` FROM therapists WHERE id = $1`, id))
}

// CreateTherapist devolve erro de unique violation (23505) se o e-mail já existir.
func CreateTherapist(ctx context.Context, pool *pgxpool.Pool, email, passwordHash, fullName, role string) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx, `
		INSERT INTO therapists (email, password_hash, full_name, role) VALUES ($1, $2, $3, $4) RETURNING id
	`, email, passwordHash, fullName, role).Scan(&id)
	return id, err
}

type TherapistProfile struct {
	FullName   string
	Phone      *string
	CRP        *string
	Specialty  *string
	ClinicName *string
	PixKey     *string
}

func UpdateTherapistProfile(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, p TherapistProfile) error {
	tag, err := pool.Exec(ctx, `
		UPDATE therapists
		SET full_name = $1, phone = $2, crp = $3, specialty = $4, clinic_name = $5, pix_key = $6, updated_at = now()
		WHERE id = $7
	`, p.FullName, p.Phone, p.CRP, p.Specialty, p.ClinicName, p.PixKey, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetTherapistAvatar grava a nova URL e devolve o caminho anterior (para remover o arquivo antigo).
func SetTherapistAvatar(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, url, path string) (previousPath *string, err error) {
	err = pool.QueryRow(ctx, `
		UPDATE therapists t SET avatar_url = $1, avatar_path = $2, updated_at = now()
		FROM (SELECT avatar_path FROM therapists WHERE id = $3) old
		WHERE t.id = $3
		RETURNING old.avatar_path
	`, url, path, id).Scan(&previousPath)
	return previousPath, err
}

func UpdateTherapistPassword(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, passwordHash string) error {
	tag, err := pool.Exec(ctx, `UPDATE therapists SET password_hash = $1, updated_at = now() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func CountTherapists(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM therapists`).Scan(&n)
	return n, err
}
