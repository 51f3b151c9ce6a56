package repo

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsNotFound cobre os dois caminhos de acesso (GORM e pgx).
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation detecta 23505 (unique_violation).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsCheckViolation detecta 23514 (valor fora do domínio de um CHECK).
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// PgDetails devolve código e mensagem para error_events.
func PgDetails(err error) (code, message *string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &pgErr.Code, &pgErr.Message
	}
	return nil, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
