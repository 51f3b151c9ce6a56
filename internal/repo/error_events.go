package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ErrorEvent struct {
	RequestID   *string
	Source      string // FRONTEND|BACKEND|JOB
	Severity    string
	TherapistID *uuid.UUID
	HTTPMethod  *string
	Path        *string
	ActionName  *string
	Kind        *string
	Message     *string
	Stack       *string
	PGCode      *string
	PGMessage   *string
	Metadata    interface{}
}

func CreateErrorEvent(ctx context.Context, pool *pgxpool.Pool, ev ErrorEvent) error {
	var meta []byte
	if ev.Metadata != nil {
		meta, _ = json.Marshal(ev.Metadata)
	}
	if ev.Severity == "" {
		ev.Severity = "ERROR"
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO error_events (
			request_id, source, severity, therapist_id, http_method, path, action_name,
			kind, message, stack, pg_code, pg_message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, ev.RequestID, ev.Source, ev.Severity, ev.TherapistID, ev.HTTPMethod, ev.Path, ev.ActionName,
		ev.Kind, ev.Message, ev.Stack, ev.PGCode, ev.PGMessage, meta)
	return err
}

type ErrorEventRow struct {
	ID          uuid.UUID  `json:"id"`
	RequestID   *string    `json:"request_id"`
	Source      string     `json:"source"`
	Severity    string     `json:"severity"`
	TherapistID *uuid.UUID `json:"therapist_id"`
	HTTPMethod  *string    `json:"http_method"`
	Path        *string    `json:"path"`
	Kind        *string    `json:"kind"`
	Message     *string    `json:"message"`
	PGCode      *string    `json:"pg_code"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListErrorEvents para o painel de super admin; source vazio = todas.
func ListErrorEvents(ctx context.Context, pool *pgxpool.Pool, source string, limit, offset int) ([]ErrorEventRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, request_id, source, severity, therapist_id, http_method, path, kind, message, pg_code, created_at
		FROM error_events
		WHERE ($1 = '' OR source = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, source, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ErrorEventRow
	for rows.Next() {
		var r ErrorEventRow
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Source, &r.Severity, &r.TherapistID, &r.HTTPMethod, &r.Path, &r.Kind, &r.Message, &r.PGCode, &r.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}
