package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TherapistActive    = "ACTIVE"
	TherapistSuspended = "SUSPENDED"
)

// TherapistRow é a linha da listagem do painel admin.
type TherapistRow struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	ClinicName   *string   `json:"clinic_name"`
	PatientCount int       `json:"patient_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListTherapists filtra por status (vazio = todos) e por trecho de nome/e-mail.
func ListTherapists(ctx context.Context, pool *pgxpool.Pool, status, search string, limit, offset int) ([]TherapistRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT t.id, t.email, t.full_name, t.role, t.status, t.clinic_name,
		       (SELECT COUNT(*) FROM patients p WHERE p.therapist_id = t.id) AS patient_count,
		       t.created_at
		FROM therapists t
		WHERE ($1::text IS NULL OR t.status = $1)
		  AND ($2::text IS NULL OR t.full_name ILIKE '%' || $2 || '%' OR t.email ILIKE '%' || $2 || '%')
		ORDER BY t.created_at DESC
		LIMIT $3 OFFSET $4
	`, nullIfEmpty(status), nullIfEmpty(search), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []TherapistRow
	for rows.Next() {
		var r TherapistRow
		if err := rows.Scan(&r.ID, &r.Email, &r.FullName, &r.Role, &r.Status, &r.ClinicName, &r.PatientCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// SetTherapistStatus suspende ou reativa a conta; pgx.ErrNoRows se não existir.
func SetTherapistStatus(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, status string) error {
	tag, err := pool.Exec(ctx, `UPDATE therapists SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// TimelineFilter: campos vazios/nil não filtram.
type TimelineFilter struct {
	From         *time.Time
	To           *time.Time
	TherapistID  *uuid.UUID
	PatientID    *uuid.UUID
	RequestID    string
	Severity     string
	Source       string
	ResourceType string
	Limit        int
	Offset       int
}

// TimelineRow une audit_events (kind AUDIT) e access_logs (kind ACCESS).
type TimelineRow struct {
	Kind         string          `json:"kind"`
	ID           uuid.UUID       `json:"id"`
	Action       string          `json:"action"`
	ActorType    string          `json:"actor_type"`
	TherapistID  *uuid.UUID      `json:"therapist_id,omitempty"`
	RequestID    *string         `json:"request_id,omitempty"`
	IP           *string         `json:"ip,omitempty"`
	UserAgent    *string         `json:"user_agent,omitempty"`
	ResourceType *string         `json:"resource_type,omitempty"`
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty"`
	PatientID    *uuid.UUID      `json:"patient_id,omitempty"`
	Source       string          `json:"source"`
	Severity     string          `json:"severity"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListTimeline ordena por created_at desc. Filtros de severity/source só
// existem em audit_events; quando presentes, acessos ficam de fora.
func ListTimeline(ctx context.Context, pool *pgxpool.Pool, f TimelineFilter) ([]TimelineRow, error) {
	rows, err := pool.Query(ctx, `
		WITH timeline AS (
			SELECT 'AUDIT'::text AS kind, id, action, actor_type, therapist_id, request_id, ip, user_agent,
			       resource_type, resource_id, patient_id, source, severity,
			       COALESCE(metadata, '{}'::jsonb) AS metadata, created_at
			FROM audit_events
			WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			  AND ($2::timestamptz IS NULL OR created_at <= $2)
			  AND ($3::uuid IS NULL OR therapist_id = $3)
			  AND ($4::uuid IS NULL OR patient_id = $4)
			  AND ($5::text IS NULL OR request_id = $5)
			  AND ($6::text IS NULL OR UPPER(severity) = $6)
			  AND ($7::text IS NULL OR UPPER(source) = $7)
			  AND ($8::text IS NULL OR resource_type = $8)

			UNION ALL

			SELECT 'ACCESS'::text AS kind, id, action, 'THERAPIST'::text AS actor_type, therapist_id, request_id, ip, user_agent,
			       resource_type, resource_id, patient_id, 'USER'::text AS source, 'INFO'::text AS severity,
			       jsonb_build_object('action', action) AS metadata, created_at
			FROM access_logs
			WHERE $6::text IS NULL AND $7::text IS NULL
			  AND ($1::timestamptz IS NULL OR created_at >= $1)
			  AND ($2::timestamptz IS NULL OR created_at <= $2)
			  AND ($3::uuid IS NULL OR therapist_id = $3)
			  AND ($4::uuid IS NULL OR patient_id = $4)
			  AND ($5::text IS NULL OR request_id = $5)
			  AND ($8::text IS NULL OR resource_type = $8)
		)
		SELECT kind, id, action, actor_type, therapist_id, request_id, ip, user_agent,
		       resource_type, resource_id, patient_id, source, severity, metadata, created_at
		FROM timeline
		ORDER BY created_at DESC
		LIMIT $9 OFFSET $10
	`, f.From, f.To, f.TherapistID, f.PatientID,
		nullIfEmpty(f.RequestID), nullIfEmpty(f.Severity), nullIfEmpty(f.Source), nullIfEmpty(f.ResourceType),
		f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []TimelineRow
	for rows.Next() {
		var r TimelineRow
		var meta []byte
		if err := rows.Scan(&r.Kind, &r.ID, &r.Action, &r.ActorType, &r.TherapistID, &r.RequestID, &r.IP, &r.UserAgent,
			&r.ResourceType, &r.ResourceID, &r.PatientID, &r.Source, &r.Severity, &meta, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Metadata = meta
		list = append(list, r)
	}
	return list, rows.Err()
}
