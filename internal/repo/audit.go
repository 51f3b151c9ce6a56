package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActorTherapist = "THERAPIST"
	ActorSystem    = "SYSTEM"
	ActorPatient   = "PATIENT"
)

type AuditEvent struct {
	Action       string
	ActorType    string
	ActorID      *uuid.UUID
	TherapistID  *uuid.UUID
	ResourceType *string
	ResourceID   *uuid.UUID
	PatientID    *uuid.UUID
	RequestID    string
	IP           string
	UserAgent    string
	Source       string // USER|SYSTEM
	Severity     string // INFO|WARN|ERROR
	Metadata     interface{}
}

func CreateAuditEvent(ctx context.Context, pool *pgxpool.Pool, ev AuditEvent) error {
	var meta []byte
	if ev.Metadata != nil {
		var err error
		if meta, err = json.Marshal(ev.Metadata); err != nil {
			return err
		}
	}
	if ev.Source == "" {
		ev.Source = "USER"
	}
	if ev.Severity == "" {
		ev.Severity = "INFO"
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO audit_events (
			action, actor_type, actor_id, therapist_id, resource_type, resource_id, patient_id,
			request_id, ip, user_agent, source, severity, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		ev.Action, ev.ActorType, ev.ActorID, ev.TherapistID, ev.ResourceType, ev.ResourceID, ev.PatientID,
		nullIfEmpty(ev.RequestID), nullIfEmpty(ev.IP), nullIfEmpty(ev.UserAgent), ev.Source, ev.Severity, meta,
	)
	return err
}

type AuditRow struct {
	ID           uuid.UUID       `json:"id"`
	Action       string          `json:"action"`
	ActorType    string          `json:"actor_type"`
	ResourceType *string         `json:"resource_type"`
	ResourceID   *uuid.UUID      `json:"resource_id"`
	PatientID    *uuid.UUID      `json:"patient_id"`
	Source       string          `json:"source"`
	Severity     string          `json:"severity"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListAuditEvents devolve a linha do tempo do terapeuta (mais recentes primeiro).
func ListAuditEvents(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID, limit, offset int) ([]AuditRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, action, actor_type, resource_type, resource_id, patient_id, source, severity, metadata, created_at
		FROM audit_events WHERE therapist_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, therapistID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []AuditRow
	for rows.Next() {
		var r AuditRow
		var meta []byte
		if err := rows.Scan(&r.ID, &r.Action, &r.ActorType, &r.ResourceType, &r.ResourceID, &r.PatientID, &r.Source, &r.Severity, &meta, &r.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			r.Metadata = meta
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// AccessLog registra leitura de dado clínico.
type AccessLog struct {
	TherapistID  uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	PatientID    *uuid.UUID
	IP           string
	UserAgent    string
	RequestID    string
}

func CreateAccessLog(ctx context.Context, pool *pgxpool.Pool, l AccessLog) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO access_logs (therapist_id, action, resource_type, resource_id, patient_id, ip, user_agent, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, l.TherapistID, l.Action, l.ResourceType, l.ResourceID, l.PatientID, nullIfEmpty(l.IP), nullIfEmpty(l.UserAgent), nullIfEmpty(l.RequestID))
	return err
}
