package repo

import (
	"context"

	"github.com/consultorio/backend/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Consultas de agregação do dashboard: pgx direto, uma por KPI, para rodarem em paralelo.

func CountActivePatients(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE therapist_id = $1 AND status = 'ativo'`, therapistID).Scan(&n)
	return n, err
}

// CountSessionsBetween conta sessões Realizado/Confirmado em [from, to].
func CountSessionsBetween(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID, from, to string) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE therapist_id = $1 AND date BETWEEN $2::date AND $3::date AND status IN ('Realizado', 'Confirmado')
	`, therapistID, from, to).Scan(&n)
	return n, err
}

func CountPendingIncome(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions WHERE therapist_id = $1 AND type = 'income' AND status = 'pendente'
	`, therapistID).Scan(&n)
	return n, err
}

// CountActivePatientsSeenSince: ativos com sessão Realizado/Confirmado desde a data.
func CountActivePatientsSeenSince(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID, since string) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT p.id)
		FROM patients p
		JOIN appointments a ON a.patient_id = p.id AND a.status IN ('Realizado', 'Confirmado') AND a.date >= $2::date
		WHERE p.therapist_id = $1 AND p.status = 'ativo'
	`, therapistID, since).Scan(&n)
	return n, err
}

// PatientLastSession: último atendimento (não cancelado) de cada paciente ativo; LastDate nil se nunca.
// CreatedAt é a data de cadastro (YYYY-MM-DD).
type PatientLastSession struct {
	PatientID uuid.UUID
	Name      string
	Phone     *string
	LastDate  *string
	CreatedAt string
}

func ActivePatientsLastSession(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID) ([]PatientLastSession, error) {
	rows, err := pool.Query(ctx, `
		SELECT p.id, p.name, p.phone, MAX(a.date)::text, p.created_at::date::text
		FROM patients p
		LEFT JOIN appointments a ON a.patient_id = p.id AND a.status NOT IN ('Cancelado', 'Faltou')
		WHERE p.therapist_id = $1 AND p.status = 'ativo'
		GROUP BY p.id, p.name, p.phone, p.created_at
		ORDER BY p.name
	`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []PatientLastSession
	for rows.Next() {
		var r PatientLastSession
		if err := rows.Scan(&r.PatientID, &r.Name, &r.Phone, &r.LastDate, &r.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// SessionWithoutRecord: sessão realizada sem registro de prontuário vinculado (por appointment ou data).
type SessionWithoutRecord struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	PatientName   string
	Date          string
}

func SessionsWithoutRecord(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID, since, until string) ([]SessionWithoutRecord, error) {
	rows, err := pool.Query(ctx, `
		SELECT a.id, p.id, p.name, a.date::text
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.therapist_id = $1 AND a.status = 'Realizado' AND a.date BETWEEN $2::date AND $3::date
		  AND NOT EXISTS (
			SELECT 1 FROM clinical_records r
			WHERE r.patient_id = a.patient_id AND (r.appointment_id = a.id OR r.session_date = a.date)
		  )
		ORDER BY a.date DESC
	`, therapistID, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []SessionWithoutRecord
	for rows.Next() {
		var r SessionWithoutRecord
		if err := rows.Scan(&r.AppointmentID, &r.PatientID, &r.PatientName, &r.Date); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// PendingCharge: receita pendente com data até before (cobrança atrasada).
type PendingCharge struct {
	TransactionID uuid.UUID
	PatientID     *uuid.UUID
	PatientName   *string
	PatientPhone  *string
	Description   string
	AmountCents   money.Cents
	Date          string
}

func PendingIncomeBefore(ctx context.Context, pool *pgxpool.Pool, therapistID uuid.UUID, before string) ([]PendingCharge, error) {
	rows, err := pool.Query(ctx, `
		SELECT t.id, t.patient_id, p.name, p.phone, t.description, t.amount_cents, t.date::text
		FROM transactions t
		LEFT JOIN patients p ON p.id = t.patient_id
		WHERE t.therapist_id = $1 AND t.type = 'income' AND t.status = 'pendente' AND t.date <= $2::date
		ORDER BY t.date
	`, therapistID, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []PendingCharge
	for rows.Next() {
		var r PendingCharge
		var cents int64
		if err := rows.Scan(&r.TransactionID, &r.PatientID, &r.PatientName, &r.PatientPhone, &r.Description, &cents, &r.Date); err != nil {
			return nil, err
		}
		r.AmountCents = money.Cents(cents)
		list = append(list, r)
	}
	return list, rows.Err()
}
