package insights

import (
	"context"

	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// Source reúne as consultas usadas pelo dashboard.
type Source interface {
	ActivePatients(ctx context.Context, therapistID uuid.UUID) (int, error)
	SessionsBetween(ctx context.Context, therapistID uuid.UUID, from, to string) (int, error)
	PendingIncomeCount(ctx context.Context, therapistID uuid.UUID) (int, error)
	ActivePatientsSeenSince(ctx context.Context, therapistID uuid.UUID, since string) (int, error)
	AppointmentsBetween(ctx context.Context, therapistID uuid.UUID, from, to string) ([]repo.Appointment, error)
	TransactionsBetween(ctx context.Context, therapistID uuid.UUID, from, to string) ([]repo.Transaction, error)
	LastSessions(ctx context.Context, therapistID uuid.UUID) ([]repo.PatientLastSession, error)
	PendingCharges(ctx context.Context, therapistID uuid.UUID, before string) ([]repo.PendingCharge, error)
	SessionsWithoutRecord(ctx context.Context, therapistID uuid.UUID, since, until string) ([]repo.SessionWithoutRecord, error)
}

// DBSource: agregados via pgx, listas via gorm.
type DBSource struct {
	Pool *pgxpool.Pool
	DB   *gorm.DB
}

func (s DBSource) ActivePatients(ctx context.Context, id uuid.UUID) (int, error) {
	return repo.CountActivePatients(ctx, s.Pool, id)
}

func (s DBSource) SessionsBetween(ctx context.Context, id uuid.UUID, from, to string) (int, error) {
	return repo.CountSessionsBetween(ctx, s.Pool, id, from, to)
}

func (s DBSource) PendingIncomeCount(ctx context.Context, id uuid.UUID) (int, error) {
	return repo.CountPendingIncome(ctx, s.Pool, id)
}

func (s DBSource) ActivePatientsSeenSince(ctx context.Context, id uuid.UUID, since string) (int, error) {
	return repo.CountActivePatientsSeenSince(ctx, s.Pool, id, since)
}

func (s DBSource) AppointmentsBetween(ctx context.Context, id uuid.UUID, from, to string) ([]repo.Appointment, error) {
	return repo.ListAppointments(ctx, s.DB, id, from, to)
}

func (s DBSource) TransactionsBetween(ctx context.Context, id uuid.UUID, from, to string) ([]repo.Transaction, error) {
	return repo.ListTransactions(ctx, s.DB, id, repo.TransactionFilter{From: from, To: to})
}

func (s DBSource) LastSessions(ctx context.Context, id uuid.UUID) ([]repo.PatientLastSession, error) {
	return repo.ActivePatientsLastSession(ctx, s.Pool, id)
}

func (s DBSource) PendingCharges(ctx context.Context, id uuid.UUID, before string) ([]repo.PendingCharge, error) {
	return repo.PendingIncomeBefore(ctx, s.Pool, id, before)
}

func (s DBSource) SessionsWithoutRecord(ctx context.Context, id uuid.UUID, since, until string) ([]repo.SessionWithoutRecord, error) {
	return repo.SessionsWithoutRecord(ctx, s.Pool, id, since, until)
}
