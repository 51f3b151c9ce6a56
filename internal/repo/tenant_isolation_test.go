//go:build integration

package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/db"
	"github.com/consultorio/backend/internal/money"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTherapist(t *testing.T, d *db.DB, name string) uuid.UUID {
	t.Helper()
	email := uuid.NewString()[:8] + "@teste.local"
	id, err := repo.CreateTherapist(context.Background(), d.Pool, email, "hash", name, auth.RoleTherapist)
	require.NoError(t, err)
	return id
}

// Dados de um terapeuta nunca aparecem para outro.
func TestTenantIsolation(t *testing.T) {
	d := testutil.Open(t)
	ctx := context.Background()
	a := newTherapist(t, d, "Terapeuta A")
	b := newTherapist(t, d, "Terapeuta B")

	pid, err := repo.CreatePatient(ctx, d.Gorm, a, repo.PatientInput{
		Name: "Paciente Isolamento", Status: repo.PatientAtivo, PaymentStatus: "Em dia", Category: "Particular",
		SessionValueCents: money.Cents(15000), AutomaticReminders: true,
	})
	require.NoError(t, err)

	listB, err := repo.ListPatients(ctx, d.Gorm, b, repo.PatientFilter{Limit: 100})
	require.NoError(t, err)
	for _, p := range listB {
		assert.NotEqual(t, pid, p.ID)
	}
	listA, err := repo.ListPatients(ctx, d.Gorm, a, repo.PatientFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, money.Cents(15000), listA[0].SessionValueCents)

	_, err = repo.PatientByID(ctx, d.Gorm, b, pid)
	assert.True(t, repo.IsNotFound(err))
	err = repo.UpdatePatient(ctx, d.Gorm, b, pid, repo.PatientInput{Name: "X", Status: repo.PatientAtivo, PaymentStatus: "Em dia", Category: "Particular"})
	assert.True(t, repo.IsNotFound(err))
	assert.True(t, repo.IsNotFound(repo.DeletePatient(ctx, d.Gorm, b, pid)))

	// B não agenda sessão para paciente de A
	_, err = repo.CreateAppointment(ctx, d.Gorm, b, repo.AppointmentInput{
		PatientID: pid, Date: "2030-01-07", Time: "10:00", Duration: 50, Type: repo.ApptPresencial, Status: repo.ApptPendente,
	})
	assert.True(t, repo.IsNotFound(err))
	_, err = repo.CreateTransaction(ctx, d.Gorm, b, repo.TransactionInput{
		PatientID: &pid, Description: "Sessão", Category: repo.CategorySession, AmountCents: 100, Type: repo.TxIncome, Status: repo.TxPendente, Date: "2030-01-07",
	})
	assert.True(t, repo.IsNotFound(err))
}

func TestAppointmentConfirmFlow(t *testing.T) {
	d := testutil.Open(t)
	ctx := context.Background()
	tid := newTherapist(t, d, "Terapeuta C")
	phone := "11999990000"
	pid, err := repo.CreatePatient(ctx, d.Gorm, tid, repo.PatientInput{
		Name: "Maria", Phone: &phone, Status: repo.PatientAtivo, PaymentStatus: "Em dia", Category: "Particular", AutomaticReminders: true,
	})
	require.NoError(t, err)
	aid, err := repo.CreateAppointment(ctx, d.Gorm, tid, repo.AppointmentInput{
		PatientID: pid, Date: "2030-01-08", Time: "14:00", Duration: 50, Type: repo.ApptPresencial, Status: repo.ApptPendente,
	})
	require.NoError(t, err)

	slots, err := repo.ActiveSlotsOnDate(ctx, d.Gorm, tid, "2030-01-08", nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "14:00", repo.NormalizeHHMM(slots[0].Time))
	slots, err = repo.ActiveSlotsOnDate(ctx, d.Gorm, tid, "2030-01-08", &aid)
	require.NoError(t, err)
	assert.Empty(t, slots)

	date, _ := time.Parse("2006-01-02", "2030-01-08")
	rows, err := repo.ListAppointmentsForReminder(ctx, d.Gorm, date)
	require.NoError(t, err)
	found := false
	for _, r := range rows {
		if r.AppointmentID == aid {
			found = true
			assert.Equal(t, "Maria", r.PatientName)
		}
	}
	assert.True(t, found)

	tok, err := repo.CreateConfirmToken(ctx, d.Gorm, aid, time.Hour)
	require.NoError(t, err)
	info, err := repo.AppointmentByConfirmToken(ctx, d.Gorm, tok)
	require.NoError(t, err)
	assert.Equal(t, repo.ApptPendente, info.Status)

	changed, err := repo.ConfirmAppointmentByToken(ctx, d.Gorm, tok)
	require.NoError(t, err)
	assert.True(t, changed)
	a, err := repo.AppointmentByID(ctx, d.Gorm, tid, aid)
	require.NoError(t, err)
	assert.Equal(t, repo.ApptConfirmado, a.Status)

	// confirmar de novo continua sendo sucesso
	changed, err = repo.ConfirmAppointmentByToken(ctx, d.Gorm, tok)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.AppointmentByConfirmToken(ctx, d.Gorm, "inexistente")
	assert.True(t, repo.IsNotFound(err))
}

func TestDeletePatientKeepsTransactions(t *testing.T) {
	d := testutil.Open(t)
	ctx := context.Background()
	tid := newTherapist(t, d, "Terapeuta D")
	pid, err := repo.CreatePatient(ctx, d.Gorm, tid, repo.PatientInput{Name: "João", Status: repo.PatientAtivo, PaymentStatus: "Em dia", Category: "Particular"})
	require.NoError(t, err)
	txID, err := repo.CreateTransaction(ctx, d.Gorm, tid, repo.TransactionInput{
		PatientID: &pid, Description: "Sessão", Category: repo.CategorySession, AmountCents: 15000, Type: repo.TxIncome, Status: repo.TxConfirmado, Date: "2030-02-01",
	})
	require.NoError(t, err)
	require.NoError(t, repo.DeletePatient(ctx, d.Gorm, tid, pid))

	tx, err := repo.TransactionByID(ctx, d.Gorm, tid, txID)
	require.NoError(t, err)
	assert.Nil(t, tx.PatientID)
}
