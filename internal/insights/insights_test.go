package insights

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/consultorio/backend/internal/cache"
	"github.com/consultorio/backend/internal/money"
	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls        atomic.Int32
	active, seen int
	sessions     int
	pending      int
	failActive   bool
	gotSince     string
	gotFrom      string
	gotTo        string
	appts        []repo.Appointment
	txs          []repo.Transaction
	last         []repo.PatientLastSession
	charges      []repo.PendingCharge
	missing      []repo.SessionWithoutRecord
}

func (f *fakeSource) ActivePatients(context.Context, uuid.UUID) (int, error) {
	f.calls.Add(1)
	if f.failActive {
		return 0, errors.New("db down")
	}
	return f.active, nil
}

func (f *fakeSource) SessionsBetween(_ context.Context, _ uuid.UUID, from, to string) (int, error) {
	f.gotFrom, f.gotTo = from, to
	return f.sessions, nil
}

func (f *fakeSource) PendingIncomeCount(context.Context, uuid.UUID) (int, error) {
	return f.pending, nil
}

func (f *fakeSource) ActivePatientsSeenSince(_ context.Context, _ uuid.UUID, since string) (int, error) {
	f.gotSince = since
	return f.seen, nil
}

func (f *fakeSource) AppointmentsBetween(context.Context, uuid.UUID, string, string) ([]repo.Appointment, error) {
	return f.appts, nil
}

func (f *fakeSource) TransactionsBetween(context.Context, uuid.UUID, string, string) ([]repo.Transaction, error) {
	return f.txs, nil
}

func (f *fakeSource) LastSessions(context.Context, uuid.UUID) ([]repo.PatientLastSession, error) {
	return f.last, nil
}

func (f *fakeSource) PendingCharges(context.Context, uuid.UUID, string) ([]repo.PendingCharge, error) {
	return f.charges, nil
}

func (f *fakeSource) SessionsWithoutRecord(context.Context, uuid.UUID, string, string) ([]repo.SessionWithoutRecord, error) {
	return f.missing, nil
}

var now = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

func TestDashboard(t *testing.T) {
	src := &fakeSource{
		active: 8, seen: 6, sessions: 20, pending: 3,
		txs: []repo.Transaction{
			{Date: "2025-06-02", Type: repo.TxIncome, Status: repo.TxConfirmado, AmountCents: 20000},
			{Date: "2025-06-03", Type: repo.TxExpense, Status: repo.TxConfirmado, AmountCents: 5000},
		},
	}
	svc := &Service{Source: src}
	d, err := svc.Dashboard(context.Background(), uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, 8, d.ActivePatients)
	assert.Equal(t, 20, d.SessionsThisMonth)
	assert.Equal(t, 3, d.PendingPayments)
	assert.Equal(t, 75, d.Retention)
	assert.NotNil(t, d.TodayAppointments)
	assert.Equal(t, money.Cents(15000), d.Month.Balance)
	assert.Equal(t, "2025-04-16", src.gotSince)
	assert.Equal(t, "2025-06-01", src.gotFrom)
	assert.Equal(t, "2025-06-30", src.gotTo)
	assert.Contains(t, d.Headline, "75%")
	assert.Contains(t, d.Headline, "2 pacientes")
}

func TestDashboardError(t *testing.T) {
	svc := &Service{Source: &fakeSource{failActive: true}}
	_, err := svc.Dashboard(context.Background(), uuid.New(), now)
	assert.Error(t, err)
}

func TestDashboardCached(t *testing.T) {
	c := cache.New(time.Minute)
	defer c.Close()
	src := &fakeSource{active: 1}
	svc := &Service{Source: src, Cache: c}
	id := uuid.New()
	_, err := svc.Dashboard(context.Background(), id, now)
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background(), id, now)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	c.DeletePrefix(context.Background(), cache.TherapistPrefix(id.String()))
	_, err = svc.Dashboard(context.Background(), id, now)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestRetention(t *testing.T) {
	assert.Equal(t, 0, Retention(3, 0))
	assert.Equal(t, 67, Retention(2, 3))
	assert.Equal(t, 100, Retention(5, 4))
}

func TestBuildSuggestions(t *testing.T) {
	phone := "11999990000"
	old, recent := "2025-03-01", "2025-06-01"
	name := "Carlos"
	in := SuggestionInput{
		Today: now,
		LastSessions: []repo.PatientLastSession{
			{PatientID: uuid.New(), Name: "Beatriz", Phone: &phone, LastDate: &old},
			{PatientID: uuid.New(), Name: "Recente", LastDate: &recent},
			{PatientID: uuid.New(), Name: "Nova"},
		},
		PendingCharges: []repo.PendingCharge{
			{TransactionID: uuid.New(), PatientName: &name, PatientPhone: &phone, AmountCents: 15000, Date: "2025-06-08"},
		},
		MissingRecords: []repo.SessionWithoutRecord{{PatientName: "Ana", Date: "2025-06-10"}},
	}
	got := BuildSuggestions(in)
	require.Len(t, got, 3)
	assert.Equal(t, "clinical", got[0].Type)
	assert.Contains(t, got[0].Description, "10/06/2025")
	assert.Equal(t, "retention", got[1].Type)
	assert.Contains(t, got[1].Description, "Beatriz não retorna há 106 dias")
	assert.True(t, strings.HasPrefix(got[1].ActionURL, "https://wa.me/5511999990000"))
	assert.Equal(t, "billing", got[2].Type)
	assert.Equal(t, "medium", got[2].Impact)
	assert.Contains(t, got[2].Description, "Carlos tem pagamento pendente (R$ 150,00) há 7 dias")
}

func TestBuildSuggestionsAggregatesClinicalAndCaps(t *testing.T) {
	in := SuggestionInput{Today: now}
	for i := 0; i < 3; i++ {
		in.MissingRecords = append(in.MissingRecords, repo.SessionWithoutRecord{PatientName: "P", Date: "2025-06-01"})
	}
	for i := 0; i < 20; i++ {
		in.PendingCharges = append(in.PendingCharges, repo.PendingCharge{TransactionID: uuid.New(), Description: "Sessão", AmountCents: 100, Date: "2025-06-01"})
	}
	got := BuildSuggestions(in)
	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, "3 prontuários aguardam evolução clínica. Complete para manter conformidade.", got[0].Description)
	assert.Empty(t, got[1].ActionURL)
}

func TestSuggestionsService(t *testing.T) {
	old := "2024-01-01"
	src := &fakeSource{last: []repo.PatientLastSession{{PatientID: uuid.New(), Name: "X", LastDate: &old}}}
	got, err := (&Service{Source: src}).Suggestions(context.Background(), uuid.New(), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "retention", got[0].Type)
}

// Paciente que nunca teve sessão conta a partir do cadastro.
func TestBuildSuggestionsRetentionFromSignup(t *testing.T) {
	old := "2025-06-01"
	in := SuggestionInput{
		Today: now,
		LastSessions: []repo.PatientLastSession{
			{PatientID: uuid.New(), Name: "Antigo", CreatedAt: "2025-01-10"},
			{PatientID: uuid.New(), Name: "Novo", CreatedAt: "2025-05-20"},
			// sessão recente prevalece sobre cadastro antigo
			{PatientID: uuid.New(), Name: "Ativo", CreatedAt: "2024-01-01", LastDate: &old},
		},
	}
	got := BuildSuggestions(in)
	require.Len(t, got, 1)
	assert.Equal(t, "retention", got[0].Type)
	assert.Contains(t, got[0].Description, "Antigo está cadastrado há 156 dias sem nenhuma sessão")
}
