package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore implementa Store em memória.
type fakeStore struct {
	mu       sync.Mutex
	rows     []repo.ReminderRow
	listErr  error
	tokenErr error
	listedAt time.Time
	marked   []uuid.UUID
	audits   []repo.AuditEvent
}

func (f *fakeStore) ListForReminder(_ context.Context, date time.Time) ([]repo.ReminderRow, error) {
	f.listedAt = date
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]repo.ReminderRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeStore) IssueConfirmToken(_ context.Context, id uuid.UUID) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "tok-" + id.String()[:8], nil
}

func (f *fakeStore) MarkSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeStore) Audit(_ context.Context, ev repo.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, ev)
	return nil
}

// fakeSender grava as chamadas; failPhones falham.
type fakeSender struct {
	calls      []sendCall
	failPhones map[string]bool
}

type sendCall struct{ phone, body string }

func (f *fakeSender) Send(_ context.Context, phone, body string) error {
	f.calls = append(f.calls, sendCall{phone, body})
	if f.failPhones[phone] {
		return errors.New("twilio 400")
	}
	return nil
}

func row(therapist uuid.UUID, name, phone, hhmm string) repo.ReminderRow {
	return repo.ReminderRow{
		AppointmentID: uuid.New(), TherapistID: therapist, PatientID: uuid.New(),
		PatientName: name, PatientPhone: phone, Date: "2025-02-12", Time: hhmm, Type: repo.ApptPresencial,
	}
}

var date = time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)

func TestRunForDate_ListError(t *testing.T) {
	svc := &Service{Store: &fakeStore{listErr: errors.New("db down")}, Sender: &fakeSender{}, Logger: zaptest.NewLogger(t)}
	res, err := svc.RunForDate(context.Background(), date, nil)
	require.Error(t, err)
	assert.Zero(t, res.Sent)
	assert.Equal(t, "2025-02-12", res.Date)
}

func TestRunForDate_NoSenderSkipsAll(t *testing.T) {
	th := uuid.New()
	store := &fakeStore{rows: []repo.ReminderRow{row(th, "Maria", "11999990000", "10:00"), row(th, "João", "11888880000", "11:00")}}
	svc := &Service{Store: store}
	res, err := svc.RunForDate(context.Background(), date, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 0, Skipped: 2, Date: "2025-02-12"}, res)
	assert.Empty(t, store.marked)
}

func TestRunForDate_AllSent(t *testing.T) {
	th := uuid.New()
	online := row(th, "João", "11888880000", "09:00:00")
	online.Type = repo.ApptOnline
	link := "https://meet.google.com/abcd-efgh-ijkl"
	online.MeetLink = &link
	store := &fakeStore{rows: []repo.ReminderRow{row(th, "Maria", "11999990000", "14:30"), online}}
	sender := &fakeSender{}
	svc := &Service{Store: store, Sender: sender, Logger: zaptest.NewLogger(t), ConfirmBaseURL: "https://app.example/confirmar/"}

	res, err := svc.RunForDate(context.Background(), date, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Zero(t, res.Skipped)
	require.Len(t, sender.calls, 2)

	first := sender.calls[0].body
	assert.Contains(t, first, "Olá, Maria!")
	assert.Contains(t, first, "*12/02/2025*")
	assert.Contains(t, first, "*14:30*")
	assert.Contains(t, first, "Te aguardo no consultório.")
	assert.Contains(t, first, "https://app.example/confirmar/tok-")

	second := sender.calls[1].body
	assert.Contains(t, second, "*09:00*")
	assert.Contains(t, second, link)

	assert.Len(t, store.marked, 2)
	require.Len(t, store.audits, 2)
	assert.Equal(t, auditActionReminderSent, store.audits[0].Action)
	assert.Equal(t, repo.ActorSystem, store.audits[0].ActorType)
}

func TestRunForDate_PartialFail(t *testing.T) {
	th := uuid.New()
	store := &fakeStore{rows: []repo.ReminderRow{
		row(th, "Maria", "11999990000", "10:00"),
		row(th, "João", "11888880000", "11:00"),
		row(th, "Pedro", "11777770000", "12:00"),
	}}
	sender := &fakeSender{failPhones: map[string]bool{"11888880000": true}}
	svc := &Service{Store: store, Sender: sender}
	res, err := svc.RunForDate(context.Background(), date, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, sender.calls, 3)
	assert.Len(t, store.marked, 2)
}

func TestRunForDate_TokenFailureStillSends(t *testing.T) {
	store := &fakeStore{rows: []repo.ReminderRow{row(uuid.New(), "Maria", "11999990000", "10:00")}, tokenErr: errors.New("x")}
	sender := &fakeSender{}
	svc := &Service{Store: store, Sender: sender, ConfirmBaseURL: "https://app/confirmar"}
	res, err := svc.RunForDate(context.Background(), date, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.NotContains(t, sender.calls[0].body, "Confirme sua presença")
}

func TestRunForDate_FilterByTherapist(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	store := &fakeStore{rows: []repo.ReminderRow{row(a, "Maria", "1", "10:00"), row(b, "João", "2", "11:00"), row(a, "Pedro", "3", "12:00")}}
	sender := &fakeSender{}
	svc := &Service{Store: store, Sender: sender}
	res, err := svc.RunForDate(context.Background(), date, &a)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	for _, c := range sender.calls {
		assert.NotEqual(t, "2", c.phone)
	}
}

func TestRunUsesTargetDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	store := &fakeStore{}
	svc := &Service{
		Store:     store,
		Location:  loc,
		DaysAhead: 1,
		Now:       func() time.Time { return time.Date(2025, 2, 12, 2, 0, 0, 0, time.UTC) },
	}
	res, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	// 02:00 UTC ainda é dia 11 em São Paulo
	assert.Equal(t, "2025-02-12", res.Date)
	assert.Equal(t, "2025-02-12", store.listedAt.Format("2006-01-02"))
}

func TestDefaultSender(t *testing.T) {
	assert.Nil(t, DefaultSender("", "token", "from"))
	assert.Nil(t, DefaultSender("sid", "", "from"))
	assert.Nil(t, DefaultSender("sid", "token", ""))
	assert.NotNil(t, DefaultSender("sid", "token", "whatsapp:+15551234567"))
}

func TestServerTrigger(t *testing.T) {
	th := uuid.New()
	store := &fakeStore{rows: []repo.ReminderRow{row(th, "Maria", "11999990000", "10:00")}}
	svc := &Service{Store: store, Sender: &fakeSender{}, Now: func() time.Time { return date }}
	h := NewServer(svc, "secret", zaptest.NewLogger(t)).Handler()

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/trigger?therapist_id=nope", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/trigger", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 1, res.Sent)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
