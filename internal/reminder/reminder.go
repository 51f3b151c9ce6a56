package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/agenda"
	"github.com/consultorio/backend/internal/logging"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/whatsapp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const auditActionReminderSent = "APPOINTMENT_REMINDER_SENT"

// ConfirmTokenTTL é a validade do link público de confirmação.
const ConfirmTokenTTL = 7 * 24 * time.Hour

// Sender envia uma mensagem de WhatsApp.
type Sender interface {
	Send(ctx context.Context, phone, body string) error
}

// Store isola o acesso a banco; em testes usa-se um fake.
type Store interface {
	ListForReminder(ctx context.Context, date time.Time) ([]repo.ReminderRow, error)
	IssueConfirmToken(ctx context.Context, appointmentID uuid.UUID) (string, error)
	MarkSent(ctx context.Context, appointmentID uuid.UUID) error
	Audit(ctx context.Context, ev repo.AuditEvent) error
}

// DBStore é o Store de produção (gorm para sessões/tokens, pgx para auditoria).
type DBStore struct {
	DB   *gorm.DB
	Pool *pgxpool.Pool
}

func (s DBStore) ListForReminder(ctx context.Context, date time.Time) ([]repo.ReminderRow, error) {
	return repo.ListAppointmentsForReminder(ctx, s.DB, date)
}

func (s DBStore) IssueConfirmToken(ctx context.Context, appointmentID uuid.UUID) (string, error) {
	return repo.CreateConfirmToken(ctx, s.DB, appointmentID, ConfirmTokenTTL)
}

func (s DBStore) MarkSent(ctx context.Context, appointmentID uuid.UUID) error {
	return repo.MarkReminderSentByID(ctx, s.DB, appointmentID)
}

func (s DBStore) Audit(ctx context.Context, ev repo.AuditEvent) error {
	if s.Pool == nil {
		return nil
	}
	return repo.CreateAuditEvent(ctx, s.Pool, ev)
}

type Result struct {
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Date    string `json:"date"`
}

// Service roda o envio de lembretes para a data-alvo.
type Service struct {
	Store  Store
	Sender Sender // nil = WhatsApp não configurado
	Logger *zap.Logger
	// ConfirmBaseURL recebe "/<token>" (ex.: https://app/confirmar).
	ConfirmBaseURL string
	Location       *time.Location
	DaysAhead      int
	Now            func() time.Time
}

// TargetDate é hoje + DaysAhead no fuso configurado.
func (s *Service) TargetDate() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return agenda.ReminderDate(now(), s.Location, s.DaysAhead)
}

// Run envia os lembretes da data-alvo. therapistID restringe a um terapeuta (nil = todos).
func (s *Service) Run(ctx context.Context, therapistID *uuid.UUID) (Result, error) {
	return s.RunForDate(ctx, s.TargetDate(), therapistID)
}

// RunForDate: uma mensagem por sessão elegível. Falhas de envio contam como
// skipped e não interrompem o restante.
func (s *Service) RunForDate(ctx context.Context, date time.Time, therapistID *uuid.UUID) (Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	res := Result{Date: date.Format("2006-01-02")}
	rows, err := s.Store.ListForReminder(ctx, date)
	if err != nil {
		logger.Error("reminder: list appointments", zap.Error(err), zap.String("date", res.Date))
		return res, err
	}
	if therapistID != nil {
		filtered := rows[:0]
		for _, r := range rows {
			if r.TherapistID == *therapistID {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if s.Sender == nil {
		logger.Warn("reminder: WhatsApp not configured", zap.Int("would_send", len(rows)))
		res.Skipped = len(rows)
		return res, nil
	}
	dateBR := date.Format("02/01/2006")
	for _, r := range rows {
		if ctx.Err() != nil {
			res.Skipped += len(rows) - res.Sent - res.Skipped
			return res, ctx.Err()
		}
		confirmURL := ""
		if token, err := s.Store.IssueConfirmToken(ctx, r.AppointmentID); err != nil {
			logger.Warn("reminder: confirm token", zap.Error(err), zap.String("appointment_id", r.AppointmentID.String()))
		} else if s.ConfirmBaseURL != "" {
			confirmURL = strings.TrimRight(s.ConfirmBaseURL, "/") + "/" + token
		}
		meetLink := ""
		if r.Type == repo.ApptOnline && r.MeetLink != nil {
			meetLink = *r.MeetLink
		}
		body := whatsapp.ReminderWithConfirmation(r.PatientName, dateBR, repo.NormalizeHHMM(r.Time), meetLink, confirmURL)
		if err := s.Sender.Send(ctx, r.PatientPhone, body); err != nil {
			logger.Warn("reminder: send failed",
				zap.Error(err),
				zap.String("appointment_id", r.AppointmentID.String()),
				zap.String("phone", logging.MaskPhone(r.PatientPhone)))
			res.Skipped++
			continue
		}
		res.Sent++
		if err := s.Store.MarkSent(ctx, r.AppointmentID); err != nil {
			logger.Error("reminder: mark sent", zap.Error(err), zap.String("appointment_id", r.AppointmentID.String()))
		}
		therapist, appt, patient := r.TherapistID, r.AppointmentID, r.PatientID
		resource := "APPOINTMENT"
		if err := s.Store.Audit(ctx, repo.AuditEvent{
			Action:       auditActionReminderSent,
			ActorType:    repo.ActorSystem,
			TherapistID:  &therapist,
			ResourceType: &resource,
			ResourceID:   &appt,
			PatientID:    &patient,
			Source:       repo.ActorSystem,
			Metadata:     map[string]string{"date": res.Date, "time": r.Time},
		}); err != nil {
			logger.Warn("reminder: audit", zap.Error(err))
		}
	}
	logger.Info("reminder: done", zap.Int("sent", res.Sent), zap.Int("skipped", res.Skipped), zap.String("date", res.Date))
	return res, nil
}

// DefaultSender devolve o cliente Twilio, ou nil se faltar credencial.
func DefaultSender(accountSid, authToken, from string) Sender {
	cfg := whatsapp.Config{AccountSid: accountSid, AuthToken: authToken, From: from}
	if !cfg.Configured() {
		return nil
	}
	return whatsapp.NewClient(cfg)
}
