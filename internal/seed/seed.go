// Package seed cria uma conta de demonstração com pacientes, agenda,
// financeiro e funil preenchidos. Rodar de novo não duplica nada.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/automations"
	"github.com/consultorio/backend/internal/leads"
	"github.com/consultorio/backend/internal/money"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/tasks"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DemoEmail    = "demo@consultorio.local"
	DemoPassword = "Demo123!"
)

// ErrAlreadySeeded indica que a conta demo já existe.
var ErrAlreadySeeded = errors.New("seed: conta demo já existe")

type demoPatient struct {
	name, phone, birth, category string
	value                        money.Cents
}

var demoPatients = []demoPatient{
	{"Ana Beatriz Souza", "11987654321", "1990-03-14", "Particular", 18000},
	{"Carlos Eduardo Lima", "11976543210", "1985-11-02", "Convênio", 12000},
	{"Fernanda Rocha", "21965432109", "1998-07-21", "Particular", 15000},
	{"João Pedro Alves", "31954321098", "2001-01-30", "Social", 8000},
}

// Run grava os dados demo e devolve o id do terapeuta criado.
func Run(ctx context.Context, db *gorm.DB, pool *pgxpool.Pool, now time.Time, logger *zap.Logger) (uuid.UUID, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := repo.TherapistByEmail(ctx, pool, DemoEmail); err == nil {
		return uuid.Nil, ErrAlreadySeeded
	} else if !repo.IsNotFound(err) {
		return uuid.Nil, err
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return uuid.Nil, err
	}
	tid, err := repo.CreateTherapist(ctx, pool, DemoEmail, hash, "Dra. Demo", auth.RoleTherapist)
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed therapist: %w", err)
	}

	defs, err := automations.Defaults()
	if err != nil {
		return uuid.Nil, err
	}
	if err := repo.EnsureAutomations(ctx, db, tid, defs); err != nil {
		return uuid.Nil, fmt.Errorf("seed automations: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fill(ctx, tx, tid, now)
	})
	if err != nil {
		return uuid.Nil, err
	}
	logger.Info("seed: conta demo criada", zap.String("therapist_id", tid.String()), zap.String("email", DemoEmail))
	return tid, nil
}

func fill(ctx context.Context, tx *gorm.DB, tid uuid.UUID, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format("2006-01-02") }

	ids := make([]uuid.UUID, 0, len(demoPatients))
	for _, p := range demoPatients {
		phone, birth := p.phone, p.birth
		id, err := repo.CreatePatient(ctx, tx, tid, repo.PatientInput{
			Name: p.name, Phone: &phone, BirthDate: &birth, Status: repo.PatientAtivo,
			PaymentStatus: "Em dia", Category: p.category, SessionValueCents: p.value, AutomaticReminders: true,
		})
		if err != nil {
			return fmt.Errorf("seed patient %s: %w", p.name, err)
		}
		ids = append(ids, id)
	}

	appts := []struct {
		patient     int
		offset      int
		hhmm, kind  string
		status      string
		withPayment bool
	}{
		{0, -14, "09:00", repo.ApptPresencial, repo.ApptRealizado, true},
		{1, -7, "10:00", repo.ApptOnline, repo.ApptRealizado, true},
		{2, -7, "14:00", repo.ApptPresencial, repo.ApptFaltou, false},
		{0, 0, "09:00", repo.ApptPresencial, repo.ApptConfirmado, false},
		{3, 1, "11:00", repo.ApptPresencial, repo.ApptPendente, false},
		{1, 2, "16:00", repo.ApptOnline, repo.ApptPendente, false},
	}
	for _, a := range appts {
		pid := ids[a.patient]
		if _, err := repo.CreateAppointment(ctx, tx, tid, repo.AppointmentInput{
			PatientID: pid, Date: day(a.offset), Time: a.hhmm, Duration: 50, Type: a.kind, Status: a.status,
		}); err != nil {
			return fmt.Errorf("seed appointment: %w", err)
		}
		if !a.withPayment {
			continue
		}
		if _, err := repo.CreateTransaction(ctx, tx, tid, repo.TransactionInput{
			PatientID: &pid, Description: "Sessão - " + demoPatients[a.patient].name, Category: repo.CategorySession,
			AmountCents: demoPatients[a.patient].value, Type: repo.TxIncome, Status: repo.TxConfirmado, Date: day(a.offset),
		}); err != nil {
			return fmt.Errorf("seed transaction: %w", err)
		}
	}

	// cobrança pendente antiga e despesas fixas
	pending := ids[2]
	extra := []repo.TransactionInput{
		{PatientID: &pending, Description: "Sessão - " + demoPatients[2].name, Category: repo.CategorySession,
			AmountCents: demoPatients[2].value, Type: repo.TxIncome, Status: repo.TxPendente, Date: day(-10)},
		{Description: "Aluguel da sala", Category: "Aluguel", AmountCents: 150000, Type: repo.TxExpense, Status: repo.TxConfirmado, Date: day(-5)},
		{Description: "Supervisão clínica", Category: "Formação", AmountCents: 40000, Type: repo.TxExpense, Status: repo.TxPendente, Date: day(3)},
	}
	for _, in := range extra {
		if _, err := repo.CreateTransaction(ctx, tx, tid, in); err != nil {
			return fmt.Errorf("seed transaction: %w", err)
		}
	}

	instagram, indicacao := "Instagram", "Indicação"
	for _, l := range []repo.LeadInput{
		{Name: "Mariana Costa", Source: &instagram, Urgency: leads.UrgencyMedium, Status: leads.StatusLead},
		{Name: "Roberto Dias", Source: &indicacao, Urgency: leads.UrgencyMedium, Status: leads.StatusLead},
	} {
		if _, err := repo.CreateLead(ctx, tx, tid, l); err != nil {
			return fmt.Errorf("seed lead: %w", err)
		}
	}

	due := day(-1)
	if _, err := repo.CreateTask(ctx, tx, tid, repo.TaskInput{
		Title: "Emitir recibos do mês", DueDate: &due, Priority: tasks.PriorityMedia,
		Status: tasks.StatusPendente, Category: tasks.CategoryAdministrativa,
	}); err != nil {
		return fmt.Errorf("seed task: %w", err)
	}

	psiq, contact := "Psiquiatria", "psiq@parceiros.local"
	if _, err := repo.CreatePartner(ctx, tx, tid, repo.PartnerInput{Name: "Dr. Paulo Mendes", Specialty: &psiq, Contact: &contact, Status: "Ativo"}); err != nil {
		return fmt.Errorf("seed partner: %w", err)
	}
	return nil
}
