// Package insights calcula os indicadores do dashboard e as sugestões
// proativas (regras fixas sobre agenda, financeiro e prontuário).
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/consultorio/backend/internal/agenda"
	"github.com/consultorio/backend/internal/cache"
	"github.com/consultorio/backend/internal/finance"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/whatsapp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	RetentionWindowDays = 60
	InactiveAfterDays   = 90
	BillingGraceDays    = 5
	ClinicalWindowDays  = 30
	MaxSuggestions      = 10
	DashboardTTL        = 30 * time.Second
)

const dateLayout = "2006-01-02"

type Dashboard struct {
	ActivePatients    int                `json:"activePatients"`
	SessionsThisMonth int                `json:"sessionsThisMonth"`
	PendingPayments   int                `json:"pendingPayments"`
	Retention         int                `json:"retention"`
	TodayAppointments []repo.Appointment `json:"todayAppointments"`
	Month             finance.Summary    `json:"month"`
	Headline          string             `json:"headline"`
	GeneratedAt       time.Time          `json:"generatedAt"`
}

type Service struct {
	Source   Source
	Cache    cache.Cache // opcional
	Location *time.Location
	Logger   *zap.Logger
}

func (s *Service) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Dashboard roda as consultas em paralelo e guarda o resultado por 30s.
func (s *Service) Dashboard(ctx context.Context, therapistID uuid.UUID, now time.Time) (*Dashboard, error) {
	key := cache.Key(therapistID.String(), "dashboard")
	if s.Cache != nil {
		if raw, ok := s.Cache.Get(ctx, key); ok {
			var d Dashboard
			if err := json.Unmarshal(raw, &d); err == nil {
				return &d, nil
			}
		}
	}

	local := now.In(s.loc())
	today := local.Format(dateLayout)
	month := local.Format("2006-01")
	monthFrom, monthTo, _ := finance.MonthRange(month)
	since := local.AddDate(0, 0, -RetentionWindowDays).Format(dateLayout)

	d := &Dashboard{GeneratedAt: now.UTC()}
	var seen int
	var txs []repo.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.ActivePatients, err = s.Source.ActivePatients(gctx, therapistID)
		return err
	})
	g.Go(func() (err error) {
		d.SessionsThisMonth, err = s.Source.SessionsBetween(gctx, therapistID, monthFrom, monthTo)
		return err
	})
	g.Go(func() (err error) {
		d.PendingPayments, err = s.Source.PendingIncomeCount(gctx, therapistID)
		return err
	})
	g.Go(func() (err error) {
		seen, err = s.Source.ActivePatientsSeenSince(gctx, therapistID, since)
		return err
	})
	g.Go(func() (err error) {
		d.TodayAppointments, err = s.Source.AppointmentsBetween(gctx, therapistID, today, today)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.Source.TransactionsBetween(gctx, therapistID, monthFrom, monthTo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if d.TodayAppointments == nil {
		d.TodayAppointments = []repo.Appointment{}
	}
	d.Retention = Retention(seen, d.ActivePatients)
	d.Month = finance.MonthlySummary(month, txs)
	d.Headline = Headline(d.Retention, d.ActivePatients-seen)

	if s.Cache != nil {
		if raw, err := json.Marshal(d); err == nil {
			s.Cache.Set(ctx, key, raw, DashboardTTL)
		}
	}
	return d, nil
}

// Retention = ativos atendidos na janela / ativos, em %; 0 sem ativos.
func Retention(seen, active int) int {
	if active <= 0 {
		return 0
	}
	if seen > active {
		seen = active
	}
	return int(math.Round(float64(seen) / float64(active) * 100))
}

func Headline(retention, inactive int) string {
	msg := fmt.Sprintf("Sua clínica apresenta taxa de retenção de %d%%.", retention)
	switch {
	case inactive == 1:
		msg += " Oportunidade: 1 paciente sem sessão recente pode ser reativado com um follow-up."
	case inactive > 1:
		msg += fmt.Sprintf(" Oportunidade: %d pacientes sem sessão recente podem ser reativados com follow-up personalizado.", inactive)
	}
	return msg
}

type Suggestion struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ActionLabel string `json:"actionLabel"`
	ActionURL   string `json:"actionUrl,omitempty"`
	Impact      string `json:"impact"`
}

// Suggestions busca os dados em paralelo e aplica as regras de BuildSuggestions.
func (s *Service) Suggestions(ctx context.Context, therapistID uuid.UUID, now time.Time) ([]Suggestion, error) {
	local := now.In(s.loc())
	today := local.Format(dateLayout)
	var in SuggestionInput
	in.Today = local
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.LastSessions, err = s.Source.LastSessions(gctx, therapistID)
		return err
	})
	g.Go(func() (err error) {
		in.PendingCharges, err = s.Source.PendingCharges(gctx, therapistID, local.AddDate(0, 0, -BillingGraceDays).Format(dateLayout))
		return err
	})
	g.Go(func() (err error) {
		in.MissingRecords, err = s.Source.SessionsWithoutRecord(gctx, therapistID, local.AddDate(0, 0, -ClinicalWindowDays).Format(dateLayout), today)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return BuildSuggestions(in), nil
}

type SuggestionInput struct {
	Today          time.Time
	LastSessions   []repo.PatientLastSession
	PendingCharges []repo.PendingCharge
	MissingRecords []repo.SessionWithoutRecord
}

// BuildSuggestions aplica as regras:
//   - retenção: paciente ativo cuja última sessão tem mais de 90 dias (impacto alto);
//   - cobrança: receita pendente há 5 dias ou mais (impacto médio);
//   - clínico: sessões realizadas nos últimos 30 dias sem evolução (impacto alto).
//
// Ordena por impacto e devolve no máximo MaxSuggestions.
func BuildSuggestions(in SuggestionInput) []Suggestion {
	today := time.Date(in.Today.Year(), in.Today.Month(), in.Today.Day(), 0, 0, 0, 0, time.UTC)
	out := []Suggestion{}

	if n := len(in.MissingRecords); n > 0 {
		desc := fmt.Sprintf("%d prontuários aguardam evolução clínica. Complete para manter conformidade.", n)
		if n == 1 {
			desc = fmt.Sprintf("A sessão de %s em %s aguarda evolução clínica. Complete para manter conformidade.",
				in.MissingRecords[0].PatientName, agenda.FormatDateBR(in.MissingRecords[0].Date))
		}
		out = append(out, Suggestion{
			ID: "clinical", Type: "clinical", Title: "Evolução Atrasada",
			Description: desc, ActionLabel: "Evoluir Agora", Impact: "high",
		})
	}

	for _, p := range in.LastSessions {
		// sem sessão nenhuma, conta a partir do cadastro
		ref, desc := p.CreatedAt, "%s está cadastrado há %d dias sem nenhuma sessão. Enviar mensagem de acolhimento pode iniciar o acompanhamento."
		if p.LastDate != nil {
			ref, desc = *p.LastDate, "%s não retorna há %d dias. Enviar mensagem de acolhimento pode reativar o vínculo."
		}
		if ref == "" {
			continue
		}
		days := daysSince(today, ref)
		if days <= InactiveAfterDays {
			continue
		}
		sg := Suggestion{
			ID: "retention:" + p.PatientID.String(), Type: "retention", Title: "Paciente Inativo",
			Description: fmt.Sprintf(desc, p.Name, days),
			ActionLabel: "Enviar Mensagem", Impact: "high",
		}
		if p.Phone != nil && *p.Phone != "" {
			sg.ActionURL = whatsapp.Link(*p.Phone, whatsapp.FollowUpMessage(p.Name))
		}
		out = append(out, sg)
	}

	for _, c := range in.PendingCharges {
		name := c.Description
		if c.PatientName != nil && *c.PatientName != "" {
			name = *c.PatientName
		}
		days := daysSince(today, c.Date)
		sg := Suggestion{
			ID: "billing:" + c.TransactionID.String(), Type: "billing", Title: "Cobrança Pendente",
			Description: fmt.Sprintf("%s tem pagamento pendente (%s) há %d dias. Automação de cobrança disponível.", name, c.AmountCents.BRL(), days),
			ActionLabel: "Cobrar Agora", Impact: "medium",
		}
		if c.PatientPhone != nil && *c.PatientPhone != "" {
			sg.ActionURL = whatsapp.Link(*c.PatientPhone, whatsapp.PaymentMessage(name, c.AmountCents, ""))
		}
		out = append(out, sg)
	}

	rank := map[string]int{"high": 0, "medium": 1, "low": 2}
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i].Impact] < rank[out[j].Impact] })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

func daysSince(today time.Time, iso string) int {
	d, err := time.Parse(dateLayout, iso)
	if err != nil {
		return 0
	}
	return int(today.Sub(d).Hours() / 24)
}
