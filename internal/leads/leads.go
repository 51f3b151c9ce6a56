// Package leads cuida do funil de captação: colunas do quadro, estatísticas e
// a conversão de lead em paciente.
package leads

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusLead       = "Lead"
	StatusTriagem    = "Triagem"
	StatusAguardando = "Aguardando 1ª"
	StatusConvertido = "Convertido"

	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// Columns na ordem em que aparecem no quadro.
var Columns = []string{StatusLead, StatusTriagem, StatusAguardando, StatusConvertido}

var ErrAlreadyConverted = errors.New("lead já convertido")

func ValidStatus(s string) bool {
	for _, c := range Columns {
		if c == s {
			return true
		}
	}
	return false
}

func ValidUrgency(s string) bool {
	return s == UrgencyHigh || s == UrgencyMedium || s == UrgencyLow
}

type Column struct {
	Status string      `json:"status"`
	Count  int         `json:"count"`
	Leads  []repo.Lead `json:"leads"`
}

// Board agrupa os leads por coluna preservando a ordem recebida.
// Status fora das colunas conhecidas cai em "Lead".
func Board(list []repo.Lead) []Column {
	cols := make([]Column, len(Columns))
	idx := make(map[string]int, len(Columns))
	for i, c := range Columns {
		cols[i] = Column{Status: c, Leads: []repo.Lead{}}
		idx[c] = i
	}
	for _, l := range list {
		i, ok := idx[l.Status]
		if !ok {
			i = 0
		}
		cols[i].Leads = append(cols[i].Leads, l)
		cols[i].Count++
	}
	return cols
}

type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	CreatedToday   int            `json:"createdToday"`
	Converted      int            `json:"converted"`
	ConversionRate int            `json:"conversionRate"`
	HighUrgency    int            `json:"highUrgency"`
}

// ComputeStats: conversão = convertidos / total em %, arredondada; 0 sem leads.
// "Hoje" é avaliado no fuso de today.
func ComputeStats(list []repo.Lead, today time.Time) Stats {
	s := Stats{Total: len(list), ByStatus: make(map[string]int, len(Columns))}
	for _, c := range Columns {
		s.ByStatus[c] = 0
	}
	y, m, d := today.Date()
	for _, l := range list {
		s.ByStatus[l.Status]++
		if l.Status == StatusConvertido {
			s.Converted++
		}
		if l.Urgency == UrgencyHigh && l.Status != StatusConvertido {
			s.HighUrgency++
		}
		ly, lm, ld := l.CreatedAt.In(today.Location()).Date()
		if ly == y && lm == m && ld == d {
			s.CreatedToday++
		}
	}
	if s.Total > 0 {
		s.ConversionRate = int(math.Round(float64(s.Converted) / float64(s.Total) * 100))
	}
	return s
}

type Conversion struct {
	Lead      *repo.Lead `json:"lead"`
	PatientID uuid.UUID  `json:"patient_id"`
}

// Convert cria o paciente a partir do lead e marca o lead como Convertido, na
// mesma transação. A linha do lead fica travada para evitar conversão dupla.
func Convert(ctx context.Context, db *gorm.DB, therapistID, leadID uuid.UUID) (*Conversion, error) {
	var out Conversion
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := repo.LeadByIDForUpdate(ctx, tx, therapistID, leadID)
		if err != nil {
			return err
		}
		if lead.Status == StatusConvertido || lead.ConvertedPatientID != nil {
			return ErrAlreadyConverted
		}
		pid, err := repo.CreatePatient(ctx, tx, therapistID, PatientFromLead(lead))
		if err != nil {
			return err
		}
		if err := repo.MarkLeadConverted(ctx, tx, therapistID, leadID, pid); err != nil {
			return err
		}
		lead.Status = StatusConvertido
		lead.ConvertedPatientID = &pid
		out = Conversion{Lead: lead, PatientID: pid}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PatientFromLead copia nome, contato e observações; o paciente nasce ativo.
func PatientFromLead(l *repo.Lead) repo.PatientInput {
	in := repo.PatientInput{
		Name:               strings.TrimSpace(l.Name),
		Phone:              l.Phone,
		Email:              l.Email,
		Notes:              l.Notes,
		Status:             repo.PatientAtivo,
		AutomaticReminders: true,
	}
	if l.Source != nil && *l.Source != "" {
		note := "Origem: " + *l.Source
		if in.Notes != nil && *in.Notes != "" {
			note = *in.Notes + "\n" + note
		}
		in.Notes = &note
	}
	return in
}
