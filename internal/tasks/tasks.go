// Package tasks tem as regras de status das tarefas do consultório.
package tasks

import (
	"time"

	"github.com/consultorio/backend/internal/repo"
)

const (
	StatusPendente  = "Pendente"
	StatusConcluido = "Concluído"
	StatusPago      = "Pago"

	PriorityAlta  = "Alta"
	PriorityMedia = "Média"
	PriorityBaixa = "Baixa"

	CategoryClinica        = "Clínica"
	CategoryFinanceira     = "Financeira"
	CategoryAdministrativa = "Administrativa"
)

// NextStatus: Pendente vira Pago (financeira) ou Concluído; qualquer outro volta a Pendente.
func NextStatus(status, category string) string {
	if status != StatusPendente {
		return StatusPendente
	}
	if category == CategoryFinanceira {
		return StatusPago
	}
	return StatusConcluido
}

func ValidStatus(s string) bool {
	return s == StatusPendente || s == StatusConcluido || s == StatusPago
}

func ValidPriority(s string) bool {
	return s == PriorityAlta || s == PriorityMedia || s == PriorityBaixa
}

func ValidCategory(s string) bool {
	return s == CategoryClinica || s == CategoryFinanceira || s == CategoryAdministrativa
}

// IsOverdue: pendente com vencimento antes de today (YYYY-MM-DD).
func IsOverdue(t repo.Task, today string) bool {
	if t.Status != StatusPendente || t.DueDate == nil || *t.DueDate == "" {
		return false
	}
	return *t.DueDate < today
}

// MarkOverdue preenche Overdue em cada tarefa e devolve quantas estão vencidas.
func MarkOverdue(list []repo.Task, now time.Time) int {
	today := now.Format("2006-01-02")
	n := 0
	for i := range list {
		list[i].Overdue = IsOverdue(list[i], today)
		if list[i].Overdue {
			n++
		}
	}
	return n
}
