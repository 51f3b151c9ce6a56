package tasks

import (
	"testing"
	"time"

	"github.com/consultorio/backend/internal/repo"
	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	assert.Equal(t, StatusConcluido, NextStatus(StatusPendente, CategoryClinica))
	assert.Equal(t, StatusConcluido, NextStatus(StatusPendente, CategoryAdministrativa))
	assert.Equal(t, StatusPago, NextStatus(StatusPendente, CategoryFinanceira))
	assert.Equal(t, StatusPendente, NextStatus(StatusPago, CategoryFinanceira))
	assert.Equal(t, StatusPendente, NextStatus(StatusConcluido, CategoryClinica))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidStatus("Pago"))
	assert.False(t, ValidStatus("Feito"))
	assert.True(t, ValidPriority("Média"))
	assert.False(t, ValidPriority("Media"))
	assert.True(t, ValidCategory("Financeira"))
	assert.False(t, ValidCategory("Outros"))
}

func TestMarkOverdue(t *testing.T) {
	d := func(s string) *string { return &s }
	list := []repo.Task{
		{Title: "vencida", Status: StatusPendente, DueDate: d("2025-01-09")},
		{Title: "hoje", Status: StatusPendente, DueDate: d("2025-01-10")},
		{Title: "concluída", Status: StatusConcluido, DueDate: d("2025-01-01")},
		{Title: "sem data", Status: StatusPendente},
	}
	n := MarkOverdue(list, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, n)
	assert.True(t, list[0].Overdue)
	assert.False(t, list[1].Overdue)
	assert.False(t, list[2].Overdue)
	assert.False(t, list[3].Overdue)
}
