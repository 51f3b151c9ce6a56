// Package finance agrega transações em resumo mensal e relatório anual.
// Todas as somas são em centavos; percentuais saem arredondados a 1 casa.
package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/money"
	"github.com/consultorio/backend/internal/repo"
)

var ErrInvalidPeriod = errors.New("período inválido")

var monthLabels = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// MonthLabel devolve a abreviação pt-BR (1 = jan).
func MonthLabel(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthLabels[m-1]
}

type Summary struct {
	Month           string      `json:"month"`
	TotalIncome     money.Cents `json:"totalIncome"`
	TotalExpense    money.Cents `json:"totalExpense"`
	ConfirmedIncome money.Cents `json:"confirmedIncome"`
	PendingIncome   money.Cents `json:"pendingIncome"`
	Balance         money.Cents `json:"balance"`
}

// MonthlySummary soma apenas as transações cuja data começa com month (YYYY-MM).
func MonthlySummary(month string, txs []repo.Transaction) Summary {
	s := Summary{Month: month}
	for _, t := range txs {
		if !strings.HasPrefix(t.Date, month) {
			continue
		}
		switch t.Type {
		case repo.TxIncome:
			s.TotalIncome += t.AmountCents
			if t.Status == repo.TxConfirmado {
				s.ConfirmedIncome += t.AmountCents
			} else {
				s.PendingIncome += t.AmountCents
			}
		case repo.TxExpense:
			s.TotalExpense += t.AmountCents
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s
}

type Month struct {
	Month             string      `json:"month"`
	Label             string      `json:"monthLabel"`
	Income            money.Cents `json:"income"`
	Expense           money.Cents `json:"expense"`
	Balance           money.Cents `json:"balance"`
	SessionCount      int         `json:"sessionCount"`
	CumulativeIncome  money.Cents `json:"cumulativeIncome"`
	CumulativeExpense money.Cents `json:"cumulativeExpense"`
	CumulativeBalance money.Cents `json:"cumulativeBalance"`
}

type YearSummary struct {
	TotalIncome       money.Cents `json:"totalIncome"`
	TotalExpense      money.Cents `json:"totalExpense"`
	TotalBalance      money.Cents `json:"totalBalance"`
	TotalSessions     int         `json:"totalSessions"`
	AvgMonthlyIncome  money.Cents `json:"avgMonthlyIncome"`
	AvgMonthlyExpense money.Cents `json:"avgMonthlyExpense"`
	BestMonth         *Month      `json:"bestMonth"`
	WorstMonth        *Month      `json:"worstMonth"`
}

type Growth struct {
	ReferenceMonth string  `json:"referenceMonth"`
	IncomeGrowth   float64 `json:"incomeGrowth"`
	ExpenseGrowth  float64 `json:"expenseGrowth"`
}

type AnnualReport struct {
	Year    int         `json:"year"`
	Months  []Month     `json:"months"`
	Summary YearSummary `json:"summary"`
	Growth  Growth      `json:"growth"`
}

// BuildAnnualReport monta os 12 meses de year. O mês de referência do crescimento
// é o mês de now, comparado ao anterior do mesmo ano.
func BuildAnnualReport(year int, txs []repo.Transaction, now time.Time) AnnualReport {
	rep := AnnualReport{Year: year, Months: make([]Month, 12)}
	index := make(map[string]int, 12)
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("%04d-%02d", year, i+1)
		rep.Months[i] = Month{Month: key, Label: monthLabels[i]}
		index[key] = i
	}
	for _, t := range txs {
		if len(t.Date) < 7 {
			continue
		}
		i, ok := index[t.Date[:7]]
		if !ok {
			continue
		}
		m := &rep.Months[i]
		switch t.Type {
		case repo.TxIncome:
			m.Income += t.AmountCents
			if t.Category == repo.CategorySession {
				m.SessionCount++
			}
		case repo.TxExpense:
			m.Expense += t.AmountCents
		}
	}

	var cumIncome, cumExpense money.Cents
	s := &rep.Summary
	for i := range rep.Months {
		m := &rep.Months[i]
		m.Balance = m.Income - m.Expense
		cumIncome += m.Income
		cumExpense += m.Expense
		m.CumulativeIncome = cumIncome
		m.CumulativeExpense = cumExpense
		m.CumulativeBalance = cumIncome - cumExpense
		s.TotalSessions += m.SessionCount
	}
	s.TotalIncome = cumIncome
	s.TotalExpense = cumExpense
	s.TotalBalance = cumIncome - cumExpense
	s.AvgMonthlyIncome = divRound(cumIncome, 12)
	s.AvgMonthlyExpense = divRound(cumExpense, 12)

	for i := range rep.Months {
		m := rep.Months[i]
		if m.Income <= 0 {
			continue
		}
		if s.BestMonth == nil || m.Income > s.BestMonth.Income {
			best := m
			s.BestMonth = &best
		}
		if s.WorstMonth == nil || m.Income < s.WorstMonth.Income {
			worst := m
			s.WorstMonth = &worst
		}
	}

	ref := int(now.Month()) - 1
	rep.Growth.ReferenceMonth = rep.Months[ref].Month
	if ref > 0 {
		cur, prev := rep.Months[ref], rep.Months[ref-1]
		if prev.Income != 0 {
			rep.Growth.IncomeGrowth = percentChange(cur.Income, prev.Income)
			if prev.Expense != 0 {
				rep.Growth.ExpenseGrowth = percentChange(cur.Expense, prev.Expense)
			}
		}
	}
	return rep
}

func percentChange(cur, prev money.Cents) float64 {
	return round1(float64(cur-prev) / float64(prev) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func divRound(c money.Cents, n int64) money.Cents {
	return money.Cents(math.Round(float64(c) / float64(n)))
}

// MonthRange converte YYYY-MM em [primeiro dia, último dia].
func MonthRange(month string) (from, to string, err error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", ErrInvalidPeriod
	}
	return t.Format("2006-01-02"), t.AddDate(0, 1, -1).Format("2006-01-02"), nil
}

// YearRange devolve 01/01 e 31/12 do ano.
func YearRange(year int) (from, to string, err error) {
	if year < 1900 || year > 9999 {
		return "", "", ErrInvalidPeriod
	}
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year), nil
}
