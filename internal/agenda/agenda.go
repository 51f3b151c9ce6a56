// Package agenda contém as regras de calendário: grade semanal, conflitos de
// horário, horários livres, aniversários e a data-alvo dos lembretes.
package agenda

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/repo"
)

const (
	FirstHour = 8
	LastHour  = 19
	WeekDays  = 6 // segunda a sábado
	// BirthdayWindowDays inclui hoje (0) até 7 dias à frente.
	BirthdayWindowDays = 7
	BirthdayMax        = 5
	DefaultDuration    = 50
)

var ErrConflict = errors.New("horário em conflito com outra sessão")

const dateLayout = "2006-01-02"

var weekdayLabels = map[time.Weekday]string{
	time.Monday: "Seg", time.Tuesday: "Ter", time.Wednesday: "Qua",
	time.Thursday: "Qui", time.Friday: "Sex", time.Saturday: "Sáb", time.Sunday: "Dom",
}

// WeekStart devolve a segunda-feira da semana de t (domingo pertence à semana anterior).
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekRange devolve as datas (YYYY-MM-DD) de segunda e sábado da semana de t.
func WeekRange(t time.Time) (from, to string) {
	start := WeekStart(t)
	return start.Format(dateLayout), start.AddDate(0, 0, WeekDays-1).Format(dateLayout)
}

type Cell struct {
	Hour         int                `json:"hour"`
	Appointments []repo.Appointment `json:"appointments"`
}

type Day struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Cells []Cell `json:"cells"`
}

type Week struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Hours []int  `json:"hours"`
	Days  []Day  `json:"days"`
}

// BuildWeek distribui as sessões na grade (dia × hora cheia). Sessões fora
// de 8h–19h ou fora da semana ficam de fora da grade.
func BuildWeek(ref time.Time, appts []repo.Appointment) Week {
	start := WeekStart(ref)
	w := Week{
		Start: start.Format(dateLayout),
		End:   start.AddDate(0, 0, WeekDays-1).Format(dateLayout),
	}
	for h := FirstHour; h <= LastHour; h++ {
		w.Hours = append(w.Hours, h)
	}
	dayIdx := make(map[string]int, WeekDays)
	for i := 0; i < WeekDays; i++ {
		d := start.AddDate(0, 0, i)
		day := Day{Date: d.Format(dateLayout), Label: weekdayLabels[d.Weekday()] + " " + d.Format("02/01")}
		for _, h := range w.Hours {
			day.Cells = append(day.Cells, Cell{Hour: h, Appointments: []repo.Appointment{}})
		}
		w.Days = append(w.Days, day)
		dayIdx[day.Date] = i
	}
	for _, a := range appts {
		i, ok := dayIdx[a.Date]
		if !ok {
			continue
		}
		h, _, ok := splitHHMM(a.Time)
		if !ok || h < FirstHour || h > LastHour {
			continue
		}
		cell := &w.Days[i].Cells[h-FirstHour]
		cell.Appointments = append(cell.Appointments, a)
	}
	return w
}

// Minutes converte "HH:MM" em minutos desde 00:00.
func Minutes(hhmm string) (int, bool) {
	h, m, ok := splitHHMM(hhmm)
	if !ok {
		return 0, false
	}
	return h*60 + m, true
}

func splitHHMM(s string) (h, m int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Overlaps: intervalos semiabertos [início, início+duração).
func Overlaps(startA, durA, startB, durB int) bool {
	if durA <= 0 {
		durA = DefaultDuration
	}
	if durB <= 0 {
		durB = DefaultDuration
	}
	return startA < startB+durB && startB < startA+durA
}

// FindConflict devolve a primeira sessão do dia que sobrepõe hhmm+duration.
func FindConflict(slots []repo.SlotRow, hhmm string, duration int) *repo.SlotRow {
	start, ok := Minutes(hhmm)
	if !ok {
		return nil
	}
	for i := range slots {
		s, ok := Minutes(slots[i].Time)
		if !ok {
			continue
		}
		if Overlaps(start, duration, s, slots[i].Duration) {
			return &slots[i]
		}
	}
	return nil
}

// AvailableSlots lista horas cheias (8h–19h) onde cabe uma sessão de duration.
func AvailableSlots(slots []repo.SlotRow, duration int) []string {
	out := []string{}
	for h := FirstHour; h <= LastHour; h++ {
		hhmm := time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04")
		if FindConflict(slots, hhmm, duration) == nil {
			out = append(out, hhmm)
		}
	}
	return out
}

type Birthday struct {
	PatientID string  `json:"patient_id"`
	Name      string  `json:"name"`
	Phone     *string `json:"phone"`
	BirthDate string  `json:"birth_date"`
	DaysUntil int     `json:"days_until"`
	IsToday   bool    `json:"is_today"`
	Age       int     `json:"age"`
}

// UpcomingBirthdays filtra aniversários de hoje até 7 dias, ordenados pelo mais
// próximo, no máximo 5. 29/02 cai em 01/03 nos anos não bissextos.
func UpcomingBirthdays(rows []repo.BirthdayRow, today time.Time) []Birthday {
	t0 := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	out := []Birthday{}
	for _, r := range rows {
		bd, err := time.Parse(dateLayout, r.BirthDate)
		if err != nil {
			continue
		}
		next := time.Date(t0.Year(), bd.Month(), bd.Day(), 0, 0, 0, 0, time.UTC)
		if next.Before(t0) {
			next = time.Date(t0.Year()+1, bd.Month(), bd.Day(), 0, 0, 0, 0, time.UTC)
		}
		days := int(next.Sub(t0).Hours() / 24)
		if days < 0 || days > BirthdayWindowDays {
			continue
		}
		out = append(out, Birthday{
			PatientID: r.ID.String(),
			Name:      r.Name,
			Phone:     r.Phone,
			BirthDate: r.BirthDate,
			DaysUntil: days,
			IsToday:   days == 0,
			Age:       next.Year() - bd.Year(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntil < out[j].DaysUntil })
	if len(out) > BirthdayMax {
		out = out[:BirthdayMax]
	}
	return out
}

// ReminderDate é hoje + daysAhead no fuso loc, à meia-noite.
func ReminderDate(now time.Time, loc *time.Location, daysAhead int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, daysAhead)
}

// Today devolve a data local (YYYY-MM-DD) em loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(dateLayout)
}

// FormatDateBR converte YYYY-MM-DD em DD/MM/YYYY; "" se inválido.
func FormatDateBR(iso string) string {
	t, err := time.Parse(dateLayout, iso)
	if err != nil {
		return ""
	}
	return t.Format("02/01/2006")
}
