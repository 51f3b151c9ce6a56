package agenda

import (
	"testing"
	"time"

	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
}

func TestWeekStart(t *testing.T) {
	// 2025-06-11 é quarta-feira
	assert.Equal(t, "2025-06-09", WeekStart(day(2025, 6, 11)).Format(dateLayout))
	assert.Equal(t, "2025-06-09", WeekStart(day(2025, 6, 9)).Format(dateLayout))
	// domingo volta para a segunda anterior
	assert.Equal(t, "2025-06-09", WeekStart(day(2025, 6, 15)).Format(dateLayout))

	from, to := WeekRange(day(2025, 6, 11))
	assert.Equal(t, "2025-06-09", from)
	assert.Equal(t, "2025-06-14", to)
}

func TestBuildWeek(t *testing.T) {
	appts := []repo.Appointment{
		{ID: uuid.New(), Date: "2025-06-10", Time: "09:00"},
		{ID: uuid.New(), Date: "2025-06-10", Time: "09:30"},
		{ID: uuid.New(), Date: "2025-06-14", Time: "19:00"},
		{ID: uuid.New(), Date: "2025-06-14", Time: "20:00"}, // fora do horário
		{ID: uuid.New(), Date: "2025-06-15", Time: "10:00"}, // domingo
	}
	w := BuildWeek(day(2025, 6, 12), appts)
	require.Len(t, w.Days, 6)
	require.Len(t, w.Hours, 12)
	assert.Equal(t, 8, w.Hours[0])
	assert.Equal(t, 19, w.Hours[11])
	assert.Equal(t, "2025-06-09", w.Start)
	assert.Equal(t, "2025-06-14", w.End)
	assert.Equal(t, "Ter 10/06", w.Days[1].Label)

	assert.Len(t, w.Days[1].Cells[1].Appointments, 2)
	assert.Len(t, w.Days[5].Cells[11].Appointments, 1)
	total := 0
	for _, d := range w.Days {
		for _, c := range d.Cells {
			total += len(c.Appointments)
		}
	}
	assert.Equal(t, 3, total)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(600, 50, 620, 50))
	assert.False(t, Overlaps(600, 50, 650, 50))
	assert.False(t, Overlaps(650, 50, 600, 50))
	assert.True(t, Overlaps(600, 0, 640, 30))
}

func TestFindConflictAndAvailableSlots(t *testing.T) {
	slots := []repo.SlotRow{
		{ID: uuid.New(), Time: "09:00", Duration: 50},
		{ID: uuid.New(), Time: "14:30", Duration: 60},
	}
	c := FindConflict(slots, "09:40", 50)
	require.NotNil(t, c)
	assert.Equal(t, slots[0].ID, c.ID)
	assert.Nil(t, FindConflict(slots, "09:50", 50))
	assert.Nil(t, FindConflict(slots, "invalid", 50))

	free := AvailableSlots(slots, 50)
	assert.NotContains(t, free, "09:00")
	assert.NotContains(t, free, "14:00")
	assert.NotContains(t, free, "15:00")
	assert.Contains(t, free, "08:00")
	assert.Contains(t, free, "16:00")
	assert.Contains(t, free, "19:00")
}

func TestMinutes(t *testing.T) {
	m, ok := Minutes("13:45")
	assert.True(t, ok)
	assert.Equal(t, 825, m)
	_, ok = Minutes("25:00")
	assert.False(t, ok)
}

func TestUpcomingBirthdays(t *testing.T) {
	phone := "11999990000"
	rows := []repo.BirthdayRow{
		{ID: uuid.New(), Name: "Hoje", BirthDate: "1990-03-10", Phone: &phone},
		{ID: uuid.New(), Name: "Em três", BirthDate: "1985-03-13"},
		{ID: uuid.New(), Name: "Em sete", BirthDate: "2000-03-17"},
		{ID: uuid.New(), Name: "Em oito", BirthDate: "2000-03-18"},
		{ID: uuid.New(), Name: "Ontem", BirthDate: "2000-03-09"},
		{ID: uuid.New(), Name: "Inválido", BirthDate: "xx"},
	}
	got := UpcomingBirthdays(rows, day(2025, 3, 10))
	require.Len(t, got, 3)
	assert.Equal(t, "Hoje", got[0].Name)
	assert.True(t, got[0].IsToday)
	assert.Equal(t, 35, got[0].Age)
	assert.Equal(t, 3, got[1].DaysUntil)
	assert.Equal(t, 7, got[2].DaysUntil)
}

func TestUpcomingBirthdaysYearWrapAndLimit(t *testing.T) {
	var rows []repo.BirthdayRow
	for i := 0; i < 7; i++ {
		rows = append(rows, repo.BirthdayRow{ID: uuid.New(), Name: "P", BirthDate: "1990-01-02"})
	}
	got := UpcomingBirthdays(rows, day(2025, 12, 30))
	require.Len(t, got, BirthdayMax)
	assert.Equal(t, 3, got[0].DaysUntil)
}

func TestReminderDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	// 01:00 UTC de 11/06 ainda é 10/06 em São Paulo
	now := time.Date(2025, 6, 11, 1, 0, 0, 0, time.UTC)
	got := ReminderDate(now, loc, 1)
	assert.Equal(t, "2025-06-11", got.Format(dateLayout))
	assert.Equal(t, "2025-06-10", Today(now, loc))
	assert.Equal(t, "2025-06-13", ReminderDate(now, nil, 2).Format(dateLayout))
}

func TestFormatDateBR(t *testing.T) {
	assert.Equal(t, "11/02/2026", FormatDateBR("2026-02-11"))
	assert.Equal(t, "", FormatDateBR(""))
	assert.Equal(t, "", FormatDateBR("invalid"))
}
