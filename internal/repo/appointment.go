package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ApptPendente   = "Pendente"
	ApptConfirmado = "Confirmado"
	ApptRealizado  = "Realizado"
	ApptCancelado  = "Cancelado"
	ApptFaltou     = "Faltou"

	ApptPresencial = "Presencial"
	ApptOnline     = "Online"
)

// AppointmentPatient é o recorte do paciente que acompanha cada sessão na agenda.
type AppointmentPatient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone *string   `json:"phone"`
}

type Appointment struct {
	ID           uuid.UUID          `json:"id"`
	TherapistID  uuid.UUID          `json:"-"`
	PatientID    uuid.UUID          `json:"patient_id"`
	Date         string             `json:"date"`
	Time         string             `json:"time"`
	Duration     int                `json:"duration"`
	Type         string             `json:"type"`
	Status       string             `json:"status"`
	MeetLink     *string            `json:"meet_link"`
	Notes        *string            `json:"notes"`
	ReminderSent bool               `json:"reminder_sent"`
	CreatedAt    time.Time          `json:"created_at"`
	PatientName  string             `json:"-"`
	PatientPhone *string            `json:"-"`
	Patient      AppointmentPatient `json:"patient" gorm:"-"`
}

type AppointmentInput struct {
	PatientID uuid.UUID
	Date      string
	Time      string
	Duration  int
	Type      string
	Status    string
	MeetLink  *string
	Notes     *string
}

func InputFromAppointment(a *Appointment) AppointmentInput {
	return AppointmentInput{
		PatientID: a.PatientID, Date: a.Date, Time: a.Time, Duration: a.Duration,
		Type: a.Type, Status: a.Status, MeetLink: a.MeetLink, Notes: a.Notes,
	}
}

const appointmentSelect = `
	SELECT a.id, a.therapist_id, a.patient_id, a.date::text AS date, a.time, a.duration, a.type, a.status,
	       a.meet_link, a.notes, a.reminder_sent, a.created_at,
	       p.name AS patient_name, p.phone AS patient_phone
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
`

func fillPatient(list []Appointment) {
	for i := range list {
		list[i].Patient = AppointmentPatient{ID: list[i].PatientID, Name: list[i].PatientName, Phone: list[i].PatientPhone}
	}
}

// ListAppointments devolve sessões em [from, to] (datas YYYY-MM-DD) ordenadas por data e hora.
func ListAppointments(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, from, to string) ([]Appointment, error) {
	var list []Appointment
	err := db.WithContext(ctx).Raw(appointmentSelect+`
		WHERE a.therapist_id = ? AND a.date >= ?::date AND a.date <= ?::date
		ORDER BY a.date, a.time
	`, therapistID, from, to).Scan(&list).Error
	fillPatient(list)
	return list, err
}

func ListAppointmentsByPatient(ctx context.Context, db *gorm.DB, therapistID, patientID uuid.UUID) ([]Appointment, error) {
	var list []Appointment
	err := db.WithContext(ctx).Raw(appointmentSelect+`
		WHERE a.therapist_id = ? AND a.patient_id = ?
		ORDER BY a.date DESC, a.time DESC
	`, therapistID, patientID).Scan(&list).Error
	fillPatient(list)
	return list, err
}

func AppointmentByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := db.WithContext(ctx).Raw(appointmentSelect+` WHERE a.id = ? AND a.therapist_id = ?`, id, therapistID).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	a.Patient = AppointmentPatient{ID: a.PatientID, Name: a.PatientName, Phone: a.PatientPhone}
	return &a, nil
}

func CreateAppointment(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in AppointmentInput) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO appointments (therapist_id, patient_id, date, time, duration, type, status, meet_link, notes)
		SELECT ?, p.id, ?::date, ?, ?, ?, ?, ?, ?
		FROM patients p WHERE p.id = ? AND p.therapist_id = ?
		RETURNING id
	`, therapistID, in.Date, in.Time, in.Duration, in.Type, in.Status, in.MeetLink, in.Notes, in.PatientID, therapistID).Scan(&res).Error
	if err != nil {
		return uuid.Nil, err
	}
	if res.ID == uuid.Nil {
		// paciente inexistente ou de outro terapeuta
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return res.ID, nil
}

func UpdateAppointment(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in AppointmentInput) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE appointments a SET patient_id = ?, date = ?::date, time = ?, duration = ?, type = ?, status = ?,
			meet_link = ?, notes = ?, updated_at = now()
		WHERE a.id = ? AND a.therapist_id = ?
		  AND EXISTS (SELECT 1 FROM patients p WHERE p.id = ? AND p.therapist_id = ?)
	`, in.PatientID, in.Date, in.Time, in.Duration, in.Type, in.Status, in.MeetLink, in.Notes,
		id, therapistID, in.PatientID, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteAppointment(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM appointments WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func MarkReminderSent(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`UPDATE appointments SET reminder_sent = true, updated_at = now() WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SlotRow é o mínimo para checar sobreposição no dia.
type SlotRow struct {
	ID       uuid.UUID
	Time     string
	Duration int
}

// ActiveSlotsOnDate lista sessões não canceladas do dia, exceto exclude (edição).
func ActiveSlotsOnDate(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, date string, exclude *uuid.UUID) ([]SlotRow, error) {
	q := db.WithContext(ctx).Table("appointments").
		Select("id, time, duration").
		Where("therapist_id = ? AND date = ?::date", therapistID, date).
		Where("status NOT IN ?", []string{ApptCancelado})
	if exclude != nil {
		q = q.Where("id != ?", *exclude)
	}
	var rows []SlotRow
	err := q.Order("time").Find(&rows).Error
	return rows, err
}

// ReminderRow alimenta o job de lembretes (todas as contas).
type ReminderRow struct {
	AppointmentID uuid.UUID
	TherapistID   uuid.UUID
	TherapistName string
	PatientID     uuid.UUID
	PatientName   string
	PatientPhone  string
	Date          string
	Time          string
	Type          string
	MeetLink      *string
}

// ListAppointmentsForReminder: sessões Pendente/Confirmado na data, ainda sem lembrete,
// de pacientes com lembrete automático ligado e telefone preenchido.
func ListAppointmentsForReminder(ctx context.Context, db *gorm.DB, date time.Time) ([]ReminderRow, error) {
	var list []ReminderRow
	err := db.WithContext(ctx).Raw(`
		SELECT a.id AS appointment_id, a.therapist_id, t.full_name AS therapist_name,
		       p.id AS patient_id, p.name AS patient_name, TRIM(p.phone) AS patient_phone,
		       a.date::text AS date, a.time, a.type, a.meet_link
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN therapists t ON t.id = a.therapist_id AND t.status = 'ACTIVE'
		WHERE a.date = ?::date
		  AND a.status IN ('Pendente', 'Confirmado')
		  AND a.reminder_sent = false
		  AND p.automatic_reminders = true
		  AND p.phone IS NOT NULL AND TRIM(p.phone) != ''
		ORDER BY a.time, p.name
	`, date.Format("2006-01-02")).Scan(&list).Error
	return list, err
}

// MarkReminderSentByID é usado pelo job (sem contexto de terapeuta).
func MarkReminderSentByID(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Exec(`UPDATE appointments SET reminder_sent = true, updated_at = now() WHERE id = ?`, id).Error
}

// NormalizeHHMM aceita "9:00", "09:00" ou "09:00:00" e devolve "09:00". Vazio se inválido.
func NormalizeHHMM(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	if len(s) == 4 && s[1] == ':' {
		return NormalizeHHMM("0" + s)
	}
	return ""
}
