package repo

import (
	"context"
	"time"

	"github.com/consultorio/backend/internal/money"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PatientAtivo       = "ativo"
	PatientInativo     = "inativo"
	PatientPendente    = "pendente"
	PatientListaEspera = "lista de espera"
)

type Patient struct {
	ID                 uuid.UUID   `json:"id"`
	TherapistID        uuid.UUID   `json:"-"`
	Name               string      `json:"name"`
	Email              *string     `json:"email"`
	Phone              *string     `json:"phone"`
	CPFEncrypted       *string     `json:"-" gorm:"column:cpf_encrypted"`
	CPFHash            *string     `json:"-" gorm:"column:cpf_hash"`
	BirthDate          *string     `json:"birth_date"`
	Address            *string     `json:"address"`
	EmergencyContact   *string     `json:"emergency_contact"`
	EmergencyPhone     *string     `json:"emergency_phone"`
	Notes              *string     `json:"notes"`
	Status             string      `json:"status"`
	PaymentStatus      string      `json:"payment_status"`
	SessionValueCents  money.Cents `json:"session_value" gorm:"column:session_value_cents"`
	Category           string      `json:"category"`
	PaymentMethod      *string     `json:"payment_method"`
	AutomaticReminders bool        `json:"automatic_reminders"`
	ReminderTime       *string     `json:"reminder_time"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// PatientInput são os campos graváveis; CPF já chega cifrado e com hash.
type PatientInput struct {
	Name               string
	Email              *string
	Phone              *string
	CPFEncrypted       *string
	CPFHash            *string
	BirthDate          *string
	Address            *string
	EmergencyContact   *string
	EmergencyPhone     *string
	Notes              *string
	Status             string
	PaymentStatus      string
	SessionValueCents  money.Cents
	Category           string
	PaymentMethod      *string
	AutomaticReminders bool
	ReminderTime       *string
}

// InputFromPatient parte do registro atual para aplicar um PATCH.
func InputFromPatient(p *Patient) PatientInput {
	return PatientInput{
		Name: p.Name, Email: p.Email, Phone: p.Phone, CPFEncrypted: p.CPFEncrypted, CPFHash: p.CPFHash,
		BirthDate: p.BirthDate, Address: p.Address, EmergencyContact: p.EmergencyContact,
		EmergencyPhone: p.EmergencyPhone, Notes: p.Notes, Status: p.Status, PaymentStatus: p.PaymentStatus,
		SessionValueCents: p.SessionValueCents, Category: p.Category, PaymentMethod: p.PaymentMethod,
		AutomaticReminders: p.AutomaticReminders, ReminderTime: p.ReminderTime,
	}
}

const patientCols = `id, therapist_id, name, email, phone, cpf_encrypted, cpf_hash, birth_date::text AS birth_date,
	address, emergency_contact, emergency_phone, notes, status, payment_status, session_value_cents,
	category, payment_method, automatic_reminders, reminder_time, created_at, updated_at`

type PatientFilter struct {
	Status string
	Query  string
	Limit  int
	Offset int
}

// ListPatients ordena por nome. Limit 0 = sem limite.
func ListPatients(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, f PatientFilter) ([]Patient, error) {
	q := `SELECT ` + patientCols + ` FROM patients WHERE therapist_id = ?`
	args := []interface{}{therapistID}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Query != "" {
		q += ` AND name ILIKE ?`
		args = append(args, "%"+f.Query+"%")
	}
	q += ` ORDER BY name`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	var list []Patient
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func CountPatients(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, f PatientFilter) (int, error) {
	q := `SELECT COUNT(*) FROM patients WHERE therapist_id = ?`
	args := []interface{}{therapistID}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Query != "" {
		q += ` AND name ILIKE ?`
		args = append(args, "%"+f.Query+"%")
	}
	var n int
	err := db.WithContext(ctx).Raw(q, args...).Scan(&n).Error
	return n, err
}

func PatientByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := db.WithContext(ctx).Raw(`SELECT `+patientCols+` FROM patients WHERE id = ? AND therapist_id = ?`, id, therapistID).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func CreatePatient(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in PatientInput) (uuid.UUID, error) {
	if in.Status == "" {
		in.Status = PatientAtivo
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = "Em dia"
	}
	if in.Category == "" {
		in.Category = "Particular"
	}
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO patients (therapist_id, name, email, phone, cpf_encrypted, cpf_hash, birth_date, address,
			emergency_contact, emergency_phone, notes, status, payment_status, session_value_cents, category,
			payment_method, automatic_reminders, reminder_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, therapistID, in.Name, in.Email, in.Phone, in.CPFEncrypted, in.CPFHash, in.BirthDate, in.Address,
		in.EmergencyContact, in.EmergencyPhone, in.Notes, in.Status, in.PaymentStatus, in.SessionValueCents,
		in.Category, in.PaymentMethod, in.AutomaticReminders, in.ReminderTime).Scan(&res).Error
	return res.ID, err
}

func UpdatePatient(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in PatientInput) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE patients SET name = ?, email = ?, phone = ?, cpf_encrypted = ?, cpf_hash = ?, birth_date = ?,
			address = ?, emergency_contact = ?, emergency_phone = ?, notes = ?, status = ?, payment_status = ?,
			session_value_cents = ?, category = ?, payment_method = ?, automatic_reminders = ?, reminder_time = ?,
			updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.Name, in.Email, in.Phone, in.CPFEncrypted, in.CPFHash, in.BirthDate, in.Address, in.EmergencyContact,
		in.EmergencyPhone, in.Notes, in.Status, in.PaymentStatus, in.SessionValueCents, in.Category,
		in.PaymentMethod, in.AutomaticReminders, in.ReminderTime, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePatient apaga agenda e prontuário em cascata; transações ficam com patient_id NULL.
func DeletePatient(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM patients WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PatientSummary alimenta o cabeçalho da ficha do paciente.
type PatientSummary struct {
	FirstSession     *string     `json:"first_session"`
	LastSession      *string     `json:"last_session"`
	NextSession      *string     `json:"next_session"`
	SessionsAttended int         `json:"sessions_attended"`
	OutstandingCents money.Cents `json:"outstanding" gorm:"column:outstanding_cents"`
	RecordsCount     int         `json:"records_count"`
}

func PatientSummaryByID(ctx context.Context, db *gorm.DB, therapistID, patientID uuid.UUID, today string) (*PatientSummary, error) {
	var s PatientSummary
	err := db.WithContext(ctx).Raw(`
		SELECT
			(SELECT MIN(date)::text FROM appointments WHERE patient_id = @p AND therapist_id = @t AND status = 'Realizado') AS first_session,
			(SELECT MAX(date)::text FROM appointments WHERE patient_id = @p AND therapist_id = @t AND date <= @today AND status IN ('Realizado', 'Confirmado')) AS last_session,
			(SELECT MIN(date)::text FROM appointments WHERE patient_id = @p AND therapist_id = @t AND date >= @today AND status IN ('Pendente', 'Confirmado')) AS next_session,
			(SELECT COUNT(*) FROM appointments WHERE patient_id = @p AND therapist_id = @t AND status = 'Realizado') AS sessions_attended,
			(SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE patient_id = @p AND therapist_id = @t AND type = 'income' AND status = 'pendente') AS outstanding_cents,
			(SELECT COUNT(*) FROM clinical_records WHERE patient_id = @p AND therapist_id = @t) AS records_count
	`, map[string]interface{}{"p": patientID, "t": therapistID, "today": today}).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// BirthdayRow é a projeção mínima para alertas de aniversário.
type BirthdayRow struct {
	ID        uuid.UUID
	Name      string
	Phone     *string
	BirthDate string
}

// ActivePatientsWithBirthDate: o filtro de janela (próximos 7 dias) é feito em agenda.UpcomingBirthdays.
func ActivePatientsWithBirthDate(ctx context.Context, db *gorm.DB, therapistID uuid.UUID) ([]BirthdayRow, error) {
	var rows []BirthdayRow
	err := db.WithContext(ctx).Raw(`
		SELECT id, name, phone, birth_date::text AS birth_date
		FROM patients
		WHERE therapist_id = ? AND status = 'ativo' AND birth_date IS NOT NULL
		ORDER BY name
	`, therapistID).Scan(&rows).Error
	return rows, err
}
