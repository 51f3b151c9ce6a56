package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Lead struct {
	ID                 uuid.UUID  `json:"id"`
	TherapistID        uuid.UUID  `json:"-"`
	Name               string     `json:"name"`
	Phone              *string    `json:"phone"`
	Email              *string    `json:"email"`
	Source             *string    `json:"source"`
	Urgency            string     `json:"urgency"`
	Status             string     `json:"status"`
	Notes              *string    `json:"notes"`
	ConvertedPatientID *uuid.UUID `json:"converted_patient_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type LeadInput struct {
	Name    string
	Phone   *string
	Email   *string
	Source  *string
	Urgency string
	Status  string
	Notes   *string
}

func InputFromLead(l *Lead) LeadInput {
	return LeadInput{Name: l.Name, Phone: l.Phone, Email: l.Email, Source: l.Source, Urgency: l.Urgency, Status: l.Status, Notes: l.Notes}
}

const leadCols = `id, therapist_id, name, phone, email, source, urgency, status, notes, converted_patient_id, created_at, updated_at`

// ListLeads ordena pelos mais recentes.
func ListLeads(ctx context.Context, db *gorm.DB, therapistID uuid.UUID) ([]Lead, error) {
	var list []Lead
	err := db.WithContext(ctx).Raw(`SELECT `+leadCols+` FROM leads WHERE therapist_id = ? ORDER BY created_at DESC`, therapistID).Scan(&list).Error
	return list, err
}

func LeadByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Lead, error) {
	var l Lead
	err := db.WithContext(ctx).Raw(`SELECT `+leadCols+` FROM leads WHERE id = ? AND therapist_id = ?`, id, therapistID).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

// LeadByIDForUpdate trava a linha dentro de uma transação (conversão).
func LeadByIDForUpdate(ctx context.Context, tx *gorm.DB, therapistID, id uuid.UUID) (*Lead, error) {
	var l Lead
	err := tx.WithContext(ctx).Table("leads").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND therapist_id = ?", id, therapistID).
		Take(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func CreateLead(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in LeadInput) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO leads (therapist_id, name, phone, email, source, urgency, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, therapistID, in.Name, in.Phone, in.Email, in.Source, in.Urgency, in.Status, in.Notes).Scan(&res).Error
	return res.ID, err
}

func UpdateLead(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in LeadInput) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE leads SET name = ?, phone = ?, email = ?, source = ?, urgency = ?, status = ?, notes = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.Name, in.Phone, in.Email, in.Source, in.Urgency, in.Status, in.Notes, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func UpdateLeadStatus(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, status string) error {
	result := db.WithContext(ctx).Exec(`UPDATE leads SET status = ?, updated_at = now() WHERE id = ? AND therapist_id = ?`, status, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func MarkLeadConverted(ctx context.Context, tx *gorm.DB, therapistID, id, patientID uuid.UUID) error {
	result := tx.WithContext(ctx).Exec(`
		UPDATE leads SET status = 'Convertido', converted_patient_id = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, patientID, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteLead(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM leads WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
