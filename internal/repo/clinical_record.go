package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClinicalRecord guarda os textos cifrados; a API decifra antes de responder.
type ClinicalRecord struct {
	ID                    uuid.UUID
	TherapistID           uuid.UUID
	PatientID             uuid.UUID
	AppointmentID         *uuid.UUID
	SessionDate           string
	ContentEncrypted      string
	ObservationsEncrypted *string
	GoalsEncrypted        *string
	WellbeingScore        *int
	Sentiment             *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type ClinicalRecordInput struct {
	AppointmentID         *uuid.UUID
	SessionDate           string
	ContentEncrypted      string
	ObservationsEncrypted *string
	GoalsEncrypted        *string
	WellbeingScore        *int
	Sentiment             *string
}

const clinicalRecordCols = `id, therapist_id, patient_id, appointment_id, session_date::text AS session_date,
	content_encrypted, observations_encrypted, goals_encrypted, wellbeing_score, sentiment, created_at, updated_at`

// ListClinicalRecords ordena por data da sessão, mais recente primeiro.
func ListClinicalRecords(ctx context.Context, db *gorm.DB, therapistID, patientID uuid.UUID) ([]ClinicalRecord, error) {
	var list []ClinicalRecord
	err := db.WithContext(ctx).Raw(`
		SELECT `+clinicalRecordCols+` FROM clinical_records
		WHERE therapist_id = ? AND patient_id = ?
		ORDER BY session_date DESC, created_at DESC
	`, therapistID, patientID).Scan(&list).Error
	return list, err
}

func ClinicalRecordByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*ClinicalRecord, error) {
	var r ClinicalRecord
	err := db.WithContext(ctx).Raw(`SELECT `+clinicalRecordCols+` FROM clinical_records WHERE id = ? AND therapist_id = ?`, id, therapistID).Scan(&r).Error
	if err != nil {
		return nil, err
	}
	if r.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func CreateClinicalRecord(ctx context.Context, db *gorm.DB, therapistID, patientID uuid.UUID, in ClinicalRecordInput) (uuid.UUID, error) {
	if err := patientOwned(ctx, db, therapistID, &patientID); err != nil {
		return uuid.Nil, err
	}
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO clinical_records (therapist_id, patient_id, appointment_id, session_date, content_encrypted,
			observations_encrypted, goals_encrypted, wellbeing_score, sentiment)
		VALUES (?, ?, ?, ?::date, ?, ?, ?, ?, ?)
		RETURNING id
	`, therapistID, patientID, in.AppointmentID, in.SessionDate, in.ContentEncrypted, in.ObservationsEncrypted,
		in.GoalsEncrypted, in.WellbeingScore, in.Sentiment).Scan(&res).Error
	return res.ID, err
}

func UpdateClinicalRecord(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in ClinicalRecordInput) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE clinical_records SET appointment_id = ?, session_date = ?::date, content_encrypted = ?,
			observations_encrypted = ?, goals_encrypted = ?, wellbeing_score = ?, sentiment = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.AppointmentID, in.SessionDate, in.ContentEncrypted, in.ObservationsEncrypted, in.GoalsEncrypted,
		in.WellbeingScore, in.Sentiment, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteClinicalRecord(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM clinical_records WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
