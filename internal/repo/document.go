package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DocRascunho   = "Rascunho"
	DocFinalizado = "Finalizado"
)

type Document struct {
	ID                uuid.UUID  `json:"id"`
	TherapistID       uuid.UUID  `json:"-"`
	PatientID         *uuid.UUID `json:"patient_id"`
	PatientName       *string    `json:"patient_name"`
	Title             string     `json:"title"`
	Type              string     `json:"type"`
	Category          *string    `json:"category"`
	Content           string     `json:"content"`
	Status            string     `json:"status"`
	GeneratedAt       *time.Time `json:"generated_at"`
	VerificationToken *string    `json:"verification_token"`
	ContentHash       *string    `json:"content_hash"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type DocumentInput struct {
	PatientID         *uuid.UUID
	Title             string
	Type              string
	Category          *string
	Content           string
	Status            string
	GeneratedAt       *time.Time
	VerificationToken *string
	ContentHash       *string
}

func InputFromDocument(d *Document) DocumentInput {
	return DocumentInput{
		PatientID: d.PatientID, Title: d.Title, Type: d.Type, Category: d.Category, Content: d.Content,
		Status: d.Status, GeneratedAt: d.GeneratedAt, VerificationToken: d.VerificationToken, ContentHash: d.ContentHash,
	}
}

const documentSelect = `
	SELECT d.id, d.therapist_id, d.patient_id, p.name AS patient_name, d.title, d.type, d.category, d.content,
	       d.status, d.generated_at, d.verification_token, d.content_hash, d.created_at, d.updated_at
	FROM documents d
	LEFT JOIN patients p ON p.id = d.patient_id
`

// ListDocuments ordena por última alteração.
func ListDocuments(ctx context.Context, db *gorm.DB, therapistID uuid.UUID) ([]Document, error) {
	var list []Document
	err := db.WithContext(ctx).Raw(documentSelect+` WHERE d.therapist_id = ? ORDER BY d.updated_at DESC`, therapistID).Scan(&list).Error
	return list, err
}

func DocumentByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Document, error) {
	var d Document
	err := db.WithContext(ctx).Raw(documentSelect+` WHERE d.id = ? AND d.therapist_id = ?`, id, therapistID).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func CreateDocument(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in DocumentInput) (uuid.UUID, error) {
	if err := patientOwned(ctx, db, therapistID, in.PatientID); err != nil {
		return uuid.Nil, err
	}
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO documents (therapist_id, patient_id, title, type, category, content, status, generated_at, verification_token, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, therapistID, in.PatientID, in.Title, in.Type, in.Category, in.Content, in.Status, in.GeneratedAt,
		in.VerificationToken, in.ContentHash).Scan(&res).Error
	return res.ID, err
}

func UpdateDocument(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in DocumentInput) error {
	if err := patientOwned(ctx, db, therapistID, in.PatientID); err != nil {
		return err
	}
	result := db.WithContext(ctx).Exec(`
		UPDATE documents SET patient_id = ?, title = ?, type = ?, category = ?, content = ?, status = ?,
			generated_at = ?, verification_token = ?, content_hash = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.PatientID, in.Title, in.Type, in.Category, in.Content, in.Status, in.GeneratedAt, in.VerificationToken,
		in.ContentHash, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteDocument(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM documents WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DocumentVerification é a visão pública de um documento finalizado (sem conteúdo).
type DocumentVerification struct {
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	GeneratedAt   time.Time `json:"generated_at"`
	TherapistName string    `json:"therapist_name"`
	TherapistCRP  *string   `json:"therapist_crp"`
	ContentHash   string    `json:"content_hash"`
}

func DocumentByVerificationToken(ctx context.Context, db *gorm.DB, token string) (*DocumentVerification, error) {
	var v DocumentVerification
	err := db.WithContext(ctx).Raw(`
		SELECT d.title, d.type, d.generated_at, t.full_name AS therapist_name, t.crp AS therapist_crp, d.content_hash
		FROM documents d
		JOIN therapists t ON t.id = d.therapist_id
		WHERE d.verification_token = ? AND d.status = 'Finalizado'
	`, token).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.Title == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}
