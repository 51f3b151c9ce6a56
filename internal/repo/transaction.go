package repo

import (
	"context"
	"time"

	"github.com/consultorio/backend/internal/money"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TxIncome     = "income"
	TxExpense    = "expense"
	TxConfirmado = "confirmado"
	TxPendente   = "pendente"
	// CategorySession marca receitas que contam como sessão no relatório anual.
	CategorySession = "Sessão"
)

type Transaction struct {
	ID              uuid.UUID   `json:"id"`
	TherapistID     uuid.UUID   `json:"-"`
	PatientID       *uuid.UUID  `json:"patient_id"`
	PatientName     *string     `json:"patient_name"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	AmountCents     money.Cents `json:"amount" gorm:"column:amount_cents"`
	Type            string      `json:"type"`
	Status          string      `json:"status"`
	Date            string      `json:"date"`
	PaymentMethod   *string     `json:"payment_method"`
	StripeSessionID *string     `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
}

type TransactionInput struct {
	PatientID       *uuid.UUID
	Description     string
	Category        string
	AmountCents     money.Cents
	Type            string
	Status          string
	Date            string
	PaymentMethod   *string
	StripeSessionID *string
}

func InputFromTransaction(t *Transaction) TransactionInput {
	return TransactionInput{
		PatientID: t.PatientID, Description: t.Description, Category: t.Category, AmountCents: t.AmountCents,
		Type: t.Type, Status: t.Status, Date: t.Date, PaymentMethod: t.PaymentMethod, StripeSessionID: t.StripeSessionID,
	}
}

type TransactionFilter struct {
	Type      string
	Status    string
	From      string // YYYY-MM-DD inclusive
	To        string // YYYY-MM-DD inclusive
	PatientID *uuid.UUID
}

const transactionSelect = `
	SELECT t.id, t.therapist_id, t.patient_id, p.name AS patient_name, t.description, t.category, t.amount_cents,
	       t.type, t.status, t.date::text AS date, t.payment_method, t.stripe_session_id, t.created_at
	FROM transactions t
	LEFT JOIN patients p ON p.id = t.patient_id
`

// ListTransactions ordena por data desc (mais recentes primeiro).
func ListTransactions(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, f TransactionFilter) ([]Transaction, error) {
	q := transactionSelect + ` WHERE t.therapist_id = ?`
	args := []interface{}{therapistID}
	if f.Type != "" {
		q += ` AND t.type = ?`
		args = append(args, f.Type)
	}
	if f.Status != "" {
		q += ` AND t.status = ?`
		args = append(args, f.Status)
	}
	if f.From != "" {
		q += ` AND t.date >= ?::date`
		args = append(args, f.From)
	}
	if f.To != "" {
		q += ` AND t.date <= ?::date`
		args = append(args, f.To)
	}
	if f.PatientID != nil {
		q += ` AND t.patient_id = ?`
		args = append(args, *f.PatientID)
	}
	q += ` ORDER BY t.date DESC, t.created_at DESC`
	var list []Transaction
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func TransactionByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := db.WithContext(ctx).Raw(transactionSelect+` WHERE t.id = ? AND t.therapist_id = ?`, id, therapistID).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

// patientOwned confere que o paciente (opcional) pertence ao terapeuta.
func patientOwned(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, patientID *uuid.UUID) error {
	if patientID == nil {
		return nil
	}
	var n int
	if err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM patients WHERE id = ? AND therapist_id = ?`, *patientID, therapistID).Scan(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func CreateTransaction(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in TransactionInput) (uuid.UUID, error) {
	if err := patientOwned(ctx, db, therapistID, in.PatientID); err != nil {
		return uuid.Nil, err
	}
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO transactions (therapist_id, patient_id, description, category, amount_cents, type, status, date, payment_method, stripe_session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?::date, ?, ?)
		RETURNING id
	`, therapistID, in.PatientID, in.Description, in.Category, in.AmountCents, in.Type, in.Status, in.Date,
		in.PaymentMethod, in.StripeSessionID).Scan(&res).Error
	return res.ID, err
}

func UpdateTransaction(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in TransactionInput) error {
	if err := patientOwned(ctx, db, therapistID, in.PatientID); err != nil {
		return err
	}
	result := db.WithContext(ctx).Exec(`
		UPDATE transactions SET patient_id = ?, description = ?, category = ?, amount_cents = ?, type = ?, status = ?,
			date = ?::date, payment_method = ?, stripe_session_id = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.PatientID, in.Description, in.Category, in.AmountCents, in.Type, in.Status, in.Date, in.PaymentMethod,
		in.StripeSessionID, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteTransaction(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM transactions WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
