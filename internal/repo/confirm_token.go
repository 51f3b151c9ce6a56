package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConfirmTokenInfo é o que a página pública de confirmação mostra.
type ConfirmTokenInfo struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name"`
	TherapistName string    `json:"therapist_name"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	MeetLink      *string   `json:"meet_link"`
}

func CreateConfirmToken(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID, ttl time.Duration) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	err = db.WithContext(ctx).Exec(`
		INSERT INTO appointment_confirm_tokens (token, appointment_id, expires_at) VALUES (?, ?, ?)
	`, token, appointmentID, time.Now().Add(ttl)).Error
	return token, err
}

// AppointmentByConfirmToken devolve gorm.ErrRecordNotFound se o token não existir ou expirou.
func AppointmentByConfirmToken(ctx context.Context, db *gorm.DB, token string) (*ConfirmTokenInfo, error) {
	var r ConfirmTokenInfo
	err := db.WithContext(ctx).Raw(`
		SELECT a.id AS appointment_id, p.name AS patient_name, th.full_name AS therapist_name,
		       a.date::text AS date, a.time, a.type, a.status, a.meet_link
		FROM appointment_confirm_tokens t
		JOIN appointments a ON a.id = t.appointment_id
		JOIN patients p ON p.id = a.patient_id
		JOIN therapists th ON th.id = a.therapist_id
		WHERE t.token = ? AND t.expires_at > now()
	`, token).Scan(&r).Error
	if err != nil {
		return nil, err
	}
	if r.AppointmentID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

// ConfirmAppointmentByToken move Pendente -> Confirmado. Já confirmada conta como sucesso;
// cancelada/realizada devolve changed=false.
func ConfirmAppointmentByToken(ctx context.Context, db *gorm.DB, token string) (changed bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		info, err := AppointmentByConfirmToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if info.Status == ApptConfirmado {
			changed = true
			return nil
		}
		res := tx.Exec(`UPDATE appointments SET status = 'Confirmado', updated_at = now() WHERE id = ? AND status = 'Pendente'`, info.AppointmentID)
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		if changed {
			return tx.Exec(`UPDATE appointment_confirm_tokens SET used_at = now() WHERE token = ?`, token).Error
		}
		return nil
	})
	return changed, err
}
