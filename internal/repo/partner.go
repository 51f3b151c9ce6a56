package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Partner é um profissional parceiro que encaminha pacientes.
type Partner struct {
	ID             uuid.UUID `json:"id"`
	TherapistID    uuid.UUID `json:"-"`
	Name           string    `json:"name"`
	Specialty      *string   `json:"specialty"`
	Contact        *string   `json:"contact"`
	Status         string    `json:"status"`
	ReferralsCount int       `json:"referrals_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type PartnerInput struct {
	Name      string
	Specialty *string
	Contact   *string
	Status    string
}

const partnerCols = `id, therapist_id, name, specialty, contact, status, referrals_count, created_at`

func ListPartners(ctx context.Context, db *gorm.DB, therapistID uuid.UUID) ([]Partner, error) {
	var list []Partner
	err := db.WithContext(ctx).Raw(`SELECT `+partnerCols+` FROM partners WHERE therapist_id = ? ORDER BY referrals_count DESC, name`, therapistID).Scan(&list).Error
	return list, err
}

func PartnerByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Partner, error) {
	var p Partner
	err := db.WithContext(ctx).Raw(`SELECT `+partnerCols+` FROM partners WHERE id = ? AND therapist_id = ?`, id, therapistID).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func CreatePartner(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in PartnerInput) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO partners (therapist_id, name, specialty, contact, status) VALUES (?, ?, ?, ?, ?) RETURNING id
	`, therapistID, in.Name, in.Specialty, in.Contact, in.Status).Scan(&res).Error
	return res.ID, err
}

func UpdatePartner(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in PartnerInput) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE partners SET name = ?, specialty = ?, contact = ?, status = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.Name, in.Specialty, in.Contact, in.Status, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func IncrementPartnerReferrals(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (int, error) {
	var res struct{ ReferralsCount int }
	result := db.WithContext(ctx).Raw(`
		UPDATE partners SET referrals_count = referrals_count + 1, updated_at = now()
		WHERE id = ? AND therapist_id = ?
		RETURNING referrals_count
	`, id, therapistID).Scan(&res)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return res.ReferralsCount, nil
}

func DeletePartner(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM partners WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
