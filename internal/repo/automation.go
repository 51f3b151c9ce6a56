package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Automation é uma mensagem automática configurável (lembrete, cobrança, aniversário...).
type Automation struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TherapistID uuid.UUID `json:"-" gorm:"type:uuid"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Trigger     string    `json:"trigger"`
	Icon        string    `json:"icon"`
	Template    string    `json:"template"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Automation) TableName() string { return "automations" }

func ListAutomations(ctx context.Context, db *gorm.DB, therapistID uuid.UUID) ([]Automation, error) {
	var list []Automation
	err := db.WithContext(ctx).Where("therapist_id = ?", therapistID).Order("created_at, kind").Find(&list).Error
	return list, err
}

func AutomationByKind(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, kind string) (*Automation, error) {
	var a Automation
	err := db.WithContext(ctx).Where("therapist_id = ? AND kind = ?", therapistID, kind).Take(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAutomations insere os padrões que faltam; os existentes (editados pelo terapeuta) ficam intactos.
func EnsureAutomations(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, defaults []Automation) error {
	if len(defaults) == 0 {
		return nil
	}
	rows := make([]Automation, len(defaults))
	for i, d := range defaults {
		d.ID = uuid.New()
		d.TherapistID = therapistID
		rows[i] = d
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "therapist_id"}, {Name: "kind"}},
		DoNothing: true,
	}).Create(&rows).Error
}

type AutomationPatch struct {
	Active   *bool
	Template *string
}

func UpdateAutomation(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, p AutomationPatch) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if p.Active != nil {
		updates["active"] = *p.Active
	}
	if p.Template != nil {
		updates["template"] = *p.Template
	}
	result := db.WithContext(ctx).Model(&Automation{}).Where("id = ? AND therapist_id = ?", id, therapistID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleAutomation inverte active e devolve o novo valor.
func ToggleAutomation(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (bool, error) {
	var res struct{ Active bool }
	result := db.WithContext(ctx).Raw(`
		UPDATE automations SET active = NOT active, updated_at = now() WHERE id = ? AND therapist_id = ? RETURNING active
	`, id, therapistID).Scan(&res)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return res.Active, nil
}

// TherapistsWithActiveAutomation lista terapeutas com a automação ligada (job de aniversários).
func TherapistsWithActiveAutomation(ctx context.Context, db *gorm.DB, kind string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.WithContext(ctx).Model(&Automation{}).Where("kind = ? AND active = true", kind).Pluck("therapist_id", &ids).Error
	return ids, err
}
