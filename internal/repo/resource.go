package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource é um material da biblioteca (PDF, vídeo, link do Drive...).
type Resource struct {
	ID           uuid.UUID `json:"id"`
	TherapistID  uuid.UUID `json:"-"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	Category     *string   `json:"category"`
	FileURL      *string   `json:"file_url" gorm:"column:file_url"`
	FilePath     *string   `json:"-"`
	FileSize     *string   `json:"file_size"`
	CloudURL     *string   `json:"cloud_url" gorm:"column:cloud_url"`
	AutoSend     bool      `json:"auto_send"`
	TriggerEvent *string   `json:"trigger_event"`
	SharedCount  int       `json:"shared_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type ResourceInput struct {
	Title        string
	Type         string
	Category     *string
	FileURL      *string
	FilePath     *string
	FileSize     *string
	CloudURL     *string
	AutoSend     bool
	TriggerEvent *string
}

func InputFromResource(r *Resource) ResourceInput {
	return ResourceInput{Title: r.Title, Type: r.Type, Category: r.Category, FileURL: r.FileURL, FilePath: r.FilePath,
		FileSize: r.FileSize, CloudURL: r.CloudURL, AutoSend: r.AutoSend, TriggerEvent: r.TriggerEvent}
}

const resourceCols = `id, therapist_id, title, type, category, file_url, file_path, file_size, cloud_url, auto_send, trigger_event, shared_count, created_at`

func ListResources(ctx context.Context, db *gorm.DB, therapistID uuid.UUID) ([]Resource, error) {
	var list []Resource
	err := db.WithContext(ctx).Raw(`SELECT `+resourceCols+` FROM resources WHERE therapist_id = ? ORDER BY created_at DESC`, therapistID).Scan(&list).Error
	return list, err
}

func ResourceByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Resource, error) {
	var r Resource
	err := db.WithContext(ctx).Raw(`SELECT `+resourceCols+` FROM resources WHERE id = ? AND therapist_id = ?`, id, therapistID).Scan(&r).Error
	if err != nil {
		return nil, err
	}
	if r.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func CreateResource(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in ResourceInput) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO resources (therapist_id, title, type, category, file_url, file_path, file_size, cloud_url, auto_send, trigger_event)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, therapistID, in.Title, in.Type, in.Category, in.FileURL, in.FilePath, in.FileSize, in.CloudURL, in.AutoSend, in.TriggerEvent).Scan(&res).Error
	return res.ID, err
}

func UpdateResource(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in ResourceInput) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE resources SET title = ?, type = ?, category = ?, file_url = ?, file_path = ?, file_size = ?, cloud_url = ?,
			auto_send = ?, trigger_event = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.Title, in.Type, in.Category, in.FileURL, in.FilePath, in.FileSize, in.CloudURL, in.AutoSend, in.TriggerEvent, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementResourceShared soma 1 no banco (sem ler antes) e devolve o novo total.
func IncrementResourceShared(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (int, error) {
	var res struct{ SharedCount int }
	result := db.WithContext(ctx).Raw(`
		UPDATE resources SET shared_count = shared_count + 1, updated_at = now()
		WHERE id = ? AND therapist_id = ?
		RETURNING shared_count
	`, id, therapistID).Scan(&res)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return res.SharedCount, nil
}

// DeleteResource devolve o caminho do arquivo para o chamador removê-lo do storage.
func DeleteResource(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (filePath *string, err error) {
	var res struct{ FilePath *string }
	result := db.WithContext(ctx).Raw(`DELETE FROM resources WHERE id = ? AND therapist_id = ? RETURNING file_path`, id, therapistID).Scan(&res)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return res.FilePath, nil
}
