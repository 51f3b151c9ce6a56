package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Task struct {
	ID          uuid.UUID  `json:"id"`
	TherapistID uuid.UUID  `json:"-"`
	PatientID   *uuid.UUID `json:"patient_id"`
	PatientName *string    `json:"patient_name"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *string    `json:"due_date"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Category    string     `json:"category"`
	CreatedAt   time.Time  `json:"created_at"`
	Overdue     bool       `json:"overdue" gorm:"-"`
}

type TaskInput struct {
	PatientID   *uuid.UUID
	Title       string
	Description *string
	DueDate     *string
	Priority    string
	Status      string
	Category    string
}

func InputFromTask(t *Task) TaskInput {
	return TaskInput{PatientID: t.PatientID, Title: t.Title, Description: t.Description, DueDate: t.DueDate,
		Priority: t.Priority, Status: t.Status, Category: t.Category}
}

type TaskFilter struct {
	Status   string
	Category string
}

const taskSelect = `
	SELECT k.id, k.therapist_id, k.patient_id, p.name AS patient_name, k.title, k.description,
	       k.due_date::text AS due_date, k.priority, k.status, k.category, k.created_at
	FROM tasks k
	LEFT JOIN patients p ON p.id = k.patient_id
`

// ListTasks ordena por vencimento (sem data por último).
func ListTasks(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, f TaskFilter) ([]Task, error) {
	q := taskSelect + ` WHERE k.therapist_id = ?`
	args := []interface{}{therapistID}
	if f.Status != "" {
		q += ` AND k.status = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		q += ` AND k.category = ?`
		args = append(args, f.Category)
	}
	q += ` ORDER BY k.due_date ASC NULLS LAST, k.created_at`
	var list []Task
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func TaskByID(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) (*Task, error) {
	var t Task
	err := db.WithContext(ctx).Raw(taskSelect+` WHERE k.id = ? AND k.therapist_id = ?`, id, therapistID).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func CreateTask(ctx context.Context, db *gorm.DB, therapistID uuid.UUID, in TaskInput) (uuid.UUID, error) {
	if err := patientOwned(ctx, db, therapistID, in.PatientID); err != nil {
		return uuid.Nil, err
	}
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO tasks (therapist_id, patient_id, title, description, due_date, priority, status, category)
		VALUES (?, ?, ?, ?, ?::date, ?, ?, ?)
		RETURNING id
	`, therapistID, in.PatientID, in.Title, in.Description, in.DueDate, in.Priority, in.Status, in.Category).Scan(&res).Error
	return res.ID, err
}

func UpdateTask(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, in TaskInput) error {
	if err := patientOwned(ctx, db, therapistID, in.PatientID); err != nil {
		return err
	}
	result := db.WithContext(ctx).Exec(`
		UPDATE tasks SET patient_id = ?, title = ?, description = ?, due_date = ?::date, priority = ?, status = ?,
			category = ?, updated_at = now()
		WHERE id = ? AND therapist_id = ?
	`, in.PatientID, in.Title, in.Description, in.DueDate, in.Priority, in.Status, in.Category, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func SetTaskStatus(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID, status string) error {
	result := db.WithContext(ctx).Exec(`UPDATE tasks SET status = ?, updated_at = now() WHERE id = ? AND therapist_id = ?`, status, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteTask(ctx context.Context, db *gorm.DB, therapistID, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM tasks WHERE id = ? AND therapist_id = ?`, id, therapistID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
