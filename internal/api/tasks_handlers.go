package api

import (
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/tasks"
	"github.com/google/uuid"
)

type TaskRequest struct {
	PatientID   *string `json:"patient_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	Category    *string `json:"category"`
}

func (req *TaskRequest) apply(in *repo.TaskInput) string {
	if req.PatientID != nil {
		if s := strings.TrimSpace(*req.PatientID); s == "" {
			in.PatientID = nil
		} else {
			id, err := uuid.Parse(s)
			if err != nil {
				return "invalid patient_id"
			}
			in.PatientID = &id
		}
	}
	if req.Title != nil {
		in.Title = strings.TrimSpace(*req.Title)
	}
	if in.Title == "" {
		return "title required"
	}
	if req.Description != nil {
		in.Description = optString(req.Description)
	}
	if req.DueDate != nil {
		in.DueDate = optString(req.DueDate)
		if in.DueDate != nil && ValidateDate(*in.DueDate) != nil {
			return "invalid due_date"
		}
	}
	if req.Priority != nil {
		if !tasks.ValidPriority(*req.Priority) {
			return "invalid priority"
		}
		in.Priority = *req.Priority
	}
	if req.Status != nil {
		if !tasks.ValidStatus(*req.Status) {
			return "invalid status"
		}
		in.Status = *req.Status
	}
	if req.Category != nil {
		if !tasks.ValidCategory(*req.Category) {
			return "invalid category"
		}
		in.Category = *req.Category
	}
	return ""
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	f := repo.TaskFilter{Status: r.URL.Query().Get("status"), Category: r.URL.Query().Get("category")}
	if f.Status != "" && !tasks.ValidStatus(f.Status) {
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	}
	if f.Category != "" && !tasks.ValidCategory(f.Category) {
		http.Error(w, `{"error":"invalid category"}`, http.StatusBadRequest)
		return
	}
	list, err := repo.ListTasks(r.Context(), h.DB, tid, f)
	if err != nil {
		h.serverError(w, r, err, "list_tasks")
		return
	}
	if list == nil {
		list = []repo.Task{}
	}
	overdue := tasks.MarkOverdue(list, h.localNow())
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": list, "overdue": overdue})
}

func (h *Handler) taskOut(w http.ResponseWriter, r *http.Request, tid, id uuid.UUID, status int, action string) {
	t, err := repo.TaskByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, action)
		return
	}
	t.Overdue = tasks.IsOverdue(*t, h.today())
	writeJSON(w, status, t)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.taskOut(w, r, tid, id, http.StatusOK, "get_task")
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.TaskInput{Priority: tasks.PriorityMedia, Status: tasks.StatusPendente, Category: tasks.CategoryAdministrativa}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	id, err := repo.CreateTask(r.Context(), h.DB, tid, in)
	if err != nil {
		h.repoError(w, r, err, "create_task")
		return
	}
	h.taskOut(w, r, tid, id, http.StatusCreated, "create_task")
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.TaskByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_task")
		return
	}
	in := repo.InputFromTask(cur)
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateTask(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_task")
		return
	}
	h.taskOut(w, r, tid, id, http.StatusOK, "update_task")
}

// ToggleTask alterna Pendente e o status de conclusão da categoria.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cur, err := repo.TaskByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "toggle_task")
		return
	}
	if err := repo.SetTaskStatus(r.Context(), h.DB, tid, id, tasks.NextStatus(cur.Status, cur.Category)); err != nil {
		h.repoError(w, r, err, "toggle_task")
		return
	}
	h.taskOut(w, r, tid, id, http.StatusOK, "toggle_task")
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.DeleteTask(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
