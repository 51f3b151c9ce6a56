package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/storage"
	"go.uber.org/zap"
)

var resourceTypes = []string{"PDF", "Vídeo", "Áudio", "Drive", "Link"}

type ResourceRequest struct {
	Title        *string `json:"title"`
	Type         *string `json:"type"`
	Category     *string `json:"category"`
	FileURL      *string `json:"file_url"`
	FileSize     *string `json:"file_size"`
	CloudURL     *string `json:"cloud_url"`
	AutoSend     *bool   `json:"auto_send"`
	TriggerEvent *string `json:"trigger_event"`
}

func (req *ResourceRequest) apply(in *repo.ResourceInput) string {
	if req.Title != nil {
		in.Title = strings.TrimSpace(*req.Title)
	}
	if in.Title == "" {
		return "title required"
	}
	if req.Type != nil {
		in.Type = *req.Type
	}
	if !oneOf(in.Type, resourceTypes...) {
		return "invalid type"
	}
	if req.Category != nil {
		in.Category = optString(req.Category)
	}
	// file_url só muda via upload quando há arquivo local
	if req.FileURL != nil && in.FilePath == nil {
		in.FileURL = optString(req.FileURL)
	}
	if req.FileSize != nil && in.FilePath == nil {
		in.FileSize = optString(req.FileSize)
	}
	if req.CloudURL != nil {
		in.CloudURL = optString(req.CloudURL)
	}
	if req.AutoSend != nil {
		in.AutoSend = *req.AutoSend
	}
	if req.TriggerEvent != nil {
		in.TriggerEvent = optString(req.TriggerEvent)
	}
	return ""
}

func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	list, err := repo.ListResources(r.Context(), h.DB, tid)
	if err != nil {
		h.serverError(w, r, err, "list_resources")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := repo.ResourceByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "get_resource")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req ResourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.ResourceInput{Type: "Link"}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	id, err := repo.CreateResource(r.Context(), h.DB, tid, in)
	if err != nil {
		h.repoError(w, r, err, "create_resource")
		return
	}
	res, err := repo.ResourceByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_resource")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// UploadResource grava o arquivo (até 50 MB) e cria o material com tipo e tamanho derivados.
func (h *Handler) UploadResource(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	if h.Storage == nil {
		http.Error(w, `{"error":"storage not configured"}`, http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxResourceBytes+1<<20)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"file required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()
	ct, body, err := storage.Sniff(file)
	if err != nil {
		http.Error(w, `{"error":"file required"}`, http.StatusBadRequest)
		return
	}
	key := storage.ResourceKey(tid.String(), ct, h.now())
	n, err := h.Storage.Put(key, body, storage.MaxResourceBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			http.Error(w, `{"error":"arquivo deve ter no máximo 50MB"}`, http.StatusRequestEntityTooLarge)
			return
		}
		h.serverError(w, r, err, "resource_put")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = hdr.Filename
	}
	url, size := h.Storage.URL(key), storage.HumanSize(n)
	in := repo.ResourceInput{
		Title: title, Type: storage.ResourceType(ct), FileURL: &url, FilePath: &key, FileSize: &size,
	}
	if c := strings.TrimSpace(r.FormValue("category")); c != "" {
		in.Category = &c
	}
	id, err := repo.CreateResource(r.Context(), h.DB, tid, in)
	if err != nil {
		_ = h.Storage.Delete(key)
		h.repoError(w, r, err, "upload_resource")
		return
	}
	res, err := repo.ResourceByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "upload_resource")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ResourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.ResourceByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_resource")
		return
	}
	in := repo.InputFromResource(cur)
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateResource(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_resource")
		return
	}
	res, err := repo.ResourceByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_resource")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ShareResource(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := repo.IncrementResourceShared(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "share_resource")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"shared_count": n})
}

// DeleteResource apaga o registro e depois o arquivo; falha no arquivo só gera log.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	path, err := repo.DeleteResource(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "delete_resource")
		return
	}
	if path != nil && *path != "" && h.Storage != nil {
		if err := h.Storage.Delete(*path); err != nil {
			h.log().Warn("arquivo do material não removido", zap.String("path", *path), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
