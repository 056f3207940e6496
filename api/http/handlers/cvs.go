package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/cvflow/api/http/presenter"
	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/blob"
	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/extract"
)

// CVHandler serves the upload flow and per-document endpoints. Access to a
// document is derived from access to its batch.
type CVHandler struct {
	batches batch.UseCase
	cvs     cv.UseCase
	blobs   blob.Gateway
}

func NewCVHandler(batches batch.UseCase, cvs cv.UseCase, blobs blob.Gateway) *CVHandler {
	return &CVHandler{batches: batches, cvs: cvs, blobs: blobs}
}

type uploadRequest struct {
	Filename      string `json:"filename"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	ContentType   string `json:"content_type"`
	Source        string `json:"source,omitempty"`
}

type uploadRequestResponse struct {
	UploadURL string `json:"upload_url"`
	Method    string `json:"method"`
	CVID      string `json:"cv_id"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// UploadRequest выдаёт подписанный URL для прямой загрузки файла в хранилище.
// @Summary     Запросить слот загрузки
// @Description Создаёт документ в статусе requested. Кредиты списываются только при подтверждении загрузки.
// @Tags        uploads
// @Accept      json
// @Produce     json
// @Param       jobId path string        true "ID пачки (UUID)"
// @Param       input body uploadRequest true "Метаданные файла"
// @Security    BearerAuth
// @Success     201 {object} uploadRequestResponse
// @Failure     400 {object} presenter.ErrorResponse
// @Failure     404 {object} presenter.ErrorResponse
// @Failure     409 {object} presenter.ErrorResponse
// @Failure     503 {object} presenter.ErrorResponse
// @Router      /batches/{jobId}/upload-request [post]
func (h *CVHandler) UploadRequest(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	jobID, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "невалидный JSON")
	}
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(req.Filename)))
	if !slices.Contains(extract.Supported, ext) {
		return presenter.Error(c, http.StatusBadRequest, "unsupported file type, allowed: "+strings.Join(extract.Supported, ", "))
	}
	source := cv.Source(req.Source)
	switch source {
	case "", cv.SourceManualUpload, cv.SourceSmartApply, cv.SourceCopilot:
	default:
		return presenter.Error(c, http.StatusBadRequest, "unknown source")
	}
	b, err := h.batches.Get(c.Context(), a, jobID)
	if err != nil {
		return writeError(c, err)
	}
	if b.Archived {
		return writeError(c, batch.ErrArchived)
	}

	key := blob.NewKey(a.UserID, jobID, req.Filename)
	slot, err := h.blobs.UploadSlot(c.Context(), key, req.ContentType)
	if err != nil {
		return writeError(c, err)
	}
	doc, err := h.cvs.CreatePendingDocument(c.Context(), cv.PendingInput{
		JobID:       jobID,
		UserID:      a.UserID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.FileSizeBytes,
		Key:         key,
		Source:      source,
	})
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusCreated, uploadRequestResponse{
		UploadURL: slot.URL,
		Method:    slot.Method,
		CVID:      doc.ID.String(),
		Key:       key,
		ExpiresIn: slot.ExpiresIn,
	})
}

type uploadCompleteRequest struct {
	CVID string `json:"cv_id"`
}

type uploadCompleteResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
	CVID   string `json:"cv_id"`
}

// UploadComplete подтверждает загрузку: списывает кредит и ставит задачу в очередь.
// Повторный вызов возвращает ту же задачу.
// @Summary  Подтвердить загрузку
// @Tags     uploads
// @Accept   json
// @Produce  json
// @Param    jobId path string                true "ID пачки (UUID)"
// @Param    input body uploadCompleteRequest true "ID документа"
// @Security BearerAuth
// @Success  202 {object} uploadCompleteResponse
// @Failure  400 {object} presenter.ErrorResponse
// @Failure  402 {object} presenter.ErrorResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Failure  409 {object} presenter.ErrorResponse
// @Router   /batches/{jobId}/upload-complete [post]
func (h *CVHandler) UploadComplete(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	jobID, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	var req uploadCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "невалидный JSON")
	}
	cvID, err := uuid.Parse(req.CVID)
	if err != nil {
		return badID(c, "cv_id")
	}
	doc, err := h.document(c.Context(), a, cvID)
	if err != nil {
		return writeError(c, err)
	}
	if doc.JobID != jobID {
		return writeError(c, cv.ErrNotFound)
	}
	doc, task, err := h.cvs.ConfirmUpload(c.Context(), cvID)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusAccepted, uploadCompleteResponse{
		Status: string(doc.Status),
		TaskID: task.ID.String(),
		CVID:   doc.ID.String(),
	})
}

type cvListResponse struct {
	Items    []cv.Document `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// List возвращает резюме пачки с пагинацией и фильтрами.
// @Summary  Список резюме
// @Tags     cvs
// @Produce  json
// @Param    jobId     path  string true  "ID пачки (UUID)"
// @Param    page      query int    false "Страница (с 1)"
// @Param    page_size query int    false "Размер страницы (1..200, по умолчанию 20)"
// @Param    status    query string false "Фильтр по статусу"
// @Param    search    query string false "Поиск по имени файла"
// @Security BearerAuth
// @Success  200 {object} cvListResponse
// @Failure  400 {object} presenter.ErrorResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /batches/{jobId}/cvs [get]
func (h *CVHandler) List(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	jobID, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	f := cv.Filter{JobID: jobID, Search: strings.TrimSpace(c.Query("search"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		st, ok := cv.ParseStatus(raw)
		if !ok {
			return presenter.Error(c, http.StatusBadRequest, "unknown status")
		}
		f.Status = st
	}
	f.Page, f.PageSize = parsePage(c)
	if _, err := h.batches.Get(c.Context(), a, jobID); err != nil {
		return writeError(c, err)
	}
	items, total, err := h.cvs.List(c.Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []cv.Document{}
	}
	return presenter.JSON(c, http.StatusOK, cvListResponse{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize})
}

// Get returns a single CV with its match data.
// @Summary  Get CV
// @Tags     cvs
// @Produce  json
// @Param    cvId path string true "CV ID (UUID)"
// @Security BearerAuth
// @Success  200 {object} cv.Document
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /cvs/{cvId} [get]
func (h *CVHandler) Get(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "cvId")
	if !ok {
		return badID(c, "cvId")
	}
	doc, err := h.document(c.Context(), a, id)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusOK, doc)
}

type downloadResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}

// DownloadURL issues a short-lived link to the original file.
// @Summary  CV download link
// @Tags     cvs
// @Produce  json
// @Param    cvId path string true "CV ID (UUID)"
// @Security BearerAuth
// @Success  200 {object} downloadResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Failure  503 {object} presenter.ErrorResponse
// @Router   /cvs/{cvId}/download-url [get]
func (h *CVHandler) DownloadURL(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "cvId")
	if !ok {
		return badID(c, "cvId")
	}
	if _, err := h.document(c.Context(), a, id); err != nil {
		return writeError(c, err)
	}
	key, err := h.cvs.GetDownloadReference(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	slot, err := h.blobs.DownloadSlot(c.Context(), key)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusOK, downloadResponse{DownloadURL: slot.URL, ExpiresIn: slot.ExpiresIn})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus — решение оператора: shortlisted или rejected.
// @Summary  Изменить статус резюме
// @Tags     cvs
// @Accept   json
// @Produce  json
// @Param    cvId  path string        true "ID резюме (UUID)"
// @Param    input body statusRequest true "Новый статус"
// @Security BearerAuth
// @Success  200 {object} cv.Document
// @Failure  400 {object} presenter.ErrorResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /cvs/{cvId}/status [patch]
func (h *CVHandler) UpdateStatus(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "cvId")
	if !ok {
		return badID(c, "cvId")
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "невалидный JSON")
	}
	if _, err := h.document(c.Context(), a, id); err != nil {
		return writeError(c, err)
	}
	doc, err := h.cvs.UpdateStatus(c.Context(), id, cv.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusOK, doc)
}

// Delete removes the CV. A worker still holding it finishes without effect.
// @Summary  Delete CV
// @Tags     cvs
// @Param    cvId path string true "CV ID (UUID)"
// @Security BearerAuth
// @Success  204
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /cvs/{cvId} [delete]
func (h *CVHandler) Delete(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "cvId")
	if !ok {
		return badID(c, "cvId")
	}
	if _, err := h.document(c.Context(), a, id); err != nil {
		return writeError(c, err)
	}
	if err := h.cvs.Delete(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Retry повторно ставит в очередь резюме с временной ошибкой.
// @Summary  Повторить обработку
// @Tags     cvs
// @Produce  json
// @Param    cvId path string true "ID резюме (UUID)"
// @Security BearerAuth
// @Success  202 {object} uploadCompleteResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Failure  409 {object} presenter.ErrorResponse
// @Router   /cvs/{cvId}/retry [post]
func (h *CVHandler) Retry(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "cvId")
	if !ok {
		return badID(c, "cvId")
	}
	if _, err := h.document(c.Context(), a, id); err != nil {
		return writeError(c, err)
	}
	doc, task, err := h.cvs.RetryFailed(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusAccepted, uploadCompleteResponse{
		Status: string(doc.Status),
		TaskID: task.ID.String(),
		CVID:   doc.ID.String(),
	})
}

// document loads a CV and checks the actor may see its batch. Foreign
// documents look the same as missing ones.
func (h *CVHandler) document(ctx context.Context, a batch.Actor, id uuid.UUID) (cv.Document, error) {
	doc, err := h.cvs.Get(ctx, id)
	if err != nil {
		return cv.Document{}, err
	}
	if _, err := h.batches.Get(ctx, a, doc.JobID); err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			return cv.Document{}, cv.ErrNotFound
		}
		return cv.Document{}, err
	}
	return doc, nil
}
