package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cvflow/api/http/presenter"
	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/cv"
)

type BatchHandler struct {
	batches batch.UseCase
}

func NewBatchHandler(batches batch.UseCase) *BatchHandler {
	return &BatchHandler{batches: batches}
}

type createBatchRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Weights     *cv.Weights `json:"weights,omitempty"`
}

// Create создаёт пачку (вакансию) для загрузки резюме.
// @Summary     Создать пачку
// @Description Веса компонентов оценки в процентах, в сумме 100. Без весов берутся значения по умолчанию 50/30/10/10.
// @Tags        batches
// @Accept      json
// @Produce     json
// @Param       input body createBatchRequest true "Пачка"
// @Security    BearerAuth
// @Success     201 {object} batch.Batch
// @Failure     400 {object} presenter.ErrorResponse
// @Failure     401 {object} presenter.ErrorResponse
// @Router      /batches [post]
func (h *BatchHandler) Create(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req createBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "невалидный JSON")
	}
	b, err := h.batches.Create(c.Context(), a, req.Title, req.Description, req.Weights)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusCreated, b)
}

// List возвращает пачки пользователя (или все, если админ).
// @Summary  Список пачек
// @Tags     batches
// @Produce  json
// @Param    limit    query int  false "Лимит (1..200, по умолчанию 50)"
// @Param    offset   query int  false "Смещение"
// @Param    archived query bool false "Показать архивные вместо активных"
// @Security BearerAuth
// @Success  200 {array} batch.Batch
// @Failure  401 {object} presenter.ErrorResponse
// @Router   /batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	limit, offset := parseLimitOffset(c, 50)
	items, err := h.batches.List(c.Context(), a, c.QueryBool("archived", false), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []batch.Batch{}
	}
	return presenter.JSON(c, http.StatusOK, items)
}

// Get возвращает пачку со счётчиками.
// @Summary  Получить пачку
// @Tags     batches
// @Produce  json
// @Param    jobId path string true "ID пачки (UUID)"
// @Security BearerAuth
// @Success  200 {object} batch.Batch
// @Failure  400 {object} presenter.ErrorResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /batches/{jobId} [get]
func (h *BatchHandler) Get(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	b, err := h.batches.Get(c.Context(), a, id)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusOK, b)
}

// UpdateWeights меняет веса оценки. Уже оценённые резюме не пересчитываются.
// @Summary  Обновить веса
// @Tags     batches
// @Accept   json
// @Produce  json
// @Param    jobId path string true "ID пачки (UUID)"
// @Param    input body cv.Weights true "Веса в процентах"
// @Security BearerAuth
// @Success  200 {object} batch.Batch
// @Failure  400 {object} presenter.ErrorResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /batches/{jobId}/weights [put]
func (h *BatchHandler) UpdateWeights(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	var w cv.Weights
	if err := c.BodyParser(&w); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "невалидный JSON")
	}
	b, err := h.batches.UpdateWeights(c.Context(), a, id, w)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusOK, b)
}

// QueueStatus — сводка обработки пачки с оценкой оставшегося времени.
// @Summary  Статус очереди пачки
// @Tags     batches
// @Produce  json
// @Param    jobId path string true "ID пачки (UUID)"
// @Security BearerAuth
// @Success  200 {object} batch.QueueStatus
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /batches/{jobId}/queue-status [get]
func (h *BatchHandler) QueueStatus(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	st, err := h.batches.QueueStatus(c.Context(), a, id)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusOK, st)
}

type updateBatchRequest struct {
	Archived *bool `json:"isArchived"`
}

// Update переключает архивный флаг пачки.
// @Summary  Архивировать пачку
// @Tags     batches
// @Accept   json
// @Produce  json
// @Param    jobId path string             true "ID пачки (UUID)"
// @Param    input body updateBatchRequest true "Флаг архива"
// @Security BearerAuth
// @Success  200 {object} batch.Batch
// @Failure  400 {object} presenter.ErrorResponse
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /batches/{jobId} [patch]
func (h *BatchHandler) Update(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	var req updateBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "невалидный JSON")
	}
	if req.Archived == nil {
		return presenter.Error(c, http.StatusBadRequest, "isArchived is required")
	}
	b, err := h.batches.SetArchived(c.Context(), a, id, *req.Archived)
	if err != nil {
		return writeError(c, err)
	}
	return presenter.JSON(c, http.StatusOK, b)
}

// Delete удаляет пачку вместе с резюме. Резюме в обработке дочищаются после завершения задач.
// @Summary  Удалить пачку
// @Tags     batches
// @Param    jobId path string true "ID пачки (UUID)"
// @Security BearerAuth
// @Success  204
// @Failure  404 {object} presenter.ErrorResponse
// @Router   /batches/{jobId} [delete]
func (h *BatchHandler) Delete(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	if err := h.batches.Delete(c.Context(), a, id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
