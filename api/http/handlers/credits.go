package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/cvflow/api/http/presenter"
	"github.com/artem13815/cvflow/pkg/credits"
)

type CreditsReader interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]credits.Transaction, error)
}

type CreditsHandler struct {
	credits CreditsReader
}

func NewCreditsHandler(c CreditsReader) *CreditsHandler { return &CreditsHandler{credits: c} }

type creditsResponse struct {
	Balance      int                   `json:"balance"`
	Transactions []credits.Transaction `json:"transactions"`
}

// Get возвращает баланс и последние операции по кредитам.
// @Summary  Баланс кредитов
// @Tags     credits
// @Produce  json
// @Param    limit query int false "Количество операций (по умолчанию 50)"
// @Security BearerAuth
// @Success  200 {object} creditsResponse
// @Failure  401 {object} presenter.ErrorResponse
// @Router   /credits [get]
func (h *CreditsHandler) Get(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	limit, _ := parseLimitOffset(c, 50)
	balance, err := h.credits.Balance(c.Context(), a.UserID)
	if err != nil {
		return writeError(c, err)
	}
	history, err := h.credits.History(c.Context(), a.UserID, limit)
	if err != nil {
		return writeError(c, err)
	}
	if history == nil {
		history = []credits.Transaction{}
	}
	return presenter.JSON(c, http.StatusOK, creditsResponse{Balance: balance, Transactions: history})
}
