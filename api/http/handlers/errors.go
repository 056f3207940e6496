package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/cvflow/api/http/presenter"
	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/blob"
	"github.com/artem13815/cvflow/pkg/credits"
	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/queue"
)

// writeError maps domain errors onto HTTP statuses. Unknown errors are logged
// and reported as 500 without details.
func writeError(c *fiber.Ctx, err error) error {
	var verr cv.ErrValidation
	switch {
	case errors.As(err, &verr):
		return presenter.Error(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, blob.ErrInvalidKey):
		return presenter.Error(c, http.StatusBadRequest, "invalid object key")
	case errors.Is(err, cv.ErrNotFound), errors.Is(err, cv.ErrDeleted):
		return presenter.Error(c, http.StatusNotFound, "cv not found")
	case errors.Is(err, batch.ErrNotFound):
		return presenter.Error(c, http.StatusNotFound, "batch not found")
	case errors.Is(err, queue.ErrNotFound):
		return presenter.Error(c, http.StatusNotFound, "task not found")
	case errors.Is(err, blob.ErrObjectNotFound):
		return presenter.Error(c, http.StatusNotFound, "file not found")
	case errors.Is(err, batch.ErrArchived):
		return presenter.Error(c, http.StatusConflict, "batch is archived")
	case errors.Is(err, cv.ErrAlreadyProcessed):
		return presenter.Error(c, http.StatusConflict, "cv already processed")
	case errors.Is(err, cv.ErrDuplicateKey):
		return presenter.Error(c, http.StatusConflict, "storage key already in use")
	case errors.Is(err, cv.ErrNotRetriable):
		return presenter.Error(c, http.StatusConflict, "cv failed permanently and cannot be retried")
	case errors.Is(err, cv.ErrInvalidTransition), errors.Is(err, queue.ErrInvalidTransition):
		return presenter.Error(c, http.StatusConflict, "operation not allowed in current status")
	case errors.Is(err, credits.ErrQuotaExceeded):
		return presenter.Error(c, http.StatusPaymentRequired, "insufficient credits")
	case errors.Is(err, blob.ErrUnavailable):
		return presenter.Error(c, http.StatusServiceUnavailable, "storage unavailable, try again later")
	}
	slog.Default().Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return presenter.Error(c, http.StatusInternalServerError, "internal error")
}

// actor reads the identity put into Locals by the JWT middleware.
func actor(c *fiber.Ctx) (batch.Actor, bool) {
	raw, _ := c.Locals("userId").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return batch.Actor{}, false
	}
	isAdmin, _ := c.Locals("isAdmin").(bool)
	return batch.Actor{UserID: id, IsAdmin: isAdmin}, true
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func badID(c *fiber.Ctx, name string) error {
	return presenter.Error(c, http.StatusBadRequest, "невалидный "+name)
}

func unauthorized(c *fiber.Ctx) error {
	return presenter.Error(c, http.StatusUnauthorized, "unauthorized")
}
