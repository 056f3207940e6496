package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cvflow/api/http/presenter"
	"github.com/artem13815/cvflow/pkg/blob"
	"github.com/artem13815/cvflow/pkg/blob/local"
)

// LocalBlobHandler plays the object store for the local driver: slot URLs
// issued by local.Store land here.
type LocalBlobHandler struct {
	store    *local.Store
	maxBytes int64
}

func NewLocalBlobHandler(store *local.Store, maxBytes int64) *LocalBlobHandler {
	return &LocalBlobHandler{store: store, maxBytes: maxBytes}
}

// Put stores the request body under the key named by the token.
// @Summary Upload bytes to a local slot
// @Tags    uploads
// @Accept  octet-stream
// @Param   token path string true "Slot token"
// @Success 200
// @Failure 403 {object} presenter.ErrorResponse
// @Failure 413 {object} presenter.ErrorResponse
// @Router  /uploads/{token} [put]
func (h *LocalBlobHandler) Put(c *fiber.Ctx) error {
	key, err := h.store.Verify(c.Params("token"), local.OpPut)
	if err != nil {
		return presenter.Error(c, http.StatusForbidden, "upload link invalid or expired")
	}
	if _, err := h.store.Put(c.Context(), key, bytes.NewReader(c.Body()), h.maxBytes); err != nil {
		if errors.Is(err, local.ErrTooLarge) {
			return presenter.Error(c, http.StatusRequestEntityTooLarge, "file too large")
		}
		return writeError(c, err)
	}
	return c.SendStatus(http.StatusOK)
}

// Get streams the object named by the token.
// @Summary Download bytes from a local slot
// @Tags    uploads
// @Produce octet-stream
// @Param   token path string true "Slot token"
// @Success 200
// @Failure 403 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /uploads/{token} [get]
func (h *LocalBlobHandler) Get(c *fiber.Ctx) error {
	key, err := h.store.Verify(c.Params("token"), local.OpGet)
	if err != nil {
		return presenter.Error(c, http.StatusForbidden, "download link invalid or expired")
	}
	data, err := h.store.Fetch(c.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return presenter.Error(c, http.StatusNotFound, "file not found")
		}
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(data)
}
