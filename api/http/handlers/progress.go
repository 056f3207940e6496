package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/artem13815/cvflow/api/http/presenter"
	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/progress"
)

const pingInterval = 30 * time.Second

// ProgressHandler streams per-batch processing events over WebSocket.
// Delivery is best effort; clients re-read the CV list after reconnecting.
type ProgressHandler struct {
	batches batch.UseCase
	hub     *progress.Hub
	log     *slog.Logger
}

func NewProgressHandler(batches batch.UseCase, hub *progress.Hub, log *slog.Logger) *ProgressHandler {
	return &ProgressHandler{batches: batches, hub: hub, log: log}
}

// Upgrade проверяет доступ к пачке до апгрейда соединения.
// @Summary     Поток прогресса пачки (WebSocket)
// @Description Сообщения вида {"type":"cv_progress","cv_id":"...","progress":50,"status":"processing"}. Токен можно передать в ?token=.
// @Tags        progress
// @Param       jobId path  string true  "ID пачки (UUID)"
// @Param       token query string false "JWT"
// @Success     101
// @Failure     401 {object} presenter.ErrorResponse
// @Failure     404 {object} presenter.ErrorResponse
// @Failure     426 {object} presenter.ErrorResponse
// @Router      /ws/batches/{jobId} [get]
func (h *ProgressHandler) Upgrade(c *fiber.Ctx) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	jobID, ok := uuidParam(c, "jobId")
	if !ok {
		return badID(c, "jobId")
	}
	if _, err := h.batches.Get(c.Context(), a, jobID); err != nil {
		return writeError(c, err)
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return presenter.Error(c, http.StatusUpgradeRequired, "websocket upgrade required")
	}
	c.Locals("jobId", jobID)
	return c.Next()
}

// Stream is the websocket.New handler that runs after Upgrade.
func (h *ProgressHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		jobID, _ := conn.Locals("jobId").(uuid.UUID)
		sub := h.hub.Subscribe(jobID, 64)
		defer sub.Close()

		// читаем только чтобы заметить закрытие со стороны клиента
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		h.log.Debug("progress stream opened", "job_id", jobID)
		for {
			select {
			case <-closed:
				h.log.Debug("progress stream closed", "job_id", jobID)
				return
			case e, ok := <-sub.C:
				if !ok {
					return
				}
				if err := conn.WriteJSON(e); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	})
}
