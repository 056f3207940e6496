package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cvflow/api/http/handlers"
)

// Handlers groups everything Register mounts. LocalBlob is nil unless the
// local blob driver is active.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Health    *handlers.HealthHandler
	Batches   *handlers.BatchHandler
	CVs       *handlers.CVHandler
	Credits   *handlers.CreditsHandler
	Progress  *handlers.ProgressHandler
	LocalBlob *handlers.LocalBlobHandler
}

// Register wires all HTTP routes onto given Fiber app.
func Register(app *fiber.App, h Handlers, authMW fiber.Handler) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Health and readiness endpoints for orchestrator checks and monitoring
	v1.Get("/health", h.Health.Health)
	v1.Get("/ready", h.Health.Ready)

	a := v1.Group("/auth")
	a.Post("/register", h.Auth.Register)
	a.Post("/login", h.Auth.Login)
	a.Get("/me", authMW, h.Auth.Me)

	// Слоты локального хранилища подписаны сами по себе, JWT не нужен
	if h.LocalBlob != nil {
		v1.Put("/uploads/:token", h.LocalBlob.Put)
		v1.Get("/uploads/:token", h.LocalBlob.Get)
	}

	b := v1.Group("/batches", authMW)
	b.Post("/", h.Batches.Create)
	b.Get("/", h.Batches.List)
	b.Get("/:jobId", h.Batches.Get)
	b.Patch("/:jobId", h.Batches.Update)
	b.Delete("/:jobId", h.Batches.Delete)
	b.Put("/:jobId/weights", h.Batches.UpdateWeights)
	b.Get("/:jobId/queue-status", h.Batches.QueueStatus)
	b.Post("/:jobId/upload-request", h.CVs.UploadRequest)
	b.Post("/:jobId/upload-complete", h.CVs.UploadComplete)
	b.Get("/:jobId/cvs", h.CVs.List)

	cv := v1.Group("/cvs", authMW)
	cv.Get("/:cvId", h.CVs.Get)
	cv.Get("/:cvId/download-url", h.CVs.DownloadURL)
	cv.Patch("/:cvId/status", h.CVs.UpdateStatus)
	cv.Delete("/:cvId", h.CVs.Delete)
	cv.Post("/:cvId/retry", h.CVs.Retry)

	v1.Get("/credits", authMW, h.Credits.Get)

	v1.Get("/ws/batches/:jobId", authMW, h.Progress.Upgrade, h.Progress.Stream())
}
