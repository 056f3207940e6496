// @title         cvflow API
// @version       1.0
// @description   Пакетная загрузка резюме, извлечение текста и оценка соответствия вакансии с помощью LLM.
// @BasePath      /api/v1
// @schemes       http
// @host          localhost:8080
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Токен авторизации. Поддерживаются форматы: "Bearer <JWT>" или "<JWT>".
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"

	// internal imports
	"github.com/artem13815/cvflow/api/http"
	"github.com/artem13815/cvflow/api/http/handlers"
	_ "github.com/artem13815/cvflow/docs"
	"github.com/artem13815/cvflow/pkg/bootstrap"
	"github.com/artem13815/cvflow/pkg/config"
	"github.com/artem13815/cvflow/pkg/health"
	"github.com/artem13815/cvflow/pkg/health/checkers"
	"github.com/artem13815/cvflow/pkg/logging"
	"github.com/artem13815/cvflow/pkg/progress"
	"github.com/artem13815/cvflow/pkg/security/jwt"
)

func main() {
	// Load configuration from env/.env
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	repos, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.Close()

	blobs, err := bootstrap.OpenBlob(ctx, cfg)
	if err != nil {
		return err
	}
	rdb, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	svc := bootstrap.NewServices(cfg, repos, blobs.Gateway, log)

	// Без Redis воркеры публикуют прямо в локальный hub. С Redis публикуют
	// только в Redis, а мост доставляет события и от внешних воркеров.
	hub := progress.NewHub()
	var events progress.Publisher = hub
	var wg sync.WaitGroup
	if rdb != nil {
		events = progress.NewRedisPublisher(rdb)
		bridge := progress.NewRedisBridge(rdb, hub, log.With("component", "progress"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(ctx); err != nil {
				log.Error("progress bridge", "error", err)
			}
		}()
	}

	if cfg.Pipeline.WorkerCount > 0 {
		pool := bootstrap.NewWorkerPool(cfg, repos, svc, blobs.Gateway, events, log)
		janitor := bootstrap.NewJanitor(cfg, svc, log)
		wg.Add(2)
		go func() { defer wg.Done(); _ = pool.Run(ctx) }()
		go func() { defer wg.Done(); _ = janitor.Run(ctx) }()
	} else {
		log.Info("embedded workers disabled, expecting cmd/worker to process the queue")
	}

	// Health service: compose checkers
	var pgChecker, redisChecker health.Checker
	if repos.DB != nil {
		pgChecker = checkers.NewPostgresChecker(repos.DB)
	}
	if rdb != nil {
		redisChecker = checkers.NewRedisChecker(rdb)
	}
	readiness := health.NewService(pgChecker, redisChecker, checkers.NewBlobChecker(blobs.Gateway))

	h := http.Handlers{
		Auth:     handlers.NewAuthHandler(svc.Auth),
		Health:   handlers.NewHealthHandler(readiness),
		Batches:  handlers.NewBatchHandler(svc.Batches),
		CVs:      handlers.NewCVHandler(svc.Batches, svc.CVs, blobs.Gateway),
		Credits:  handlers.NewCreditsHandler(svc.Credits),
		Progress: handlers.NewProgressHandler(svc.Batches, hub, log.With("component", "ws")),
	}
	if blobs.Local != nil {
		h.LocalBlob = handlers.NewLocalBlobHandler(blobs.Local, cfg.Pipeline.MaxUploadBytes)
	}

	app := fiber.New(fiber.Config{
		AppName:               "cvflow",
		BodyLimit:             int(cfg.Pipeline.MaxUploadBytes) + 1<<20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New(), requestid.New(), http.AccessLog(log))

	// JWT auth middleware for protected routes
	authMW := jwt.NewAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer)
	http.Register(app, h, authMW)

	// Swagger UI
	app.Get("/swagger/*", swagger.HandlerDefault)

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "port", cfg.Port, "storage", cfg.StorageDriver, "blob", cfg.Blob.Driver, "redis", rdb != nil)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = app.ShutdownWithContext(shutdownCtx)
	}
	wg.Wait()
	return err
}
