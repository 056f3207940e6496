// Command worker processes the CV queue outside the API process. Several
// instances may run against the same Postgres; the claim keeps them apart.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/artem13815/cvflow/pkg/bootstrap"
	"github.com/artem13815/cvflow/pkg/config"
	"github.com/artem13815/cvflow/pkg/logging"
	"github.com/artem13815/cvflow/pkg/progress"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.StorageDriver == "memory" {
		return errors.New("standalone worker needs shared storage: set STORAGE_DRIVER=postgres")
	}
	if cfg.Pipeline.WorkerCount <= 0 {
		cfg.Pipeline.WorkerCount = 1
	}
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

	// без Redis события некому доставить: клиенты увидят итог при чтении
	var events progress.Publisher = progress.NewHub()
	if rdb != nil {
		defer rdb.Close()
		events = progress.NewRedisPublisher(rdb)
	} else {
		log.Warn("REDIS_URL не задан: события прогресса не будут доставлены клиентам")
	}

	svc := bootstrap.NewServices(cfg, repos, blobs.Gateway, log)
	pool := bootstrap.NewWorkerPool(cfg, repos, svc, blobs.Gateway, events, log)
	janitor := bootstrap.NewJanitor(cfg, svc, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = janitor.Run(ctx)
	}()
	err = pool.Run(ctx)
	wg.Wait()
	return err
}
