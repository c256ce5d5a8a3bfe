package main

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/imageforge/imageforge/internal/api/handlers/feedback"
	jobapi "github.com/imageforge/imageforge/internal/api/handlers/job"
	"github.com/imageforge/imageforge/internal/api/router"
	"github.com/imageforge/imageforge/internal/api/server"
	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/enhance"
	"github.com/imageforge/imageforge/internal/infra/kafka/consumer"
	"github.com/imageforge/imageforge/internal/infra/kafka/producer"
	jobmsg "github.com/imageforge/imageforge/internal/kafka/handlers/job"
	jobrepo "github.com/imageforge/imageforge/internal/repository/job"
	"github.com/imageforge/imageforge/internal/service/job"
	"github.com/imageforge/imageforge/internal/storage/file"
	"github.com/imageforge/imageforge/internal/storage/minio"
)

// fileStorage is satisfied by both storage backends.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, subdir, filename string) error
}

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	// Collect slave DSNs for replica connections.
	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))

	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}
	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Retry strategy for Kafka and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Pick the file storage backend.
	var storage fileStorage
	switch cfg.Storage.Backend {
	case "minio":
		storage, err = minio.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
	default:
		storage = file.NewStorage(cfg.Storage.BaseDir)
	}

	// Initialize repository, producer, enhancement engine, and service layer.
	repo := jobrepo.NewRepository(db)
	p := producer.New(&cfg.Kafka, strategy)
	engine := enhance.New(cfg.Enhance.Binary, cfg.Enhance.ModelDir, cfg.Enhance.WorkDir)
	service := job.NewService(storage, p, engine)

	// Kafka message handler for completed-job events.
	completedHandler := jobmsg.NewCompletedHandler(repo)

	// HTTP handlers for job and feedback routes.
	jobHandler := jobapi.NewHandler(service, repo, storage)
	fbHandler := feedback.NewHandler(storage)

	// Kafka consumer recording completed jobs into the database.
	c := consumer.New(&cfg.Kafka, strategy, completedHandler)

	// Start Kafka consumer in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(jobHandler, fbHandler)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}
	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	// Close Kafka producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
