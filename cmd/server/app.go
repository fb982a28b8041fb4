package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/events"
	"github.com/phrazzld/scry-materials/internal/generation"
	"github.com/phrazzld/scry-materials/internal/materials"
	"github.com/phrazzld/scry-materials/internal/platform/gemini"
	"github.com/phrazzld/scry-materials/internal/platform/openai"
	"github.com/phrazzld/scry-materials/internal/platform/postgres"
	"github.com/phrazzld/scry-materials/internal/platform/redis"
	"github.com/phrazzld/scry-materials/internal/processor"
	"github.com/phrazzld/scry-materials/internal/retry"
	"github.com/phrazzld/scry-materials/internal/store"
	"github.com/phrazzld/scry-materials/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	videoStore     store.VideoStore
	materialsStore store.MaterialsStore
	leaser         store.Leaser

	generator generation.Generator
	embedder  generation.Embedder
	processor *processor.Processor

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
	coordinator  *retry.Coordinator
}

// providers are the external clients the pipeline depends on. newApplication
// builds the real ones; tests pass fakes.
type providers struct {
	generator generation.Generator
	embedder  generation.Embedder
	leaser    store.Leaser
}

// newApplication connects to the configured providers and wires the
// pipeline on top of db.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	var p providers
	var redisClient *redis.Client

	counter, err := generation.NewTiktokenCounter(generation.DefaultEncoding)
	if err != nil {
		// The approximate counter keeps the pre-flight guard working offline.
		logger.Warn("tiktoken unavailable, using approximate token counts", "error", err)
	}
	var tokenCounter generation.TokenCounter = generation.ApproxCounter{}
	if counter != nil {
		tokenCounter = counter
	}

	p.generator, err = gemini.NewGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM, tokenCounter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)

	if cfg.Embedding.OpenAIAPIKey != "" {
		embedder, err := openai.NewEmbedder(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		p.embedder = embedder
		logger.Info("embedding backfill enabled",
			"model", embedder.ModelName(),
			"dimensions", embedder.Dimension())
	} else {
		logger.Info("embedding backfill disabled, no OpenAI API key configured")
	}

	if cfg.Redis.URL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		p.leaser = redis.NewLeaser(redisClient)
		logger.Info("per-video leases enabled")
	}

	app, err := assemble(cfg, logger,
		postgres.NewPostgresVideoStore(db, logger),
		postgres.NewPostgresMaterialsStore(db, logger),
		p)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	app.db = db
	app.redis = redisClient
	return app, nil
}

// assemble wires the pipeline from stores and providers. It connects to
// nothing itself.
func assemble(
	cfg *config.Config,
	logger *slog.Logger,
	videos store.VideoStore,
	materialsStore store.MaterialsStore,
	p providers,
) (*application, error) {
	app := &application{
		config:         cfg,
		logger:         logger,
		videoStore:     videos,
		materialsStore: materialsStore,
		leaser:         p.leaser,
		generator:      p.generator,
		embedder:       p.embedder,
	}

	writer, err := materials.NewWriter(videos, materialsStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize materials writer: %w", err)
	}

	app.processor, err = processor.NewProcessor(
		videos,
		p.generator,
		writer,
		p.embedder,
		processor.Config{ChunkConcurrency: cfg.Retry.ChunkConcurrency},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processor: %w", err)
	}

	app.coordinator, err = retry.NewCoordinator(
		videos,
		app.processor,
		p.leaser,
		retry.Config{
			WorkerCount: cfg.Retry.WorkerCount,
			JobTimeout:  cfg.Retry.JobTimeout,
			ScanLimit:   cfg.Retry.ScanLimit,
			LeaseTTL:    cfg.Retry.LeaseTTL,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retry coordinator: %w", err)
	}

	factory := task.NewMaterialsGenerationTaskFactory(videos, app.processor, logger)
	app.taskRunner = task.NewTaskRunner(
		task.NewVideoTaskStore(videos, factory, logger),
		taskRunnerConfig(cfg.Task),
		logger,
	)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, app.taskRunner, logger))

	return app, nil
}

func taskRunnerConfig(cfg config.TaskConfig) task.TaskRunnerConfig {
	rc := task.DefaultTaskRunnerConfig()
	if cfg.WorkerCount > 0 {
		rc.WorkerCount = cfg.WorkerCount
	}
	if cfg.QueueSize > 0 {
		rc.QueueSize = cfg.QueueSize
	}
	if cfg.StuckTaskAgeMinutes > 0 {
		rc.StuckTaskAge = time.Duration(cfg.StuckTaskAgeMinutes) * time.Minute
	}
	if cfg.StuckCheckIntervalMS > 0 {
		rc.StuckTaskCheckInterval = time.Duration(cfg.StuckCheckIntervalMS) * time.Millisecond
	}
	return rc
}

// cleanup releases the connections opened by newApplication.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
