// Package app wires configuration into the running application.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"ContentCurator/internal/config"
	"ContentCurator/internal/health"
	"ContentCurator/internal/infrastructure/feed"
	"ContentCurator/internal/infrastructure/llm"
	"ContentCurator/internal/infrastructure/scheduler"
	"ContentCurator/internal/infrastructure/storage"
	"ContentCurator/internal/infrastructure/web"
	"ContentCurator/internal/logging"
	"ContentCurator/internal/pool"
	"ContentCurator/internal/ports"
	"ContentCurator/internal/ranker"
	"ContentCurator/internal/scanner"
	"ContentCurator/internal/usecase"
)

// Application owns the wired components and their lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	tracker  *health.Tracker
	pipeline *usecase.Pipeline
	curation *usecase.Curation
	sched    ports.Scheduler
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare schema: %w", err)
	}

	repo := storage.NewPostgresRepository(db)

	tracker, err := health.NewTracker(repo, baseLogger.With("component", "health"), cfg.Health.FailureLogPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init health tracker: %w", err)
	}

	timeout := secondsToDuration(cfg.Scan.RequestTimeoutSecs)
	registry := scanner.NewRegistry()
	registry.Register(feed.NewScanner(nil, feed.Options{
		MaxAgeDays:      cfg.Scan.MaxAgeDays,
		MaxContentChars: cfg.Scan.MaxContentChars,
		RateLimit:       secondsToDuration(cfg.Scan.FeedRateLimitSecs),
		Timeout:         timeout,
	}, baseLogger.With("component", "scanner.rss")))
	registry.Register(web.NewScraper(nil, web.Options{
		MaxContentChars: cfg.Scan.MaxContentChars,
		RateLimit:       secondsToDuration(cfg.Scan.WebRateLimitSecs),
		Timeout:         timeout,
	}, baseLogger.With("component", "scanner.web")))

	rk := ranker.New(ranker.Options{
		TopN:           cfg.Ranking.TopN,
		RejectedCap:    cfg.Ranking.RejectedCap,
		PerSourceLimit: cfg.Ranking.PerSourceLimit,
	}, baseLogger.With("component", "ranker"))

	poolManager := pool.NewManager(repo, rk, cfg.Ranking.WindowDays, baseLogger.With("component", "pool"))

	var generator ports.Generator
	if cfg.Anthropic.APIKey != "" {
		generator = llm.NewAnthropicClient(cfg.Anthropic)
	} else {
		baseLogger.Warn("no api key configured, post generation disabled")
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:  repo,
		Content:  repo,
		Scanners: registry,
		Health:   tracker,
		Pool:     poolManager,
		Seeds:    cfg.Sources,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	curation := usecase.NewCuration(usecase.CurationDeps{
		Pool:      poolManager,
		Generator: generator,
		Posts:     repo,
		History:   repo,
		Logger:    baseLogger.With("component", "curation"),
	})

	var sched ports.Scheduler
	if cfg.Scheduler.CronExpression != "" {
		sched = scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		tracker:  tracker,
		pipeline: pipeline,
		curation: curation,
		sched:    sched,
	}, nil
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

// Curation exposes the interactive service for presentation layers.
func (a *Application) Curation() *usecase.Curation {
	return a.curation
}

// Run executes the pipeline once, or on the configured schedule until ctx
// is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.sched == nil {
		return a.pipeline.Run(ctx)
	}

	if err := a.sched.Start(ctx, func(t time.Time) {
		a.logger.Info("scheduled run triggered", "at", t)
		if err := a.pipeline.Run(ctx); err != nil {
			a.logger.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Timezone)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.sched.Stop(stopCtx)
}

// Close releases the database and log file handles.
func (a *Application) Close() error {
	var firstErr error
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
