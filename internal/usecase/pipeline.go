// Package usecase orchestrates scanning, ranking and generation on top of
// the store ports.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ContentCurator/internal/config"
	"ContentCurator/internal/domain"
	"ContentCurator/internal/ports"
	"ContentCurator/internal/ranker"
	"ContentCurator/internal/scanner"
)

// OutcomeRecorder receives the result of every scan attempt.
type OutcomeRecorder interface {
	RecordScanOutcome(ctx context.Context, src domain.Source, itemCount int, scanErr error) error
}

// CandidateRefresher rebuilds the candidate set from the eligible pool.
type CandidateRefresher interface {
	RefreshCandidates(ctx context.Context) (ranker.Result, error)
}

// PipelineDeps wires the driven adapters into the scan workflow.
type PipelineDeps struct {
	Sources  ports.SourceStore
	Content  ports.ContentStore
	Scanners *scanner.Registry
	Health   OutcomeRecorder
	Pool     CandidateRefresher
	Seeds    []config.SourceConfig
	Logger   *slog.Logger
}

// Pipeline implements the periodic scan-and-rank workflow. One source
// failing never stops the others; failures go to the health tracker and
// the run continues.
type Pipeline struct {
	sources  ports.SourceStore
	content  ports.ContentStore
	scanners *scanner.Registry
	health   OutcomeRecorder
	pool     CandidateRefresher
	seeds    []config.SourceConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		sources:  deps.Sources,
		content:  deps.Content,
		scanners: deps.Scanners,
		health:   deps.Health,
		pool:     deps.Pool,
		seeds:    deps.Seeds,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Run executes one full cycle: sync configured sources, scan them all,
// then rebuild the candidate set.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	logger.Info("curation run started")

	if err := p.syncSources(ctx); err != nil {
		return fmt.Errorf("sync sources: %w", err)
	}

	newItems, err := p.scanAllSources(ctx, logger)
	if err != nil {
		return fmt.Errorf("scan sources: %w", err)
	}

	result, err := p.pool.RefreshCandidates(ctx)
	if err != nil {
		return fmt.Errorf("refresh candidates: %w", err)
	}

	logger.Info("curation run complete",
		"new_items", newItems,
		"candidates", len(result.Selected),
		"rejected", len(result.Rejected))
	return nil
}

// syncSources upserts the configured source list so edits to the config
// land in the database on the next run.
func (p *Pipeline) syncSources(ctx context.Context) error {
	for _, seed := range p.seeds {
		src := domain.Source{
			Name:     seed.Name,
			URL:      seed.URL,
			Type:     seed.Type,
			Category: seed.Category,
			Priority: seed.Priority,
		}
		if src.Priority == 0 {
			src.Priority = 5
		}
		if err := p.sources.UpsertSource(ctx, src); err != nil {
			return fmt.Errorf("upsert source %s: %w", seed.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) scanAllSources(ctx context.Context, logger *slog.Logger) (int, error) {
	sources, err := p.sources.ActiveSources(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("load active sources: %w", err)
	}
	logger.Info("scanning sources", "count", len(sources))

	newItems := 0
	for _, src := range sources {
		if ctx.Err() != nil {
			return newItems, ctx.Err()
		}

		sc, err := p.scanners.Resolve(src.Type)
		if err != nil {
			logger.Warn("no scanner for source", "source", src.Name, "type", src.Type)
			continue
		}

		items, scanErr := sc.Scan(ctx, src)
		if recordErr := p.health.RecordScanOutcome(ctx, src, len(items), scanErr); recordErr != nil {
			logger.Error("record scan outcome", "source", src.Name, "error", recordErr)
		}
		if scanErr != nil {
			continue
		}

		stored := 0
		for _, item := range items {
			id, insErr := p.content.InsertContent(ctx, item)
			if insErr != nil {
				logger.Error("store item", "source", src.Name, "url", item.URL, "error", insErr)
				continue
			}
			if id != 0 {
				stored++
			}
		}
		newItems += stored

		if err := p.sources.MarkSourceScanned(ctx, src.ID, p.now().UTC()); err != nil {
			logger.Error("mark source scanned", "source", src.Name, "error", err)
		}

		logger.Debug("source scanned", "source", src.Name, "items", len(items), "new", stored)
	}

	logger.Info("scanning complete", "new_items", newItems)
	return newItems, nil
}
