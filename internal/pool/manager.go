// Package pool owns the rolling multi-day window of eligible items: it
// assembles the pool, runs the ranking engine over it, persists the
// resulting candidate set, and manages candidate lifecycle transitions.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ContentCurator/internal/domain"
	"ContentCurator/internal/ports"
	"ContentCurator/internal/ranker"
)

const (
	defaultWindowDays = 5
	runDateLayout     = "2006-01-02"
)

// Manager drives a ranking run and the candidate lifecycle. The persisted
// store is the single source of truth; nothing is cached across calls.
type Manager struct {
	store      ports.CurationStore
	ranker     *ranker.Ranker
	windowDays int
	logger     *slog.Logger
	now        func() time.Time
}

// NewManager wires the store and ranking engine. windowDays <= 0 falls
// back to the 5-day default.
func NewManager(store ports.CurationStore, r *ranker.Ranker, windowDays int, logger *slog.Logger) *Manager {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return &Manager{
		store:      store,
		ranker:     r,
		windowDays: windowDays,
		logger:     logger,
		now:        time.Now,
	}
}

// RefreshCandidates executes one ranking run: assemble the eligible pool,
// deduplicate and score it, and atomically replace the previous run's
// candidate set and rejected snapshot. Items age out of the pool
// naturally; no cleanup pass exists.
func (m *Manager) RefreshCandidates(ctx context.Context) (ranker.Result, error) {
	now := m.now().UTC()
	since := now.AddDate(0, 0, -m.windowDays)

	pool, err := m.store.EligiblePool(ctx, since)
	if err != nil {
		return ranker.Result{}, fmt.Errorf("assemble pool: %w", err)
	}

	result := m.ranker.Rank(pool)

	runDate := now.Format(runDateLayout)
	candidates := make([]domain.RankedCandidate, 0, len(result.Selected))
	for _, s := range result.Selected {
		candidates = append(candidates, domain.RankedCandidate{
			RunDate:    runDate,
			ContentID:  s.ID,
			Title:      s.Title,
			URL:        s.URL,
			SourceName: s.SourceName,
			Category:   s.Category,
			TotalScore: s.Total,
			Breakdown:  s.Breakdown,
			Status:     domain.StatusCandidate,
		})
	}

	rejected := make([]domain.RejectedArticle, 0, len(result.Rejected))
	for _, r := range result.Rejected {
		rejected = append(rejected, domain.RejectedArticle{
			RunDate:    runDate,
			ContentID:  r.ID,
			Title:      r.Title,
			URL:        r.URL,
			SourceName: r.SourceName,
			TotalScore: r.Total,
			Breakdown:  r.Breakdown,
			Reason:     r.Reason,
		})
	}

	if err := m.store.ReplaceRun(ctx, runDate, candidates, rejected); err != nil {
		return ranker.Result{}, fmt.Errorf("persist run %s: %w", runDate, err)
	}

	m.logger.Info("candidate set replaced",
		"run_date", runDate,
		"pool", len(pool),
		"candidates", len(candidates),
		"rejected", len(rejected))

	return result, nil
}

// Candidates returns the current candidate set. The read path repairs any
// row left in generating by an interrupted generation attempt.
func (m *Manager) Candidates(ctx context.Context) ([]domain.RankedCandidate, error) {
	return m.store.RankedCandidates(ctx)
}

// Reject permanently denylists the candidate's content and marks the
// candidate row rejected. Re-rejecting already-denylisted content is a
// no-op at the store layer.
func (m *Manager) Reject(ctx context.Context, candidateID int64) error {
	candidate, err := m.store.Candidate(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("load candidate %d: %w", candidateID, err)
	}

	if err := m.store.InsertCandidateRejection(ctx, candidate.ContentID); err != nil {
		return fmt.Errorf("denylist content %d: %w", candidate.ContentID, err)
	}
	if err := m.store.MarkCandidateRejected(ctx, candidateID); err != nil {
		return fmt.Errorf("mark candidate %d rejected: %w", candidateID, err)
	}

	m.logger.Info("candidate permanently rejected",
		"candidate_id", candidateID, "content_id", candidate.ContentID)
	return nil
}

// BeginGeneration transitions a candidate to generating and returns the
// detail the generation step needs. A candidate that already carries a
// generated post is a conflict; error status is a permitted retry.
func (m *Manager) BeginGeneration(ctx context.Context, candidateID int64) (domain.CandidateDetail, error) {
	candidate, err := m.store.Candidate(ctx, candidateID)
	if err != nil {
		return domain.CandidateDetail{}, fmt.Errorf("load candidate %d: %w", candidateID, err)
	}

	if candidate.Status == domain.StatusGenerated {
		return domain.CandidateDetail{}, fmt.Errorf("candidate %d: %w", candidateID, domain.ErrAlreadyGenerated)
	}

	if err := m.store.MarkGenerating(ctx, candidateID); err != nil {
		return domain.CandidateDetail{}, fmt.Errorf("mark candidate %d generating: %w", candidateID, err)
	}

	return candidate, nil
}

// CompleteGeneration records a successful generation outcome.
func (m *Manager) CompleteGeneration(ctx context.Context, candidateID, postID int64) error {
	if err := m.store.MarkGenerated(ctx, candidateID, postID); err != nil {
		return fmt.Errorf("mark candidate %d generated: %w", candidateID, err)
	}
	return nil
}

// FailGeneration records a failed generation outcome; the candidate can
// be retried later.
func (m *Manager) FailGeneration(ctx context.Context, candidateID int64, message string) error {
	if err := m.store.MarkGenerationFailed(ctx, candidateID, message); err != nil {
		return fmt.Errorf("mark candidate %d errored: %w", candidateID, err)
	}
	return nil
}
