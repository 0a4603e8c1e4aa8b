package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ContentCurator/internal/domain"
	"ContentCurator/internal/ports"
)

const maxErrorMessageLen = 500

// CandidatePool is the slice of the pool manager the interactive service
// needs.
type CandidatePool interface {
	Candidates(ctx context.Context) ([]domain.RankedCandidate, error)
	Reject(ctx context.Context, candidateID int64) error
	BeginGeneration(ctx context.Context, candidateID int64) (domain.CandidateDetail, error)
	CompleteGeneration(ctx context.Context, candidateID, postID int64) error
	FailGeneration(ctx context.Context, candidateID int64, message string) error
}

// CurationDeps wires the interactive curation service.
type CurationDeps struct {
	Pool      CandidatePool
	Generator ports.Generator
	Posts     ports.PostStore
	History   ports.HistoryStore
	Logger    *slog.Logger
}

// Curation serves the human-facing operations: browsing candidates,
// generating drafts for them and rejecting them permanently.
type Curation struct {
	pool      CandidatePool
	generator ports.Generator
	posts     ports.PostStore
	history   ports.HistoryStore
	logger    *slog.Logger
}

// NewCuration constructs the service. Generator may be nil when no API key
// is configured; generation requests then fail cleanly.
func NewCuration(deps CurationDeps) *Curation {
	return &Curation{
		pool:      deps.Pool,
		generator: deps.Generator,
		posts:     deps.Posts,
		history:   deps.History,
		logger:    deps.Logger,
	}
}

// Candidates lists the current candidate set, highest score first.
func (c *Curation) Candidates(ctx context.Context) ([]domain.RankedCandidate, error) {
	return c.pool.Candidates(ctx)
}

// Generate produces and stores a post draft for the candidate. A candidate
// that already generated reports domain.ErrAlreadyGenerated; generation
// errors are recorded on the candidate and returned.
func (c *Curation) Generate(ctx context.Context, candidateID int64) (domain.GeneratedPost, error) {
	detail, err := c.pool.BeginGeneration(ctx, candidateID)
	if err != nil {
		return domain.GeneratedPost{}, err
	}

	if c.generator == nil {
		if failErr := c.pool.FailGeneration(ctx, candidateID, "no generator configured"); failErr != nil {
			c.logger.Error("record generation failure", "candidate_id", candidateID, "error", failErr)
		}
		return domain.GeneratedPost{}, domain.ErrNoGenerator
	}

	c.logger.Info("generating post", "candidate_id", candidateID, "title", detail.Title)

	draft, err := c.generator.Generate(ctx, detail)
	if err != nil {
		if failErr := c.pool.FailGeneration(ctx, candidateID, truncateMessage(err.Error())); failErr != nil {
			c.logger.Error("record generation failure", "candidate_id", candidateID, "error", failErr)
		}
		return domain.GeneratedPost{}, fmt.Errorf("generate post for candidate %d: %w", candidateID, err)
	}

	post := domain.GeneratedPost{
		ContentID:     detail.ContentID,
		SourceSummary: draft.SourceSummary,
		Commentary:    draft.Commentary,
		FullPost:      draft.FullPost,
		Status:        domain.PostDraft,
	}
	postID, err := c.posts.InsertPost(ctx, post)
	if err != nil {
		if failErr := c.pool.FailGeneration(ctx, candidateID, truncateMessage(err.Error())); failErr != nil {
			c.logger.Error("record generation failure", "candidate_id", candidateID, "error", failErr)
		}
		return domain.GeneratedPost{}, fmt.Errorf("store post for candidate %d: %w", candidateID, err)
	}
	post.ID = postID

	if err := c.pool.CompleteGeneration(ctx, candidateID, postID); err != nil {
		return domain.GeneratedPost{}, fmt.Errorf("complete generation for candidate %d: %w", candidateID, err)
	}

	c.logger.Info("post generated", "candidate_id", candidateID, "post_id", postID)
	return post, nil
}

// Reject permanently excludes the candidate's content from future pools.
func (c *Curation) Reject(ctx context.Context, candidateID int64) error {
	return c.pool.Reject(ctx, candidateID)
}

// Posts lists generated posts in a lifecycle state.
func (c *Curation) Posts(ctx context.Context, status domain.PostStatus, limit int) ([]domain.GeneratedPost, error) {
	return c.posts.PostsByStatus(ctx, status, limit)
}

// UpdatePostStatus moves a post through the review workflow. Only the
// known lifecycle states are accepted.
func (c *Curation) UpdatePostStatus(ctx context.Context, postID int64, status domain.PostStatus) error {
	switch status {
	case domain.PostDraft, domain.PostApproved, domain.PostPosted, domain.PostRejected:
	default:
		return fmt.Errorf("post status %q: %w", status, domain.ErrInvalidStatus)
	}
	if err := c.posts.UpdatePostStatus(ctx, postID, status); err != nil {
		return err
	}
	c.logger.Info("post status updated", "post_id", postID, "status", string(status))
	return nil
}

// RejectedArticles returns the latest run's not-promoted snapshot.
func (c *Curation) RejectedArticles(ctx context.Context, limit int) ([]domain.RejectedArticle, error) {
	return c.history.RejectedArticles(ctx, limit)
}

// RejectedCandidates returns candidates a human explicitly rejected.
func (c *Curation) RejectedCandidates(ctx context.Context, limit int) ([]domain.RankedCandidate, error) {
	return c.history.RejectedCandidates(ctx, limit)
}

// SourceFailures returns the newest scan failures for the health view.
func (c *Curation) SourceFailures(ctx context.Context, limit int) ([]domain.SourceFailure, error) {
	return c.history.RecentFailures(ctx, limit)
}

func truncateMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= maxErrorMessageLen {
		return msg
	}
	return string(runes[:maxErrorMessageLen])
}
