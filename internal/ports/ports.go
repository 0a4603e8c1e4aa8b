package ports

import (
	"context"
	"time"

	"ContentCurator/internal/domain"
)

// SourceStore manages the configured source list.
type SourceStore interface {
	UpsertSource(ctx context.Context, src domain.Source) error
	ActiveSources(ctx context.Context, sourceType string) ([]domain.Source, error)
	MarkSourceScanned(ctx context.Context, sourceID int64, at time.Time) error
}

// ContentStore persists scanned items.
type ContentStore interface {
	// InsertContent stores an item and returns its id, or 0 when the URL
	// already exists.
	InsertContent(ctx context.Context, item domain.ScannedItem) (int64, error)
}

// CurationStore covers the candidate pool manager's persistence needs.
type CurationStore interface {
	// EligiblePool returns items scanned at or after since that have no
	// generated post and no permanent rejection.
	EligiblePool(ctx context.Context, since time.Time) ([]domain.PoolItem, error)

	// ReplaceRun atomically swaps the whole candidate table for the new set
	// and replaces the rejected snapshot for runDate.
	ReplaceRun(ctx context.Context, runDate string, candidates []domain.RankedCandidate, rejected []domain.RejectedArticle) error

	// RankedCandidates lists the current candidate set, resetting any row
	// stuck in generating back to candidate first.
	RankedCandidates(ctx context.Context) ([]domain.RankedCandidate, error)

	Candidate(ctx context.Context, id int64) (domain.CandidateDetail, error)

	MarkGenerating(ctx context.Context, id int64) error
	MarkGenerated(ctx context.Context, id int64, postID int64) error
	MarkGenerationFailed(ctx context.Context, id int64, message string) error
	MarkCandidateRejected(ctx context.Context, id int64) error

	// InsertCandidateRejection adds a permanent denylist row; inserting an
	// existing content id is a no-op.
	InsertCandidateRejection(ctx context.Context, contentID int64) error
}

// FailureStore records scan-attempt failures.
type FailureStore interface {
	InsertFailure(ctx context.Context, failure domain.SourceFailure) error
	// LastZeroResultCount returns the consecutive count from the most
	// recent zero_results row for the source, or 0 when there is none.
	LastZeroResultCount(ctx context.Context, sourceID int64) (int, error)
}

// PostStore persists generation artifacts.
type PostStore interface {
	InsertPost(ctx context.Context, post domain.GeneratedPost) (int64, error)
	PostsByStatus(ctx context.Context, status domain.PostStatus, limit int) ([]domain.GeneratedPost, error)
	// UpdatePostStatus moves a post through the review workflow, stamping
	// approved_at or posted_at when the status warrants it.
	UpdatePostStatus(ctx context.Context, id int64, status domain.PostStatus) error
}

// HistoryStore serves the read side of the presentation boundary.
type HistoryStore interface {
	RejectedArticles(ctx context.Context, limit int) ([]domain.RejectedArticle, error)
	RejectedCandidates(ctx context.Context, limit int) ([]domain.RankedCandidate, error)
	RecentFailures(ctx context.Context, limit int) ([]domain.SourceFailure, error)
}

// Generator turns a candidate's content into a post draft.
type Generator interface {
	Generate(ctx context.Context, candidate domain.CandidateDetail) (domain.Draft, error)
}

// Scheduler controls when the curation pipeline executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
