package domain

import "time"

// ScannedItem is a single piece of content discovered by a scanner.
// Identity key is URL; items are immutable once stored except for the
// legacy Selected flag used by the old single-shot generation mode.
type ScannedItem struct {
	ID          int64
	SourceID    int64
	URL         string
	Title       string
	Content     string
	Author      string
	PublishedAt string // raw publisher timestamp, parsed leniently at scoring time
	ScannedAt   time.Time
	Selected    bool
}

// Source describes a configured content provider.
type Source struct {
	ID            int64
	Name          string
	URL           string
	Type          string // "rss", "web", "twitter"
	Category      string
	Priority      int // 1-10, drives the authority score
	Active        bool
	LastScannedAt *time.Time
}

// PoolItem is a scanned item joined with its source attributes, the unit
// the ranking engine operates on.
type PoolItem struct {
	ScannedItem
	SourceName string
	SourceType string
	Category   string
	Priority   int
}

// ScoreBreakdown is the four-factor decomposition of an item's score.
// Ephemeral: recomputed on every ranking run, never stored on its own.
type ScoreBreakdown struct {
	Recency    float64
	Substance  float64
	Authority  float64
	Engagement float64
}

// Total sums the four factors.
func (b ScoreBreakdown) Total() float64 {
	return b.Recency + b.Substance + b.Authority + b.Engagement
}

// CandidateStatus enumerates the lifecycle of a ranked candidate.
type CandidateStatus string

const (
	StatusCandidate  CandidateStatus = "candidate"
	StatusGenerating CandidateStatus = "generating"
	StatusGenerated  CandidateStatus = "generated"
	StatusRejected   CandidateStatus = "rejected"
	StatusError      CandidateStatus = "error"
)

// RankedCandidate is one row of the latest run's candidate set. The table
// holds only the most recent run; every run replaces it wholesale.
type RankedCandidate struct {
	ID              int64
	RunDate         string
	ContentID       int64
	Title           string
	URL             string
	SourceName      string
	Category        string
	TotalScore      float64
	Breakdown       ScoreBreakdown
	Status          CandidateStatus
	GeneratedPostID *int64
	ErrorMessage    string
}

// CandidateDetail is a candidate joined with the underlying scanned
// content, everything the generation step needs.
type CandidateDetail struct {
	RankedCandidate
	Content    string
	Author     string
	SourceType string
}

// RejectedArticle is a snapshot of an item scored but not promoted in the
// most recent run. Rows for a run date are replaced on rerun.
type RejectedArticle struct {
	RunDate    string
	ContentID  int64
	Title      string
	URL        string
	SourceName string
	TotalScore float64
	Breakdown  ScoreBreakdown
	Reason     string
}

// CandidateRejection is a permanent denylist entry created only by explicit
// human action. There is no removal path.
type CandidateRejection struct {
	ContentID  int64
	RejectedAt time.Time
}

// FailureType classifies a failed scan attempt.
type FailureType string

const (
	FailureHardError   FailureType = "hard_error"
	FailureZeroResults FailureType = "zero_results"
)

// SourceFailure is one row of the append-only scan-failure log.
// ConsecutiveZero carries forward from the prior zero_results row for the
// same source; a successful scan resets it implicitly by writing nothing.
type SourceFailure struct {
	ID              int64
	SourceID        int64
	SourceName      string
	Type            FailureType
	ErrorMessage    string
	ConsecutiveZero int
	RecordedAt      time.Time
}

// PostStatus enumerates the editorial lifecycle of a generated post.
type PostStatus string

const (
	PostDraft    PostStatus = "draft"
	PostApproved PostStatus = "approved"
	PostPosted   PostStatus = "posted"
	PostRejected PostStatus = "rejected"
)

// GeneratedPost is the artifact produced by the generation step. Its
// existence for a content id excludes that item from future pools.
type GeneratedPost struct {
	ID            int64
	ContentID     int64
	SourceSummary string
	Commentary    string
	FullPost      string
	Status        PostStatus
	GeneratedAt   time.Time
	ApprovedAt    *time.Time
	PostedAt      *time.Time
}

// Draft is the generation interface's output; the engine records it
// without inspecting the text.
type Draft struct {
	SourceSummary string
	Commentary    string
	FullPost      string
}
