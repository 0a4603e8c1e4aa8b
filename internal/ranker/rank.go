// Package ranker implements the scoring, deduplication, and ranking engine
// for the rolling candidate pool.
package ranker

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"ContentCurator/internal/domain"
)

const (
	defaultTopN        = 20
	defaultRejectedCap = 20
)

// Options tune a ranking run.
type Options struct {
	// TopN is the number of candidates to select (default 20).
	TopN int
	// RejectedCap bounds the rejected snapshot (default 20).
	RejectedCap int
	// PerSourceLimit caps selected candidates per source when > 0;
	// 0 keeps the flat top-N-by-score policy.
	PerSourceLimit int
}

// Scored pairs a pool item with its breakdown; Reason is set on rejected
// entries only.
type Scored struct {
	domain.PoolItem
	Breakdown domain.ScoreBreakdown
	Total     float64
	Reason    string
}

// Result carries both partitions of a ranking run. Returning the rejected
// partition alongside the selection keeps the two consistent without any
// shared state between calls.
type Result struct {
	Selected []Scored
	Rejected []Scored
}

// Ranker scores, deduplicates, and partitions pool batches.
type Ranker struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Ranker; zero option fields take their defaults.
func New(opts Options, logger *slog.Logger) *Ranker {
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.RejectedCap <= 0 {
		opts.RejectedCap = defaultRejectedCap
	}
	return &Ranker{opts: opts, logger: logger, now: time.Now}
}

// Rank deduplicates the batch, scores each survivor, drops zero-score
// items, and partitions the rest into the top-N selection and a capped
// rejected snapshot. Ordering is deterministic: descending by total score
// with ties kept in original order.
func (r *Ranker) Rank(items []domain.PoolItem) Result {
	items = r.Deduplicate(items)

	now := r.now()
	scored := make([]Scored, 0, len(items))
	for _, item := range items {
		breakdown := Score(item, now)
		total := breakdown.Total()
		if total <= 0 {
			continue
		}
		scored = append(scored, Scored{PoolItem: item, Breakdown: breakdown, Total: total})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Total > scored[j].Total
	})

	result := r.partition(scored)

	if r.logger != nil {
		r.logger.Info("ranked batch",
			"scored", len(scored),
			"selected", len(result.Selected),
			"rejected", len(result.Rejected))
	}

	return result
}

func (r *Ranker) partition(scored []Scored) Result {
	outsideReason := fmt.Sprintf("Outside top %d", r.opts.TopN)
	sourceReason := "Source limit reached"

	var result Result
	perSource := make(map[string]int)

	for _, s := range scored {
		if len(result.Selected) < r.opts.TopN {
			if r.opts.PerSourceLimit > 0 && perSource[s.SourceName] >= r.opts.PerSourceLimit {
				s.Reason = sourceReason
				result.Rejected = append(result.Rejected, s)
				continue
			}
			perSource[s.SourceName]++
			result.Selected = append(result.Selected, s)
			continue
		}
		s.Reason = outsideReason
		result.Rejected = append(result.Rejected, s)
	}

	if len(result.Rejected) > r.opts.RejectedCap {
		result.Rejected = result.Rejected[:r.opts.RejectedCap]
	}

	return result
}
