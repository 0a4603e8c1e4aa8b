package ranker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentCurator/internal/domain"
)

func rankerAt(opts Options, now time.Time) *Ranker {
	r := New(opts, nil)
	r.now = func() time.Time { return now }
	return r
}

// scoredItem builds an item whose total score is driven by priority, with
// a fresh date so recency is constant across the batch. Content is left
// empty so the similarity pass never collapses the synthetic batch.
func scoredItem(i int, priority int, source string) domain.PoolItem {
	return domain.PoolItem{
		ScannedItem: domain.ScannedItem{
			ID:          int64(i),
			URL:         fmt.Sprintf("https://example.com/item-%d", i),
			Title:       fmt.Sprintf("Item %d", i),
			PublishedAt: scoreNow.Format(time.RFC3339),
		},
		SourceName: source,
		Priority:   priority,
	}
}

func TestRankPartitionsTopNAndRejected(t *testing.T) {
	t.Parallel()

	r := rankerAt(Options{TopN: 20}, scoreNow)

	items := make([]domain.PoolItem, 0, 25)
	for i := 0; i < 25; i++ {
		// Distinct priorities produce a strict score ordering.
		items = append(items, scoredItem(i, 10-i/3, fmt.Sprintf("source-%d", i)))
	}

	result := r.Rank(items)
	require.Len(t, result.Selected, 20)
	require.Len(t, result.Rejected, 5)

	for _, rej := range result.Rejected {
		assert.Equal(t, "Outside top 20", rej.Reason)
	}
	for _, sel := range result.Selected {
		assert.Empty(t, sel.Reason)
	}
}

func TestRankRejectedSnapshotIsCapped(t *testing.T) {
	t.Parallel()

	r := rankerAt(Options{TopN: 5, RejectedCap: 20}, scoreNow)

	items := make([]domain.PoolItem, 0, 40)
	for i := 0; i < 40; i++ {
		items = append(items, scoredItem(i, 5, fmt.Sprintf("source-%d", i)))
	}

	result := r.Rank(items)
	assert.Len(t, result.Selected, 5)
	assert.Len(t, result.Rejected, 20)
}

func TestRankDropsZeroScoreItems(t *testing.T) {
	t.Parallel()

	r := rankerAt(Options{TopN: 20}, scoreNow)

	stale := scoredItem(1, 0, "s")
	stale.PublishedAt = scoreNow.AddDate(-1, 0, 0).Format(time.RFC3339)
	stale.Priority = 0
	stale.Title = "old"

	fresh := scoredItem(2, 5, "s2")

	result := r.Rank([]domain.PoolItem{stale, fresh})
	require.Len(t, result.Selected, 1)
	assert.Equal(t, int64(2), result.Selected[0].ID)
	assert.Empty(t, result.Rejected)
}

func TestRankOrderingIsDeterministicWithStableTies(t *testing.T) {
	t.Parallel()

	r := rankerAt(Options{TopN: 2}, scoreNow)

	// Same priority and date: identical totals, original order must hold.
	a := scoredItem(1, 5, "s")
	b := scoredItem(2, 5, "s")
	c := scoredItem(3, 5, "s")

	first := r.Rank([]domain.PoolItem{a, b, c})
	second := r.Rank([]domain.PoolItem{a, b, c})

	require.Len(t, first.Selected, 2)
	assert.Equal(t, int64(1), first.Selected[0].ID)
	assert.Equal(t, int64(2), first.Selected[1].ID)
	assert.Equal(t, int64(3), first.Rejected[0].ID)

	assert.Equal(t, first, second)
}

func TestRankSortsDescendingByTotal(t *testing.T) {
	t.Parallel()

	r := rankerAt(Options{TopN: 10}, scoreNow)

	low := scoredItem(1, 2, "s")
	high := scoredItem(2, 9, "s")
	mid := scoredItem(3, 5, "s")

	result := r.Rank([]domain.PoolItem{low, high, mid})
	require.Len(t, result.Selected, 3)
	assert.Equal(t, int64(2), result.Selected[0].ID)
	assert.Equal(t, int64(3), result.Selected[1].ID)
	assert.Equal(t, int64(1), result.Selected[2].ID)

	for i := 1; i < len(result.Selected); i++ {
		assert.GreaterOrEqual(t, result.Selected[i-1].Total, result.Selected[i].Total)
	}
}

func TestRankPerSourceLimit(t *testing.T) {
	t.Parallel()

	r := rankerAt(Options{TopN: 3, PerSourceLimit: 1}, scoreNow)

	items := []domain.PoolItem{
		scoredItem(1, 9, "same"),
		scoredItem(2, 8, "same"),
		scoredItem(3, 4, "other"),
		scoredItem(4, 3, "third"),
	}

	result := r.Rank(items)
	require.Len(t, result.Selected, 3)
	assert.Equal(t, int64(1), result.Selected[0].ID)
	assert.Equal(t, int64(3), result.Selected[1].ID)
	assert.Equal(t, int64(4), result.Selected[2].ID)

	require.Len(t, result.Rejected, 1)
	assert.Equal(t, int64(2), result.Rejected[0].ID)
	assert.Equal(t, "Source limit reached", result.Rejected[0].Reason)
}

func TestRankBreakdownTotalsMatch(t *testing.T) {
	t.Parallel()

	r := rankerAt(Options{}, scoreNow)

	result := r.Rank([]domain.PoolItem{scoredItem(1, 7, "s")})
	require.Len(t, result.Selected, 1)

	sel := result.Selected[0]
	assert.InDelta(t, sel.Breakdown.Total(), sel.Total, 1e-9)
	assert.GreaterOrEqual(t, sel.Total, 0.0)
}
