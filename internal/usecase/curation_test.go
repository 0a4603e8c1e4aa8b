package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"ContentCurator/internal/domain"
)

type fakePool struct {
	detail      domain.CandidateDetail
	beginErr    error
	rejected    []int64
	completed   [][2]int64
	failures    map[int64]string
	candidates  []domain.RankedCandidate
	rejectCalls int
}

func (f *fakePool) Candidates(_ context.Context) ([]domain.RankedCandidate, error) {
	return f.candidates, nil
}

func (f *fakePool) Reject(_ context.Context, candidateID int64) error {
	f.rejectCalls++
	f.rejected = append(f.rejected, candidateID)
	return nil
}

func (f *fakePool) BeginGeneration(_ context.Context, candidateID int64) (domain.CandidateDetail, error) {
	if f.beginErr != nil {
		return domain.CandidateDetail{}, f.beginErr
	}
	detail := f.detail
	detail.ID = candidateID
	return detail, nil
}

func (f *fakePool) CompleteGeneration(_ context.Context, candidateID, postID int64) error {
	f.completed = append(f.completed, [2]int64{candidateID, postID})
	return nil
}

func (f *fakePool) FailGeneration(_ context.Context, candidateID int64, message string) error {
	if f.failures == nil {
		f.failures = map[int64]string{}
	}
	f.failures[candidateID] = message
	return nil
}

type fakeGenerator struct {
	draft domain.Draft
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, _ domain.CandidateDetail) (domain.Draft, error) {
	return f.draft, f.err
}

type fakePostStore struct {
	posts         []domain.GeneratedPost
	nextID        int64
	err           error
	statusUpdates map[int64]domain.PostStatus
}

func (f *fakePostStore) InsertPost(_ context.Context, post domain.GeneratedPost) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	post.ID = f.nextID
	f.posts = append(f.posts, post)
	return f.nextID, nil
}

func (f *fakePostStore) PostsByStatus(_ context.Context, status domain.PostStatus, _ int) ([]domain.GeneratedPost, error) {
	var out []domain.GeneratedPost
	for _, p := range f.posts {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostStore) UpdatePostStatus(_ context.Context, id int64, status domain.PostStatus) error {
	if f.err != nil {
		return f.err
	}
	if f.statusUpdates == nil {
		f.statusUpdates = make(map[int64]domain.PostStatus)
	}
	f.statusUpdates[id] = status
	return nil
}

func newTestCuration(pool *fakePool, gen *fakeGenerator, posts *fakePostStore) *Curation {
	deps := CurationDeps{
		Pool:   pool,
		Posts:  posts,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if gen != nil {
		deps.Generator = gen
	}
	return NewCuration(deps)
}

func TestGenerateStoresDraftAndCompletes(t *testing.T) {
	pool := &fakePool{detail: domain.CandidateDetail{
		RankedCandidate: domain.RankedCandidate{ContentID: 11, Title: "T"},
		Content:         "body",
	}}
	posts := &fakePostStore{}
	gen := &fakeGenerator{draft: domain.Draft{
		SourceSummary: "Source: Jane",
		Commentary:    "post text",
		FullPost:      "post text",
	}}

	c := newTestCuration(pool, gen, posts)
	post, err := c.Generate(context.Background(), 4)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if post.ID != 1 || post.ContentID != 11 {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.Status != domain.PostDraft {
		t.Fatalf("new posts start as drafts, got %s", post.Status)
	}
	if len(pool.completed) != 1 || pool.completed[0] != [2]int64{4, 1} {
		t.Fatalf("completion not recorded: %v", pool.completed)
	}
	if len(pool.failures) != 0 {
		t.Fatalf("no failure should be recorded: %v", pool.failures)
	}
}

func TestGenerateWithoutGenerator(t *testing.T) {
	pool := &fakePool{}
	c := newTestCuration(pool, nil, &fakePostStore{})

	_, err := c.Generate(context.Background(), 4)
	if !errors.Is(err, domain.ErrNoGenerator) {
		t.Fatalf("expected ErrNoGenerator, got %v", err)
	}
	if pool.failures[4] != "no generator configured" {
		t.Fatalf("failure should be recorded on the candidate: %v", pool.failures)
	}
}

func TestGenerateRecordsGeneratorError(t *testing.T) {
	pool := &fakePool{}
	gen := &fakeGenerator{err: errors.New("api timeout")}

	c := newTestCuration(pool, gen, &fakePostStore{})
	_, err := c.Generate(context.Background(), 4)
	if err == nil {
		t.Fatal("expected the generator error to propagate")
	}
	if !strings.Contains(pool.failures[4], "api timeout") {
		t.Fatalf("candidate should carry the error message: %v", pool.failures)
	}
	if len(pool.completed) != 0 {
		t.Fatal("a failed generation must not complete")
	}
}

func TestGenerateTruncatesLongErrors(t *testing.T) {
	pool := &fakePool{}
	gen := &fakeGenerator{err: errors.New(strings.Repeat("x", 900))}

	c := newTestCuration(pool, gen, &fakePostStore{})
	_, _ = c.Generate(context.Background(), 4)

	if got := len([]rune(pool.failures[4])); got > maxErrorMessageLen {
		t.Fatalf("error message not truncated: %d chars", got)
	}
}

func TestGenerateConflictPropagates(t *testing.T) {
	pool := &fakePool{beginErr: domain.ErrAlreadyGenerated}
	c := newTestCuration(pool, &fakeGenerator{}, &fakePostStore{})

	_, err := c.Generate(context.Background(), 4)
	if !errors.Is(err, domain.ErrAlreadyGenerated) {
		t.Fatalf("expected ErrAlreadyGenerated, got %v", err)
	}
}

func TestGenerateStoreFailureRecordsError(t *testing.T) {
	pool := &fakePool{}
	posts := &fakePostStore{err: errors.New("disk full")}
	gen := &fakeGenerator{draft: domain.Draft{FullPost: "text"}}

	c := newTestCuration(pool, gen, posts)
	_, err := c.Generate(context.Background(), 4)
	if err == nil {
		t.Fatal("expected the store error to propagate")
	}
	if !strings.Contains(pool.failures[4], "disk full") {
		t.Fatalf("candidate should carry the store error: %v", pool.failures)
	}
}

func TestRejectDelegatesToPool(t *testing.T) {
	pool := &fakePool{}
	c := newTestCuration(pool, nil, &fakePostStore{})

	if err := c.Reject(context.Background(), 9); err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if pool.rejectCalls != 1 || pool.rejected[0] != 9 {
		t.Fatalf("reject not delegated: %v", pool.rejected)
	}
}

func TestPostsFiltersByStatus(t *testing.T) {
	posts := &fakePostStore{posts: []domain.GeneratedPost{
		{ID: 1, Status: domain.PostDraft},
		{ID: 2, Status: domain.PostApproved},
	}}
	c := newTestCuration(&fakePool{}, nil, posts)

	drafts, err := c.Posts(context.Background(), domain.PostDraft, 10)
	if err != nil {
		t.Fatalf("Posts error: %v", err)
	}
	if len(drafts) != 1 || drafts[0].ID != 1 {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}

func TestUpdatePostStatusDelegates(t *testing.T) {
	posts := &fakePostStore{}
	c := newTestCuration(&fakePool{}, nil, posts)

	if err := c.UpdatePostStatus(context.Background(), 3, domain.PostApproved); err != nil {
		t.Fatalf("UpdatePostStatus error: %v", err)
	}
	if posts.statusUpdates[3] != domain.PostApproved {
		t.Fatalf("status not applied: %v", posts.statusUpdates)
	}
}

func TestUpdatePostStatusRejectsUnknownStatus(t *testing.T) {
	posts := &fakePostStore{}
	c := newTestCuration(&fakePool{}, nil, posts)

	err := c.UpdatePostStatus(context.Background(), 3, domain.PostStatus("published"))
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if len(posts.statusUpdates) != 0 {
		t.Fatalf("invalid status must not reach the store: %v", posts.statusUpdates)
	}
}
