package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ContentCurator/internal/config"
	"ContentCurator/internal/domain"
	"ContentCurator/internal/ranker"
	"ContentCurator/internal/scanner"
)

type fakeSourceStore struct {
	upserted []domain.Source
	active   []domain.Source
	scanned  []int64
}

func (f *fakeSourceStore) UpsertSource(_ context.Context, src domain.Source) error {
	f.upserted = append(f.upserted, src)
	return nil
}

func (f *fakeSourceStore) ActiveSources(_ context.Context, sourceType string) ([]domain.Source, error) {
	if sourceType != "" {
		var filtered []domain.Source
		for _, src := range f.active {
			if src.Type == sourceType {
				filtered = append(filtered, src)
			}
		}
		return filtered, nil
	}
	return f.active, nil
}

func (f *fakeSourceStore) MarkSourceScanned(_ context.Context, sourceID int64, _ time.Time) error {
	f.scanned = append(f.scanned, sourceID)
	return nil
}

type fakeContentStore struct {
	seen     map[string]bool
	inserted []domain.ScannedItem
	nextID   int64
}

func (f *fakeContentStore) InsertContent(_ context.Context, item domain.ScannedItem) (int64, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[item.URL] {
		return 0, nil
	}
	f.seen[item.URL] = true
	f.inserted = append(f.inserted, item)
	f.nextID++
	return f.nextID, nil
}

type outcome struct {
	sourceID  int64
	itemCount int
	scanErr   error
}

type fakeRecorder struct {
	outcomes []outcome
}

func (f *fakeRecorder) RecordScanOutcome(_ context.Context, src domain.Source, itemCount int, scanErr error) error {
	f.outcomes = append(f.outcomes, outcome{sourceID: src.ID, itemCount: itemCount, scanErr: scanErr})
	return nil
}

type fakeRefresher struct {
	calls  int
	result ranker.Result
	err    error
}

func (f *fakeRefresher) RefreshCandidates(_ context.Context) (ranker.Result, error) {
	f.calls++
	return f.result, f.err
}

type stubScanner struct {
	sourceType string
	items      map[int64][]domain.ScannedItem
	errs       map[int64]error
}

func (s *stubScanner) Type() string { return s.sourceType }

func (s *stubScanner) Scan(_ context.Context, src domain.Source) ([]domain.ScannedItem, error) {
	if err := s.errs[src.ID]; err != nil {
		return nil, err
	}
	return s.items[src.ID], nil
}

func item(sourceID int64, url string) domain.ScannedItem {
	return domain.ScannedItem{SourceID: sourceID, URL: url, Title: "t", Content: "c"}
}

func newTestPipeline(sources *fakeSourceStore, content *fakeContentStore, recorder *fakeRecorder, refresher *fakeRefresher, scanners *scanner.Registry, seeds []config.SourceConfig) *Pipeline {
	return NewPipeline(PipelineDeps{
		Sources:  sources,
		Content:  content,
		Scanners: scanners,
		Health:   recorder,
		Pool:     refresher,
		Seeds:    seeds,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRunScansAndRefreshes(t *testing.T) {
	sources := &fakeSourceStore{active: []domain.Source{
		{ID: 1, Name: "A", Type: "rss"},
		{ID: 2, Name: "B", Type: "rss"},
	}}
	content := &fakeContentStore{}
	recorder := &fakeRecorder{}
	refresher := &fakeRefresher{}

	registry := scanner.NewRegistry()
	registry.Register(&stubScanner{sourceType: "rss", items: map[int64][]domain.ScannedItem{
		1: {item(1, "https://a/1"), item(1, "https://a/2")},
		2: {item(2, "https://b/1")},
	}})

	p := newTestPipeline(sources, content, recorder, refresher, registry,
		[]config.SourceConfig{{Name: "A", URL: "https://a", Type: "rss", Priority: 8}})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(sources.upserted) != 1 || sources.upserted[0].Priority != 8 {
		t.Fatalf("unexpected seed sync: %+v", sources.upserted)
	}
	if len(content.inserted) != 3 {
		t.Fatalf("expected 3 stored items, got %d", len(content.inserted))
	}
	if len(sources.scanned) != 2 {
		t.Fatalf("expected both sources marked scanned, got %v", sources.scanned)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one pool refresh, got %d", refresher.calls)
	}
	if len(recorder.outcomes) != 2 {
		t.Fatalf("expected an outcome per source, got %d", len(recorder.outcomes))
	}
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	sources := &fakeSourceStore{active: []domain.Source{
		{ID: 1, Name: "broken", Type: "rss"},
		{ID: 2, Name: "healthy", Type: "rss"},
	}}
	content := &fakeContentStore{}
	recorder := &fakeRecorder{}
	refresher := &fakeRefresher{}

	registry := scanner.NewRegistry()
	registry.Register(&stubScanner{
		sourceType: "rss",
		items:      map[int64][]domain.ScannedItem{2: {item(2, "https://b/1")}},
		errs:       map[int64]error{1: errors.New("dns failure")},
	})

	p := newTestPipeline(sources, content, recorder, refresher, registry, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("one broken source must not fail the run: %v", err)
	}

	if len(content.inserted) != 1 {
		t.Fatalf("healthy source should still store, got %d items", len(content.inserted))
	}
	if len(recorder.outcomes) != 2 {
		t.Fatalf("expected outcomes for both sources, got %d", len(recorder.outcomes))
	}
	if recorder.outcomes[0].scanErr == nil {
		t.Fatal("broken source outcome should carry the error")
	}
	if recorder.outcomes[1].scanErr != nil {
		t.Fatalf("healthy source outcome should be clean: %v", recorder.outcomes[1].scanErr)
	}
	// A failed scan never stamps last_scanned.
	if len(sources.scanned) != 1 || sources.scanned[0] != 2 {
		t.Fatalf("only the healthy source should be marked scanned, got %v", sources.scanned)
	}
}

func TestRunSkipsUnknownSourceTypes(t *testing.T) {
	sources := &fakeSourceStore{active: []domain.Source{
		{ID: 1, Name: "twitter feed", Type: "twitter"},
	}}
	content := &fakeContentStore{}
	recorder := &fakeRecorder{}
	refresher := &fakeRefresher{}

	p := newTestPipeline(sources, content, recorder, refresher, scanner.NewRegistry(), nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(recorder.outcomes) != 0 {
		t.Fatalf("unsupported types are skipped, not failed: %+v", recorder.outcomes)
	}
	if refresher.calls != 1 {
		t.Fatal("pool refresh should still run")
	}
}

func TestRunCountsOnlyNewItems(t *testing.T) {
	sources := &fakeSourceStore{active: []domain.Source{{ID: 1, Name: "A", Type: "rss"}}}
	content := &fakeContentStore{seen: map[string]bool{"https://a/1": true}}
	recorder := &fakeRecorder{}
	refresher := &fakeRefresher{}

	registry := scanner.NewRegistry()
	registry.Register(&stubScanner{sourceType: "rss", items: map[int64][]domain.ScannedItem{
		1: {item(1, "https://a/1"), item(1, "https://a/2")},
	}})

	p := newTestPipeline(sources, content, recorder, refresher, registry, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(content.inserted) != 1 {
		t.Fatalf("duplicate URL should be skipped, got %d inserts", len(content.inserted))
	}
	// The outcome still reports what the scanner returned, not what was new.
	if recorder.outcomes[0].itemCount != 2 {
		t.Fatalf("outcome should carry the scanned count, got %d", recorder.outcomes[0].itemCount)
	}
}

func TestRunDefaultsSeedPriority(t *testing.T) {
	sources := &fakeSourceStore{}
	p := newTestPipeline(sources, &fakeContentStore{}, &fakeRecorder{}, &fakeRefresher{}, scanner.NewRegistry(),
		[]config.SourceConfig{{Name: "A", URL: "https://a", Type: "rss"}})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(sources.upserted) != 1 || sources.upserted[0].Priority != 5 {
		t.Fatalf("unset priority should default to 5: %+v", sources.upserted)
	}
}

func TestRunStopsWhenRefreshFails(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("database gone")}
	p := newTestPipeline(&fakeSourceStore{}, &fakeContentStore{}, &fakeRecorder{}, refresher, scanner.NewRegistry(), nil)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("refresh failure should fail the run")
	}
}
