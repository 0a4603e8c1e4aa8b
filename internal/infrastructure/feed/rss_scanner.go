// Package feed scans RSS and Atom sources (newsletters, blogs, news sites).
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"ContentCurator/internal/domain"
)

const (
	defaultMaxAgeDays      = 180
	defaultMaxContentChars = 5000
	publishedLayout        = "2006-01-02T15:04:05"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Scanner pulls recent entries from a feed URL.
type Scanner struct {
	parser     *gofeed.Parser
	limiter    *rate.Limiter
	maxAgeDays int
	maxContent int
	logger     *slog.Logger
	now        func() time.Time
}

// Options tune the feed scanner; zero values take defaults.
type Options struct {
	MaxAgeDays      int
	MaxContentChars int
	RateLimit       time.Duration
	Timeout         time.Duration
}

// NewScanner builds a feed scanner; a nil client uses a default with the
// configured timeout.
func NewScanner(client *http.Client, opts Options, logger *slog.Logger) *Scanner {
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = defaultMaxAgeDays
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = defaultMaxContentChars
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "ContentCurator/1.0"

	return &Scanner{
		parser:     parser,
		limiter:    rate.NewLimiter(rate.Every(opts.RateLimit), 1),
		maxAgeDays: opts.MaxAgeDays,
		maxContent: opts.MaxContentChars,
		logger:     logger,
		now:        time.Now,
	}
}

// Type identifies the strategy inside the registry.
func (s *Scanner) Type() string {
	return "rss"
}

// Scan fetches the feed and returns entries within the recency window.
func (s *Scanner) Scan(ctx context.Context, src domain.Source) ([]domain.ScannedItem, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	feed, err := s.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	items := make([]domain.ScannedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		publishedAt := entryDate(entry)
		if !isRecent(publishedAt, s.maxAgeDays, s.now()) {
			continue
		}

		if entry.Link == "" {
			continue
		}

		title := strings.TrimSpace(entry.Title)
		content := extractContent(entry)
		if title == "" && content == "" {
			continue
		}

		items = append(items, domain.ScannedItem{
			SourceID:    src.ID,
			URL:         entry.Link,
			Title:       title,
			Content:     truncate(content, s.maxContent),
			Author:      entryAuthor(entry),
			PublishedAt: publishedAt,
		})
	}

	s.logger.Debug("feed scan complete", "source", src.Name, "entries", len(feed.Items), "recent", len(items))
	return items, nil
}

// entryDate prefers parsed timestamps, falling back to the raw strings the
// feed carried.
func entryDate(entry *gofeed.Item) string {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.Format(publishedLayout)
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.Format(publishedLayout)
	}
	if entry.Published != "" {
		return entry.Published
	}
	return entry.Updated
}

func entryAuthor(entry *gofeed.Item) string {
	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		return entry.Authors[0].Name
	}
	if entry.Author != nil {
		return entry.Author.Name
	}
	return ""
}

// extractContent prefers the richer content field over the summary.
func extractContent(entry *gofeed.Item) string {
	if entry.Content != "" {
		return stripHTML(entry.Content)
	}
	if entry.Description != "" {
		return stripHTML(entry.Description)
	}
	return ""
}

// isRecent reports whether a publication date parses and falls within the
// recency window. Undated entries are skipped; they cannot score anyway.
func isRecent(publishedAt string, maxAgeDays int, now time.Time) bool {
	if publishedAt == "" {
		return false
	}
	published, err := dateparse.ParseAny(publishedAt)
	if err != nil {
		return false
	}
	published = time.Date(
		published.Year(), published.Month(), published.Day(),
		published.Hour(), published.Minute(), published.Second(),
		published.Nanosecond(), time.UTC,
	)
	ageDays := now.UTC().Sub(published).Seconds() / 86400
	return ageDays <= float64(maxAgeDays)
}

func stripHTML(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
