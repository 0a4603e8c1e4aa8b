// Package web scrapes article text from pages that expose no feed.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"ContentCurator/internal/domain"
)

const (
	defaultMaxContentChars = 5000
	userAgent              = "Mozilla/5.0 (compatible; ContentCurator/1.0; +research)"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Scraper extracts the main article text from a source page. Fetch and
// extraction failures degrade to an empty result so the health tracker
// counts them as unproductive scans rather than outages.
type Scraper struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxContent int
	logger     *slog.Logger
}

// Options tune the scraper; zero values take defaults.
type Options struct {
	MaxContentChars int
	RateLimit       time.Duration
	Timeout         time.Duration
}

func NewScraper(client *http.Client, opts Options, logger *slog.Logger) *Scraper {
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = defaultMaxContentChars
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 3 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Scraper{
		client:     client,
		limiter:    rate.NewLimiter(rate.Every(opts.RateLimit), 1),
		maxContent: opts.MaxContentChars,
		logger:     logger,
	}
}

// Type identifies the strategy inside the registry.
func (s *Scraper) Type() string {
	return "web"
}

// Scan fetches the page and returns at most one item holding its main text.
func (s *Scraper) Scan(ctx context.Context, src domain.Source) ([]domain.ScannedItem, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	html, err := s.fetch(ctx, src.URL)
	if err != nil {
		s.logger.Warn("page fetch failed", "source", src.Name, "url", src.URL, "error", err)
		return nil, nil
	}

	content, title := s.extract(html, src.URL)
	if content == "" {
		s.logger.Warn("no content extracted", "source", src.Name, "url", src.URL)
		return nil, nil
	}
	if title == "" {
		title = src.Name
	}

	return []domain.ScannedItem{{
		SourceID: src.ID,
		URL:      src.URL,
		Title:    title,
		Content:  truncate(content, s.maxContent),
		Author:   src.Name,
	}}, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// extract runs readability first and falls back to a structural selector
// sweep when it yields nothing.
func (s *Scraper) extract(html, pageURL string) (content, title string) {
	parsedURL, err := url.Parse(pageURL)
	if err == nil {
		article, rerr := readability.FromReader(strings.NewReader(html), parsedURL)
		if rerr == nil {
			content = strings.TrimSpace(article.TextContent)
			title = strings.TrimSpace(article.Title)
		}
	}
	if content != "" {
		return collapseWhitespace(content), title
	}
	return extractStructural(html)
}

// extractStructural strips chrome elements and reads the first article
// container, falling back to main and then body.
func extractStructural(html string) (content, title string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, header, footer, aside").Remove()

	for _, selector := range []string{"article", "main", "body"} {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if text := collapseWhitespace(node.Text()); text != "" {
			return text, title
		}
	}
	return "", title
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
