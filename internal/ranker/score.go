package ranker

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"ContentCurator/internal/domain"
)

const (
	maxAgeDays    = 180
	decayRate     = 0.02
	maxRecency    = 30.0
	maxSubstance  = 25.0
	maxAuthority  = 20.0
	maxEngagement = 25.0
)

var (
	numberPattern = regexp.MustCompile(`\$[\d,.]+[BMK]?|\d+%|\d{4,}`)
	quotePattern  = regexp.MustCompile(`["“”][^"“”]+["“”]`)
	linkPattern   = regexp.MustCompile(`https?://`)
)

// highSignalKeywords mark newsworthy events; each match is worth 3 points
// up to 10.
var highSignalKeywords = []string{
	"breaking", "exclusive", "announced", "launched", "partnership",
	"acquisition", "regulation", "billion", "million", "approval",
	"ban", "investigation", "patent", "settlement",
}

// topicKeywords boost domain relevance; each match is worth 2 points up
// to 10.
var topicKeywords = []string{
	"stablecoin", "cbdc", "tokenization", "embedded finance",
	"banking as a service", "baas", "real-time payments",
	"cross-border", "defi", "regtech", "open banking",
	"generative ai", "llm", "artificial intelligence",
}

// Score computes the four-factor breakdown for one item. It is a pure
// function of the item's content, title, published date and source
// priority; malformed input lowers the score instead of failing.
func Score(item domain.PoolItem, now time.Time) domain.ScoreBreakdown {
	return domain.ScoreBreakdown{
		Recency:    recencyScore(item.PublishedAt, now),
		Substance:  substanceScore(item.Content, item.Title),
		Authority:  authorityScore(item.Priority),
		Engagement: engagementScore(item.Content, item.Title),
	}
}

// recencyScore decays exponentially with age: full points at 0 days, ~20
// at one week, ~10 at one month, ~2 near the 180-day cutoff. Missing or
// unparsable dates score 0; the item is not usable without one.
func recencyScore(publishedAt string, now time.Time) float64 {
	if publishedAt == "" {
		return 0
	}

	published, err := dateparse.ParseAny(publishedAt)
	if err != nil {
		return 0
	}

	// Compare wall-clock instants; publisher zone offsets are dropped the
	// same way for every item.
	published = time.Date(
		published.Year(), published.Month(), published.Day(),
		published.Hour(), published.Minute(), published.Second(),
		published.Nanosecond(), time.UTC,
	)

	ageDays := now.UTC().Sub(published).Seconds() / 86400
	if ageDays > maxAgeDays {
		return 0
	}

	return maxRecency * math.Exp(-decayRate*math.Max(ageDays, 0))
}

// substanceScore rewards length, concrete figures, and quoted speech.
func substanceScore(content, title string) float64 {
	score := 0.0
	text := title + " " + content

	wordCount := len(strings.Fields(text))
	if wordCount > 50 {
		score += 5
	}
	if wordCount > 150 {
		score += 5
	}
	if wordCount > 300 {
		score += 5
	}

	if numbers := numberPattern.FindAllString(text, -1); len(numbers) > 0 {
		score += math.Min(float64(len(numbers))*2, 5)
	}

	if quotePattern.MatchString(text) {
		score += 5
	}

	return math.Min(score, maxSubstance)
}

// authorityScore maps the 1-10 source priority onto 0-20.
func authorityScore(priority int) float64 {
	return math.Min(float64(priority)*2, maxAuthority)
}

// engagementScore counts keyword presence, not occurrences: a keyword
// appearing five times still contributes once.
func engagementScore(content, title string) float64 {
	score := 0.0
	text := strings.ToLower(title + " " + content)

	matches := 0
	for _, kw := range highSignalKeywords {
		if strings.Contains(text, kw) {
			matches++
		}
	}
	score += math.Min(float64(matches)*3, 10)

	topicMatches := 0
	for _, kw := range topicKeywords {
		if strings.Contains(text, kw) {
			topicMatches++
		}
	}
	score += math.Min(float64(topicMatches)*2, 10)

	if linkPattern.MatchString(content) {
		score += 5
	}

	return math.Min(score, maxEngagement)
}
