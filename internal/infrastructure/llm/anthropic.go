// Package llm generates post drafts through the Anthropic messages API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ContentCurator/internal/config"
	"ContentCurator/internal/domain"
	"ContentCurator/internal/ports"
)

const (
	apiVersion       = "2023-06-01"
	maxPromptContent = 2000
	defaultMaxTokens = 1024
)

const defaultSystemPrompt = `You are a fintech professional writing LinkedIn posts that demonstrate genuine expertise, not content marketing.

Your voice is:
- Specific over vague (cite numbers, companies, timeframes)
- Skeptical over breathless (acknowledge limitations, question hype)
- Experienced over aspirational (write like you've shipped product, not read about it)
- Conversational but substantive (no fluff, but not academic either)

STRUCTURE:
- First line: specific claim or surprising fact (not setup/context)
- 2-4 short paragraphs (2-3 sentences each) with blank lines between
- Source attribution at end, natural not forced
- Hashtags only if genuinely relevant (max 3)`

const userPromptTemplate = `Source article:
Author: %s
Publication: %s
Title: %s
URL: %s

Key content:
%s

Generate a LinkedIn post (150-200 words) that:

1. Opens with the most surprising/specific fact from the source (NOT setup/context)
2. Explains why it matters using concrete examples or second-order implications
3. Acknowledges what's uncertain or overhyped if applicable
4. Ends with a non-obvious question, a dated prediction, or a clear audience

Mention the author/source naturally in the flow and put the link at the very end.
Return ONLY the post text.`

// AnthropicClient implements ports.Generator backed by the Anthropic
// messages endpoint.
type AnthropicClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	maxTokens    int
	httpClient   *http.Client
}

var _ ports.Generator = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration.
func NewAnthropicClient(cfg config.AnthropicConfig) *AnthropicClient {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    maxTokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate asks the model for a post draft about the candidate.
func (c *AnthropicClient) Generate(ctx context.Context, candidate domain.CandidateDetail) (domain.Draft, error) {
	if c == nil {
		return domain.Draft{}, fmt.Errorf("anthropic client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Draft{}, fmt.Errorf("anthropic client misconfigured")
	}

	author := candidate.Author
	if author == "" {
		author = candidate.SourceName
	}
	prompt := fmt.Sprintf(userPromptTemplate,
		author,
		candidate.SourceName,
		candidate.Title,
		candidate.URL,
		truncate(candidate.Content, maxPromptContent),
	)

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    safePrompt(c.systemPrompt),
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("marshal anthropic payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Draft{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("generate post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Draft{}, fmt.Errorf("anthropic error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Draft{}, fmt.Errorf("decode anthropic response: %w", err)
	}

	var fullPost string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			fullPost = strings.TrimSpace(block.Text)
			break
		}
	}
	if fullPost == "" {
		return domain.Draft{}, fmt.Errorf("anthropic response carried no text content")
	}

	return domain.Draft{
		SourceSummary: sourceSummary(author, candidate.Title, candidate.URL),
		Commentary:    fullPost,
		FullPost:      fullPost,
	}, nil
}

func sourceSummary(author, title, url string) string {
	summary := fmt.Sprintf("Source: %s — %s", author, title)
	if url != "" {
		summary += "\nLink: " + url
	}
	return summary
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
