// Package ingest builds draft FAQ entries from external web pages so
// admins can seed the knowledge base from existing university pages
// instead of retyping them.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/google/uuid"

	"github.com/unibot-io/unibot/internal/knowledge"
	"github.com/unibot-io/unibot/pkg/protocol"
)

const (
	maxAnswerSize = 20 * 1024 // readable text kept per page
	fetchTimeout  = 30 * time.Second

	// stopword-ish tokens that make useless keywords
	minKeywordLen = 3
	maxKeywords   = 8
)

// Importer fetches a page, extracts its readable content and shapes it
// into an FAQ draft. The draft is returned, not persisted; the caller
// decides whether to save it.
type Importer struct {
	Client *http.Client
	Logger *slog.Logger
}

func NewImporter(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		Client: &http.Client{Timeout: fetchTimeout},
		Logger: logger,
	}
}

// FromURL fetches rawURL and returns a draft entry with the page title
// as the question, the readable body as the answer, and keywords
// derived from the title. Category is taken as-is from the caller.
func (im *Importer) FromURL(ctx context.Context, rawURL, category string) (*protocol.FAQEntry, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ingest: invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("ingest: unsupported scheme %q", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	req.Header.Set("User-Agent", "unibot/1.0")

	resp, err := im.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingest: HTTP %d for %s", resp.StatusCode, rawURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("ingest: unsupported content type %q", contentType)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, 2*1024*1024), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("ingest: parse: %w", err)
	}

	var textBuf bytes.Buffer
	if err := article.RenderText(&textBuf); err != nil {
		return nil, fmt.Errorf("ingest: render: %w", err)
	}

	title := strings.TrimSpace(article.Title())
	if title == "" {
		title = rawURL
	}
	answer := strings.TrimSpace(textBuf.String())
	if answer == "" {
		return nil, fmt.Errorf("ingest: no readable content at %s", rawURL)
	}
	if len(answer) > maxAnswerSize {
		answer = answer[:maxAnswerSize] + "\n... [truncated]"
	}

	entry := &protocol.FAQEntry{
		ID:       "faq-" + uuid.NewString(),
		Question: title,
		Answer:   answer,
		Category: category,
		Keywords: keywordsFor(title),
	}

	im.Logger.Info("imported page",
		"url", rawURL,
		"title", title,
		"keywords", len(entry.Keywords),
		"chars", len(answer))
	return entry, nil
}

// keywordsFor derives match keywords from a page title. Tokens shorter
// than minKeywordLen are dropped and duplicates collapse, keeping the
// first maxKeywords.
func keywordsFor(title string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range knowledge.Tokenize(title) {
		tok = strings.Trim(tok, ".,:;!?()\"'")
		if len(tok) < minKeywordLen || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
