// Package websearch retrieves evidence snippets from the public web for
// grounding verification.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/logging"
)

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearcher implements interfaces.Searcher against the DuckDuckGo
// HTML endpoint, which needs no API key
type DuckDuckGoSearcher struct {
	httpClient *http.Client
	endpoint   string
	logger     logging.Logger
}

// SearcherOption represents an option for configuring the searcher
type SearcherOption func(*DuckDuckGoSearcher)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client *http.Client) SearcherOption {
	return func(s *DuckDuckGoSearcher) {
		s.httpClient = client
	}
}

// WithEndpoint overrides the search endpoint
func WithEndpoint(endpoint string) SearcherOption {
	return func(s *DuckDuckGoSearcher) {
		s.endpoint = endpoint
	}
}

// WithSearchLogger sets the logger for the searcher
func WithSearchLogger(logger logging.Logger) SearcherOption {
	return func(s *DuckDuckGoSearcher) {
		s.logger = logger
	}
}

// NewDuckDuckGoSearcher creates a new searcher
func NewDuckDuckGoSearcher(options ...SearcherOption) *DuckDuckGoSearcher {
	searcher := &DuckDuckGoSearcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   defaultEndpoint,
		logger:     logging.New(),
	}

	for _, option := range options {
		option(searcher)
	}

	return searcher
}

// Search runs the query and returns up to limit results
func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string, limit int) ([]interfaces.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	reqURL := fmt.Sprintf("%s?q=%s", s.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; mediator/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := make([]interfaces.SearchResult, 0, limit)
	doc.Find(".result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find(".result__a").Text())
		href, _ := sel.Find(".result__a").Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").Text())

		if title == "" && snippet == "" {
			return true
		}

		results = append(results, interfaces.SearchResult{
			Title:   title,
			URL:     href,
			Snippet: snippet,
		})
		return len(results) < limit
	})

	s.logger.Debug(ctx, "Search completed", map[string]interface{}{
		"query":   query,
		"results": len(results),
	})

	return results, nil
}
