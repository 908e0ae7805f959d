package interfaces

import "context"

// SearchResult represents a single web search hit
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher represents an external search capability used for grounding
// generated responses against published evidence.
type Searcher interface {
	// Search returns up to limit results for the query
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
