package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="https://example.com/go">The Go Programming Language</a>
  <div class="result__snippet">Go is an open source programming language.</div>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/gopher">Gophers</a>
  <div class="result__snippet">All about gophers.</div>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/extra">Extra</a>
  <div class="result__snippet">Should be cut by the limit.</div>
</div>
</body></html>`

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	searcher := NewDuckDuckGoSearcher(WithEndpoint(server.URL))
	results, err := searcher.Search(context.Background(), "golang", 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "The Go Programming Language", results[0].Title)
	assert.Equal(t, "https://example.com/go", results[0].URL)
	assert.Equal(t, "Go is an open source programming language.", results[0].Snippet)
}

func TestSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	searcher := NewDuckDuckGoSearcher(WithEndpoint(server.URL))
	_, err := searcher.Search(context.Background(), "golang", 2)
	require.Error(t, err)
}

func TestSearchEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	searcher := NewDuckDuckGoSearcher(WithEndpoint(server.URL))
	results, err := searcher.Search(context.Background(), "golang", 2)

	require.NoError(t, err)
	assert.Empty(t, results)
}
