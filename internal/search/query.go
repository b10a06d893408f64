package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/elibrary/elibrary-server/internal/normalize"
)

// SearchParams configures a catalog search.
type SearchParams struct {
	Query  string
	Limit  int
	Offset int
}

// SearchResult lists matching book IDs in relevance order.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is one matching book.
type SearchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// IDs returns the hit IDs in order.
func (r *SearchResult) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

// Search runs a full-text query. An empty query matches everything, newest first.
func (s *BookIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params.Query), params.Limit, params.Offset, false)
	if strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"-created_at", "_id"})
	} else {
		req.SortBy([]string{"-_score", "-created_at"})
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		result.Hits = append(result.Hits, SearchHit{ID: hit.ID, Score: hit.Score})
	}
	return result, nil
}

// buildSearchQuery matches title (boosted) and author, with fuzzy and prefix
// variants on the title for typos and autocomplete. A query that looks like an
// ISBN also matches the isbn field exactly.
func buildSearchQuery(raw string) query.Query {
	q := normalize.Fold(raw)
	if q == "" {
		return bleve.NewMatchAllQuery()
	}

	titleMatch := bleve.NewMatchQuery(q)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)

	authorMatch := bleve.NewMatchQuery(q)
	authorMatch.SetField("author")
	authorMatch.SetBoost(2.0)

	descMatch := bleve.NewMatchQuery(q)
	descMatch.SetField("description")
	descMatch.SetBoost(0.5)

	fuzzy := bleve.NewFuzzyQuery(q)
	fuzzy.SetFuzziness(1)
	fuzzy.SetField("title")
	fuzzy.SetBoost(0.8)

	queries := []query.Query{titleMatch, authorMatch, descMatch, fuzzy}

	if len(q) >= 2 {
		prefix := bleve.NewPrefixQuery(q)
		prefix.SetField("title")
		prefix.SetBoost(0.5)
		queries = append(queries, prefix)
	}

	if isbn := normalize.ISBN(raw); normalize.ValidISBN(isbn) {
		term := bleve.NewTermQuery(isbn)
		term.SetField("isbn")
		term.SetBoost(5.0)
		queries = append(queries, term)
	}

	return bleve.NewDisjunctionQuery(queries...)
}
