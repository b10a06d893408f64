package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elibrary/elibrary-server/internal/domain"
)

func setupTestIndex(t *testing.T) *BookIndex {
	t.Helper()

	index, err := NewBookIndex(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func testBooks() []*domain.Book {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []*domain.Book{
		{ID: "book-hobbit", Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "9780547928227", CreatedAt: base},
		{ID: "book-dune", Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", CreatedAt: base.Add(time.Hour)},
		{ID: "book-miserables", Title: "Les Misérables", Author: "Victor Hugo", CreatedAt: base.Add(2 * time.Hour)},
	}
}

func TestBookIndex_IndexAndCount(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexBooks(testBooks()))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, index.DeleteBook("book-dune"))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestBookIndex_Search(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBooks(testBooks()))
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"title", "hobbit", "book-hobbit"},
		{"author", "herbert", "book-dune"},
		{"folded diacritics", "miserables", "book-miserables"},
		{"typo", "hobit", "book-hobbit"},
		{"isbn with hyphens", "978-0-441-17271-9", "book-dune"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(ctx, SearchParams{Query: tt.query})
			require.NoError(t, err)
			require.NotEmpty(t, res.Hits)
			assert.Equal(t, tt.want, res.Hits[0].ID)
		})
	}
}

func TestBookIndex_EmptyQueryNewestFirst(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBooks(testBooks()))

	res, err := index.Search(context.Background(), SearchParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
	assert.Equal(t, []string{"book-miserables", "book-dune"}, res.IDs())
}

func TestBookIndex_Reindex(t *testing.T) {
	index := setupTestIndex(t)
	books := testBooks()
	require.NoError(t, index.IndexBooks(books))

	books[1].Title = "Children of Dune"
	require.NoError(t, index.IndexBook(books[1]))

	res, err := index.Search(context.Background(), SearchParams{Query: "children"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "book-dune", res.Hits[0].ID)

	require.NoError(t, index.Rebuild(books[:1]))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestBookIndex_Persistence(t *testing.T) {
	dir := t.TempDir()

	index, err := NewBookIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexBooks(testBooks()))
	require.NoError(t, index.Close())

	reopened, err := NewBookIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestNewBookDocument(t *testing.T) {
	doc := NewBookDocument(&domain.Book{ID: "book-1", Title: "Les Misérables", Author: "Victor HUGO"})
	assert.Equal(t, "les miserables", doc.Title)
	assert.Equal(t, "victor hugo", doc.Author)

	m := doc.ToMap()
	assert.NotContains(t, m, "isbn")
	assert.Equal(t, "book-1", m["id"])
}
