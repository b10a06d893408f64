package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
var bookColumns = []any{
	"id", "title", "author", "description", "cover_url", "isbn",
	"quantity", "available", "created_at", "updated_at",
}

type bookRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Author      string `db:"author"`
	Description string `db:"description"`
	CoverURL    string `db:"cover_url"`
	ISBN        string `db:"isbn"`
	Quantity    int    `db:"quantity"`
	Available   int    `db:"available"`
	CreatedAt   dbTime `db:"created_at"`
	UpdatedAt   dbTime `db:"updated_at"`
}

func (r *bookRow) toDomain() *domain.Book {
	return &domain.Book{
		ID:          r.ID,
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
		CoverURL:    r.CoverURL,
		ISBN:        r.ISBN,
		Quantity:    r.Quantity,
		Available:   r.Available,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func (c *conn) bookRecord(b *domain.Book) goqu.Record {
	return goqu.Record{
		"title":       b.Title,
		"author":      b.Author,
		"description": b.Description,
		"cover_url":   b.CoverURL,
		"isbn":        b.ISBN,
		"quantity":    b.Quantity,
		"available":   b.Available,
		"updated_at":  c.timeValue(b.UpdatedAt),
	}
}

// CreateBook inserts a new book. A duplicate ISBN yields store.ErrDuplicateISBN.
func (c *conn) CreateBook(ctx context.Context, book *domain.Book) error {
	rec := c.bookRecord(book)
	rec["id"] = book.ID
	rec["created_at"] = c.timeValue(book.CreatedAt)

	if _, err := c.exec(ctx, c.dialect.Insert(tableBooks).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("insert book: %w", translateError(err))
	}
	return nil
}

// GetBook retrieves a book by ID. Inside a PostgreSQL transaction the row stays locked.
func (c *conn) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	ds := c.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("id").Eq(id)).Prepared(true)

	var row bookRow
	if err := c.get(ctx, &row, c.lockRows(ds)); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// GetBooksByIDs returns the books that still exist, keyed by ID.
func (c *conn) GetBooksByIDs(ctx context.Context, ids []string) (map[string]*domain.Book, error) {
	out := make(map[string]*domain.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []bookRow
	ds := c.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("id").In(ids)).Prepared(true)
	if err := c.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("get books by ids: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].toDomain()
	}
	return out, nil
}

// ListBooks returns books newest first.
func (c *conn) ListBooks(ctx context.Context, params store.PaginationParams) ([]*domain.Book, error) {
	params.Validate()

	ds := c.dialect.From(tableBooks).
		Select(bookColumns...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(params.Limit)).
		Offset(uint(params.Offset)).
		Prepared(true)

	var rows []bookRow
	if err := c.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	books := make([]*domain.Book, len(rows))
	for i := range rows {
		books[i] = rows[i].toDomain()
	}
	return books, nil
}

// CountBooks returns the number of catalog entries.
func (c *conn) CountBooks(ctx context.Context) (int, error) {
	var n int
	ds := c.dialect.From(tableBooks).Select(goqu.COUNT("*")).Prepared(true)
	if err := c.get(ctx, &n, ds); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

// UpdateBook writes every editable field, including both counters.
func (c *conn) UpdateBook(ctx context.Context, book *domain.Book) error {
	ds := c.dialect.Update(tableBooks).
		Set(c.bookRecord(book)).
		Where(goqu.C("id").Eq(book.ID)).
		Prepared(true)

	n, err := c.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("update book: %w", translateError(err))
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteBook removes a book. Callers check for active loans first.
func (c *conn) DeleteBook(ctx context.Context, id string) error {
	n, err := c.exec(ctx, c.dialect.Delete(tableBooks).Where(goqu.C("id").Eq(id)).Prepared(true))
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AdjustAvailability applies delta only if the result stays within [0, quantity].
func (c *conn) AdjustAvailability(ctx context.Context, bookID string, delta int) error {
	ds := c.dialect.Update(tableBooks).
		Set(goqu.Record{"available": goqu.L("available + ?", delta)}).
		Where(
			goqu.C("id").Eq(bookID),
			goqu.L("available + ? >= 0", delta),
			goqu.L("available + ? <= quantity", delta),
		).
		Prepared(true)

	n, err := c.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("adjust availability: %w", translateError(err))
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: tell a missing book apart from an out-of-range result.
	if _, err := c.GetBook(ctx, bookID); err != nil {
		return err
	}
	return store.ErrAvailabilityRange
}
