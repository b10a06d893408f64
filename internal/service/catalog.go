package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/domain"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
	"github.com/elibrary/elibrary-server/internal/id"
	"github.com/elibrary/elibrary-server/internal/normalize"
	"github.com/elibrary/elibrary-server/internal/search"
	"github.com/elibrary/elibrary-server/internal/store"
)

// CatalogService manages books and their availability counters.
type CatalogService struct {
	store  store.Store
	index  *search.BookIndex // optional
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewCatalogService creates a catalog service. index may be nil, in which case
// queries fall back to plain listing.
func NewCatalogService(s store.Store, index *search.BookIndex, clock clockwork.Clock, logger *slog.Logger) *CatalogService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CatalogService{
		store:  s,
		index:  index,
		clock:  clock,
		logger: orDiscard(logger),
	}
}

// BookRequest is the editable part of a book, used for create and update.
type BookRequest struct {
	Title       string `json:"title" validate:"notblank,max=500"`
	Author      string `json:"author" validate:"notblank,max=300"`
	Description string `json:"description" validate:"max=10000"`
	CoverURL    string `json:"cover_url" validate:"omitempty,url,max=2048"`
	ISBN        string `json:"isbn" validate:"required,isbn"`
	Quantity    int    `json:"quantity" validate:"gte=0,lte=100000"`
}

func (r BookRequest) fields() domain.BookFields {
	return domain.BookFields{
		Title:       normalize.Text(r.Title),
		Author:      normalize.Text(r.Author),
		Description: strings.TrimSpace(r.Description),
		CoverURL:    strings.TrimSpace(r.CoverURL),
		ISBN:        normalize.ISBN(r.ISBN),
		Quantity:    r.Quantity,
	}
}

// ListBooksParams selects a page of the catalog, optionally filtered by a search query.
type ListBooksParams struct {
	Query  string
	Limit  int
	Offset int
}

// BookList is one page of catalog entries.
type BookList struct {
	Books []*domain.Book `json:"books"`
	Total int            `json:"total"`
}

// ListBooks returns the catalog newest first, or search hits in relevance order
// when a query is given.
func (s *CatalogService) ListBooks(ctx context.Context, actor auth.Actor, params ListBooksParams) (*BookList, error) {
	if err := authorize(actor, auth.CatalogRead()); err != nil {
		return nil, err
	}

	page := store.PaginationParams{Limit: params.Limit, Offset: params.Offset}
	page.Validate()

	if strings.TrimSpace(params.Query) != "" && s.index != nil {
		return s.searchBooks(ctx, params.Query, page)
	}

	books, err := s.store.ListBooks(ctx, page)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "list books failed")
	}
	total, err := s.store.CountBooks(ctx)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "count books failed")
	}
	return &BookList{Books: books, Total: total}, nil
}

func (s *CatalogService) searchBooks(ctx context.Context, query string, page store.PaginationParams) (*BookList, error) {
	res, err := s.index.Search(ctx, search.SearchParams{Query: query, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		s.logger.Error("catalog search failed", "query", query, "error", err)
		return nil, domainerrors.Internal("search failed").WithCause(err)
	}

	found, err := s.store.GetBooksByIDs(ctx, res.IDs())
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "load search hits failed")
	}

	// Keep relevance order; skip hits deleted since they were indexed.
	books := make([]*domain.Book, 0, len(found))
	for _, hitID := range res.IDs() {
		if b, ok := found[hitID]; ok {
			books = append(books, b)
		}
	}
	return &BookList{Books: books, Total: int(res.Total)}, nil
}

// GetBook returns a single book.
func (s *CatalogService) GetBook(ctx context.Context, actor auth.Actor, bookID string) (*domain.Book, error) {
	if err := authorize(actor, auth.CatalogRead()); err != nil {
		return nil, err
	}
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "get book failed", "book_id", bookID)
	}
	return book, nil
}

// CreateBook adds a title to the catalog with every copy available.
func (s *CatalogService) CreateBook(ctx context.Context, actor auth.Actor, req BookRequest) (*domain.Book, error) {
	if err := authorize(actor, auth.CatalogWrite()); err != nil {
		return nil, err
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book, err := domain.NewBook(bookID, req.fields(), s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "create book failed")
	}

	s.indexBook(book)
	s.logger.Info("book created", "book_id", book.ID, "isbn", book.ISBN, "quantity", book.Quantity)
	return book, nil
}

// UpdateBook replaces a book's editable fields. A quantity change moves
// availability by the same delta; quantity may not drop below the copies on loan.
func (s *CatalogService) UpdateBook(ctx context.Context, actor auth.Actor, bookID string, req BookRequest) (*domain.Book, error) {
	if err := authorize(actor, auth.CatalogWrite()); err != nil {
		return nil, err
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	var updated *domain.Book
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return translateStoreError(err, "book")
		}
		onLoan, err := tx.CountActiveLoansForBook(ctx, bookID)
		if err != nil {
			return fmt.Errorf("count active loans: %w", err)
		}
		if err := book.Apply(req.fields(), onLoan, s.clock.Now()); err != nil {
			return err
		}
		if err := tx.UpdateBook(ctx, book); err != nil {
			return translateStoreError(err, "book")
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "update book failed", "book_id", bookID)
	}

	s.indexBook(updated)
	return updated, nil
}

// DeleteBook removes a book that has no active loans; otherwise it fails with Conflict.
func (s *CatalogService) DeleteBook(ctx context.Context, actor auth.Actor, bookID string) error {
	if err := authorize(actor, auth.CatalogWrite()); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetBook(ctx, bookID); err != nil {
			return translateStoreError(err, "book")
		}
		active, err := tx.CountActiveLoansForBook(ctx, bookID)
		if err != nil {
			return translateStoreError(err, "book")
		}
		if active > 0 {
			return domainerrors.Conflictf("book has %d active loan(s)", active)
		}
		return translateStoreError(tx.DeleteBook(ctx, bookID), "book")
	})
	if err != nil {
		return logInternal(s.logger, translateStoreError(err, "book"), "delete book failed", "book_id", bookID)
	}

	if s.index != nil {
		if err := s.index.DeleteBook(bookID); err != nil {
			s.logger.Warn("failed to remove book from search index", "book_id", bookID, "error", err)
		}
	}
	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// AdjustAvailability moves a book's available counter by delta. The result must
// stay within [0, quantity - active loans] so every open loan can still be
// returned; otherwise it fails with InvalidState and leaves the counter unchanged.
func (s *CatalogService) AdjustAvailability(ctx context.Context, actor auth.Actor, bookID string, delta int) (*domain.Book, error) {
	if err := authorize(actor, auth.CatalogWrite()); err != nil {
		return nil, err
	}

	var book *domain.Book
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return translateStoreError(err, "book")
		}
		onLoan, err := tx.CountActiveLoansForBook(ctx, bookID)
		if err != nil {
			return fmt.Errorf("count active loans: %w", err)
		}
		if target, shelf := current.Available+delta, current.Quantity-onLoan; target > shelf {
			return domainerrors.InvalidState(fmt.Sprintf(
				"available would be %d but only %d of %d copies are not on loan", target, shelf, current.Quantity))
		}

		if err := tx.AdjustAvailability(ctx, bookID, delta); err != nil {
			return translateStoreError(err, "book")
		}
		book, err = tx.GetBook(ctx, bookID)
		return translateStoreError(err, "book")
	})
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "adjust availability failed", "book_id", bookID)
	}
	return book, nil
}

// Reindex rebuilds the search index from the database.
func (s *CatalogService) Reindex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	var all []*domain.Book
	page := store.PaginationParams{Limit: 1000}
	for {
		books, err := s.store.ListBooks(ctx, page)
		if err != nil {
			return fmt.Errorf("list books for reindex: %w", err)
		}
		all = append(all, books...)
		if len(books) < page.Limit {
			break
		}
		page.Offset += page.Limit
	}

	if err := s.index.Rebuild(all); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	return nil
}

// indexBook keeps the search index in step with the database; failures only degrade search.
func (s *CatalogService) indexBook(book *domain.Book) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexBook(book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}
