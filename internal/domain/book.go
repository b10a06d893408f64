// Package domain contains the core business entities of the lending library: books,
// loans, borrowers and the fine policy.
package domain

import (
	"time"

	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
)

// DefaultCoverURL is used when a book is added without a cover.
const DefaultCoverURL = "https://images.pexels.com/photos/1029141/pexels-photo-1029141.jpeg"

// Book is a catalog entry together with its copy counters.
// Invariant: 0 <= Available <= Quantity.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	CoverURL    string    `json:"cover_url"`
	ISBN        string    `json:"isbn"`
	Quantity    int       `json:"quantity"`
	Available   int       `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookFields carries the admin-editable fields of a book.
type BookFields struct {
	Title       string
	Author      string
	Description string
	CoverURL    string
	ISBN        string
	Quantity    int
}

// NewBook builds a book with every copy on the shelf.
func NewBook(id string, fields BookFields, now time.Time) (*Book, error) {
	if fields.Quantity < 0 {
		return nil, domainerrors.Validation("quantity cannot be negative")
	}
	cover := fields.CoverURL
	if cover == "" {
		cover = DefaultCoverURL
	}
	return &Book{
		ID:          id,
		Title:       fields.Title,
		Author:      fields.Author,
		Description: fields.Description,
		CoverURL:    cover,
		ISBN:        fields.ISBN,
		Quantity:    fields.Quantity,
		Available:   fields.Quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanLend reports whether at least one copy is on the shelf.
func (b *Book) CanLend() bool {
	return b.Available > 0
}

// Apply copies fields onto the book. onLoan is the number of active loans for
// the book. A quantity change moves Available by the same delta, clamped to
// [0, new quantity - onLoan] so every open loan can still be returned. The
// quantity may not drop below onLoan.
func (b *Book) Apply(fields BookFields, onLoan int, now time.Time) error {
	if fields.Quantity < 0 {
		return domainerrors.Validation("quantity cannot be negative")
	}
	if fields.Quantity < onLoan {
		return domainerrors.Validationf("quantity %d is below the %d copies currently on loan", fields.Quantity, onLoan)
	}

	available := b.Available + (fields.Quantity - b.Quantity)
	available = max(available, 0)
	available = min(available, fields.Quantity-onLoan)

	b.Title = fields.Title
	b.Author = fields.Author
	b.Description = fields.Description
	if fields.CoverURL != "" {
		b.CoverURL = fields.CoverURL
	}
	b.ISBN = fields.ISBN
	b.Quantity = fields.Quantity
	b.Available = available
	b.UpdatedAt = now
	return nil
}
