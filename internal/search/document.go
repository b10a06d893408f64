// Package search provides full-text search over the catalog using Bleve.
// The database stays the source of truth: hits carry book IDs and callers load
// the rows from the store.
package search

import (
	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/normalize"
)

// BookDocument is the indexed form of a catalog entry.
// Text fields are folded (lowercase, no diacritics) so "Misérables" matches "miserables".
type BookDocument struct {
	ID          string
	Title       string
	Author      string
	Description string
	ISBN        string
	CreatedAt   int64 // Unix millis
}

// NewBookDocument builds the index document for a book.
func NewBookDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:          b.ID,
		Title:       normalize.Fold(b.Title),
		Author:      normalize.Fold(b.Author),
		Description: normalize.Fold(b.Description),
		ISBN:        b.ISBN,
		CreatedAt:   b.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"created_at": d.CreatedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	return m
}
