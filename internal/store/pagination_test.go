package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPaginationParams(t *testing.T) {
	params := DefaultPaginationParams()
	assert.Equal(t, 100, params.Limit)
	assert.Zero(t, params.Offset)
}

func TestPaginationParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		input  PaginationParams
		limit  int
		offset int
	}{
		{"valid", PaginationParams{Limit: 50, Offset: 20}, 50, 20},
		{"zero limit defaults", PaginationParams{Limit: 0}, 100, 0},
		{"negative limit defaults", PaginationParams{Limit: -10, Offset: 5}, 100, 5},
		{"limit capped", PaginationParams{Limit: 5000}, 1000, 0},
		{"limit at cap", PaginationParams{Limit: 1000}, 1000, 0},
		{"negative offset reset", PaginationParams{Limit: 10, Offset: -3}, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.input
			params.Validate()
			assert.Equal(t, tt.limit, params.Limit)
			assert.Equal(t, tt.offset, params.Offset)
		})
	}
}
