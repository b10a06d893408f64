package store

// PaginationParams contains offset pagination request parameters.
type PaginationParams struct {
	Limit  int // defaults to 100 with a maximum of 1000
	Offset int
}

// DefaultPaginationParams returns sensible defaults.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: 100}
}

// Validate checks and corrects pagination parameters.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// LoanFilter narrows a borrower's loan history.
type LoanFilter struct {
	ActiveOnly bool
}
