// Package store defines the persistence interfaces for books, loans, users and loan events.
package store

import (
	"context"

	"github.com/elibrary/elibrary-server/internal/domain"
)

// Catalog owns book records and their availability counters.
type Catalog interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) (map[string]*domain.Book, error)
	ListBooks(ctx context.Context, params PaginationParams) ([]*domain.Book, error)
	CountBooks(ctx context.Context) (int, error)
	CreateBook(ctx context.Context, book *domain.Book) error
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error

	// AdjustAvailability moves available by delta in one conditional statement.
	// Fails with ErrAvailabilityRange if the result would leave [0, quantity].
	AdjustAvailability(ctx context.Context, bookID string, delta int) error
}

// Ledger owns loan records and their audit events.
type Ledger interface {
	CreateLoan(ctx context.Context, loan *domain.Loan) error
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	FindActiveLoan(ctx context.Context, borrowerID, bookID string) (*domain.Loan, error)
	ListLoansByBorrower(ctx context.Context, borrowerID string, filter LoanFilter) ([]*domain.Loan, error)
	ListActiveLoans(ctx context.Context) ([]*domain.Loan, error)
	CountActiveLoansForBook(ctx context.Context, bookID string) (int, error)

	// UpdateLoan applies patch. With patch.ExpectStatus set, a loan in any other
	// status is left unchanged and ErrPreconditionFailed is returned.
	UpdateLoan(ctx context.Context, id string, patch domain.LoanPatch) error

	AppendLoanEvent(ctx context.Context, event *domain.LoanEvent) error
	ListLoanEvents(ctx context.Context, loanID string) ([]*domain.LoanEvent, error)
}

// Users holds accounts.
type Users interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	CountAdmins(ctx context.Context) (int, error)
}

// Tx is a Catalog and Ledger bound to one transaction.
type Tx interface {
	Catalog
	Ledger
	Users
}

// Store is the full persistence surface.
type Store interface {
	Catalog
	Ledger
	Users

	// WithTx runs fn in a transaction. Any error returned by fn rolls back every write.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
