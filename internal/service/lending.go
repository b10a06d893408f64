package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/domain"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
	"github.com/elibrary/elibrary-server/internal/id"
	"github.com/elibrary/elibrary-server/internal/store"
)

// LendingService runs the borrow, return and fine-payment transitions.
// Each transition reads and writes the catalog and the ledger in one
// transaction, so the availability counter and the loan move together.
type LendingService struct {
	store  store.Store
	clock  clockwork.Clock
	policy domain.FinePolicy
	logger *slog.Logger
}

// NewLendingService creates a lending service.
func NewLendingService(s store.Store, clock clockwork.Clock, policy domain.FinePolicy, logger *slog.Logger) *LendingService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LendingService{
		store:  s,
		clock:  clock,
		policy: policy,
		logger: orDiscard(logger),
	}
}

// FinePolicy returns the policy applied on return.
func (s *LendingService) FinePolicy() domain.FinePolicy {
	return s.policy
}

// BorrowResult is the created loan and its due date.
type BorrowResult struct {
	Loan    *domain.Loan `json:"loan"`
	DueDate string       `json:"due_date"`
}

// ReturnResult is the closed loan and the fine it accrued.
type ReturnResult struct {
	Loan *domain.Loan `json:"loan"`
	Fine int64        `json:"fine"`
}

// LoanWithBook pairs a loan with its book. Book is nil when the title has since been deleted.
type LoanWithBook struct {
	Loan *domain.Loan `json:"loan"`
	Book *domain.Book `json:"book,omitempty"`
}

// Borrow issues a copy of bookID to the actor.
//
// Errors: NotFound (no such book), Unavailable (no copies left),
// Conflict (the actor already holds this book).
func (s *LendingService) Borrow(ctx context.Context, actor auth.Actor, bookID string) (*BorrowResult, error) {
	if err := authorize(actor, auth.CatalogBorrow()); err != nil {
		return nil, err
	}

	loanID, err := id.Generate(id.PrefixLoan)
	if err != nil {
		return nil, fmt.Errorf("generate loan ID: %w", err)
	}

	var loan *domain.Loan
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return translateStoreError(err, "book")
		}
		if !book.CanLend() {
			return domainerrors.Unavailable("no copies of this book are available")
		}

		if _, err := tx.FindActiveLoan(ctx, actor.UserID, bookID); err == nil {
			return domainerrors.Conflict("you already have an active loan for this book")
		} else if !isNotFound(err) {
			return translateStoreError(err, "loan")
		}

		now := s.clock.Now()
		loan = domain.NewLoan(loanID, actor.UserID, bookID, now)
		if err := tx.CreateLoan(ctx, loan); err != nil {
			return translateStoreError(err, "loan")
		}
		if err := tx.AdjustAvailability(ctx, bookID, -1); err != nil {
			if isAvailabilityRange(err) {
				return domainerrors.Unavailable("no copies of this book are available")
			}
			return translateStoreError(err, "book")
		}

		return tx.AppendLoanEvent(ctx, &domain.LoanEvent{
			LoanID:     loan.ID,
			Type:       domain.LoanEventBorrowed,
			ActorID:    actor.UserID,
			OccurredAt: now,
			Payload: map[string]any{
				"book_id": bookID,
				"due_at":  loan.DueAt,
			},
		})
	})
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "loan"), "borrow failed",
			"book_id", bookID, "borrower_id", actor.UserID)
	}

	s.logger.Info("book borrowed",
		"loan_id", loan.ID,
		"book_id", bookID,
		"borrower_id", actor.UserID,
		"due_at", loan.DueAt,
	)
	return &BorrowResult{Loan: loan, DueDate: loan.DueAt.UTC().Format(timeLayout)}, nil
}

// Return closes a loan, computes its fine and puts the copy back.
//
// Errors: NotFound (no such loan), InvalidState (already returned).
func (s *LendingService) Return(ctx context.Context, actor auth.Actor, loanID string) (*ReturnResult, error) {
	var loan *domain.Loan
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return translateStoreError(err, "loan")
		}
		if err := authorize(actor, auth.Loan(l.BorrowerID, auth.ActionWrite)); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := l.Return(now, s.policy); err != nil {
			return err
		}

		// The status guard makes a concurrent second return fail here.
		if err := tx.UpdateLoan(ctx, l.ID, l.ReturnPatch()); err != nil {
			if isPreconditionFailed(err) {
				return domainerrors.InvalidState("loan has already been returned")
			}
			return translateStoreError(err, "loan")
		}
		if err := tx.AdjustAvailability(ctx, l.BookID, +1); err != nil {
			return translateStoreError(err, "book")
		}

		loan = l
		return tx.AppendLoanEvent(ctx, &domain.LoanEvent{
			LoanID:     l.ID,
			Type:       domain.LoanEventReturned,
			ActorID:    actor.UserID,
			OccurredAt: now,
			Payload: map[string]any{
				"book_id":   l.BookID,
				"days_late": domain.DaysLate(l.DueAt, now),
				"fine":      l.Fine,
			},
		})
	})
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "loan"), "return failed", "loan_id", loanID)
	}

	s.logger.Info("book returned",
		"loan_id", loan.ID,
		"book_id", loan.BookID,
		"borrower_id", loan.BorrowerID,
		"fine", loan.Fine,
	)
	return &ReturnResult{Loan: loan, Fine: loan.Fine}, nil
}

// PayFine marks a returned loan's fine as settled.
//
// Errors: NotFound, NoFine (nothing owed), AlreadyPaid.
func (s *LendingService) PayFine(ctx context.Context, actor auth.Actor, loanID string) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return translateStoreError(err, "loan")
		}
		if err := authorize(actor, auth.Loan(l.BorrowerID, auth.ActionWrite)); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := l.PayFine(now); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, l.ID, l.FinePaidPatch()); err != nil {
			return translateStoreError(err, "loan")
		}

		loan = l
		return tx.AppendLoanEvent(ctx, &domain.LoanEvent{
			LoanID:     l.ID,
			Type:       domain.LoanEventFinePaid,
			ActorID:    actor.UserID,
			OccurredAt: now,
			Payload:    map[string]any{"amount": l.Fine},
		})
	})
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "loan"), "pay fine failed", "loan_id", loanID)
	}

	s.logger.Info("fine paid", "loan_id", loan.ID, "borrower_id", loan.BorrowerID, "amount", loan.Fine)
	return loan, nil
}

// GetLoan returns a loan visible to the actor.
func (s *LendingService) GetLoan(ctx context.Context, actor auth.Actor, loanID string) (*LoanWithBook, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "loan"), "get loan failed", "loan_id", loanID)
	}
	if err := authorize(actor, auth.Loan(loan.BorrowerID, auth.ActionRead)); err != nil {
		return nil, err
	}
	withBooks, err := s.attachBooks(ctx, []*domain.Loan{loan})
	if err != nil {
		return nil, err
	}
	return withBooks[0], nil
}

// ActiveLoans returns the actor's own open loans with their books.
func (s *LendingService) ActiveLoans(ctx context.Context, actor auth.Actor) ([]*LoanWithBook, error) {
	return s.PendingReturns(ctx, actor, actor.UserID)
}

// PendingReturns returns a borrower's open loans, newest first.
func (s *LendingService) PendingReturns(ctx context.Context, actor auth.Actor, borrowerID string) ([]*LoanWithBook, error) {
	return s.borrowerLoans(ctx, actor, borrowerID, store.LoanFilter{ActiveOnly: true})
}

// LoanHistory returns every loan a borrower has had, newest first.
func (s *LendingService) LoanHistory(ctx context.Context, actor auth.Actor, borrowerID string) ([]*LoanWithBook, error) {
	return s.borrowerLoans(ctx, actor, borrowerID, store.LoanFilter{})
}

func (s *LendingService) borrowerLoans(ctx context.Context, actor auth.Actor, borrowerID string, filter store.LoanFilter) ([]*LoanWithBook, error) {
	if err := authorize(actor, auth.UserRecords(borrowerID)); err != nil {
		return nil, err
	}
	loans, err := s.store.ListLoansByBorrower(ctx, borrowerID, filter)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "loan"), "list loans failed", "borrower_id", borrowerID)
	}
	return s.attachBooks(ctx, loans)
}

// AllActiveLoans lists every open loan, soonest due first.
func (s *LendingService) AllActiveLoans(ctx context.Context, actor auth.Actor) ([]*LoanWithBook, error) {
	if err := authorize(actor, auth.UserDirectory()); err != nil {
		return nil, err
	}
	loans, err := s.store.ListActiveLoans(ctx)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "loan"), "list active loans failed")
	}
	return s.attachBooks(ctx, loans)
}

// LoanEvents returns a loan's audit trail, oldest first.
func (s *LendingService) LoanEvents(ctx context.Context, actor auth.Actor, loanID string) ([]*domain.LoanEvent, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, translateStoreError(err, "loan")
	}
	if err := authorize(actor, auth.Loan(loan.BorrowerID, auth.ActionRead)); err != nil {
		return nil, err
	}
	events, err := s.store.ListLoanEvents(ctx, loanID)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "loan"), "list loan events failed", "loan_id", loanID)
	}
	return events, nil
}

func (s *LendingService) attachBooks(ctx context.Context, loans []*domain.Loan) ([]*LoanWithBook, error) {
	ids := make([]string, 0, len(loans))
	seen := make(map[string]struct{}, len(loans))
	for _, l := range loans {
		if _, ok := seen[l.BookID]; !ok {
			seen[l.BookID] = struct{}{}
			ids = append(ids, l.BookID)
		}
	}

	books, err := s.store.GetBooksByIDs(ctx, ids)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "book"), "load loan books failed")
	}

	out := make([]*LoanWithBook, len(loans))
	for i, l := range loans {
		out[i] = &LoanWithBook{Loan: l, Book: books[l.BookID]}
	}
	return out, nil
}
