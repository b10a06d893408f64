package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/domain"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
)

const (
	isbnDune   = "9780441172719"
	isbnHobbit = "9780547928227"
)

func TestLendingService_Borrow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	book := env.createBook(t, "Dune", isbnDune, 2)

	res, err := env.lending.Borrow(ctx, env.alice, book.ID)
	require.NoError(t, err)

	loan := res.Loan
	assert.Equal(t, env.alice.UserID, loan.BorrowerID)
	assert.Equal(t, domain.LoanIssued, loan.Status)
	assert.Equal(t, testStart, loan.IssuedAt)
	assert.Equal(t, testStart.Add(14*24*time.Hour), loan.DueAt)
	assert.Equal(t, "2025-01-15T10:00:00Z", res.DueDate)
	assert.Nil(t, loan.ReturnedAt)
	assert.Zero(t, loan.Fine)

	assert.Equal(t, 1, env.book(t, book.ID).Available)

	events, err := env.lending.LoanEvents(ctx, env.alice, loan.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.LoanEventBorrowed, events[0].Type)
}

func TestLendingService_Borrow_Errors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	book := env.createBook(t, "Dune", isbnDune, 2)
	empty := env.createBook(t, "The Hobbit", isbnHobbit, 0)

	_, err := env.lending.Borrow(ctx, env.alice, "book-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = env.lending.Borrow(ctx, env.alice, empty.ID)
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)

	_, err = env.lending.Borrow(ctx, env.alice, book.ID)
	require.NoError(t, err)
	_, err = env.lending.Borrow(ctx, env.alice, book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	_, err = env.lending.Borrow(ctx, env.admin, book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	// Failed attempts leave the counter alone.
	assert.Equal(t, 1, env.book(t, book.ID).Available)
}

func TestLendingService_Borrow_ConcurrentLastCopy(t *testing.T) {
	env := setupTestEnv(t)
	book := env.createBook(t, "Dune", isbnDune, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, borrower := range []auth.Actor{env.alice, env.bob} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.lending.Borrow(context.Background(), borrower, book.ID)
		}()
	}
	wg.Wait()

	succeeded, unavailable := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domainerrors.ErrUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, unavailable)
	assert.Equal(t, 0, env.book(t, book.ID).Available)
}

func TestLendingService_Return(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	book := env.createBook(t, "Dune", isbnDune, 1)

	borrowed, err := env.lending.Borrow(ctx, env.alice, book.ID)
	require.NoError(t, err)

	env.clock.Advance(3 * 24 * time.Hour)
	res, err := env.lending.Return(ctx, env.alice, borrowed.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanReturned, res.Loan.Status)
	require.NotNil(t, res.Loan.ReturnedAt)
	assert.Equal(t, env.clock.Now(), *res.Loan.ReturnedAt)
	assert.Zero(t, res.Fine)
	assert.Equal(t, 1, env.book(t, book.ID).Available)

	_, err = env.lending.Return(ctx, env.alice, borrowed.Loan.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)
	assert.Equal(t, 1, env.book(t, book.ID).Available)

	_, err = env.lending.Return(ctx, env.alice, "loan-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestLendingService_Return_LateFine(t *testing.T) {
	tests := []struct {
		name     string
		after    time.Duration // time from borrow to return
		wantFine int64
	}{
		{"on the due instant", 14 * 24 * time.Hour, 0},
		{"one minute late", 14*24*time.Hour + time.Minute, 5},
		{"three days late", 17 * 24 * time.Hour, 15},
		{"three days and an hour late", 17*24*time.Hour + time.Hour, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			ctx := context.Background()
			book := env.createBook(t, "Dune", isbnDune, 1)

			borrowed, err := env.lending.Borrow(ctx, env.alice, book.ID)
			require.NoError(t, err)

			env.clock.Advance(tt.after)
			res, err := env.lending.Return(ctx, env.alice, borrowed.Loan.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFine, res.Fine)

			stored, err := env.store.GetLoan(ctx, borrowed.Loan.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFine, stored.Fine)
		})
	}
}

func TestLendingService_Return_Concurrent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	book := env.createBook(t, "Dune", isbnDune, 1)

	borrowed, err := env.lending.Borrow(ctx, env.alice, book.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.lending.Return(context.Background(), env.alice, borrowed.Loan.ID)
		}()
	}
	wg.Wait()

	succeeded, invalid := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domainerrors.ErrInvalidState):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, invalid)
	assert.Equal(t, 1, env.book(t, book.ID).Available)
}

func TestLendingService_Return_Access(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	book := env.createBook(t, "Dune", isbnDune, 1)

	borrowed, err := env.lending.Borrow(ctx, env.alice, book.ID)
	require.NoError(t, err)

	_, err = env.lending.Return(ctx, env.bob, borrowed.Loan.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	// Admins may check a book back in for the borrower.
	_, err = env.lending.Return(ctx, env.admin, borrowed.Loan.ID)
	assert.NoError(t, err)
}

func TestLendingService_PayFine(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	book := env.createBook(t, "Dune", isbnDune, 2)

	onTime, err := env.lending.Borrow(ctx, env.alice, book.ID)
	require.NoError(t, err)
	late, err := env.lending.Borrow(ctx, env.bob, book.ID)
	require.NoError(t, err)

	_, err = env.lending.Return(ctx, env.alice, onTime.Loan.ID)
	require.NoError(t, err)
	env.clock.Advance(17 * 24 * time.Hour)
	returned, err := env.lending.Return(ctx, env.bob, late.Loan.ID)
	require.NoError(t, err)
	require.Equal(t, int64(15), returned.Fine)

	_, err = env.lending.PayFine(ctx, env.alice, onTime.Loan.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNoFine)

	paid, err := env.lending.PayFine(ctx, env.bob, late.Loan.ID)
	require.NoError(t, err)
	assert.True(t, paid.FinePaid)
	assert.Equal(t, int64(15), paid.Fine)
	assert.Equal(t, domain.LoanReturned, paid.Status)

	_, err = env.lending.PayFine(ctx, env.bob, late.Loan.ID)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyPaid)

	_, err = env.lending.PayFine(ctx, env.bob, "loan-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	events, err := env.lending.LoanEvents(ctx, env.admin, late.Loan.ID)
	require.NoError(t, err)
	types := make([]domain.LoanEventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	assert.Equal(t, []domain.LoanEventType{
		domain.LoanEventBorrowed, domain.LoanEventReturned, domain.LoanEventFinePaid,
	}, types)
}

func TestLendingService_Listings(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	dune := env.createBook(t, "Dune", isbnDune, 2)
	hobbit := env.createBook(t, "The Hobbit", isbnHobbit, 2)

	first, err := env.lending.Borrow(ctx, env.alice, dune.ID)
	require.NoError(t, err)
	env.clock.Advance(time.Hour)
	_, err = env.lending.Borrow(ctx, env.alice, hobbit.ID)
	require.NoError(t, err)
	_, err = env.lending.Borrow(ctx, env.bob, dune.ID)
	require.NoError(t, err)
	_, err = env.lending.Return(ctx, env.alice, first.Loan.ID)
	require.NoError(t, err)

	active, err := env.lending.ActiveLoans(ctx, env.alice)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, hobbit.ID, active[0].Book.ID)

	history, err := env.lending.LoanHistory(ctx, env.alice, env.alice.UserID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, hobbit.ID, history[0].Loan.BookID, "newest first")

	_, err = env.lending.LoanHistory(ctx, env.bob, env.alice.UserID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	pending, err := env.lending.PendingReturns(ctx, env.admin, env.bob.UserID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := env.lending.AllActiveLoans(ctx, env.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.lending.AllActiveLoans(ctx, env.alice)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	got, err := env.lending.GetLoan(ctx, env.alice, first.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, dune.Title, got.Book.Title)
	_, err = env.lending.GetLoan(ctx, env.bob, first.Loan.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}
