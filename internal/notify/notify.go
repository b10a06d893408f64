// Package notify sends due-date reminders for active loans.
//
// A Notifier sweep looks at every issued loan and sends one reminder per
// offset (two days and one day before the due date). The offset match is an
// equality on the day count, so a sweep that misses the exact day does not
// send that reminder later. The per-offset flags on the loan keep repeated
// sweeps on the same day from sending twice.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/logger"
)

// Reminder is everything a sender needs to tell a borrower a book is due.
type Reminder struct {
	LoanID        string
	BorrowerName  string
	BorrowerEmail string
	BookTitle     string
	BookAuthor    string
	DueDate       time.Time
	DaysLeft      int
}

// Sender delivers a reminder. A nil error means the reminder went out and the
// loan's flag for this offset may be set.
type Sender interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// Store is the slice of storage a sweep reads and writes.
type Store interface {
	ListActiveLoans(ctx context.Context) ([]*domain.Loan, error)
	GetBooksByIDs(ctx context.Context, ids []string) (map[string]*domain.Book, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateLoan(ctx context.Context, id string, patch domain.LoanPatch) error
	AppendLoanEvent(ctx context.Context, event *domain.LoanEvent) error
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Notifier runs reminder sweeps. Sweeps never overlap.
type Notifier struct {
	store  Store
	sender Sender
	clock  clockwork.Clock
	logger *slog.Logger

	mu sync.Mutex

	statusMu  sync.RWMutex
	lastSweep time.Time
	lastRes   SweepResult
}

// New creates a notifier.
func New(s Store, sender Sender, clock clockwork.Clock, log *slog.Logger) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Notifier{store: s, sender: sender, clock: clock, logger: log}
}

// Sweep checks every active loan once against a single reading of the clock.
//
// A failed send is logged and leaves the flag unset; the sweep moves on to the
// next loan. Cancelling ctx stops the sweep before the next loan, never in the
// middle of a send and its flag update. The returned error is ctx.Err() when
// cancelled, or the failure to list loans.
func (n *Notifier) Sweep(ctx context.Context) (SweepResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var result SweepResult
	now := n.clock.Now()

	loans, err := n.store.ListActiveLoans(ctx)
	if err != nil {
		return result, fmt.Errorf("list active loans: %w", err)
	}

	due := make([]*domain.Loan, 0)
	bookIDs := make([]string, 0)
	for _, loan := range loans {
		if _, ok := pendingOffset(loan, now); ok {
			due = append(due, loan)
			bookIDs = append(bookIDs, loan.BookID)
		}
	}
	result.Checked = len(loans)

	var books map[string]*domain.Book
	if len(due) > 0 {
		if books, err = n.store.GetBooksByIDs(ctx, bookIDs); err != nil {
			return result, fmt.Errorf("load books: %w", err)
		}
	}

	for _, loan := range due {
		if err := ctx.Err(); err != nil {
			n.logger.Info("reminder sweep cancelled", "checked", result.Checked, "sent", result.Sent)
			return result, err
		}

		// In-flight work finishes even if ctx is cancelled meanwhile.
		if err := n.remind(context.WithoutCancel(ctx), loan, books[loan.BookID], now); err != nil {
			result.Failed++
			n.logger.Error("failed to send due-date reminder",
				"loan_id", loan.ID,
				"borrower_id", loan.BorrowerID,
				"error", err,
			)
			continue
		}
		result.Sent++
	}

	n.logger.Info("reminder sweep complete",
		"checked", result.Checked,
		"sent", result.Sent,
		"failed", result.Failed,
	)

	n.statusMu.Lock()
	n.lastSweep, n.lastRes = now, result
	n.statusMu.Unlock()
	return result, nil
}

// LastSweep reports when the last completed sweep started and what it did.
// ok is false until a sweep has completed.
func (n *Notifier) LastSweep() (at time.Time, result SweepResult, ok bool) {
	n.statusMu.RLock()
	defer n.statusMu.RUnlock()
	return n.lastSweep, n.lastRes, !n.lastSweep.IsZero()
}

// pendingOffset returns the reminder offset a loan is due for right now, if any.
func pendingOffset(loan *domain.Loan, now time.Time) (domain.ReminderOffset, bool) {
	if !loan.IsActive() {
		return 0, false
	}
	daysLeft := domain.DaysUntil(loan.DueAt, now)
	for _, offset := range domain.ReminderOffsets {
		if daysLeft == int(offset) && !loan.ReminderSent(offset) {
			return offset, true
		}
	}
	return 0, false
}

var errBookMissing = errors.New("book no longer exists")

func (n *Notifier) remind(ctx context.Context, loan *domain.Loan, book *domain.Book, now time.Time) error {
	offset, _ := pendingOffset(loan, now)

	if book == nil {
		return errBookMissing
	}
	borrower, err := n.store.GetUser(ctx, loan.BorrowerID)
	if err != nil {
		return fmt.Errorf("load borrower: %w", err)
	}

	err = n.sender.SendReminder(ctx, Reminder{
		LoanID:        loan.ID,
		BorrowerName:  borrower.Name,
		BorrowerEmail: borrower.Email,
		BookTitle:     book.Title,
		BookAuthor:    book.Author,
		DueDate:       loan.DueAt,
		DaysLeft:      int(offset),
	})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	if err := n.store.UpdateLoan(ctx, loan.ID, domain.ReminderPatch(offset, now)); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	if err := n.store.AppendLoanEvent(ctx, &domain.LoanEvent{
		LoanID:     loan.ID,
		Type:       domain.LoanEventReminderSent,
		OccurredAt: now,
		Payload:    map[string]any{"days_left": int(offset)},
	}); err != nil {
		n.logger.Warn("failed to record reminder event", "loan_id", loan.ID, "error", err)
	}

	n.logger.Debug("reminder sent", "loan_id", loan.ID, "days_left", int(offset))
	return nil
}
