package domain

import (
	"time"

	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
)

// LoanPeriod is how long a borrower may keep a book.
const LoanPeriod = 14 * Day

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	// LoanIssued means the book is still with the borrower.
	LoanIssued LoanStatus = "issued"
	// LoanReturned means the book is back on the shelf.
	LoanReturned LoanStatus = "returned"
)

// ReminderOffset is a number of days before the due date at which a reminder is sent.
type ReminderOffset int

const (
	ReminderTwoDays ReminderOffset = 2
	ReminderOneDay  ReminderOffset = 1
)

// ReminderOffsets lists every offset the notifier handles, furthest first.
var ReminderOffsets = []ReminderOffset{ReminderTwoDays, ReminderOneDay}

// Loan is one book checked out by one borrower.
// ReturnedAt is set exactly when Status is LoanReturned.
type Loan struct {
	ID                  string     `json:"id"`
	BorrowerID          string     `json:"borrower_id"`
	BookID              string     `json:"book_id"`
	IssuedAt            time.Time  `json:"issued_at"`
	DueAt               time.Time  `json:"due_at"`
	ReturnedAt          *time.Time `json:"returned_at,omitempty"`
	Status              LoanStatus `json:"status"`
	Fine                int64      `json:"fine"`
	FinePaid            bool       `json:"fine_paid"`
	ReminderTwoDaysSent bool       `json:"reminder_two_days_sent"`
	ReminderOneDaySent  bool       `json:"reminder_one_day_sent"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewLoan issues a loan at now, due one LoanPeriod later.
func NewLoan(id, borrowerID, bookID string, now time.Time) *Loan {
	return &Loan{
		ID:         id,
		BorrowerID: borrowerID,
		BookID:     bookID,
		IssuedAt:   now,
		DueAt:      now.Add(LoanPeriod),
		Status:     LoanIssued,
		UpdatedAt:  now,
	}
}

// IsActive reports whether the book is still out.
func (l *Loan) IsActive() bool {
	return l.Status == LoanIssued
}

// Return closes the loan at the given instant and records the fine owed.
func (l *Loan) Return(at time.Time, policy FinePolicy) error {
	if l.Status == LoanReturned {
		return domainerrors.InvalidState("loan has already been returned")
	}
	l.Status = LoanReturned
	l.ReturnedAt = &at
	l.Fine = policy.Fine(l.DueAt, at)
	l.UpdatedAt = at
	return nil
}

// PayFine settles the fine. Only a positive, unpaid fine can be paid.
func (l *Loan) PayFine(at time.Time) error {
	if l.Fine <= 0 {
		return domainerrors.NoFine("no fine is owed on this loan")
	}
	if l.FinePaid {
		return domainerrors.AlreadyPaid("fine has already been paid")
	}
	l.FinePaid = true
	l.UpdatedAt = at
	return nil
}

// ReminderSent reports whether the reminder for offset has gone out.
func (l *Loan) ReminderSent(offset ReminderOffset) bool {
	switch offset {
	case ReminderTwoDays:
		return l.ReminderTwoDaysSent
	case ReminderOneDay:
		return l.ReminderOneDaySent
	default:
		return false
	}
}

// LoanPatch lists the loan fields an update may change. Nil fields are left alone.
// ExpectStatus, when set, makes the update conditional on the stored status.
type LoanPatch struct {
	ExpectStatus        *LoanStatus
	Status              *LoanStatus
	ReturnedAt          *time.Time
	Fine                *int64
	FinePaid            *bool
	ReminderTwoDaysSent *bool
	ReminderOneDaySent  *bool
	UpdatedAt           time.Time
}

// ReturnPatch is the patch that persists a Return.
func (l *Loan) ReturnPatch() LoanPatch {
	expect := LoanIssued
	return LoanPatch{
		ExpectStatus: &expect,
		Status:       &l.Status,
		ReturnedAt:   l.ReturnedAt,
		Fine:         &l.Fine,
		UpdatedAt:    l.UpdatedAt,
	}
}

// FinePaidPatch is the patch that persists a PayFine.
func (l *Loan) FinePaidPatch() LoanPatch {
	paid := true
	return LoanPatch{FinePaid: &paid, UpdatedAt: l.UpdatedAt}
}

// ReminderPatch marks the reminder for offset as sent.
func ReminderPatch(offset ReminderOffset, now time.Time) LoanPatch {
	sent := true
	p := LoanPatch{UpdatedAt: now}
	switch offset {
	case ReminderTwoDays:
		p.ReminderTwoDaysSent = &sent
	case ReminderOneDay:
		p.ReminderOneDaySent = &sent
	}
	return p
}
