package domain

import "time"

// LoanEventType names a recorded loan transition.
type LoanEventType string

const (
	LoanEventBorrowed     LoanEventType = "loan.borrowed"
	LoanEventReturned     LoanEventType = "loan.returned"
	LoanEventFinePaid     LoanEventType = "loan.fine_paid"
	LoanEventReminderSent LoanEventType = "loan.reminder_sent"
)

// LoanEvent is an append-only audit record written in the same transaction as the change it describes.
type LoanEvent struct {
	ID         string         `json:"id"`
	LoanID     string         `json:"loan_id"`
	Type       LoanEventType  `json:"type"`
	ActorID    string         `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}
