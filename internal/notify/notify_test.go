package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/store"
)

// memStore is an in-memory Store for sweep tests.
type memStore struct {
	mu     sync.Mutex
	loans  map[string]*domain.Loan
	books  map[string]*domain.Book
	users  map[string]*domain.User
	events []*domain.LoanEvent
}

func newMemStore() *memStore {
	return &memStore{
		loans: map[string]*domain.Loan{},
		books: map[string]*domain.Book{
			"book-dune": {ID: "book-dune", Title: "Dune", Author: "Frank Herbert"},
		},
		users: map[string]*domain.User{
			"user-alice": {ID: "user-alice", Name: "Alice", Email: "alice@example.com"},
		},
	}
}

func (m *memStore) ListActiveLoans(context.Context) ([]*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Loan
	for _, l := range m.loans {
		if l.IsActive() {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) GetBooksByIDs(_ context.Context, ids []string) (map[string]*domain.Book, error) {
	out := map[string]*domain.Book{}
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpdateLoan(_ context.Context, id string, patch domain.LoanPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return store.ErrNotFound
	}
	if patch.ReminderTwoDaysSent != nil {
		l.ReminderTwoDaysSent = *patch.ReminderTwoDaysSent
	}
	if patch.ReminderOneDaySent != nil {
		l.ReminderOneDaySent = *patch.ReminderOneDaySent
	}
	return nil
}

func (m *memStore) AppendLoanEvent(_ context.Context, e *domain.LoanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memStore) addLoan(id string, due time.Time) *domain.Loan {
	l := &domain.Loan{
		ID:         id,
		BorrowerID: "user-alice",
		BookID:     "book-dune",
		IssuedAt:   due.Add(-domain.LoanPeriod),
		DueAt:      due,
		Status:     domain.LoanIssued,
	}
	m.loans[id] = l
	return l
}

// fakeSender records reminders and fails for loans listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []Reminder
	failFor map[string]bool
	onSend  func(Reminder)
}

func (f *fakeSender) SendReminder(_ context.Context, r Reminder) error {
	if f.onSend != nil {
		f.onSend(r)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[r.LoanID] {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, r)
	return nil
}

var sweepNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func TestNotifier_TwoDayReminderIsIdempotent(t *testing.T) {
	st := newMemStore()
	st.addLoan("loan-1", sweepNow.Add(2*domain.Day))
	sender := &fakeSender{}
	n := New(st, sender, clockwork.NewFakeClockAt(sweepNow), nil)

	res, err := n.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Checked: 1, Sent: 1}, res)

	require.Len(t, sender.sent, 1)
	r := sender.sent[0]
	assert.Equal(t, 2, r.DaysLeft)
	assert.Equal(t, "alice@example.com", r.BorrowerEmail)
	assert.Equal(t, "Dune", r.BookTitle)
	assert.Equal(t, "Frank Herbert", r.BookAuthor)
	assert.True(t, st.loans["loan-1"].ReminderTwoDaysSent)
	assert.False(t, st.loans["loan-1"].ReminderOneDaySent)

	res, err = n.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Len(t, sender.sent, 1, "no duplicate send")

	require.Len(t, st.events, 1)
	assert.Equal(t, domain.LoanEventReminderSent, st.events[0].Type)
}

func TestNotifier_OneDayReminderOnly(t *testing.T) {
	st := newMemStore()
	loan := st.addLoan("loan-1", sweepNow.Add(domain.Day))
	loan.ReminderTwoDaysSent = true
	sender := &fakeSender{}
	n := New(st, sender, clockwork.NewFakeClockAt(sweepNow), nil)

	_, err := n.Sweep(context.Background())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, 1, sender.sent[0].DaysLeft)
	assert.True(t, st.loans["loan-1"].ReminderOneDaySent)
}

func TestNotifier_DaysLeftMatching(t *testing.T) {
	tests := []struct {
		name     string
		due      time.Duration // from now
		wantDays int           // 0 means no reminder
	}{
		{"three days out", 3 * domain.Day, 0},
		{"just over two days rounds up to three", 2*domain.Day + time.Minute, 0},
		{"just over one day rounds up to two", domain.Day + time.Hour, 2},
		{"exactly one day", domain.Day, 1},
		{"a few hours out rounds up to one", 5 * time.Hour, 1},
		{"due now", 0, 0},
		{"overdue", -domain.Day, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMemStore()
			st.addLoan("loan-1", sweepNow.Add(tt.due))
			sender := &fakeSender{}
			n := New(st, sender, clockwork.NewFakeClockAt(sweepNow), nil)

			_, err := n.Sweep(context.Background())
			require.NoError(t, err)

			if tt.wantDays == 0 {
				assert.Empty(t, sender.sent)
				return
			}
			require.Len(t, sender.sent, 1)
			assert.Equal(t, tt.wantDays, sender.sent[0].DaysLeft)
		})
	}
}

func TestNotifier_FailedSendLeavesFlagUnset(t *testing.T) {
	st := newMemStore()
	st.addLoan("loan-bad", sweepNow.Add(2*domain.Day))
	st.addLoan("loan-good", sweepNow.Add(2*domain.Day))
	sender := &fakeSender{failFor: map[string]bool{"loan-bad": true}}
	n := New(st, sender, clockwork.NewFakeClockAt(sweepNow), nil)

	res, err := n.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Checked: 2, Sent: 1, Failed: 1}, res)

	assert.False(t, st.loans["loan-bad"].ReminderTwoDaysSent)
	assert.True(t, st.loans["loan-good"].ReminderTwoDaysSent)

	// A later sweep on the same day retries the failed one.
	sender.failFor = nil
	res, err = n.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.True(t, st.loans["loan-bad"].ReminderTwoDaysSent)
}

func TestNotifier_MissingBorrowerCountsAsFailure(t *testing.T) {
	st := newMemStore()
	loan := st.addLoan("loan-1", sweepNow.Add(domain.Day))
	loan.BorrowerID = "user-gone"
	sender := &fakeSender{}
	n := New(st, sender, clockwork.NewFakeClockAt(sweepNow), nil)

	res, err := n.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, sender.sent)
}

func TestNotifier_CancellationStopsBetweenLoans(t *testing.T) {
	st := newMemStore()
	st.addLoan("loan-1", sweepNow.Add(2*domain.Day))
	st.addLoan("loan-2", sweepNow.Add(domain.Day))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := &fakeSender{onSend: func(Reminder) { cancel() }}
	n := New(st, sender, clockwork.NewFakeClockAt(sweepNow), nil)

	res, err := n.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Sent)

	// The in-flight send completed together with its flag.
	require.Len(t, sender.sent, 1)
	sentLoan := st.loans[sender.sent[0].LoanID]
	assert.True(t, sentLoan.ReminderSent(domain.ReminderOffset(sender.sent[0].DaysLeft)))
}

func TestNotifier_ReturnedLoansAreIgnored(t *testing.T) {
	st := newMemStore()
	loan := st.addLoan("loan-1", sweepNow.Add(2*domain.Day))
	loan.Status = domain.LoanReturned
	sender := &fakeSender{}
	n := New(st, sender, clockwork.NewFakeClockAt(sweepNow), nil)

	res, err := n.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
	assert.Empty(t, sender.sent)
}

func TestNotifier_LastSweep(t *testing.T) {
	st := newMemStore()
	st.addLoan("loan-1", sweepNow.Add(domain.Day))
	clock := clockwork.NewFakeClockAt(sweepNow)
	n := New(st, &fakeSender{failFor: map[string]bool{"loan-1": true}}, clock, nil)

	_, _, ok := n.LastSweep()
	assert.False(t, ok)

	_, err := n.Sweep(context.Background())
	require.NoError(t, err)

	at, res, ok := n.LastSweep()
	require.True(t, ok)
	assert.Equal(t, sweepNow, at)
	assert.Equal(t, SweepResult{Checked: 1, Failed: 1}, res)
}
