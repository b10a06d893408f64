package domain

import (
	"testing"
	"time"

	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoan(t *testing.T) {
	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	loan := NewLoan("loan-1", "user-1", "book-1", now)

	assert.Equal(t, LoanIssued, loan.Status)
	assert.Equal(t, now, loan.IssuedAt)
	assert.Equal(t, now.Add(14*24*time.Hour), loan.DueAt)
	assert.Nil(t, loan.ReturnedAt)
	assert.Zero(t, loan.Fine)
	assert.False(t, loan.FinePaid)
	assert.False(t, loan.ReminderSent(ReminderTwoDays))
	assert.False(t, loan.ReminderSent(ReminderOneDay))
}

func TestLoan_ReturnTwice(t *testing.T) {
	now := time.Now()
	loan := NewLoan("loan-1", "user-1", "book-1", now)
	policy := FinePolicy{RatePerDay: 5}

	require.NoError(t, loan.Return(now.Add(time.Hour), policy))
	assert.Equal(t, LoanReturned, loan.Status)
	require.NotNil(t, loan.ReturnedAt)
	assert.Zero(t, loan.Fine)

	err := loan.Return(now.Add(2*time.Hour), policy)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)
	assert.Equal(t, now.Add(time.Hour), *loan.ReturnedAt)
}

func TestLoan_PayFine(t *testing.T) {
	now := time.Now()

	t.Run("no fine", func(t *testing.T) {
		loan := NewLoan("loan-1", "user-1", "book-1", now)
		require.NoError(t, loan.Return(now, FinePolicy{RatePerDay: 5}))
		assert.ErrorIs(t, loan.PayFine(now), domainerrors.ErrNoFine)
		assert.False(t, loan.FinePaid)
	})

	t.Run("pays once", func(t *testing.T) {
		loan := NewLoan("loan-2", "user-1", "book-1", now)
		require.NoError(t, loan.Return(loan.DueAt.Add(36*time.Hour), FinePolicy{RatePerDay: 5}))
		assert.Equal(t, int64(10), loan.Fine)

		require.NoError(t, loan.PayFine(now))
		assert.True(t, loan.FinePaid)
		assert.ErrorIs(t, loan.PayFine(now), domainerrors.ErrAlreadyPaid)
	})
}

func TestReminderPatch(t *testing.T) {
	now := time.Now()

	two := ReminderPatch(ReminderTwoDays, now)
	require.NotNil(t, two.ReminderTwoDaysSent)
	assert.True(t, *two.ReminderTwoDaysSent)
	assert.Nil(t, two.ReminderOneDaySent)

	one := ReminderPatch(ReminderOneDay, now)
	require.NotNil(t, one.ReminderOneDaySent)
	assert.Nil(t, one.ReminderTwoDaysSent)
}

func TestLoan_ReturnPatch(t *testing.T) {
	now := time.Now()
	loan := NewLoan("loan-1", "user-1", "book-1", now)
	require.NoError(t, loan.Return(now, FinePolicy{RatePerDay: 5}))

	patch := loan.ReturnPatch()
	require.NotNil(t, patch.ExpectStatus)
	assert.Equal(t, LoanIssued, *patch.ExpectStatus)
	assert.Equal(t, LoanReturned, *patch.Status)
	assert.Equal(t, loan.ReturnedAt, patch.ReturnedAt)
}
