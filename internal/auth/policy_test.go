package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elibrary/elibrary-server/internal/domain"
)

func TestCanAccess(t *testing.T) {
	admin := Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	alice := Actor{UserID: "user-alice", Role: domain.RoleUser}
	bob := Actor{UserID: "user-bob", Role: domain.RoleUser}
	anonymous := Actor{}

	tests := []struct {
		name  string
		actor Actor
		res   Resource
		want  bool
	}{
		{"anyone signed in reads the catalog", bob, CatalogRead(), true},
		{"anonymous reads nothing", anonymous, CatalogRead(), false},
		{"admin edits the catalog", admin, CatalogWrite(), true},
		{"user cannot edit the catalog", alice, CatalogWrite(), false},
		{"user borrows", alice, CatalogBorrow(), true},
		{"admin does not borrow", admin, CatalogBorrow(), false},
		{"owner returns own loan", alice, Loan(alice.UserID, ActionWrite), true},
		{"other user cannot return loan", bob, Loan(alice.UserID, ActionWrite), false},
		{"admin returns any loan", admin, Loan(alice.UserID, ActionWrite), true},
		{"owner reads own history", alice, UserRecords(alice.UserID), true},
		{"other user cannot read history", bob, UserRecords(alice.UserID), false},
		{"admin reads any history", admin, UserRecords(alice.UserID), true},
		{"only admin lists users", alice, UserDirectory(), false},
		{"admin lists users", admin, UserDirectory(), true},
		{"only admin triggers reminders", bob, Notifier(), false},
		{"admin triggers reminders", admin, Notifier(), true},
		{"unknown kind is denied", admin, Resource{Kind: ResourceKind(99)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.actor, tt.res))
		})
	}
}
