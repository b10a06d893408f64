package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/search"
	"github.com/elibrary/elibrary-server/internal/store/sqlstore"
)

// testEnv wires the services over a temporary SQLite database and a fake clock.
type testEnv struct {
	store   *sqlstore.Store
	clock   *clockwork.FakeClock
	index   *search.BookIndex
	catalog *CatalogService
	lending *LendingService
	users   *UserService

	admin auth.Actor
	alice auth.Actor
	bob   auth.Actor
}

var testStart = time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := search.NewBookIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	clock := clockwork.NewFakeClockAt(testStart)

	env := &testEnv{
		store:   s,
		clock:   clock,
		index:   index,
		catalog: NewCatalogService(s, index, clock, nil),
		lending: NewLendingService(s, clock, domain.FinePolicy{RatePerDay: 5}, nil),
		users:   NewUserService(s, nil),
	}
	env.admin = env.seedUser(t, "user-admin", domain.RoleAdmin)
	env.alice = env.seedUser(t, "user-alice", domain.RoleUser)
	env.bob = env.seedUser(t, "user-bob", domain.RoleUser)
	return env
}

func (e *testEnv) seedUser(t *testing.T, userID string, role domain.Role) auth.Actor {
	t.Helper()
	u := &domain.User{
		ID:           userID,
		Name:         userID,
		Email:        userID + "@example.com",
		PasswordHash: "unused",
		Role:         role,
		CreatedAt:    e.clock.Now(),
		UpdatedAt:    e.clock.Now(),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return auth.Actor{UserID: u.ID, Role: u.Role}
}

func (e *testEnv) createBook(t *testing.T, title, isbn string, quantity int) *domain.Book {
	t.Helper()
	book, err := e.catalog.CreateBook(context.Background(), e.admin, BookRequest{
		Title:    title,
		Author:   "Test Author",
		ISBN:     isbn,
		Quantity: quantity,
	})
	require.NoError(t, err)
	return book
}

func (e *testEnv) book(t *testing.T, bookID string) *domain.Book {
	t.Helper()
	b, err := e.store.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return b
}
