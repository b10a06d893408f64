package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/elibrary/elibrary-server/internal/domain"
)

var userColumns = []any{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	CreatedAt    dbTime `db:"created_at"`
	UpdatedAt    dbTime `db:"updated_at"`
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

// CreateUser inserts a user. A taken email yields store.ErrDuplicateEmail.
func (c *conn) CreateUser(ctx context.Context, user *domain.User) error {
	rec := goqu.Record{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          string(user.Role),
		"created_at":    c.timeValue(user.CreatedAt),
		"updated_at":    c.timeValue(user.UpdatedAt),
	}
	if _, err := c.exec(ctx, c.dialect.Insert(tableUsers).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("insert user: %w", translateError(err))
	}
	return nil
}

// GetUser retrieves a user by ID.
func (c *conn) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return c.getUserWhere(ctx, goqu.Ex{"id": id})
}

// GetUserByEmail retrieves a user by normalized email.
func (c *conn) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return c.getUserWhere(ctx, goqu.Ex{"email": email})
}

func (c *conn) getUserWhere(ctx context.Context, where goqu.Ex) (*domain.User, error) {
	var row userRow
	ds := c.dialect.From(tableUsers).Select(userColumns...).Where(where).Prepared(true)
	if err := c.get(ctx, &row, ds); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// ListUsers returns all users, newest first.
func (c *conn) ListUsers(ctx context.Context) ([]*domain.User, error) {
	ds := c.dialect.From(tableUsers).
		Select(userColumns...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Prepared(true)

	var rows []userRow
	if err := c.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*domain.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toDomain()
	}
	return users, nil
}

// CountAdmins returns the number of admin accounts.
func (c *conn) CountAdmins(ctx context.Context) (int, error) {
	var n int
	ds := c.dialect.From(tableUsers).
		Select(goqu.COUNT("*")).
		Where(goqu.C("role").Eq(string(domain.RoleAdmin))).
		Prepared(true)
	if err := c.get(ctx, &n, ds); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
