package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/store"
)

var loanColumns = []any{
	"id", "borrower_id", "book_id", "issued_at", "due_at", "returned_at", "status",
	"fine", "fine_paid", "reminder_two_days_sent", "reminder_one_day_sent", "updated_at",
}

type loanRow struct {
	ID                  string     `db:"id"`
	BorrowerID          string     `db:"borrower_id"`
	BookID              string     `db:"book_id"`
	IssuedAt            dbTime     `db:"issued_at"`
	DueAt               dbTime     `db:"due_at"`
	ReturnedAt          dbNullTime `db:"returned_at"`
	Status              string     `db:"status"`
	Fine                int64      `db:"fine"`
	FinePaid            bool       `db:"fine_paid"`
	ReminderTwoDaysSent bool       `db:"reminder_two_days_sent"`
	ReminderOneDaySent  bool       `db:"reminder_one_day_sent"`
	UpdatedAt           dbTime     `db:"updated_at"`
}

func (r *loanRow) toDomain() *domain.Loan {
	return &domain.Loan{
		ID:                  r.ID,
		BorrowerID:          r.BorrowerID,
		BookID:              r.BookID,
		IssuedAt:            r.IssuedAt.Time,
		DueAt:               r.DueAt.Time,
		ReturnedAt:          r.ReturnedAt.ptr(),
		Status:              domain.LoanStatus(r.Status),
		Fine:                r.Fine,
		FinePaid:            r.FinePaid,
		ReminderTwoDaysSent: r.ReminderTwoDaysSent,
		ReminderOneDaySent:  r.ReminderOneDaySent,
		UpdatedAt:           r.UpdatedAt.Time,
	}
}

func loansToDomain(rows []loanRow) []*domain.Loan {
	loans := make([]*domain.Loan, len(rows))
	for i := range rows {
		loans[i] = rows[i].toDomain()
	}
	return loans
}

// CreateLoan inserts a loan. A second active loan for the same borrower and book
// is rejected by a partial unique index with store.ErrActiveLoanExists.
func (c *conn) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	rec := goqu.Record{
		"id":                     loan.ID,
		"borrower_id":            loan.BorrowerID,
		"book_id":                loan.BookID,
		"issued_at":              c.timeValue(loan.IssuedAt),
		"due_at":                 c.timeValue(loan.DueAt),
		"returned_at":            c.nullTimeValue(loan.ReturnedAt),
		"status":                 string(loan.Status),
		"fine":                   loan.Fine,
		"fine_paid":              loan.FinePaid,
		"reminder_two_days_sent": loan.ReminderTwoDaysSent,
		"reminder_one_day_sent":  loan.ReminderOneDaySent,
		"updated_at":             c.timeValue(loan.UpdatedAt),
	}

	if _, err := c.exec(ctx, c.dialect.Insert(tableLoans).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("insert loan: %w", translateError(err))
	}
	return nil
}

// GetLoan retrieves a loan by ID. Inside a PostgreSQL transaction the row stays locked.
func (c *conn) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	ds := c.dialect.From(tableLoans).Select(loanColumns...).Where(goqu.C("id").Eq(id)).Prepared(true)

	var row loanRow
	if err := c.get(ctx, &row, c.lockRows(ds)); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// FindActiveLoan returns the issued loan for a borrower and book, or store.ErrNotFound.
func (c *conn) FindActiveLoan(ctx context.Context, borrowerID, bookID string) (*domain.Loan, error) {
	ds := c.dialect.From(tableLoans).
		Select(loanColumns...).
		Where(goqu.Ex{
			"borrower_id": borrowerID,
			"book_id":     bookID,
			"status":      string(domain.LoanIssued),
		}).
		Prepared(true)

	var row loanRow
	if err := c.get(ctx, &row, ds); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// ListLoansByBorrower returns a borrower's loans, most recently issued first.
func (c *conn) ListLoansByBorrower(ctx context.Context, borrowerID string, filter store.LoanFilter) ([]*domain.Loan, error) {
	where := goqu.Ex{"borrower_id": borrowerID}
	if filter.ActiveOnly {
		where["status"] = string(domain.LoanIssued)
	}

	ds := c.dialect.From(tableLoans).
		Select(loanColumns...).
		Where(where).
		Order(goqu.C("issued_at").Desc(), goqu.C("id").Desc()).
		Prepared(true)

	var rows []loanRow
	if err := c.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list loans by borrower: %w", err)
	}
	return loansToDomain(rows), nil
}

// ListActiveLoans returns every issued loan, soonest due first.
func (c *conn) ListActiveLoans(ctx context.Context) ([]*domain.Loan, error) {
	ds := c.dialect.From(tableLoans).
		Select(loanColumns...).
		Where(goqu.C("status").Eq(string(domain.LoanIssued))).
		Order(goqu.C("due_at").Asc(), goqu.C("id").Asc()).
		Prepared(true)

	var rows []loanRow
	if err := c.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	return loansToDomain(rows), nil
}

// CountActiveLoansForBook returns how many copies of a book are out.
func (c *conn) CountActiveLoansForBook(ctx context.Context, bookID string) (int, error) {
	ds := c.dialect.From(tableLoans).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"book_id": bookID, "status": string(domain.LoanIssued)}).
		Prepared(true)

	var n int
	if err := c.get(ctx, &n, ds); err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return n, nil
}

// UpdateLoan applies the non-nil fields of patch.
func (c *conn) UpdateLoan(ctx context.Context, id string, patch domain.LoanPatch) error {
	rec := goqu.Record{"updated_at": c.timeValue(patch.UpdatedAt)}
	if patch.Status != nil {
		rec["status"] = string(*patch.Status)
	}
	if patch.ReturnedAt != nil {
		rec["returned_at"] = c.timeValue(*patch.ReturnedAt)
	}
	if patch.Fine != nil {
		rec["fine"] = *patch.Fine
	}
	if patch.FinePaid != nil {
		rec["fine_paid"] = *patch.FinePaid
	}
	if patch.ReminderTwoDaysSent != nil {
		rec["reminder_two_days_sent"] = *patch.ReminderTwoDaysSent
	}
	if patch.ReminderOneDaySent != nil {
		rec["reminder_one_day_sent"] = *patch.ReminderOneDaySent
	}

	where := goqu.Ex{"id": id}
	if patch.ExpectStatus != nil {
		where["status"] = string(*patch.ExpectStatus)
	}

	n, err := c.exec(ctx, c.dialect.Update(tableLoans).Set(rec).Where(where).Prepared(true))
	if err != nil {
		return fmt.Errorf("update loan: %w", translateError(err))
	}
	if n == 1 {
		return nil
	}

	if _, err := c.GetLoan(ctx, id); err != nil {
		return err
	}
	return store.ErrPreconditionFailed
}
