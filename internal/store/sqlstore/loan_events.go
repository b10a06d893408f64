package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/elibrary/elibrary-server/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var loanEventColumns = []any{"id", "loan_id", "type", "actor_id", "occurred_at", "payload"}

type loanEventRow struct {
	ID         string `db:"id"`
	LoanID     string `db:"loan_id"`
	Type       string `db:"type"`
	ActorID    string `db:"actor_id"`
	OccurredAt dbTime `db:"occurred_at"`
	Payload    []byte `db:"payload"`
}

// AppendLoanEvent records a loan transition. A missing ID gets a time-ordered UUID.
func (c *conn) AppendLoanEvent(ctx context.Context, event *domain.LoanEvent) error {
	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}
		event.ID = id.String()
	}

	payload := []byte("{}")
	if len(event.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(event.Payload); err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
	}

	rec := goqu.Record{
		"id":          event.ID,
		"loan_id":     event.LoanID,
		"type":        string(event.Type),
		"actor_id":    event.ActorID,
		"occurred_at": c.timeValue(event.OccurredAt),
		"payload":     string(payload),
	}
	if _, err := c.exec(ctx, c.dialect.Insert(tableLoanEvents).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("insert loan event: %w", translateError(err))
	}
	return nil
}

// ListLoanEvents returns a loan's audit trail oldest first.
func (c *conn) ListLoanEvents(ctx context.Context, loanID string) ([]*domain.LoanEvent, error) {
	ds := c.dialect.From(tableLoanEvents).
		Select(loanEventColumns...).
		Where(goqu.C("loan_id").Eq(loanID)).
		Order(goqu.C("occurred_at").Asc(), goqu.C("id").Asc()).
		Prepared(true)

	var rows []loanEventRow
	if err := c.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list loan events: %w", err)
	}

	events := make([]*domain.LoanEvent, len(rows))
	for i, r := range rows {
		ev := &domain.LoanEvent{
			ID:         r.ID,
			LoanID:     r.LoanID,
			Type:       domain.LoanEventType(r.Type),
			ActorID:    r.ActorID,
			OccurredAt: r.OccurredAt.Time,
		}
		if len(r.Payload) > 0 {
			if err := json.Unmarshal(r.Payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of event %s: %w", r.ID, err)
			}
		}
		events[i] = ev
	}
	return events, nil
}
