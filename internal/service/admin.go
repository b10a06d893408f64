package service

import (
	"context"
	"log/slog"

	"github.com/elibrary/elibrary-server/internal/auth"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
	"github.com/elibrary/elibrary-server/internal/notify"
)

// ReminderSweeper runs one due-date reminder sweep.
type ReminderSweeper interface {
	Sweep(ctx context.Context) (notify.SweepResult, error)
}

// AdminService holds operator actions that are not part of the catalog or the ledger.
type AdminService struct {
	sweeper ReminderSweeper
	logger  *slog.Logger
}

// NewAdminService creates an admin service. A nil sweeper disables on-demand sweeps.
func NewAdminService(sweeper ReminderSweeper, logger *slog.Logger) *AdminService {
	return &AdminService{sweeper: sweeper, logger: orDiscard(logger)}
}

// RunReminderSweep runs a reminder sweep now. It waits for a sweep already in
// progress to finish first.
func (s *AdminService) RunReminderSweep(ctx context.Context, actor auth.Actor) (notify.SweepResult, error) {
	if err := authorize(actor, auth.Notifier()); err != nil {
		return notify.SweepResult{}, err
	}
	if s.sweeper == nil {
		return notify.SweepResult{}, domainerrors.InvalidState("the reminder notifier is disabled")
	}

	s.logger.Info("manual reminder sweep requested", "user_id", actor.UserID)
	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return res, logInternal(s.logger, domainerrors.Internal("reminder sweep failed").WithCause(err), "manual reminder sweep failed")
	}
	return res, nil
}
