package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/elibrary/elibrary-server/internal/notify"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAllActiveLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/loans/active",
		Summary:     "All active loans",
		Description: "Lists every open loan, soonest due first (admin only)",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAllActiveLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "runReminderSweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/notifier/sweep",
		Summary:     "Run reminder sweep",
		Description: "Sends any due-date reminders owed right now (admin only)",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleReminderSweep)
}

// SweepOutput wraps the sweep summary for Huma.
type SweepOutput struct {
	Body notify.SweepResult
}

func (s *Server) handleAllActiveLoans(ctx context.Context, _ *struct{}) (*LoanListOutput, error) {
	loans, err := s.services.Lending.AllActiveLoans(ctx, ActorFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &LoanListOutput{Body: LoanListResponse{Loans: loans}}, nil
}

func (s *Server) handleReminderSweep(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
	res, err := s.services.Admin.RunReminderSweep(ctx, ActorFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &SweepOutput{Body: res}, nil
}
