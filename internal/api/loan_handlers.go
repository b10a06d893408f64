package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/service"
)

func (s *Server) registerLoanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "borrowBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/loans",
		Summary:       "Borrow a book",
		Description:   "Issues one copy of a book to the caller for 14 days",
		Tags:          []string{"Loans"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleBorrow)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyActiveLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/active",
		Summary:     "My active loans",
		Description: "Lists the caller's open loans with their books",
		Tags:        []string{"Loans"},
		Security:    bearer,
	}, s.handleActiveLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLoan",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/{id}",
		Summary:     "Get loan",
		Description: "Returns a loan owned by the caller, or any loan for admins",
		Tags:        []string{"Loans"},
		Security:    bearer,
	}, s.handleGetLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnLoan",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/{id}/return",
		Summary:     "Return a book",
		Description: "Closes the loan, computes the late fine and puts the copy back on the shelf",
		Tags:        []string{"Loans"},
		Security:    bearer,
	}, s.handleReturn)

	huma.Register(s.api, huma.Operation{
		OperationID: "payFine",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/{id}/pay-fine",
		Summary:     "Pay fine",
		Description: "Marks the fine of a returned loan as paid",
		Tags:        []string{"Loans"},
		Security:    bearer,
	}, s.handlePayFine)

	huma.Register(s.api, huma.Operation{
		OperationID: "listLoanEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/{id}/events",
		Summary:     "Loan audit trail",
		Description: "Lists every recorded transition of a loan, oldest first",
		Tags:        []string{"Loans"},
		Security:    bearer,
	}, s.handleLoanEvents)
}

// === DTOs ===

// BorrowRequest is the request body for borrowing.
type BorrowRequest struct {
	BookID string `json:"book_id" minLength:"1" doc:"Book to borrow"`
}

// BorrowInput wraps the borrow request for Huma.
type BorrowInput struct {
	Body BorrowRequest
}

// LoanPathInput identifies a loan in the path.
type LoanPathInput struct {
	ID string `path:"id" doc:"Loan ID"`
}

// BorrowOutput returns the new loan and its due date.
type BorrowOutput struct {
	Body *service.BorrowResult
}

// ReturnOutput returns the closed loan and its fine.
type ReturnOutput struct {
	Body *service.ReturnResult
}

// LoanResponse wraps a single loan.
type LoanResponse struct {
	Loan *domain.Loan `json:"loan" doc:"Loan"`
}

// LoanOutput wraps a loan for Huma.
type LoanOutput struct {
	Body LoanResponse
}

// LoanDetailOutput wraps a loan and its book for Huma.
type LoanDetailOutput struct {
	Body *service.LoanWithBook
}

// LoanListResponse is a list of loans with their books.
type LoanListResponse struct {
	Loans []*service.LoanWithBook `json:"loans" doc:"Loans with their books"`
}

// LoanListOutput wraps a loan list for Huma.
type LoanListOutput struct {
	Body LoanListResponse
}

// LoanEventsResponse is a loan's audit trail.
type LoanEventsResponse struct {
	Events []*domain.LoanEvent `json:"events" doc:"Transitions, oldest first"`
}

// LoanEventsOutput wraps the audit trail for Huma.
type LoanEventsOutput struct {
	Body LoanEventsResponse
}

// === Handlers ===

func (s *Server) handleBorrow(ctx context.Context, input *BorrowInput) (*BorrowOutput, error) {
	res, err := s.services.Lending.Borrow(ctx, ActorFrom(ctx), input.Body.BookID)
	if err != nil {
		return nil, err
	}
	return &BorrowOutput{Body: res}, nil
}

func (s *Server) handleActiveLoans(ctx context.Context, _ *struct{}) (*LoanListOutput, error) {
	loans, err := s.services.Lending.ActiveLoans(ctx, ActorFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &LoanListOutput{Body: LoanListResponse{Loans: loans}}, nil
}

func (s *Server) handleGetLoan(ctx context.Context, input *LoanPathInput) (*LoanDetailOutput, error) {
	loan, err := s.services.Lending.GetLoan(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanDetailOutput{Body: loan}, nil
}

func (s *Server) handleReturn(ctx context.Context, input *LoanPathInput) (*ReturnOutput, error) {
	res, err := s.services.Lending.Return(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &ReturnOutput{Body: res}, nil
}

func (s *Server) handlePayFine(ctx context.Context, input *LoanPathInput) (*LoanOutput, error) {
	loan, err := s.services.Lending.PayFine(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: LoanResponse{Loan: loan}}, nil
}

func (s *Server) handleLoanEvents(ctx context.Context, input *LoanPathInput) (*LoanEventsOutput, error) {
	events, err := s.services.Lending.LoanEvents(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanEventsOutput{Body: LoanEventsResponse{Events: events}}, nil
}
