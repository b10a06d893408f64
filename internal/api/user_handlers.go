package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/elibrary/elibrary-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Description: "Lists every account, newest first (admin only)",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createAdmin",
		Method:        http.MethodPost,
		Path:          "/api/v1/users/create-admin",
		Summary:       "Create first admin",
		Description:   "Bootstraps the administrator account. Fails once any admin exists.",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   huma.Middlewares{s.rateLimitMiddleware},
	}, s.handleCreateAdmin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user",
		Description: "Returns an account (self or admin)",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserLoanHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/loans",
		Summary:     "Loan history",
		Description: "Lists every loan of a borrower, newest first (self or admin)",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleLoanHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserPendingReturns",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/pending-returns",
		Summary:     "Pending returns",
		Description: "Lists a borrower's open loans with their books (self or admin)",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handlePendingReturns)
}

// UserPathInput identifies a user in the path.
type UserPathInput struct {
	ID string `path:"id" doc:"User ID"`
}

// UserListResponse lists accounts.
type UserListResponse struct {
	Users []UserResponse `json:"users" doc:"Accounts, newest first"`
}

// UserListOutput wraps the user list for Huma.
type UserListOutput struct {
	Body UserListResponse
}

func (s *Server) handleListUsers(ctx context.Context, _ *struct{}) (*UserListOutput, error) {
	users, err := s.services.User.ListUsers(ctx, ActorFrom(ctx))
	if err != nil {
		return nil, err
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = mapUserResponse(u)
	}
	return &UserListOutput{Body: UserListResponse{Users: resp}}, nil
}

func (s *Server) handleCreateAdmin(ctx context.Context, input *RegisterInput) (*UserOutput, error) {
	admin, err := s.services.Auth.CreateAdmin(ctx, service.RegisterRequest{
		Name:     input.Body.Name,
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUserResponse(admin)}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *UserPathInput) (*UserOutput, error) {
	user, err := s.services.User.GetUser(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleLoanHistory(ctx context.Context, input *UserPathInput) (*LoanListOutput, error) {
	loans, err := s.services.Lending.LoanHistory(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanListOutput{Body: LoanListResponse{Loans: loans}}, nil
}

func (s *Server) handlePendingReturns(ctx context.Context, input *UserPathInput) (*LoanListOutput, error) {
	loans, err := s.services.Lending.PendingReturns(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanListOutput{Body: LoanListResponse{Loans: loans}}, nil
}
