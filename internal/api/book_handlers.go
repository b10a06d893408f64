package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Lists the catalog newest first, or searches it when q is given",
		Tags:        []string{"Books"},
		Security:    bearer,
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a single catalog entry",
		Tags:        []string{"Books"},
		Security:    bearer,
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a title to the catalog with every copy available (admin only)",
		Tags:          []string{"Books"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Replaces a book's metadata and quantity (admin only)",
		Tags:        []string{"Books"},
		Security:    bearer,
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Removes a book with no copies on loan (admin only)",
		Tags:          []string{"Books"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "adjustBookAvailability",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/availability",
		Summary:     "Adjust availability",
		Description: "Moves the available counter by delta within [0, quantity minus copies on loan] (admin only)",
		Tags:        []string{"Books"},
		Security:    bearer,
	}, s.handleAdjustAvailability)
}

// === DTOs ===

// ListBooksInput contains parameters for listing and searching books.
type ListBooksInput struct {
	Query  string `query:"q" maxLength:"200" doc:"Full-text search over title, author, description and ISBN"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Items per page"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Items to skip"`
}

// BookListResponse is one page of the catalog.
type BookListResponse struct {
	Books  []*domain.Book `json:"books" doc:"Books on this page"`
	Total  int            `json:"total" doc:"Total matching books"`
	Limit  int            `json:"limit" doc:"Requested page size"`
	Offset int            `json:"offset" doc:"Requested offset"`
}

// BookListOutput wraps the book list for Huma.
type BookListOutput struct {
	Body BookListResponse
}

// BookPathInput identifies a book in the path.
type BookPathInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookRequest is the request body for creating or replacing a book.
type BookRequest struct {
	Title       string `json:"title" minLength:"1" maxLength:"500" doc:"Title"`
	Author      string `json:"author" minLength:"1" maxLength:"300" doc:"Author"`
	Description string `json:"description,omitempty" maxLength:"10000" doc:"Description"`
	CoverURL    string `json:"cover_url,omitempty" maxLength:"2048" doc:"Cover image URL; a placeholder is used when empty"`
	ISBN        string `json:"isbn" minLength:"1" maxLength:"32" doc:"ISBN-10 or ISBN-13, hyphens allowed"`
	Quantity    int    `json:"quantity" minimum:"0" doc:"Copies owned"`
}

func (r BookRequest) toService() service.BookRequest {
	return service.BookRequest{
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
		CoverURL:    r.CoverURL,
		ISBN:        r.ISBN,
		Quantity:    r.Quantity,
	}
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body BookRequest
}

// UpdateBookInput wraps the update request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookRequest
}

// AdjustAvailabilityInput moves the available counter.
type AdjustAvailabilityInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		Delta int `json:"delta" doc:"Signed change to the available counter"`
	}
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookListOutput, error) {
	list, err := s.services.Catalog.ListBooks(ctx, ActorFrom(ctx), service.ListBooksParams{
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &BookListOutput{
		Body: BookListResponse{
			Books:  list.Books,
			Total:  list.Total,
			Limit:  input.Limit,
			Offset: input.Offset,
		},
	}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookPathInput) (*BookOutput, error) {
	book, err := s.services.Catalog.GetBook(ctx, ActorFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.CreateBook(ctx, ActorFrom(ctx), input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.UpdateBook(ctx, ActorFrom(ctx), input.ID, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookPathInput) (*struct{}, error) {
	if err := s.services.Catalog.DeleteBook(ctx, ActorFrom(ctx), input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleAdjustAvailability(ctx context.Context, input *AdjustAvailabilityInput) (*BookOutput, error) {
	book, err := s.services.Catalog.AdjustAvailability(ctx, ActorFrom(ctx), input.ID, input.Body.Delta)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}
