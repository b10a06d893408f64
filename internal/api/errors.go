package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
)

// codeRateLimited is only produced by the HTTP layer.
const codeRateLimited = "RATE_LIMITED"

// APIError is the error body every endpoint returns. It satisfies huma.StatusError.
type APIError struct { //nolint:revive // exported name matches the wire contract
	status  int
	Success bool   `json:"success" doc:"Always false for errors"`
	Message string `json:"error" doc:"Human-readable error message"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler replaces huma.NewError so service errors keep their code
// and status. It must run before any operation is registered.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}
		}

		// Request validation done by huma itself reports 422 with per-field details.
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
			return &APIError{
				status:  http.StatusBadRequest,
				Code:    string(domainerrors.CodeValidation),
				Message: message,
				Details: fieldDetails(errs),
			}
		}

		return &APIError{
			status:  status,
			Code:    codeForStatus(status),
			Message: message,
		}
	}
}

// fieldDetails flattens huma's validation errors into location -> message.
func fieldDetails(errs []error) map[string]string {
	details := make(map[string]string)
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			details[detail.Location] = detail.Message
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

var statusCodes = map[int]string{
	http.StatusBadRequest:          string(domainerrors.CodeValidation),
	http.StatusUnprocessableEntity: string(domainerrors.CodeValidation),
	http.StatusUnauthorized:        string(domainerrors.CodeUnauthorized),
	http.StatusForbidden:           string(domainerrors.CodeForbidden),
	http.StatusNotFound:            string(domainerrors.CodeNotFound),
	http.StatusMethodNotAllowed:    string(domainerrors.CodeNotFound),
	http.StatusConflict:            string(domainerrors.CodeConflict),
	http.StatusTooManyRequests:     codeRateLimited,
}

// codeForStatus names errors that never passed through the service layer.
func codeForStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return string(domainerrors.CodeInternal)
}
