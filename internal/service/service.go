// Package service holds the lending application's use cases. Every exported
// operation takes the calling auth.Actor, checks auth.CanAccess once, and
// reports failures as typed domain errors.
package service

import (
	"errors"
	"log/slog"

	"github.com/elibrary/elibrary-server/internal/auth"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/store"
	"github.com/elibrary/elibrary-server/internal/validation"
)

// validate is shared by every service; validator/v10 caches struct metadata.
var validate = validation.New()

// authorize checks the access policy and returns the matching domain error.
func authorize(actor auth.Actor, res auth.Resource) error {
	if actor.UserID == "" {
		return domainerrors.Unauthorized("authentication required")
	}
	if !auth.CanAccess(actor, res) {
		return domainerrors.Forbidden("you do not have access to this resource")
	}
	return nil
}

// translateStoreError maps storage failures onto the domain taxonomy.
// what names the entity for NotFound messages ("book", "loan").
// Errors that are already domain errors pass through unchanged.
func translateStoreError(err error, what string) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(what + " not found")
	case errors.Is(err, store.ErrDuplicateISBN):
		return domainerrors.ValidationWithDetails("isbn must be unique",
			map[string]string{"isbn": "is already in the catalog"})
	case errors.Is(err, store.ErrDuplicateEmail):
		return domainerrors.AlreadyExists("email is already registered")
	case errors.Is(err, store.ErrActiveLoanExists):
		return domainerrors.Conflict("you already have an active loan for this book")
	case errors.Is(err, store.ErrAvailabilityRange):
		return domainerrors.InvalidState("availability would leave the range [0, quantity]")
	case errors.Is(err, store.ErrPreconditionFailed):
		return domainerrors.InvalidState(what + " changed concurrently")
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists(what + " already exists")
	default:
		return domainerrors.Internal("storage failure").WithCause(err)
	}
}

// logInternal logs err when it is an internal failure, then returns it.
func logInternal(log *slog.Logger, err error, msg string, args ...any) error {
	if errors.Is(err, domainerrors.ErrInternal) {
		log.Error(msg, append(args, "error", err)...)
	}
	return err
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return logger.Discard()
	}
	return log
}

// timeLayout renders timestamps in responses.
const timeLayout = "2006-01-02T15:04:05Z07:00"

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, domainerrors.ErrNotFound)
}

func isAvailabilityRange(err error) bool {
	return errors.Is(err, store.ErrAvailabilityRange)
}

func isPreconditionFailed(err error) bool {
	return errors.Is(err, store.ErrPreconditionFailed)
}
