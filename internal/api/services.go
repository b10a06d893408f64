package api

import (
	"time"

	"github.com/elibrary/elibrary-server/internal/notify"
	"github.com/elibrary/elibrary-server/internal/search"
	"github.com/elibrary/elibrary-server/internal/service"
)

// ReminderStatus reports on the due-date notifier for health checks.
type ReminderStatus interface {
	LastSweep() (at time.Time, result notify.SweepResult, ok bool)
}

// Services groups the services behind the API routes.
type Services struct {
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Lending *service.LendingService
	User    *service.UserService
	Admin   *service.AdminService

	// Health reporting only. Either may be nil.
	Search    *search.BookIndex
	Reminders ReminderStatus
}
