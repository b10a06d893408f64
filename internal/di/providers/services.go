package providers

import (
	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	clock := do.MustInvoke[clockwork.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, clock, log.Component("auth")), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	clock := do.MustInvoke[clockwork.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Store, indexHandle.BookIndex, clock, log.Component("catalog")), nil
}

// ProvideLendingService provides the lending service.
func ProvideLendingService(i do.Injector) (*service.LendingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clock := do.MustInvoke[clockwork.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	policy := domain.FinePolicy{RatePerDay: cfg.Lending.FineRatePerDay}
	log.Info("Lending policy loaded",
		"loan_period", domain.LoanPeriod,
		"fine_rate_per_day", policy.RatePerDay,
		"currency", cfg.Lending.Currency,
	)

	return service.NewLendingService(storeHandle.Store, clock, policy, log.Component("lending")), nil
}

// ProvideUserService provides the user directory service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, log.Component("users")), nil
}

// ProvideAdminService provides the admin operations service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	notifierHandle := do.MustInvoke[*NotifierHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	// A disabled notifier must reach the service as a nil interface.
	var sweeper service.ReminderSweeper
	if notifierHandle.Notifier != nil {
		sweeper = notifierHandle.Notifier
	}

	return service.NewAdminService(sweeper, log.Component("admin")), nil
}
