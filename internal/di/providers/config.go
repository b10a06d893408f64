// Package providers contains dependency injection providers for the eLibrary server.
package providers

import (
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/logger"
)

// ProvideConfig reads flags, environment and defaults in that order.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig(os.Args[1:])
}

// ProvideLogger builds the root logger and records the effective settings.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting eLibrary Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"database_driver", cfg.Database.Driver,
		"fine_rate_per_day", cfg.Lending.FineRatePerDay,
		"reminders", cfg.Notifier.Enabled,
	)

	return log, nil
}

// ProvideClock provides the wall clock shared by every time-dependent component.
func ProvideClock(i do.Injector) (clockwork.Clock, error) {
	return clockwork.NewRealClock(), nil
}
