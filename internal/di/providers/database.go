package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/store/sqlstore"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlstore.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the database and applies the schema.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := startupContext()
	defer cancel()

	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}, log.Component("store"))
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == config.DriverPostgres {
		log.Info("Database initialized", "driver", cfg.Database.Driver)
	} else {
		log.Info("Database initialized", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	}

	return &StoreHandle{Store: db}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
