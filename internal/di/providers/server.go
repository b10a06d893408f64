package providers

import (
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/api"
	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/ratelimit"
	"github.com/elibrary/elibrary-server/internal/service"
)

// Auth endpoints allow a burst of 10 and refill at 20 per minute per client IP.
const (
	authRatePerMinute = 20
	authRateBurst     = 10
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	defer h.limiter.Stop()

	ctx, cancel := shutdownContext()
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the API and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:    do.MustInvoke[*service.AuthService](i),
		Catalog: do.MustInvoke[*service.CatalogService](i),
		Lending: do.MustInvoke[*service.LendingService](i),
		User:    do.MustInvoke[*service.UserService](i),
		Admin:   do.MustInvoke[*service.AdminService](i),
		Search:  indexHandle.BookIndex,
	}
	if n := do.MustInvoke[*NotifierHandle](i); n.Notifier != nil {
		services.Reminders = n.Notifier
	}

	limiter := api.NewRateLimiter(authRatePerMinute, time.Minute, authRateBurst)
	handler := api.NewServer(storeHandle.Store, services, api.Options{
		CORSOrigins:     cfg.Server.CORSOrigins,
		AuthRateLimiter: limiter,
	}, log.Component("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server stopped unexpectedly", "addr", srv.Addr)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, limiter: limiter}, nil
}
