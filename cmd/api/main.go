// Command api runs the eLibrary lending server: the HTTP API plus the nightly
// due-date reminder job.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/di"
	"github.com/elibrary/elibrary-server/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	injector := di.NewContainer()
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "eLibrary server failed to start: %v\n", err)
		return 1
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Signal received, draining requests and stopping the reminder job")

	// do.Shutdownable handles close in reverse dependency order.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown incomplete", "error", err)
		return 1
	}

	log.Info("Server stopped")
	return 0
}
