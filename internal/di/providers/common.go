package providers

import (
	"context"
	"time"
)

const (
	// startupTimeout bounds opening the database and applying the schema.
	startupTimeout = 15 * time.Second

	// shutdownTimeout bounds draining HTTP requests and the reminder sweep.
	shutdownTimeout = 30 * time.Second
)

func startupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), startupTimeout)
}

func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}
