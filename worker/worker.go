// Package worker runs long-lived background jobs next to the bot.
package worker

import (
	"context"
)

// Worker is a background job managed by Manager.
type Worker interface {
	// Start blocks until the worker is stopped or ctx is done.
	Start(ctx context.Context) error

	Stop() error

	Name() string
}
