package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker runs fn every interval until stopped. Errors from fn are logged and do not stop it.
type Ticker struct {
	*BaseWorker
	interval time.Duration
	fn       func(ctx context.Context) error
}

func NewTicker(name string, interval time.Duration, fn func(ctx context.Context) error, logger *zap.Logger) *Ticker {
	return &Ticker{
		BaseWorker: NewBaseWorker(name, logger),
		interval:   interval,
		fn:         fn,
	}
}

func (t *Ticker) Start(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.StopChan():
			return nil
		case <-ticker.C:
			if err := t.fn(ctx); err != nil {
				t.Logger().Warn("Tick failed", zap.Error(err))
			}
		}
	}
}
