package refresh

import (
	"context"
	"time"

	"go.uber.org/zap"

	"telegram-places-bot/places"
	"telegram-places-bot/worker"
)

// Reloader is a dataset that can be reloaded from its source.
type Reloader interface {
	Load(ctx context.Context) ([]places.Place, error)
}

// Subscriber delivers refresh notifications until ctx is done.
type Subscriber interface {
	Notifications(ctx context.Context) (<-chan Notification, error)
}

// Watcher reloads its datasets on every notification and every interval. A failed reload keeps
// the dataset's previous snapshot. Without a subscriber it reloads on the interval only.
type Watcher struct {
	*worker.BaseWorker
	datasets   []Reloader
	subscriber Subscriber
	interval   time.Duration
}

func NewWatcher(datasets []Reloader, subscriber Subscriber, interval time.Duration, logger *zap.Logger) *Watcher {
	return &Watcher{
		BaseWorker: worker.NewBaseWorker("refresh-watcher", logger),
		datasets:   datasets,
		subscriber: subscriber,
		interval:   interval,
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var notes <-chan Notification
	if w.subscriber != nil {
		ch, err := w.subscriber.Notifications(ctx)
		if err != nil {
			w.Logger().Warn("Refresh notifications unavailable, reloading on interval only", zap.Error(err))
		} else {
			notes = ch
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.StopChan():
			return nil
		case <-ticker.C:
			w.reload(ctx, zap.String("trigger", "interval"))
		case note, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			w.reload(ctx, zap.String("trigger", "notification"), zap.String("run_id", note.RunID))
		}
	}
}

func (w *Watcher) reload(ctx context.Context, fields ...zap.Field) {
	loaded := 0
	for _, d := range w.datasets {
		if _, err := d.Load(ctx); err != nil {
			w.Logger().Warn("Dataset reload failed, keeping previous snapshot", append(fields, zap.Error(err))...)
			continue
		}
		loaded++
	}
	w.Logger().Debug("Datasets reloaded", append(fields, zap.Int("loaded", loaded))...)
}
