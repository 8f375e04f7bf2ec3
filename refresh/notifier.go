package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel ingestion runs announce themselves on.
const Channel = "places:refresh"

// Notification announces a finished ingestion run.
type Notification struct {
	RunID       string    `json:"run_id"`
	PublishedAt time.Time `json:"published_at"`
}

// Notifier publishes and receives refresh notifications over Redis pub/sub.
type Notifier struct {
	client *redis.Client
	logger *zap.Logger
}

func NewNotifier(client *redis.Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		client: client,
		logger: logger,
	}
}

// Publish tells every running bot that the dataset of runID is in place.
func (n *Notifier) Publish(ctx context.Context, runID string) error {
	payload, err := json.Marshal(Notification{RunID: runID, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	receivers, err := n.client.Publish(ctx, Channel, payload).Result()
	if err != nil {
		n.logger.Error("Failed to publish refresh notification",
			zap.String("run_id", runID),
			zap.Error(err))
		return fmt.Errorf("failed to publish refresh notification: %w", err)
	}

	n.logger.Info("Refresh notification published",
		zap.String("run_id", runID),
		zap.Int64("receivers", receivers))
	return nil
}

// Notifications subscribes to Channel. The returned channel is closed when ctx is done.
// Malformed payloads are delivered with an empty RunID.
func (n *Notifier) Notifications(ctx context.Context) (<-chan Notification, error) {
	pubsub := n.client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	out := make(chan Notification, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var note Notification
				if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
					n.logger.Warn("Malformed refresh notification", zap.String("payload", msg.Payload))
				}
				select {
				case out <- note:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
