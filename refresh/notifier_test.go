package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// getTestRedisClient connects to a local Redis or skips the test.
func getTestRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	return client
}

func TestNotifier_PublishSubscribe(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	n := NewNotifier(client, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notes, err := n.Notifications(ctx)
	require.NoError(t, err)

	require.NoError(t, n.Publish(ctx, "run-42"))

	select {
	case note := <-notes:
		assert.Equal(t, "run-42", note.RunID)
		assert.False(t, note.PublishedAt.IsZero())
	case <-ctx.Done():
		t.Fatal("notification not received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-notes
		return !ok
	}, time.Second, 10*time.Millisecond)
}
