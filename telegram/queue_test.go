package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telegram-places-bot/conversation"
)

type orderRecorder struct {
	mu      sync.Mutex
	handled []string
	release chan struct{}
	other   chan struct{}
}

func (r *orderRecorder) Handle(ctx context.Context, ev conversation.Event) {
	text := ev.(conversation.TextEvent).Text
	switch text {
	case "slow":
		<-r.release
	case "other user":
		close(r.other)
	}
	r.mu.Lock()
	r.handled = append(r.handled, text)
	r.mu.Unlock()
}

func TestChatQueue_KeepsArrivalOrderPerUser(t *testing.T) {
	rec := &orderRecorder{release: make(chan struct{}), other: make(chan struct{})}
	q := newChatQueue(rec)
	ctx := context.Background()

	q.push(ctx, conversation.TextEvent{UserID: 1, Text: "slow"})
	q.push(ctx, conversation.TextEvent{UserID: 1, Text: "fast"})
	q.push(ctx, conversation.TextEvent{UserID: 2, Text: "other user"})

	select {
	case <-rec.other:
	case <-time.After(2 * time.Second):
		t.Fatal("a busy user blocked another user")
	}

	close(rec.release)
	q.wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var user1 []string
	for _, h := range rec.handled {
		if h != "other user" {
			user1 = append(user1, h)
		}
	}
	assert.Equal(t, []string{"slow", "fast"}, user1)
	assert.Empty(t, q.pending, "drained queues are dropped")
}
