package telegram

import (
	"context"
	"sync"

	"telegram-places-bot/conversation"
)

// chatQueue runs events one at a time per user, in arrival order. Different users are handled
// concurrently. A user's worker goroutine exits once its queue drains.
type chatQueue struct {
	handler Handler
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[int64][]conversation.Event
}

func newChatQueue(handler Handler) *chatQueue {
	return &chatQueue{
		handler: handler,
		pending: make(map[int64][]conversation.Event),
	}
}

// push queues ev behind the user's earlier events.
func (q *chatQueue) push(ctx context.Context, ev conversation.Event) {
	user := ev.User()

	q.mu.Lock()
	queued, running := q.pending[user]
	q.pending[user] = append(queued, ev)
	q.mu.Unlock()

	if running {
		return
	}
	q.wg.Add(1)
	go q.drain(ctx, user)
}

func (q *chatQueue) drain(ctx context.Context, user int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		queued := q.pending[user]
		if len(queued) == 0 {
			delete(q.pending, user)
			q.mu.Unlock()
			return
		}
		ev := queued[0]
		q.pending[user] = queued[1:]
		q.mu.Unlock()

		q.handler.Handle(ctx, ev)
	}
}

// wait blocks until every queued event has been handled.
func (q *chatQueue) wait() {
	q.wg.Wait()
}
