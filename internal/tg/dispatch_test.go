package tg

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	var (
		mu       sync.Mutex
		seen     = map[int64][]int{}
		inFlight = map[int64]*atomic.Int32{1: {}, 2: {}}
		overlap  atomic.Bool
	)
	d := newDispatcher(func(_ context.Context, upd Update) {
		if inFlight[upd.ChatID].Add(1) > 1 {
			overlap.Store(true)
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen[upd.ChatID] = append(seen[upd.ChatID], upd.ID)
		mu.Unlock()
		inFlight[upd.ChatID].Add(-1)
	})

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		d.dispatch(ctx, Update{ID: i, ChatID: int64(1 + i%2)})
	}
	d.wait()

	assert.False(t, overlap.Load(), "updates of one chat ran concurrently")
	for chat, ids := range seen {
		assert.Len(t, ids, 25, "chat %d", chat)
		assert.IsIncreasing(t, ids, "chat %d", chat)
	}
	assert.Empty(t, d.queues)
}

func TestDispatcherRunsChatsInParallel(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	d := newDispatcher(func(_ context.Context, upd Update) {
		started.Add(1)
		<-release
	})

	ctx := context.Background()
	d.dispatch(ctx, Update{ChatID: 1})
	d.dispatch(ctx, Update{ChatID: 2})

	assert.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	d.wait()
}
