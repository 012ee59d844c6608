package tg

import (
	"context"
	"sync"
)

// dispatcher runs updates of one chat strictly in arrival order while
// different chats proceed in parallel. A chat's worker goroutine exits as soon
// as its queue drains.
type dispatcher struct {
	process func(context.Context, Update)

	mu     sync.Mutex
	queues map[int64][]Update
	wg     sync.WaitGroup
}

func newDispatcher(process func(context.Context, Update)) *dispatcher {
	return &dispatcher{
		process: process,
		queues:  make(map[int64][]Update),
	}
}

func (d *dispatcher) dispatch(ctx context.Context, upd Update) {
	d.mu.Lock()
	queued, running := d.queues[upd.ChatID]
	d.queues[upd.ChatID] = append(queued, upd)
	d.mu.Unlock()
	if running {
		return
	}
	d.wg.Add(1)
	go d.drain(ctx, upd.ChatID)
}

func (d *dispatcher) drain(ctx context.Context, chatID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[chatID]
		if len(queue) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		next := queue[0]
		d.queues[chatID] = queue[1:]
		d.mu.Unlock()

		d.process(ctx, next)
	}
}

// wait blocks until every queued update has been processed.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
