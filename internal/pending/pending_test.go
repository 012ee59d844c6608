package pending

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"support-bot/internal/cache"
	"support-bot/internal/logging"
	"support-bot/internal/tg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var photo = tg.Attachment{Kind: tg.AttachmentPhoto, FileID: "file-1"}

func TestAttachWithoutRequest(t *testing.T) {
	b := NewBuffer(NewMemoryStore(0))

	sub, err := b.Attach(context.Background(), 42, photo)
	assert.ErrorIs(t, err, ErrNoActiveRequest)
	assert.Nil(t, sub)
}

func TestBeginThenAttachFinalises(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	b := NewBuffer(store)

	started, err := b.Begin(ctx, Submission{ChatID: 42, Name: "Иван", Phone: "+70000000000", Problem: "труба течёт"})
	require.NoError(t, err)
	assert.NotEmpty(t, started.ID)
	assert.False(t, started.CreatedAt.IsZero())
	assert.Equal(t, 1, store.Len())

	got, err := b.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Files)

	sub, err := b.Attach(ctx, 42, photo)
	require.NoError(t, err)
	assert.Equal(t, "Иван", sub.Name)
	assert.Equal(t, []tg.Attachment{photo}, sub.Files)
	assert.Equal(t, 0, store.Len())

	// One-shot: the second attachment finds no request.
	_, err = b.Attach(ctx, 42, photo)
	assert.ErrorIs(t, err, ErrNoActiveRequest)
}

func TestBeginReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer(NewMemoryStore(0))

	_, err := b.Begin(ctx, Submission{ChatID: 1, Problem: "old"})
	require.NoError(t, err)
	_, err = b.Begin(ctx, Submission{ChatID: 1, Problem: "new"})
	require.NoError(t, err)

	sub, err := b.Attach(ctx, 1, photo)
	require.NoError(t, err)
	assert.Equal(t, "new", sub.Problem)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer(NewMemoryStore(0))

	_, err := b.Begin(ctx, Submission{ChatID: 1})
	require.NoError(t, err)
	require.NoError(t, b.Remove(ctx, 1))
	require.NoError(t, b.Remove(ctx, 1))

	got, err := b.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConcurrentAttachFinalisesOnce(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer(NewMemoryStore(0))
	_, err := b.Begin(ctx, Submission{ChatID: 7})
	require.NoError(t, err)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		finalised int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Attach(ctx, 7, photo)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				finalised++
			case errors.Is(err, ErrNoActiveRequest):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, finalised)
	assert.Equal(t, attempts-1, rejected)
	assert.Empty(t, b.locks.locks)
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, Submission{ChatID: 1, CreatedAt: now}))
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got)

	now = now.Add(2 * time.Hour)
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := cache.New(cache.Config{Addr: addr}, logging.Discard())
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(ctx))

	b := NewBuffer(NewRedisStore(r, time.Minute))
	chatID := time.Now().UnixNano()
	_, err := b.Begin(ctx, Submission{ChatID: chatID, Name: "Иван"})
	require.NoError(t, err)

	sub, err := b.Attach(ctx, chatID, photo)
	require.NoError(t, err)
	assert.Equal(t, "Иван", sub.Name)

	_, err = b.Attach(ctx, chatID, photo)
	assert.ErrorIs(t, err, ErrNoActiveRequest)
}
