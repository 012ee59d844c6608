// Package pending holds problem reports that wait for their attachment.
//
// A chat is either idle or awaiting an attachment. Begin moves it to awaiting;
// the first Attach appends the file and returns the finished submission,
// moving the chat back to idle. Every operation is serialised per chat id.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"support-bot/internal/tg"

	"github.com/google/uuid"
)

// ErrNoActiveRequest is returned by Attach when the chat has no pending problem report.
var ErrNoActiveRequest = errors.New("no active request")

// Submission is a problem report collected from the web form.
type Submission struct {
	ID        string          `json:"id"`
	ChatID    int64           `json:"chat_id"`
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Problem   string          `json:"problem"`
	Files     []tg.Attachment `json:"files"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store keeps submissions by chat id. Take must read and remove atomically.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Submission, error)
	Put(ctx context.Context, sub Submission) error
	Take(ctx context.Context, chatID int64) (*Submission, error)
}

// Buffer serialises access to a Store per chat id.
type Buffer struct {
	store Store
	locks keyedMutex
	now   func() time.Time
}

// NewBuffer wraps store.
func NewBuffer(store Store) *Buffer {
	return &Buffer{
		store: store,
		locks: keyedMutex{locks: make(map[int64]*keyedLock)},
		now:   time.Now,
	}
}

// Begin records a new submission for sub.ChatID, replacing any previous one.
// ID and CreatedAt are filled when empty.
func (b *Buffer) Begin(ctx context.Context, sub Submission) (Submission, error) {
	unlock := b.locks.lock(sub.ChatID)
	defer unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = b.now()
	}
	sub.Files = nil
	if err := b.store.Put(ctx, sub); err != nil {
		return Submission{}, fmt.Errorf("put pending submission: %w", err)
	}
	return sub, nil
}

// Get returns the pending submission of chatID, or nil when idle.
func (b *Buffer) Get(ctx context.Context, chatID int64) (*Submission, error) {
	unlock := b.locks.lock(chatID)
	defer unlock()

	sub, err := b.store.Get(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get pending submission: %w", err)
	}
	return sub, nil
}

// Remove drops the pending submission of chatID, if any.
func (b *Buffer) Remove(ctx context.Context, chatID int64) error {
	unlock := b.locks.lock(chatID)
	defer unlock()

	if _, err := b.store.Take(ctx, chatID); err != nil {
		return fmt.Errorf("remove pending submission: %w", err)
	}
	return nil
}

// Attach appends file to the pending submission of chatID and finalises it:
// the submission is removed from the store and returned to the caller.
func (b *Buffer) Attach(ctx context.Context, chatID int64, file tg.Attachment) (*Submission, error) {
	unlock := b.locks.lock(chatID)
	defer unlock()

	sub, err := b.store.Take(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("take pending submission: %w", err)
	}
	if sub == nil {
		return nil, ErrNoActiveRequest
	}
	sub.Files = append(sub.Files, file)
	return sub, nil
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per chat and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

func (k *keyedMutex) lock(key int64) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
