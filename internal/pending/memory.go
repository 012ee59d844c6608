package pending

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps submissions in process memory. A zero ttl never expires.
type MemoryStore struct {
	mu    sync.Mutex
	items map[int64]Submission
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]Submission),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.lookup(chatID)
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *MemoryStore) Put(_ context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sub.ChatID] = sub
	return nil
}

func (s *MemoryStore) Take(_ context.Context, chatID int64) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.lookup(chatID)
	if !ok {
		return nil, nil
	}
	delete(s.items, chatID)
	return &sub, nil
}

// Len reports the number of live submissions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for chatID := range s.items {
		if _, ok := s.lookup(chatID); ok {
			n++
		}
	}
	return n
}

// lookup must be called with mu held; it drops expired entries.
func (s *MemoryStore) lookup(chatID int64) (Submission, bool) {
	sub, ok := s.items[chatID]
	if !ok {
		return Submission{}, false
	}
	if s.ttl > 0 && s.now().Sub(sub.CreatedAt) > s.ttl {
		delete(s.items, chatID)
		return Submission{}, false
	}
	return sub, true
}
