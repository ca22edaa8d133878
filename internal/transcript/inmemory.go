package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process transcript store for local/dev use.
type InMemoryStore struct {
	mu        sync.RWMutex
	exchanges []Exchange
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveExchange(_ context.Context, ex Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	s.exchanges = append(s.exchanges, ex)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.exchanges) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.exchanges) {
		limit = len(s.exchanges)
	}
	out := make([]Exchange, 0, limit)
	for i := len(s.exchanges) - limit; i < len(s.exchanges); i++ {
		out = append(out, s.exchanges[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
