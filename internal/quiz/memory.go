package quiz

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	rows   []Question
	nextID int64
}

// NewInMemoryStore keeps questions in process memory. Handy for tests and demos.
func NewInMemoryStore(seed ...Question) Store {
	m := &memoryStore{nextID: 1}
	for _, q := range seed {
		_, _ = m.Insert(context.Background(), q)
	}
	return m
}

func (m *memoryStore) FetchAll(ctx context.Context) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *memoryStore) Insert(ctx context.Context, q Question) (Question, error) {
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.nextID
	m.nextID++
	m.rows = append(m.rows, q)
	return q, nil
}

func (m *memoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows), nil
}
