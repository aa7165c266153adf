package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// memoryStore is an in-memory Store for tests and development. Sessions
// are deep-copied on the way in and out so callers never share state with
// the store.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore returns an in-memory session store.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]*Session)}
}

func (s *memoryStore) Get(ctx context.Context, key string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess)
}

func (s *memoryStore) Save(ctx context.Context, sess *Session) error {
	copied, err := clone(sess)
	if err != nil {
		return err
	}
	copied.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key] = copied
	return nil
}

func (s *memoryStore) SetStep(ctx context.Context, key string, step Step, mutate func(*Data)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		sess = New(key)
		s.sessions[key] = sess
	}
	sess.CurrentStep = step
	if mutate != nil {
		mutate(&sess.Data)
	}
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *memoryStore) SetData(ctx context.Context, key string, mutate func(*Data)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		sess = New(key)
		s.sessions[key] = sess
	}
	if mutate != nil {
		mutate(&sess.Data)
	}
	sess.UpdatedAt = time.Now()
	return nil
}

func clone(sess *Session) (*Session, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ Store = (*memoryStore)(nil)
