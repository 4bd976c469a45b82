package store

import (
	"context"
	"sort"
	"sync"
)

// memoryStore is an in-memory implementation of the Store interface
type memoryStore struct {
	mu     sync.RWMutex
	words  map[string]struct{}
	closed bool
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(words ...string) Store {
	s := &memoryStore{
		words: make(map[string]struct{}, len(words)),
	}
	for _, w := range words {
		s.words[w] = struct{}{}
	}
	return s
}

func (s *memoryStore) LoadAll(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return sortedWords(s.words), nil
}

func (s *memoryStore) Add(ctx context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.words[word] = struct{}{}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	delete(s.words, word)
	return nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortedWords(set map[string]struct{}) []string {
	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
