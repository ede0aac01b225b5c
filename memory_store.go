package main

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory. Contents are lost on exit.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]map[string]string // namespace -> prefs
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]map[string]string)}
}

func (s *MemoryStore) GetAll(_ context.Context, namespace string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.prefs[namespace]
	if p == nil {
		return nil, nil
	}

	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.prefs[namespace][key]
	return v, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.prefs[namespace]
	if p == nil {
		p = make(map[string]string)
		s.prefs[namespace] = p
	}
	p[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.prefs[namespace]; p != nil {
		delete(p, key)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
