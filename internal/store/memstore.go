package store

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-memory Store used by tests and ephemeral environments.
// Entries keep insertion order, matching the SQLite implementation.
type MemStore struct {
	mu      sync.RWMutex
	entries []memEntry
	index   map[string]int
}

type memEntry struct {
	namespace string
	key       string
	record    []byte
	deleted   bool
}

func NewMemStore() *MemStore {
	return &MemStore{index: make(map[string]int)}
}

var _ Store = (*MemStore)(nil)

func memKey(namespace, key string) string {
	return namespace + "\x00" + key
}

func (s *MemStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[memKey(namespace, key)]
	if !ok || s.entries[i].deleted {
		return nil, false, nil
	}
	rec := make([]byte, len(s.entries[i].record))
	copy(rec, s.entries[i].record)
	return rec, true, nil
}

func (s *MemStore) Put(ctx context.Context, namespace, key string, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := make([]byte, len(record))
	copy(rec, record)
	if i, ok := s.index[memKey(namespace, key)]; ok && !s.entries[i].deleted {
		s.entries[i].record = rec
		return nil
	}
	s.entries = append(s.entries, memEntry{namespace: namespace, key: key, record: rec})
	s.index[memKey(namespace, key)] = len(s.entries) - 1
	return nil
}

func (s *MemStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[memKey(namespace, key)]
	if !ok || s.entries[i].deleted {
		return false, nil
	}
	s.entries[i].deleted = true
	delete(s.index, memKey(namespace, key))
	return true, nil
}

func (s *MemStore) ScanPrefix(ctx context.Context, namespacePrefix string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.deleted || !strings.HasPrefix(e.namespace, namespacePrefix) {
			continue
		}
		rec := make([]byte, len(e.record))
		copy(rec, e.record)
		out = append(out, Entry{Namespace: e.namespace, Key: e.key, Record: rec})
	}
	return out, nil
}
