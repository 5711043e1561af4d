package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrQuotaExceeded is returned by Storage.Set when a write does not fit.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is a byte-bounded key/value area that several caches may share.
type Storage interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string)
	// Keys returns every key, oldest write first.
	Keys() []string
}

// MemoryStorage is an in-process Storage. Keys and values both count
// toward the quota.
type MemoryStorage struct {
	mu      sync.Mutex
	quota   int
	used    int
	seq     uint64
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	written uint64
}

// NewMemoryStorage returns a storage holding at most quota bytes.
// A quota of zero or less means unbounded.
func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{quota: quota, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := len(key) + len(value)
	used := s.used
	if prev, ok := s.entries[key]; ok {
		used -= len(key) + len(prev.value)
	}
	if s.quota > 0 && used+size > s.quota {
		return fmt.Errorf("%w: writing %d bytes with %d of %d in use", ErrQuotaExceeded, size, used, s.quota)
	}

	s.seq++
	s.entries[key] = memoryEntry{value: append([]byte(nil), value...), written: s.seq}
	s.used = used + size
	return nil
}

func (s *MemoryStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		s.used -= len(key) + len(e.value)
		delete(s.entries, key)
	}
}

func (s *MemoryStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.entries[keys[i]].written < s.entries[keys[j]].written
	})
	return keys
}

// Used reports the bytes currently held.
func (s *MemoryStorage) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

var _ Storage = (*MemoryStorage)(nil)
