package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
)

var (
	_ repositories.KVStore   = (*Store)(nil)
	_ repositories.KeyLister = (*Store)(nil)
)

// Store is an in-process key-value store. Values are lost on exit.
type Store struct {
	mu            sync.RWMutex
	values        map[string]string
	maxValueBytes int
}

// NewStore creates an empty store. maxValueBytes <= 0 disables the size limit.
func NewStore(maxValueBytes int) *Store {
	return &Store{
		values:        make(map[string]string),
		maxValueBytes: maxValueBytes,
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", repositories.ErrKeyNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if s.maxValueBytes > 0 && len(value) > s.maxValueBytes {
		return repositories.ErrQuotaExceeded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys returns the stored keys starting with prefix, sorted
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// HealthCheck always succeeds
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Len returns the number of stored keys
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
