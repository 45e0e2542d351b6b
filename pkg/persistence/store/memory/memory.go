package memory

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/opinionlab/studyctl/pkg/persistence"
)

// Store keeps entries in a map. LoadAll returns them ordered by key.
type Store[T any] struct {
	lock sync.RWMutex
	data map[string]T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[string]T),
	}
}

func (s *Store[T]) Save(key string, data T) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.data[key] = data
	return nil
}

func (s *Store[T]) Load(key string) (T, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	val, exist := s.data[key]
	if !exist {
		var zero T
		return zero, fmt.Errorf("%w: %s", persistence.ErrNotFound, key)
	}
	return val, nil
}

func (s *Store[T]) LoadAll() ([]T, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	result := make([]T, 0, len(s.data))
	for _, key := range slices.Sorted(maps.Keys(s.data)) {
		result = append(result, s.data[key])
	}
	return result, nil
}

func (s *Store[T]) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store[T]) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.data)
}
