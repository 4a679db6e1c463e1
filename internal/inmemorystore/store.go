package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/bucketgrid/internal/valuestore"
)

// Store is an in-memory implementation of valuestore.Store backed by a
// sync.Map keyed by valuestore.Key.
type Store struct {
	values sync.Map
}

// New creates a new, empty in-memory value store.
func New() valuestore.Store {
	return &Store{}
}

// SetValue records the normalized value of a feature for one sample.
func (s *Store) SetValue(ctx context.Context, key valuestore.Key, value any) error {
	s.values.Store(key, value)
	return nil
}

// Column returns the values of feature for ids [0, n) in ordinal order.
func (s *Store) Column(ctx context.Context, feature string, n int) ([]any, []bool, error) {
	values := make([]any, n)
	present := make([]bool, n)
	for id := 0; id < n; id++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		v, ok := s.values.Load(valuestore.Key{Feature: feature, SampleID: id})
		values[id], present[id] = v, ok
	}
	return values, present, nil
}
