// Package inmemory provides a map-backed history store for tests and
// throwaway sessions.
package inmemory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/designlog/pkg/history"
)

// Store implements history.Store using an in-memory map.
type Store struct {
	mu sync.RWMutex

	// weeks maps a week id to its entries in insertion order
	weeks map[string][]*history.Entry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		weeks: make(map[string][]*history.Entry),
	}
}

// Put stores a new entry.
func (s *Store) Put(_ context.Context, entry *history.Entry) error {
	if entry == nil {
		return history.ErrNilEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.weeks[entry.WeekID] = append(s.weeks[entry.WeekID], clone(entry))
	return nil
}

// List returns entries matching filter ordered by creation time.
func (s *Store) List(_ context.Context, filter history.Filter) ([]*history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*history.Entry{}
	for week, entries := range s.weeks {
		if filter.WeekID != "" && filter.WeekID != week {
			continue
		}
		for _, e := range entries {
			out = append(out, clone(e))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Weeks returns the ids of non-empty weeks in ascending order.
func (s *Store) Weeks(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	weeks := make([]string, 0, len(s.weeks))
	for week := range s.weeks {
		weeks = append(weeks, week)
	}
	slices.Sort(weeks)
	return weeks, nil
}

// Replace swaps the entries of weekID.
func (s *Store) Replace(_ context.Context, weekID string, entries []*history.Entry) error {
	copied := make([]*history.Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			return history.ErrNilEntry
		}
		c := clone(e)
		c.WeekID = weekID
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		copied = append(copied, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(copied) == 0 {
		delete(s.weeks, weekID)
		return nil
	}
	s.weeks[weekID] = copied
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func clone(e *history.Entry) *history.Entry {
	c := *e
	c.Terms = slices.Clone(e.Terms)
	return &c
}
