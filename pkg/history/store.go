package history

import "context"

// Filter narrows List results. A zero Filter matches every entry.
type Filter struct {
	WeekID string
}

// Store defines persistence for history entries.
type Store interface {
	// Put stores a new entry.
	Put(ctx context.Context, entry *Entry) error

	// List returns entries matching filter, oldest first.
	List(ctx context.Context, filter Filter) ([]*Entry, error)

	// Weeks returns the ids of every week holding at least one entry,
	// in ascending order.
	Weeks(ctx context.Context) ([]string, error)

	// Replace swaps every entry of weekID for entries. An empty slice
	// removes the week.
	Replace(ctx context.Context, weekID string, entries []*Entry) error

	// Close releases any resources held by the store.
	Close() error
}
