// Package store holds the in-memory per-user watchlists.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"steamwatch/pkg/tracker"
	"steamwatch/steamurl"
)

// DuplicateError indicates an add whose URL normalizes to the same
// canonical form as an existing entry in the user's watchlist.
type DuplicateError struct {
	URL string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("already tracked: %s", e.URL)
}

// IsDuplicate checks if an error is a duplicate-entry error.
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}

// IndexError indicates a removal index that is out of bounds for the
// user's current list. Stale deletion selections land here when the list
// has shrunk since the choice menu was emitted; that race is expected and
// the caller re-synchronizes by re-emitting the current list.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for list of %d", e.Index, e.Size)
}

// IsOutOfRange checks if an error is a stale-index error.
func IsOutOfRange(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}

// Store keeps one ordered watchlist per user. State is volatile: a
// process restart starts every user over with an empty list.
type Store struct {
	mu     sync.RWMutex
	lists  map[int64][]tracker.TrackedItem
	logger *slog.Logger
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	return &Store{
		lists:  make(map[int64][]tracker.TrackedItem),
		logger: logger,
	}
}

// List returns the user's items in insertion order. The returned slice is
// a copy; callers cannot mutate stored state through it.
func (s *Store) List(user int64) []tracker.TrackedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]tracker.TrackedItem, len(s.lists[user]))
	copy(items, s.lists[user])
	return items
}

// Count returns the number of items the user tracks.
func (s *Store) Count(user int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists[user])
}

// Add appends an item to the user's watchlist, rejecting URLs that
// normalize to an already-tracked canonical form.
func (s *Store) Add(user int64, item tracker.TrackedItem) error {
	norm := steamurl.Normalize(item.URL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.lists[user] {
		if steamurl.Normalize(existing.URL) == norm {
			return &DuplicateError{URL: item.URL}
		}
	}

	s.lists[user] = append(s.lists[user], item)
	s.logger.Info("Item added", "user", user, "name", item.Name, "count", len(s.lists[user]))
	return nil
}

// RemoveAt removes and returns the item at the given position.
func (s *Store) RemoveAt(user int64, index int) (tracker.TrackedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.lists[user]
	if index < 0 || index >= len(items) {
		return tracker.TrackedItem{}, &IndexError{Index: index, Size: len(items)}
	}

	removed := items[index]
	s.lists[user] = append(items[:index], items[index+1:]...)
	s.logger.Info("Item removed", "user", user, "name", removed.Name, "remaining", len(s.lists[user]))
	return removed, nil
}

// Users returns the ids of all users with a non-empty watchlist.
func (s *Store) Users() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]int64, 0, len(s.lists))
	for user, items := range s.lists {
		if len(items) > 0 {
			users = append(users, user)
		}
	}
	return users
}
