package gamestate

// DefaultSeenCapacity bounds the de-duplication window. Eviction is
// FIFO by arrival, so an id posted again after 1000 newer ids will be
// re-announced. The window exists to stop replays, not to be a ledger.
const DefaultSeenCapacity = 1000

// SeenSet is a bounded FIFO window of announced event keys.
// Not safe for concurrent use; the watcher is its only owner.
type SeenSet struct {
	capacity int
	order    []string
	seen     map[string]struct{}
}

// NewSeenSet creates a seen-set with the given capacity.
// Non-positive capacities fall back to DefaultSeenCapacity.
func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}
	return &SeenSet{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Add records the key and reports whether it was first seen.
// Adding a duplicate returns false and does not refresh its position.
func (s *SeenSet) Add(key string) bool {
	if _, dup := s.seen[key]; dup {
		return false
	}
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
	s.order = append(s.order, key)
	s.seen[key] = struct{}{}
	return true
}

// Contains reports whether the key is in the window.
func (s *SeenSet) Contains(key string) bool {
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of keys currently tracked.
func (s *SeenSet) Len() int {
	return len(s.order)
}
