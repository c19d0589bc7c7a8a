package state

// History is an ordered sequence capped at a fixed capacity. Pushing past
// capacity evicts the oldest entry.
type History[T any] struct {
	items    []T
	capacity int
}

func NewHistory[T any](capacity int) History[T] {
	return History[T]{items: make([]T, 0, capacity), capacity: capacity}
}

// Push appends v and reports whether an entry was evicted.
func (h *History[T]) Push(v T) bool {
	if h.capacity <= 0 {
		return false
	}
	evicted := false
	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items = h.items[:len(h.items)-1]
		evicted = true
	}
	h.items = append(h.items, v)
	return evicted
}

func (h History[T]) Len() int { return len(h.items) }

func (h History[T]) Cap() int { return h.capacity }

// Items returns a copy, oldest first.
func (h History[T]) Items() []T {
	out := make([]T, len(h.items))
	copy(out, h.items)
	return out
}

func (h History[T]) Last() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return h.items[len(h.items)-1], true
}
