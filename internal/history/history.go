// Package history keeps the trail of images served in a session so the
// viewer can step back to one it already saw.
package history

// Entry is one served image.
type Entry struct {
	ID   int64
	Path string
}

// History is a bounded back/forward stack of served images.
type History struct {
	stack    []Entry
	current  int
	capacity int
}

// New creates a History holding at most capacity entries.
// A capacity of 0 disables it; negative capacity is treated as 0.
func New(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{
		stack:    make([]Entry, 0, capacity),
		current:  -1,
		capacity: capacity,
	}
}

// Record appends a newly served image. Anything ahead of the current
// position (after stepping back) is dropped first.
func (h *History) Record(e Entry) {
	if h.capacity == 0 {
		return
	}
	if h.current != -1 && h.current < len(h.stack)-1 {
		h.stack = h.stack[:h.current+1]
	}
	if h.current >= 0 && h.stack[h.current].Path == e.Path {
		return
	}

	h.stack = append(h.stack, e)
	if len(h.stack) > h.capacity {
		h.stack = h.stack[len(h.stack)-h.capacity:]
	}
	h.current = len(h.stack) - 1
}

// Back steps to the previous entry.
func (h *History) Back() (Entry, bool) {
	if h.current <= 0 {
		return Entry{}, false
	}
	h.current--
	return h.stack[h.current], true
}

// Forward steps towards the most recent entry.
func (h *History) Forward() (Entry, bool) {
	if h.current == -1 || h.current >= len(h.stack)-1 {
		return Entry{}, false
	}
	h.current++
	return h.stack[h.current], true
}

// Current returns the entry at the current position.
func (h *History) Current() (Entry, bool) {
	if h.current < 0 {
		return Entry{}, false
	}
	return h.stack[h.current], true
}

// AtLatest reports whether the current position is the newest entry, i.e.
// the next step forward has to pick a new image.
func (h *History) AtLatest() bool {
	return h.current == len(h.stack)-1
}

func (h *History) Len() int { return len(h.stack) }

// Window returns up to size entries around the current position, oldest
// first, and the index of the current entry within them.
func (h *History) Window(size int) ([]Entry, int) {
	if h.current < 0 || size <= 0 {
		return nil, -1
	}
	start := max(h.current-size/2, 0)
	end := min(start+size, len(h.stack))
	start = max(end-size, 0)
	return append([]Entry(nil), h.stack[start:end]...), h.current - start
}

// Seek moves the position to the most recent entry for path.
func (h *History) Seek(path string) (Entry, bool) {
	for i := len(h.stack) - 1; i >= 0; i-- {
		if h.stack[i].Path == path {
			h.current = i
			return h.stack[i], true
		}
	}
	return Entry{}, false
}

// Remove drops every entry for path, e.g. after the file was deleted. When
// the current entry goes, the position moves to the one before it.
func (h *History) Remove(path string) {
	if len(h.stack) == 0 {
		return
	}

	kept := make([]Entry, 0, len(h.stack))
	removedBefore := 0
	currentRemoved := false
	for i, e := range h.stack {
		if e.Path != path {
			kept = append(kept, e)
			continue
		}
		switch {
		case i < h.current:
			removedBefore++
		case i == h.current:
			currentRemoved = true
		}
	}
	if len(kept) == len(h.stack) {
		return
	}

	h.stack = kept
	if len(kept) == 0 {
		h.current = -1
		return
	}
	idx := h.current - removedBefore
	if currentRemoved {
		idx--
	}
	h.current = min(max(idx, 0), len(kept)-1)
}

// Clear forgets everything, e.g. when the ledger was cleared.
func (h *History) Clear() {
	h.stack = h.stack[:0]
	h.current = -1
}
