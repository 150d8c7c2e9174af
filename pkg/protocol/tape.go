package protocol

import (
	"sync"

	"github.com/gammazero/deque"
)

// Tape is a bounded in-memory ring of recently published frames. The hub
// writes through it; tests and diagnostics read it back.
type Tape struct {
	mu     sync.RWMutex
	frames deque.Deque[string]
	limit  int
}

func NewTape(limit int) *Tape {
	return &Tape{limit: limit}
}

func (t *Tape) Append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frames.PushBack(line)
	for t.frames.Len() > t.limit {
		t.frames.PopFront()
	}
}

func (t *Tape) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.frames.Len()
}

// Recent returns up to n of the most recent frames, oldest first.
func (t *Tape) Recent(n int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > t.frames.Len() {
		n = t.frames.Len()
	}
	out := make([]string, 0, n)
	for i := t.frames.Len() - n; i < t.frames.Len(); i++ {
		out = append(out, t.frames.At(i))
	}
	return out
}
