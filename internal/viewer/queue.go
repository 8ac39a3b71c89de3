package viewer

import (
	"sync"

	"github.com/smileynet/docshell/internal/mode"
)

// modeQueue buffers mode requests made before the document is ready.
// Consecutive duplicates collapse into one entry. It is safe for
// concurrent use.
type modeQueue struct {
	mu    sync.Mutex
	items []mode.Mode
}

// enqueue appends m unless it repeats the tail. It reports whether an
// entry was added.
func (q *modeQueue) enqueue(m mode.Mode) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n := len(q.items); n > 0 && q.items[n-1] == m {
		return false
	}
	q.items = append(q.items, m)
	return true
}

func (q *modeQueue) pop() (mode.Mode, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return mode.None, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

// drainInto applies entries in arrival order until the queue is empty,
// including entries enqueued while apply runs. It returns the number of
// entries applied.
func (q *modeQueue) drainInto(apply func(mode.Mode)) int {
	n := 0
	for {
		m, ok := q.pop()
		if !ok {
			return n
		}
		apply(m)
		n++
	}
}

func (q *modeQueue) reset() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

func (q *modeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
