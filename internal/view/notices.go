package view

import (
	"sync"

	"github.com/alfredjeanlab/todoboard/internal/todos"
)

// DefaultMaxNotices bounds the notice queue; older notices fall off.
const DefaultMaxNotices = 3

// Notices is a small dismissable queue of mutation notices. It implements
// todos.Notifier so a Service can post into it directly.
type Notices struct {
	mu       sync.Mutex
	max      int
	items    []todos.Notice
	onChange map[int]func()
	nextID   int
}

// NewNotices returns a queue keeping at most max notices.
func NewNotices(max int) *Notices {
	if max <= 0 {
		max = DefaultMaxNotices
	}
	return &Notices{max: max}
}

// Notify appends n, dropping the oldest notice when the queue is full.
func (q *Notices) Notify(n todos.Notice) {
	q.mu.Lock()
	q.items = append(q.items, n)
	if len(q.items) > q.max {
		q.items = q.items[len(q.items)-q.max:]
	}
	q.mu.Unlock()
	q.changed()
}

// List returns the queued notices, oldest first.
func (q *Notices) List() []todos.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]todos.Notice, len(q.items))
	copy(out, q.items)
	return out
}

// Dismiss removes the i-th notice. Out of range indexes are ignored.
func (q *Notices) Dismiss(i int) {
	q.mu.Lock()
	if i < 0 || i >= len(q.items) {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:i:i], q.items[i+1:]...)
	q.mu.Unlock()
	q.changed()
}

// Clear dismisses every notice.
func (q *Notices) Clear() {
	q.mu.Lock()
	empty := len(q.items) == 0
	q.items = nil
	q.mu.Unlock()
	if !empty {
		q.changed()
	}
}

// OnChange registers fn to run after the queue changes and returns a func
// that unregisters it.
func (q *Notices) OnChange(fn func()) (cancel func()) {
	q.mu.Lock()
	if q.onChange == nil {
		q.onChange = make(map[int]func())
	}
	id := q.nextID
	q.nextID++
	q.onChange[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.onChange, id)
		q.mu.Unlock()
	}
}

func (q *Notices) changed() {
	q.mu.Lock()
	fns := make([]func(), 0, len(q.onChange))
	for _, fn := range q.onChange {
		fns = append(fns, fn)
	}
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
