// Package board holds the view-only state of the todo board: which list is
// selected, the status filter and the search term. Nothing here is persisted
// or sent to the server.
package board

import (
	"fmt"
	"sync"

	"github.com/alfredjeanlab/todoboard/internal/model"
)

// StatusFilter is either FilterAll or one of the item statuses.
type StatusFilter string

// FilterAll matches items of every status.
const FilterAll StatusFilter = "all"

// Filters lists the status filters in display order.
var Filters = []StatusFilter{
	FilterAll,
	StatusFilter(model.StatusTodo),
	StatusFilter(model.StatusInProgress),
	StatusFilter(model.StatusBlocked),
	StatusFilter(model.StatusDone),
}

// ParseStatusFilter validates s as a status filter. The empty string means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if !model.Status(s).IsValid() {
		return "", fmt.Errorf("invalid status filter %q (want all, todo, in_progress, blocked or done)", s)
	}
	return StatusFilter(s), nil
}

// Label returns the button label for the filter.
func (f StatusFilter) Label() string {
	if f == FilterAll || f == "" {
		return "All"
	}
	return model.Status(f).Label()
}

// Matches reports whether an item with status s passes the filter.
func (f StatusFilter) Matches(s model.Status) bool {
	return f == FilterAll || f == "" || model.Status(f) == s
}

// State is a snapshot of the board's view state.
type State struct {
	SelectedListID string
	StatusFilter   StatusFilter
	SearchTerm     string
}

// DefaultState is the state a new or reset Store starts from.
func DefaultState() State {
	return State{StatusFilter: FilterAll}
}

// Store is a mutable container for State. Subscribers are called
// synchronously after each change, outside the lock. Setting a field to its
// current value does not notify.
type Store struct {
	mu     sync.RWMutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewStore returns a store holding DefaultState.
func NewStore() *Store {
	return &Store{state: DefaultState(), subs: make(map[int]func(State))}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetSelectedListID selects a list. The empty string clears the selection.
func (s *Store) SetSelectedListID(id string) {
	s.update(func(st *State) { st.SelectedListID = id })
}

// SetStatusFilter sets the status filter.
func (s *Store) SetStatusFilter(f StatusFilter) {
	if f == "" {
		f = FilterAll
	}
	s.update(func(st *State) { st.StatusFilter = f })
}

// SetSearchTerm sets the free-text search term.
func (s *Store) SetSearchTerm(term string) {
	s.update(func(st *State) { st.SearchTerm = term })
}

// Reset restores DefaultState.
func (s *Store) Reset() {
	s.update(func(st *State) { *st = DefaultState() })
}

// Subscribe registers fn for state changes and returns a cancel func.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	before := s.state
	fn(&s.state)
	after := s.state
	if after == before {
		s.mu.Unlock()
		return
	}
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(after)
	}
}
