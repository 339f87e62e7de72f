package board

import "github.com/alfredjeanlab/todoboard/internal/model"

// SelectionState classifies the selected list against the loaded lists.
type SelectionState int

const (
	// NoLists: there are no lists; the selection is cleared.
	NoLists SelectionState = iota
	// NoSelection: lists exist but none was selected; the first is selected.
	NoSelection
	// ValidSelection: the selected list is among the loaded lists.
	ValidSelection
	// StaleSelection: the selected list is gone. The first list is selected
	// unless a refetch is running, in which case the selection is kept.
	StaleSelection
)

func (s SelectionState) String() string {
	switch s {
	case NoLists:
		return "no-lists"
	case NoSelection:
		return "no-selection"
	case ValidSelection:
		return "valid-selection"
	case StaleSelection:
		return "stale-selection"
	}
	return "unknown"
}

// Reconcile computes the selection state for selected against lists and the
// list id that should be selected afterwards. fetching reports whether the
// lists are being refetched.
func Reconcile(lists []model.TodoListSummary, selected string, fetching bool) (SelectionState, string) {
	if len(lists) == 0 {
		return NoLists, ""
	}
	if selected == "" {
		return NoSelection, lists[0].ID
	}
	for _, l := range lists {
		if l.ID == selected {
			return ValidSelection, selected
		}
	}
	if fetching {
		return StaleSelection, selected
	}
	return StaleSelection, lists[0].ID
}

// ReconcileSelection applies Reconcile to the store's selection.
func (s *Store) ReconcileSelection(lists []model.TodoListSummary, fetching bool) SelectionState {
	state, next := Reconcile(lists, s.State().SelectedListID, fetching)
	s.SetSelectedListID(next)
	return state
}
