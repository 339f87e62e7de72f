package board

import (
	"testing"

	"github.com/alfredjeanlab/todoboard/internal/model"
)

func summaries(ids ...string) []model.TodoListSummary {
	out := make([]model.TodoListSummary, len(ids))
	for i, id := range ids {
		out[i].ID = id
		out[i].Name = "list " + id
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		lists     []model.TodoListSummary
		selected  string
		fetching  bool
		wantState SelectionState
		wantID    string
	}{
		{"no lists clears", nil, "a", false, NoLists, ""},
		{"no lists while fetching still clears", nil, "a", true, NoLists, ""},
		{"no selection picks first", summaries("a", "b"), "", false, NoSelection, "a"},
		{"valid selection kept", summaries("a", "b"), "b", false, ValidSelection, "b"},
		{"stale selection moves to first", summaries("a", "b"), "gone", false, StaleSelection, "a"},
		{"stale selection kept while fetching", summaries("a", "b"), "gone", true, StaleSelection, "gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, id := Reconcile(tt.lists, tt.selected, tt.fetching)
			if state != tt.wantState || id != tt.wantID {
				t.Errorf("Reconcile() = (%v, %q), want (%v, %q)", state, id, tt.wantState, tt.wantID)
			}
		})
	}
}

func TestStore_ReconcileSelection(t *testing.T) {
	s := NewStore()
	notified := 0
	defer s.Subscribe(func(State) { notified++ })()

	if got := s.ReconcileSelection(summaries("a", "b"), false); got != NoSelection {
		t.Fatalf("state = %v", got)
	}
	if s.State().SelectedListID != "a" {
		t.Fatalf("selected = %q", s.State().SelectedListID)
	}

	// Deleting the selected list among several moves to the next remaining one.
	if got := s.ReconcileSelection(summaries("b"), false); got != StaleSelection {
		t.Fatalf("state = %v", got)
	}
	if s.State().SelectedListID != "b" {
		t.Errorf("selected = %q, want b", s.State().SelectedListID)
	}

	if got := s.ReconcileSelection(summaries("b"), false); got != ValidSelection {
		t.Errorf("state = %v", got)
	}

	// Deleting the last list clears the selection.
	if got := s.ReconcileSelection(nil, false); got != NoLists {
		t.Errorf("state = %v", got)
	}
	if s.State().SelectedListID != "" {
		t.Errorf("selected = %q, want cleared", s.State().SelectedListID)
	}
	if notified != 3 {
		t.Errorf("notifications = %d, want 3", notified)
	}
}

func TestSelectionState_String(t *testing.T) {
	if NoLists.String() != "no-lists" || StaleSelection.String() != "stale-selection" {
		t.Error("unexpected state names")
	}
	if SelectionState(42).String() != "unknown" {
		t.Error("out of range state should be unknown")
	}
}
