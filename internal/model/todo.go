package model

import "time"

// Status is the progress state of a todo item.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// StatusOrder is the fixed rotation order used when cycling an item's status.
var StatusOrder = []Status{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}

var statusLabels = map[Status]string{
	StatusTodo:       "Todo",
	StatusInProgress: "In progress",
	StatusBlocked:    "Blocked",
	StatusDone:       "Done",
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Label returns the human-readable label for the status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// NextStatus returns the status that follows s in StatusOrder, wrapping
// after the last. Unknown statuses rotate to the first status.
func NextStatus(s Status) Status {
	for i, st := range StatusOrder {
		if st == s {
			return StatusOrder[(i+1)%len(StatusOrder)]
		}
	}
	return StatusOrder[0]
}

// TodoList is a named collection of todo items.
type TodoList struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoListSummary is a list plus its derived item count, as returned by the
// lists collection endpoint.
type TodoListSummary struct {
	TodoList
	ItemCount int `json:"item_count"`
}

// TodoListDetail is a list summary plus its items.
type TodoListDetail struct {
	TodoListSummary
	Items []TodoItem `json:"items"`
}

// Tag is a free-text label attachable to many items.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TodoItem is a single unit of work belonging to exactly one list.
type TodoItem struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      Status     `json:"status"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Tags        []Tag      `json:"tags"`
}

// TagNames returns the names of the item's tags in order.
func (i *TodoItem) TagNames() []string {
	names := make([]string, len(i.Tags))
	for n, t := range i.Tags {
		names[n] = t.Name
	}
	return names
}

// Deref returns the value of an optional string, or "" when absent.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
