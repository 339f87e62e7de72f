// Package client provides a transport-agnostic interface for the todo service
// and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alfredjeanlab/todoboard/internal/model"
)

// TodoClient is the interface the query layer and CLI use to talk to the todo
// service. Every method returns schema-validated records.
type TodoClient interface {
	// Lists
	ListLists(ctx context.Context) ([]model.TodoListSummary, error)
	GetListDetail(ctx context.Context, listID string) (*model.TodoListDetail, error)
	CreateList(ctx context.Context, in *model.CreateListInput) (*model.TodoList, error)
	UpdateList(ctx context.Context, in *model.UpdateListInput) (*model.TodoList, error)
	DeleteList(ctx context.Context, listID string) error

	// Items
	CreateItem(ctx context.Context, in *model.CreateItemInput) (*model.TodoItem, error)
	UpdateItem(ctx context.Context, in *model.UpdateItemInput) (*model.TodoItem, error)
	DeleteItem(ctx context.Context, itemID string) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// APIError represents a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError reports a request that never produced an HTTP response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

// networkMessage is what users see for any network failure.
const networkMessage = "unable to reach the server"

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", networkMessage, e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Message returns the human-readable part of err suitable for a notice:
// the server's message for API errors, a generic line for network errors,
// and the full text otherwise.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Unable to reach the server"
	}
	return err.Error()
}
