// Package events carries mutation notices between todoboard sessions over
// NATS so that one session can invalidate what another session changed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TopicAll matches every todo event.
const TopicAll = "todo.>"

// Event topic constants
const (
	TopicListCreated = "todo.list.created"
	TopicListUpdated = "todo.list.updated"
	TopicListDeleted = "todo.list.deleted"

	TopicItemCreated = "todo.item.created"
	TopicItemUpdated = "todo.item.updated"
	TopicItemDeleted = "todo.item.deleted"
)

// ListEvent is published after a list is created, updated or deleted.
type ListEvent struct {
	ListID string `json:"list_id"`
	Name   string `json:"name,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// ItemEvent is published after an item is created, updated or deleted.
type ItemEvent struct {
	ListID string `json:"list_id"`
	ItemID string `json:"item_id"`
	Status string `json:"status,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// Change is a decoded event of either kind.
type Change struct {
	Topic  string
	ListID string
	// ItemID is empty for list events.
	ItemID string
	Origin string
}

// IsListTopic reports whether topic carries a ListEvent.
func IsListTopic(topic string) bool { return strings.HasPrefix(topic, "todo.list.") }

// IsItemTopic reports whether topic carries an ItemEvent.
func IsItemTopic(topic string) bool { return strings.HasPrefix(topic, "todo.item.") }

// Decode parses the payload of a message received on topic.
func Decode(topic string, data []byte) (Change, error) {
	switch {
	case IsListTopic(topic):
		var ev ListEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return Change{}, fmt.Errorf("decoding %s: %w", topic, err)
		}
		return Change{Topic: topic, ListID: ev.ListID, Origin: ev.Origin}, nil
	case IsItemTopic(topic):
		var ev ItemEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return Change{}, fmt.Errorf("decoding %s: %w", topic, err)
		}
		return Change{Topic: topic, ListID: ev.ListID, ItemID: ev.ItemID, Origin: ev.Origin}, nil
	default:
		return Change{}, fmt.Errorf("unknown topic %q", topic)
	}
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
