package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), TopicListCreated, ListEvent{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestPublishers_ImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		topic string
		data  string
		want  Change
	}{
		{TopicListDeleted, `{"list_id":"l1","origin":"s1"}`, Change{Topic: TopicListDeleted, ListID: "l1", Origin: "s1"}},
		{TopicItemUpdated, `{"list_id":"l1","item_id":"i1","status":"done"}`, Change{Topic: TopicItemUpdated, ListID: "l1", ItemID: "i1"}},
	}
	for _, tt := range tests {
		got, err := Decode(tt.topic, []byte(tt.data))
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", tt.topic, err)
		}
		if got != tt.want {
			t.Errorf("Decode(%s) = %+v, want %+v", tt.topic, got, tt.want)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode("todo.board.moved", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown topic")
	}
	if _, err := Decode(TopicItemCreated, []byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicItemCreated, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := ItemEvent{ListID: "list-1", ItemID: "item-1", Status: "todo"}
	if err := pub.Publish(context.Background(), TopicItemCreated, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if err := pub.Flush(context.Background()); err != nil {
		t.Fatalf("Flush error: %v", err)
	}

	select {
	case msg := <-ch:
		var got ItemEvent
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != event {
			t.Errorf("got %+v, want %+v", got, event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_FlushWithDeadline(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pub.Flush(ctx); err != nil {
		t.Errorf("Flush error: %v", err)
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicListCreated, ListEvent{ListID: "x"}); err == nil {
		t.Error("expected error publishing with a cancelled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	err = pub.Publish(context.Background(), TopicListCreated, ListEvent{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}
