package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// clientName identifies todoboard connections in NATS monitoring.
const clientName = "todoboard"

// NATSPublisher publishes JSON-encoded events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name(clientName)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

// flushTimeout bounds Flush when the caller's context has no deadline.
const flushTimeout = 5 * time.Second

// Flush waits until the server has processed everything published so far.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber subscribes to events from NATS subjects.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to NATS with automatic reconnection support.
// Extra nats.Option values (e.g. disconnect/reconnect handlers) can be appended.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe returns a channel of events on topic, which may be a wildcard
// such as TopicAll. The returned func unsubscribes and closes the channel.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	q := &queue{ch: make(chan Message, 64)}
	sub, err := s.conn.Subscribe(topic, q.deliver)
	if err != nil {
		close(q.ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The subscription must reach the server before other sessions publish.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(q.ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return q.ch, func() { q.stop(sub) }, nil
}

// queue hands NATS messages to a buffered channel, dropping them when the
// reader falls behind. A dropped event only delays a refetch.
type queue struct {
	ch     chan Message
	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (q *queue) deliver(msg *nats.Msg) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- Message{Topic: msg.Subject, Data: msg.Data}:
	default:
	}
}

func (q *queue) stop(sub *nats.Subscription) {
	q.once.Do(func() {
		_ = sub.Unsubscribe()
		q.mu.Lock()
		defer q.mu.Unlock()
		q.closed = true
		// Pending events are discarded, not handed to a reader that cancelled.
		for {
			select {
			case <-q.ch:
			default:
				close(q.ch)
				return
			}
		}
	})
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
