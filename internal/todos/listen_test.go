package todos

import (
	"context"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/alfredjeanlab/todoboard/internal/client"
	"github.com/alfredjeanlab/todoboard/internal/events"
	"github.com/alfredjeanlab/todoboard/internal/model"
	"github.com/alfredjeanlab/todoboard/internal/querycache"
	"github.com/alfredjeanlab/todoboard/internal/testutil"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestApplyChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	list := h.createList(t, "L")
	if _, err := h.svc.ListDetail(ctx, list.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.Lists(ctx); err != nil {
		t.Fatal(err)
	}

	h.svc.ApplyChange(events.Change{Topic: events.TopicItemUpdated, ListID: list.ID, ItemID: "i"})
	if !stale(t, h.cache, Keys.List(list.ID)) || !stale(t, h.cache, Keys.Lists()) {
		t.Error("item change did not invalidate detail and lists")
	}

	if _, err := h.svc.ListDetail(ctx, list.ID); err != nil {
		t.Fatal(err)
	}
	h.svc.ApplyChange(events.Change{Topic: events.TopicListDeleted, ListID: list.ID})
	if _, ok := h.cache.Peek(Keys.List(list.ID)); ok {
		t.Error("remote list delete did not evict the detail")
	}
}

func TestListen_CrossSessionInvalidation(t *testing.T) {
	url := startTestNATS(t)
	backend := testutil.NewFakeBackend(t)

	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()
	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	newSession := func(origin string, p events.Publisher) (*Service, *querycache.Cache) {
		cache := querycache.New(querycache.Options{})
		t.Cleanup(cache.Close)
		return New(Options{
			Client:    client.NewHTTPClient(backend.URL()),
			Cache:     cache,
			Publisher: p,
			Notifier:  &Recorder{},
			Origin:    origin,
		}), cache
	}
	writer, _ := newSession("writer", pub)
	reader, readerCache := newSession("reader", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listenErr := make(chan error, 1)
	go func() { listenErr <- reader.Listen(ctx, sub) }()

	if _, err := reader.Lists(ctx); err != nil {
		t.Fatalf("Lists() error = %v", err)
	}

	invalidated := make(chan querycache.Key, 4)
	defer readerCache.Subscribe(Keys.Lists(), func(k querycache.Key) { invalidated <- k })()

	// Give the listener time to register its subscription.
	time.Sleep(50 * time.Millisecond)
	if _, err := writer.CreateList(ctx, model.CreateListInput{Name: "Shared"}); err != nil {
		t.Fatalf("CreateList() error = %v", err)
	}
	_ = pub.Flush(ctx)

	select {
	case k := <-invalidated:
		if !k.Equal(Keys.Lists()) {
			t.Errorf("invalidated %v", k)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader cache was not invalidated by the remote mutation")
	}

	lists, err := reader.Lists(ctx)
	if err != nil {
		t.Fatalf("Lists() error = %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Shared" {
		t.Errorf("reader lists = %+v", lists)
	}

	cancel()
	select {
	case err := <-listenErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Listen() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

// chanSubscriber feeds Listen from a test-controlled channel.
type chanSubscriber struct {
	ch chan events.Message
}

func (s *chanSubscriber) Subscribe(string) (<-chan events.Message, func(), error) {
	return s.ch, func() {}, nil
}

func (s *chanSubscriber) Close() error { return nil }

func TestListen_SkipsOwnEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.svc.Lists(ctx); err != nil {
		t.Fatal(err)
	}

	sub := &chanSubscriber{ch: make(chan events.Message, 3)}
	sub.ch <- events.Message{Topic: events.TopicListCreated, Data: []byte(`{"list_id":"x","origin":"session-a"}`)}
	sub.ch <- events.Message{Topic: events.TopicListCreated, Data: []byte(`garbage`)}
	close(sub.ch)

	if err := h.svc.Listen(ctx, sub); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if stale(t, h.cache, Keys.Lists()) {
		t.Error("own or malformed event invalidated the cache")
	}
}
