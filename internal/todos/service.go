// Package todos binds the todo API to the query cache: cached reads of lists
// and list details, and mutations that validate, call the server, and
// invalidate whatever the change could have affected.
package todos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/todoboard/internal/client"
	"github.com/alfredjeanlab/todoboard/internal/events"
	"github.com/alfredjeanlab/todoboard/internal/model"
	"github.com/alfredjeanlab/todoboard/internal/querycache"
)

// DefaultListsStaleTime is the freshness window of the list collection.
const DefaultListsStaleTime = 30 * time.Second

var (
	// ErrNoListSelected is returned by detail reads without a list id.
	ErrNoListSelected = errors.New("no list selected")
	// ErrItemNotFound is returned when an item is missing from its list.
	ErrItemNotFound = errors.New("item not found")
)

// Options configures a Service.
type Options struct {
	Client    client.TodoClient
	Cache     *querycache.Cache
	Notifier  Notifier
	Publisher events.Publisher
	Logger    *slog.Logger
	// ListsStaleTime defaults to DefaultListsStaleTime.
	ListsStaleTime time.Duration
	// DetailStaleTime defaults to the cache's own freshness window.
	DetailStaleTime time.Duration
	// Origin tags published events so a session can skip its own.
	Origin string
}

// Service runs todo reads and mutations through one cache.
type Service struct {
	client      client.TodoClient
	cache       *querycache.Cache
	notifier    Notifier
	publisher   events.Publisher
	logger      *slog.Logger
	listsStale  time.Duration
	detailStale time.Duration
	origin      string
}

// New creates a Service. Client and Cache are required.
func New(opts Options) *Service {
	s := &Service{
		client:      opts.Client,
		cache:       opts.Cache,
		notifier:    opts.Notifier,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		listsStale:  opts.ListsStaleTime,
		detailStale: opts.DetailStaleTime,
		origin:      opts.Origin,
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: opts.Logger}
	}
	if s.publisher == nil {
		s.publisher = &events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.listsStale <= 0 {
		s.listsStale = DefaultListsStaleTime
	}
	return s
}

// Cache returns the cache the service reads through.
func (s *Service) Cache() *querycache.Cache { return s.cache }

// --- Reads ---

func (s *Service) listsQuery() querycache.Query {
	return querycache.Query{
		Key:       Keys.Lists(),
		StaleTime: s.listsStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.client.ListLists(ctx)
		},
	}
}

func (s *Service) detailQuery(listID string) querycache.Query {
	return querycache.Query{
		Key:       Keys.List(listID),
		StaleTime: s.detailStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.client.GetListDetail(ctx, listID)
		},
	}
}

// Lists returns the list summaries, refetching when stale or invalidated.
func (s *Service) Lists(ctx context.Context) ([]model.TodoListSummary, error) {
	v, err := s.cache.Fetch(ctx, s.listsQuery())
	if err != nil {
		return nil, err
	}
	lists, _ := v.([]model.TodoListSummary)
	return lists, nil
}

// ListDetail returns one list with its items, refetching when stale or
// invalidated. An empty id issues no request.
func (s *Service) ListDetail(ctx context.Context, listID string) (*model.TodoListDetail, error) {
	if listID == "" {
		return nil, ErrNoListSelected
	}
	v, err := s.cache.Fetch(ctx, s.detailQuery(listID))
	if err != nil {
		return nil, err
	}
	detail, _ := v.(*model.TodoListDetail)
	return detail, nil
}

// ListsState is a non-blocking view of the list collection.
type ListsState struct {
	Lists     []model.TodoListSummary
	Loaded    bool
	Err       error
	Fetching  bool
	Stale     bool
	UpdatedAt time.Time
}

// Loading reports whether nothing has arrived yet and a fetch is running.
func (s ListsState) Loading() bool { return !s.Loaded && s.Fetching }

// DetailState is a non-blocking view of one list detail.
type DetailState struct {
	Detail    *model.TodoListDetail
	Loaded    bool
	Err       error
	Fetching  bool
	Stale     bool
	UpdatedAt time.Time
}

// Loading reports whether nothing has arrived yet and a fetch is running.
func (s DetailState) Loading() bool { return !s.Loaded && s.Fetching }

// ListsSnapshot returns the cached list collection, starting a background
// refetch when it is missing or stale.
func (s *Service) ListsSnapshot() ListsState {
	snap := s.cache.Get(s.listsQuery())
	lists, _ := snap.Data.([]model.TodoListSummary)
	return ListsState{
		Lists:     lists,
		Loaded:    snap.HasData,
		Err:       snap.Err,
		Fetching:  snap.Fetching,
		Stale:     snap.Stale,
		UpdatedAt: snap.UpdatedAt,
	}
}

// DetailSnapshot is ListsSnapshot for one list. It is a no-op returning the
// zero state when listID is empty.
func (s *Service) DetailSnapshot(listID string) DetailState {
	if listID == "" {
		return DetailState{}
	}
	snap := s.cache.Get(s.detailQuery(listID))
	detail, _ := snap.Data.(*model.TodoListDetail)
	return DetailState{
		Detail:    detail,
		Loaded:    snap.HasData,
		Err:       snap.Err,
		Fetching:  snap.Fetching,
		Stale:     snap.Stale,
		UpdatedAt: snap.UpdatedAt,
	}
}

// --- Mutations ---

// CreateList creates a list and invalidates the list collection.
func (s *Service) CreateList(ctx context.Context, in model.CreateListInput) (*model.TodoList, error) {
	const failTitle = "Unable to create list"
	if err := in.Validate(); err != nil {
		return nil, s.fail(failTitle, err)
	}
	list, err := s.client.CreateList(ctx, &in)
	if err != nil {
		return nil, s.fail(failTitle, err)
	}
	s.cache.Invalidate(Keys.Lists())
	s.succeed(fmt.Sprintf("Created list “%s”", list.Name), "")
	s.publish(ctx, events.TopicListCreated, events.ListEvent{ListID: list.ID, Name: list.Name, Origin: s.origin})
	return list, nil
}

// UpdateList renames or re-describes a list and invalidates it along with
// the list collection.
func (s *Service) UpdateList(ctx context.Context, in model.UpdateListInput) (*model.TodoList, error) {
	const failTitle = "Unable to update list"
	if err := in.Validate(); err != nil {
		return nil, s.fail(failTitle, err)
	}
	list, err := s.client.UpdateList(ctx, &in)
	if err != nil {
		return nil, s.fail(failTitle, err)
	}
	s.cache.Invalidate(Keys.List(list.ID))
	s.cache.Invalidate(Keys.Lists())
	s.succeed("List updated", "")
	s.publish(ctx, events.TopicListUpdated, events.ListEvent{ListID: list.ID, Name: list.Name, Origin: s.origin})
	return list, nil
}

// DeleteList deletes a list. Its detail entry is evicted outright and the
// list collection invalidated.
func (s *Service) DeleteList(ctx context.Context, listID string) error {
	const failTitle = "Unable to delete list"
	if err := model.ValidateID("list_id", listID); err != nil {
		return s.fail(failTitle, err)
	}
	if err := s.client.DeleteList(ctx, listID); err != nil {
		return s.fail(failTitle, err)
	}
	s.cache.Remove(Keys.List(listID))
	s.cache.Invalidate(Keys.Lists())
	s.succeed("List deleted", "")
	s.publish(ctx, events.TopicListDeleted, events.ListEvent{ListID: listID, Origin: s.origin})
	return nil
}

// CreateItem adds an item to a list.
func (s *Service) CreateItem(ctx context.Context, in model.CreateItemInput) (*model.TodoItem, error) {
	const failTitle = "Unable to add item"
	if err := in.Validate(); err != nil {
		return nil, s.fail(failTitle, err)
	}
	item, err := s.client.CreateItem(ctx, &in)
	if err != nil {
		return nil, s.fail(failTitle, err)
	}
	s.invalidateItem(item.ListID)
	s.succeed("Item added to list", "")
	s.publish(ctx, events.TopicItemCreated, s.itemEvent(item))
	return item, nil
}

// UpdateItem applies a partial update. The owning list is taken from the
// server's response; a list named in the input is invalidated too.
func (s *Service) UpdateItem(ctx context.Context, in model.UpdateItemInput) (*model.TodoItem, error) {
	const failTitle = "Unable to update item"
	if err := in.Validate(); err != nil {
		return nil, s.fail(failTitle, err)
	}
	item, err := s.client.UpdateItem(ctx, &in)
	if err != nil {
		return nil, s.fail(failTitle, err)
	}
	if in.ListID != "" && in.ListID != item.ListID {
		s.cache.Invalidate(Keys.List(in.ListID))
	}
	s.invalidateItem(item.ListID)
	s.succeed("Item updated", "")
	s.publish(ctx, events.TopicItemUpdated, s.itemEvent(item))
	return item, nil
}

// DeleteItem deletes an item. When listID is empty every list detail is
// invalidated.
func (s *Service) DeleteItem(ctx context.Context, listID, itemID string) error {
	const failTitle = "Unable to delete item"
	if err := model.ValidateID("item_id", itemID); err != nil {
		return s.fail(failTitle, err)
	}
	if listID != "" {
		if err := model.ValidateID("list_id", listID); err != nil {
			return s.fail(failTitle, err)
		}
	}
	if err := s.client.DeleteItem(ctx, itemID); err != nil {
		return s.fail(failTitle, err)
	}
	if listID == "" {
		s.cache.Invalidate(Keys.Lists())
	} else {
		s.invalidateItem(listID)
	}
	s.succeed("Item removed", "")
	s.publish(ctx, events.TopicItemDeleted, events.ItemEvent{ListID: listID, ItemID: itemID, Origin: s.origin})
	return nil
}

// CycleStatus advances an item to the next status in the rotation.
func (s *Service) CycleStatus(ctx context.Context, listID, itemID string) (*model.TodoItem, error) {
	detail, err := s.ListDetail(ctx, listID)
	if err != nil {
		return nil, err
	}
	for _, item := range detail.Items {
		if item.ID != itemID {
			continue
		}
		next := model.NextStatus(item.Status)
		return s.UpdateItem(ctx, model.UpdateItemInput{ItemID: itemID, ListID: listID, Status: &next})
	}
	return nil, fmt.Errorf("%w: %s in list %s", ErrItemNotFound, itemID, listID)
}

// --- internal helpers ---

func (s *Service) invalidateItem(listID string) {
	s.cache.Invalidate(Keys.List(listID))
	s.cache.Invalidate(Keys.Lists())
}

func (s *Service) itemEvent(item *model.TodoItem) events.ItemEvent {
	return events.ItemEvent{ListID: item.ListID, ItemID: item.ID, Status: string(item.Status), Origin: s.origin}
}

func (s *Service) fail(title string, err error) error {
	s.logger.Debug("mutation failed", "op", title, "err", err)
	s.notifier.Notify(Notice{Kind: NoticeError, Title: title, Description: client.Message(err), Time: time.Now()})
	return err
}

func (s *Service) succeed(title, description string) {
	s.notifier.Notify(Notice{Kind: NoticeSuccess, Title: title, Description: description, Time: time.Now()})
}

// publish announces a mutation to other sessions. Failures are logged only;
// the mutation itself already succeeded.
func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}
