// Package querycache is a key-addressed read-through cache for remote reads.
//
// Entries are filled by a caller-supplied fetch function and addressed by a
// hierarchical Key. Invalidate marks every entry under a prefix stale and
// notifies subscribers; the refetch happens on the next read. Concurrent
// reads of one key share a single in-flight request.
package querycache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by reads on a closed cache.
var ErrClosed = errors.New("querycache: closed")

// DefaultStaleTime is the freshness window used when none is configured.
const DefaultStaleTime = 15 * time.Second

// FetchFunc loads the value of one key. The context is bound to the cache's
// lifetime, not to any single reader.
type FetchFunc func(ctx context.Context) (any, error)

// Query describes one cached read.
type Query struct {
	Key   Key
	Fetch FetchFunc
	// StaleTime is how long fetched data stays fresh. Zero uses the cache default.
	StaleTime time.Duration
}

// Options configures a Cache.
type Options struct {
	// StaleTime is the default freshness window. Zero selects DefaultStaleTime.
	StaleTime time.Duration
	// Retry is the number of extra attempts after a failed fetch.
	Retry int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	Logger     *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Snapshot is a point-in-time view of one entry.
type Snapshot struct {
	Key       Key
	Data      any
	HasData   bool
	Err       error
	UpdatedAt time.Time
	Stale     bool
	Fetching  bool
}

// Loading reports whether the entry has no data yet and a fetch is running.
func (s Snapshot) Loading() bool { return !s.HasData && s.Fetching }

// Cache holds fetched data keyed by Key. A Cache must be created with New
// and is safe for concurrent use.
type Cache struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	subs    map[int]subscription
	nextSub int
	seq     uint64
	closed  bool
}

type entry struct {
	key       Key
	staleTime time.Duration

	data      any
	hasData   bool
	updatedAt time.Time
	err       error

	// epoch advances on every invalidation. dataEpoch is the epoch the stored
	// data was requested in; data is stale whenever the two differ.
	epoch     uint64
	dataEpoch uint64
	errEpoch  uint64

	flight *flight
}

type flight struct {
	id    string
	epoch uint64
}

type subscription struct {
	prefix Key
	fn     func(Key)
}

// New creates a cache. Close releases its background fetches.
func New(opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		opts:    opts,
		logger:  opts.Logger,
		now:     opts.Now,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
		subs:    make(map[int]subscription),
	}
}

// Close cancels in-flight fetches and rejects further reads.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

// Fetch returns fresh data for q, fetching it if the entry is missing, stale
// or invalidated. Abandoning the call through ctx does not cancel the fetch;
// its result still lands in the cache.
func (c *Cache) Fetch(ctx context.Context, q Query) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(q)
	if e.hasData && !c.staleLocked(e) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	ch := c.startLocked(e, q.Fetch)
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the current snapshot of q without blocking. A stale or missing
// entry gets a background refetch, reflected in the snapshot's Fetching flag.
// An entry whose last fetch failed is not refetched until it is invalidated
// or read with Fetch.
func (c *Cache) Get(q Query) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{Key: q.Key.Clone(), Err: ErrClosed}
	}
	e := c.entryLocked(q)
	failed := e.err != nil && e.errEpoch == e.epoch
	if c.staleLocked(e) && !c.flyingLocked(e) && !failed {
		c.startLocked(e, q.Fetch)
	}
	return c.snapshotLocked(e)
}

// Peek returns the snapshot of key without creating the entry or fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{Key: key.Clone()}, false
	}
	return c.snapshotLocked(e), true
}

// Invalidate marks every entry under prefix stale and synchronously notifies
// subscribers of each affected key. It returns the number of entries marked.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	var keys []Key
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.epoch++
			keys = append(keys, e.key)
		}
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	if len(keys) > 0 {
		c.logger.Debug("cache invalidated", "prefix", prefix.String(), "entries", len(keys))
	}
	notify(subs, keys)
	return len(keys)
}

// Remove evicts every entry under prefix. Fetches still in flight for a
// removed entry have their results discarded.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	var keys []Key
	for s, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, s)
			keys = append(keys, e.key)
		}
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	if len(keys) > 0 {
		c.logger.Debug("cache entries removed", "prefix", prefix.String(), "entries", len(keys))
	}
	notify(subs, keys)
	return len(keys)
}

// Subscribe registers fn to be called with the key of every entry under
// prefix that is invalidated, removed or refreshed. fn runs on the goroutine
// that caused the change and must not block. The returned func cancels the
// subscription.
func (c *Cache) Subscribe(prefix Key, fn func(Key)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = subscription{prefix: prefix.Clone(), fn: fn}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// --- internal helpers ---

func (c *Cache) entryLocked(q Query) *entry {
	s := q.Key.String()
	e, ok := c.entries[s]
	if !ok {
		e = &entry{key: q.Key.Clone()}
		c.entries[s] = e
	}
	e.staleTime = q.StaleTime
	if e.staleTime <= 0 {
		e.staleTime = c.opts.StaleTime
	}
	return e
}

func (c *Cache) staleLocked(e *entry) bool {
	if !e.hasData || e.dataEpoch != e.epoch {
		return true
	}
	return c.now().Sub(e.updatedAt) >= e.staleTime
}

// flyingLocked reports whether a fetch requested at the current epoch is running.
func (c *Cache) flyingLocked(e *entry) bool {
	return e.flight != nil && e.flight.epoch == e.epoch
}

func (c *Cache) snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		Key:       e.key.Clone(),
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Stale:     c.staleLocked(e),
		Fetching:  e.flight != nil,
	}
}

// startLocked joins the entry's current-epoch flight or starts a new one.
func (c *Cache) startLocked(e *entry, fetch FetchFunc) <-chan singleflight.Result {
	if !c.flyingLocked(e) {
		c.seq++
		e.flight = &flight{
			id:    e.key.String() + "#" + strconv.FormatUint(c.seq, 10),
			epoch: e.epoch,
		}
	}
	f := e.flight
	return c.group.DoChan(f.id, func() (any, error) {
		data, err := c.run(e.key, fetch)
		c.complete(e, f, data, err)
		return data, err
	})
}

// run calls fetch, retrying failures up to Options.Retry times.
func (c *Cache) run(key Key, fetch FetchFunc) (any, error) {
	for attempt := 0; ; attempt++ {
		data, err := fetch(c.ctx)
		if err == nil {
			return data, nil
		}
		if attempt >= c.opts.Retry || c.ctx.Err() != nil ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("fetch failed", "key", key.String(), "attempts", attempt+1, "err", err)
			return nil, err
		}
		c.logger.Debug("fetch failed, retrying", "key", key.String(), "attempt", attempt+1, "err", err)
		timer := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			return nil, err
		}
	}
}

// complete stores a flight's result unless the entry was removed or newer
// data has already landed, then notifies subscribers.
func (c *Cache) complete(e *entry, f *flight, data any, err error) {
	c.mu.Lock()
	if e.flight == f {
		e.flight = nil
	}
	if c.entries[e.key.String()] != e {
		c.mu.Unlock()
		c.logger.Debug("discarding result for removed entry", "key", e.key.String())
		return
	}
	if err != nil {
		if !e.hasData || f.epoch >= e.dataEpoch {
			e.err = err
			e.errEpoch = f.epoch
		}
	} else if !e.hasData || f.epoch >= e.dataEpoch {
		e.data = data
		e.hasData = true
		e.dataEpoch = f.epoch
		e.updatedAt = c.now()
		e.err = nil
	}
	key := e.key
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, []Key{key})
}

func (c *Cache) subscribersLocked() []subscription {
	out := make([]subscription, 0, len(c.subs))
	for _, s := range c.subs {
		out = append(out, s)
	}
	return out
}

func notify(subs []subscription, keys []Key) {
	for _, k := range keys {
		for _, s := range subs {
			if k.HasPrefix(s.prefix) {
				s.fn(k)
			}
		}
	}
}
