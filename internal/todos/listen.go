package todos

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/todoboard/internal/events"
)

// Listen subscribes to todo events and invalidates the cache entries each
// event touches until ctx is done. Events this service published itself are
// skipped.
func (s *Service) Listen(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("listening for todo events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			change, err := events.Decode(msg.Topic, msg.Data)
			if err != nil {
				s.logger.Warn("ignoring malformed event", "topic", msg.Topic, "err", err)
				continue
			}
			if s.origin != "" && change.Origin == s.origin {
				continue
			}
			s.ApplyChange(change)
		}
	}
}

// ApplyChange invalidates the entries a remote mutation could have affected,
// mirroring the local mutation rules.
func (s *Service) ApplyChange(c events.Change) {
	s.logger.Debug("applying remote change", "topic", c.Topic, "list", c.ListID, "item", c.ItemID)
	switch c.Topic {
	case events.TopicListDeleted:
		if c.ListID != "" {
			s.cache.Remove(Keys.List(c.ListID))
		}
		s.cache.Invalidate(Keys.Lists())
	case events.TopicListCreated:
		s.cache.Invalidate(Keys.Lists())
	default:
		if c.ListID == "" {
			s.cache.Invalidate(Keys.Lists())
			return
		}
		s.invalidateItem(c.ListID)
	}
}
