package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from src to the given
// destinations at the specified interval.
func NewScheduler(src Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       src,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Delivery is the outcome of sending one snapshot to one destination.
type Delivery struct {
	Destination string
	Changed     bool
	Err         error
}

// RunOnce takes one snapshot and delivers it to every destination. It
// returns the snapshot, one Delivery per destination, and the joined
// delivery errors. A failing destination does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (*Snapshot, []Delivery, error) {
	snap, err := Take(ctx, s.source)
	if err != nil {
		return nil, nil, err
	}

	deliveries := make([]Delivery, len(s.destinations))
	var errs []error
	for i, dest := range s.destinations {
		name := destinationName(i, dest)
		changed, err := dest.Deliver(ctx, snap)
		if err != nil {
			err = fmt.Errorf("destination %s: %w", name, err)
			errs = append(errs, err)
		}
		deliveries[i] = Delivery{Destination: name, Changed: changed, Err: err}
	}
	return snap, deliveries, errors.Join(errs...)
}

func (s *Scheduler) run(ctx context.Context) {
	s.exportOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exportOnce(ctx)
		}
	}
}

func (s *Scheduler) exportOnce(ctx context.Context) {
	snap, deliveries, err := s.RunOnce(ctx)
	if snap == nil {
		s.logger.Error("export failed", "err", err)
		return
	}
	changed := 0
	for _, d := range deliveries {
		if d.Changed {
			changed++
		}
	}
	if err != nil {
		s.logger.Error("export failed", "err", err, "delivered", changed)
		return
	}
	s.logger.Info("export completed", "lists", snap.Header.ListCount, "tasks", snap.Header.ItemCount,
		"destinations", len(deliveries), "updated", changed)
}

func destinationName(i int, d Destination) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%d", i)
}
