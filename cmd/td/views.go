package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alfredjeanlab/todoboard/internal/board"
	"github.com/alfredjeanlab/todoboard/internal/events"
	"github.com/alfredjeanlab/todoboard/internal/model"
	"github.com/alfredjeanlab/todoboard/internal/querycache"
	"github.com/alfredjeanlab/todoboard/internal/todos"
	"github.com/alfredjeanlab/todoboard/internal/view"
)

const clearScreen = "\033[H\033[2J"

func addBoardFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("list", "l", "", "list to open (default: the first list)")
	cmd.Flags().StringP("status", "s", "", "status filter (all, todo, in_progress, blocked, done)")
	cmd.Flags().String("search", "", "match title, description, notes or tags")
}

// boardStore builds the view state from the board flags.
func boardStore(cmd *cobra.Command) (*board.Store, error) {
	listID, _ := cmd.Flags().GetString("list")
	statusFlag, _ := cmd.Flags().GetString("status")
	search, _ := cmd.Flags().GetString("search")

	filter, err := board.ParseStatusFilter(statusFlag)
	if err != nil {
		return nil, err
	}
	store := board.NewStore()
	store.SetSelectedListID(listID)
	store.SetStatusFilter(filter)
	store.SetSearchTerm(search)
	return store, nil
}

// boardJSON is the machine-readable form of one dashboard frame.
type boardJSON struct {
	Lists    []model.TodoListSummary `json:"lists"`
	Selected *model.TodoListDetail   `json:"selected,omitempty"`
	Filter   board.StatusFilter      `json:"status_filter"`
	Search   string                  `json:"search,omitempty"`
}

var boardCmd = &cobra.Command{
	Use:     "board",
	Short:   "Render the board once: lists on the left, the selected list's tasks below",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := boardStore(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		notices := view.NewNotices(view.DefaultMaxNotices)
		notifier.target = todos.MultiNotifier{todos.LogNotifier{Logger: logger}, notices}
		dash := view.NewDashboard(svc, store, view.WithNotices(notices))

		lists, listsErr := svc.Lists(ctx)
		dash.Refresh()
		state := store.State()
		var detail *model.TodoListDetail
		if state.SelectedListID != "" && listsErr == nil {
			// The dashboard shows the read error in its own panel.
			detail, _ = svc.ListDetail(ctx, state.SelectedListID)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if listsErr != nil {
				return listsErr
			}
			res := boardJSON{Lists: lists, Filter: state.StatusFilter, Search: state.SearchTerm}
			if detail != nil {
				filtered := *detail
				filtered.Items = board.FilterItems(detail.Items, state)
				res.Selected = &filtered
			}
			return printJSON(out, res)
		}
		if err := dash.Render(out); err != nil {
			return err
		}
		return listsErr
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Keep the board on screen and redraw it as lists and tasks change",
	Long: `Keep the board on screen and redraw it as lists and tasks change.

When an events server is configured (TODOBOARD_NATS_URL or the active remote),
changes made by other sessions trigger a redraw immediately. Otherwise the
board is refreshed every --interval.`,
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}
		store, err := boardStore(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		notices := view.NewNotices(view.DefaultMaxNotices)
		notifier.target = todos.MultiNotifier{todos.LogNotifier{Logger: logger}, notices}
		dash := view.NewDashboard(svc, store, view.WithNotices(notices))

		if cfg.NATSURL != "" {
			stopEvents, err := listenForChanges(ctx, svc, cfg.NATSURL)
			if err != nil {
				logger.Warn("events unavailable, polling instead", "err", err)
			} else {
				defer stopEvents()
			}
		}
		pollCtx, stopPolling := context.WithCancel(ctx)
		polled := make(chan struct{})
		todoCache := svc.Cache()
		go func() {
			defer close(polled)
			pollChanges(pollCtx, todoCache, interval)
		}()
		defer func() {
			stopPolling()
			<-polled
		}()

		out := cmd.OutOrStdout()
		tty := isTerminal(out)
		err = dash.Watch(ctx, func(frame string) {
			if tty {
				fmt.Fprint(out, clearScreen)
			} else {
				fmt.Fprintln(out, "---")
			}
			fmt.Fprint(out, frame)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// listenForChanges feeds remote mutation events into the cache. A reconnect
// invalidates everything, since events published while disconnected are lost.
func listenForChanges(ctx context.Context, s *todos.Service, url string) (func(), error) {
	sub, err := events.NewNATSSubscriber(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats: reconnected")
			s.Cache().Invalidate(todos.Keys.All())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Listen(ctx, sub); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("event listener stopped", "err", err)
		}
	}()
	return func() {
		cancel()
		<-done
		sub.Close()
	}, nil
}

// pollChanges marks every todo entry stale each interval so the board
// refetches what it shows.
func pollChanges(ctx context.Context, c *querycache.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Invalidate(todos.Keys.All())
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	addBoardFlags(boardCmd)

	addBoardFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 30*time.Second, "refresh interval (with events configured, a fallback)")
}
