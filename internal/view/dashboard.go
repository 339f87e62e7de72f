// Package view renders the todo board as text. A Dashboard reads lists and
// the selected list's detail through the query cache without blocking,
// reconciles the selection, and redraws whenever the cache or the board
// state changes.
package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alfredjeanlab/todoboard/internal/board"
	"github.com/alfredjeanlab/todoboard/internal/client"
	"github.com/alfredjeanlab/todoboard/internal/model"
	"github.com/alfredjeanlab/todoboard/internal/querycache"
	"github.com/alfredjeanlab/todoboard/internal/todos"
	"github.com/alfredjeanlab/todoboard/internal/ui"
)

// Copy shown by the dashboard.
const (
	EmptyListsTitle       = "Create your first list"
	EmptyListsDescription = "Lists help teams group work by product area, squad, or initiative."
	WelcomeTitle          = "Create a list to get started"
	WelcomeDescription    = "Capture high-level goals, break them into tasks, and showcase delivery momentum, all in one board."
	ListsErrorTitle       = "Unable to load lists"
	DetailErrorTitle      = "Unable to load list"
	NoMatchingItems       = "No tasks match the current filters."
	TagSummaryTitle       = "Tags across this list"
)

const (
	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006 15:04"

	// DefaultDebounce coalesces bursts of change notifications into one redraw.
	DefaultDebounce = 50 * time.Millisecond
)

// Dashboard renders the sidebar of lists and the detail panel of the
// selected list.
type Dashboard struct {
	svc      *todos.Service
	store    *board.Store
	notices  *Notices
	loc      *time.Location
	debounce time.Duration
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithNotices renders q at the top of each frame.
func WithNotices(q *Notices) Option {
	return func(d *Dashboard) { d.notices = q }
}

// WithLocation sets the time zone dates are shown in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(d *Dashboard) { d.loc = loc }
}

// WithDebounce sets how long Watch waits for further changes before redrawing.
func WithDebounce(delay time.Duration) Option {
	return func(d *Dashboard) { d.debounce = delay }
}

// NewDashboard creates a dashboard over svc and store.
func NewDashboard(svc *todos.Service, store *board.Store, opts ...Option) *Dashboard {
	d := &Dashboard{svc: svc, store: store, loc: time.Local, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Render writes one frame to w.
func (d *Dashboard) Render(w io.Writer) error {
	_, err := io.WriteString(w, d.Frame())
	return err
}

// Refresh reconciles the board selection with the cached lists and starts
// background fetches for missing or stale entries.
func (d *Dashboard) Refresh() {
	d.refresh()
}

func (d *Dashboard) refresh() (todos.ListsState, todos.DetailState, board.State) {
	lists := d.svc.ListsSnapshot()
	if lists.Loaded {
		d.store.ReconcileSelection(lists.Lists, lists.Fetching)
	}
	state := d.store.State()
	return lists, d.svc.DetailSnapshot(state.SelectedListID), state
}

// Frame refreshes and renders one frame showing whatever is cached now.
func (d *Dashboard) Frame() string {
	lists, detail, state := d.refresh()

	var b strings.Builder
	d.writeNotices(&b)
	d.writeSidebar(&b, lists, state.SelectedListID)
	b.WriteString("\n")
	d.writeMain(&b, lists, detail, state)
	return b.String()
}

// Watch calls fn with a new frame every time the todo cache entries, the
// board state or the notices change, until ctx is done. Notifications that
// arrive together produce one frame, and a frame identical to the previous
// one is skipped.
func (d *Dashboard) Watch(ctx context.Context, fn func(frame string)) error {
	dirty := make(chan struct{}, 1)
	mark := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}
	defer d.svc.Cache().Subscribe(todos.Keys.All(), func(querycache.Key) { mark() })()
	defer d.store.Subscribe(func(board.State) { mark() })()
	if d.notices != nil {
		defer d.notices.OnChange(mark)()
	}

	var last string
	emit := func() {
		frame := d.Frame()
		if frame != last {
			last = frame
			fn(frame)
		}
	}
	emit()

	debounce := time.NewTimer(0)
	debounce.Stop()
	select {
	case <-debounce.C:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return ctx.Err()
		case <-dirty:
			debounce.Reset(d.debounce)
		case <-debounce.C:
			emit()
		}
	}
}

func (d *Dashboard) writeNotices(b *strings.Builder) {
	if d.notices == nil {
		return
	}
	notices := d.notices.List()
	for _, n := range notices {
		line := n.Title
		if n.Description != "" {
			line += ": " + n.Description
		}
		if n.Kind == todos.NoticeError {
			fmt.Fprintf(b, "%s %s\n", ui.RenderError("✗"), line)
		} else {
			fmt.Fprintf(b, "%s %s\n", ui.RenderSuccess("✓"), line)
		}
	}
	if len(notices) > 0 {
		b.WriteString("\n")
	}
}

func (d *Dashboard) writeSidebar(b *strings.Builder, lists todos.ListsState, selected string) {
	b.WriteString(ui.RenderBold("Lists") + "\n")
	if lists.Loading() {
		b.WriteString(ui.RenderMuted("  Loading lists...") + "\n")
		return
	}
	if len(lists.Lists) == 0 {
		fmt.Fprintf(b, "  %s\n  %s\n", EmptyListsTitle, ui.RenderMuted(EmptyListsDescription))
		return
	}
	for _, l := range lists.Lists {
		marker := " "
		name := l.Name
		if l.ID == selected {
			marker = ui.RenderAccent("›")
			name = ui.RenderBold(name)
		}
		fmt.Fprintf(b, "%s %s  %s\n", marker, name, ui.RenderMuted(fmt.Sprintf("%d tasks", l.ItemCount)))
		if desc := model.Deref(l.Description); desc != "" {
			fmt.Fprintf(b, "    %s\n", ui.RenderMuted(desc))
		}
		fmt.Fprintf(b, "    %s\n", ui.RenderMuted(fmt.Sprintf("Updated %s  %s", d.date(l.UpdatedAt), l.ID)))
	}
}

func (d *Dashboard) writeMain(b *strings.Builder, lists todos.ListsState, detail todos.DetailState, state board.State) {
	if lists.Err != nil {
		fmt.Fprintf(b, "%s\n  %s\n\n", ui.RenderError(ListsErrorTitle), client.Message(lists.Err))
	}

	shown := detail.Detail
	if shown == nil && state.SelectedListID != "" {
		for _, l := range lists.Lists {
			if l.ID == state.SelectedListID {
				shown = &model.TodoListDetail{TodoListSummary: l}
				break
			}
		}
	}

	if detail.Loading() {
		b.WriteString(ui.RenderMuted("Loading list...") + "\n\n")
	}
	if detail.Err != nil && !detail.Loaded {
		fmt.Fprintf(b, "%s\n  %s\n\n", ui.RenderError(DetailErrorTitle), client.Message(detail.Err))
	}

	switch {
	case shown != nil:
		d.writeDetail(b, shown, state)
	case !detail.Loading() && !lists.Loading() && len(lists.Lists) == 0:
		fmt.Fprintf(b, "%s\n%s\n", ui.RenderBold(WelcomeTitle), ui.RenderMuted(WelcomeDescription))
	}
}

func (d *Dashboard) writeDetail(b *strings.Builder, list *model.TodoListDetail, state board.State) {
	b.WriteString(ui.RenderBold(list.Name) + "\n")
	if desc := model.Deref(list.Description); desc != "" {
		b.WriteString(desc + "\n")
	}
	fmt.Fprintf(b, "%s\n\n", ui.RenderMuted(fmt.Sprintf("Created %s • %d tasks", d.date(list.CreatedAt), len(list.Items))))

	filters := make([]string, len(board.Filters))
	for i, f := range board.Filters {
		if f == state.StatusFilter {
			filters[i] = ui.RenderAccent("[" + f.Label() + "]")
		} else {
			filters[i] = " " + f.Label() + " "
		}
	}
	b.WriteString(strings.Join(filters, " ") + "\n")
	if state.SearchTerm != "" {
		fmt.Fprintf(b, "Search: %s\n", state.SearchTerm)
	}
	b.WriteString("\n")

	items := board.FilterItems(list.Items, state)
	if len(items) == 0 {
		b.WriteString("  " + ui.RenderMuted(NoMatchingItems) + "\n")
	}
	for i := range items {
		d.writeItem(b, &items[i])
	}

	tags := board.TagSummary(list.Items)
	if len(tags) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n ", ui.RenderMuted(TagSummaryTitle))
	for _, tc := range tags {
		fmt.Fprintf(b, " #%s %s", tc.Name, ui.RenderMuted(fmt.Sprint(tc.Count)))
	}
	b.WriteString("\n")
}

func (d *Dashboard) writeItem(b *strings.Builder, item *model.TodoItem) {
	fmt.Fprintf(b, "  %s  %s\n", item.Title, ui.RenderMuted(item.ID))
	if desc := model.Deref(item.Description); desc != "" {
		fmt.Fprintf(b, "    %s\n", desc)
	}
	line := "    " + ui.RenderStatus(item.Status)
	for _, name := range item.TagNames() {
		line += " #" + name
	}
	if item.DueDate != nil {
		line += ui.RenderMuted("  due " + d.date(*item.DueDate))
	}
	b.WriteString(line + "\n")
	fmt.Fprintf(b, "    %s\n\n", ui.RenderMuted("Updated "+item.UpdatedAt.In(d.loc).Format(dateTimeLayout)))
}

func (d *Dashboard) date(t time.Time) string {
	return t.In(d.loc).Format(dateLayout)
}
