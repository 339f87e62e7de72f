package todos

import (
	"log/slog"
	"sync"
	"time"
)

// NoticeKind distinguishes success notices from failures.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient, dismissable message about a mutation's outcome.
type Notice struct {
	Kind        NoticeKind
	Title       string
	Description string
	Time        time.Time
}

// Notifier receives mutation notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if n.Kind == NoticeError {
		logger.Warn(n.Title, "detail", n.Description)
		return
	}
	logger.Info(n.Title, "detail", n.Description)
}

// MultiNotifier fans a notice out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n Notice) {
	for _, x := range m {
		x.Notify(n)
	}
}

// Recorder keeps every notice it receives. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice, if any.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
