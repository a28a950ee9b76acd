package notification

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ai-content-platform/internal/domain"
)

// MaxNotifications bounds the queue. Older entries are evicted on Show.
const MaxNotifications = 5

// Listener receives the full queue, newest first, after every change.
// The slice must be treated as read-only.
type Listener func([]domain.Notification)

type subscription struct {
	id uint64
	fn Listener
}

// Manager mediates between notification producers and renderers. It keeps a
// bounded newest-first queue and fans every change out to subscribers.
// Timed dismissal is left to renderers (see Expirer).
type Manager struct {
	mu        sync.Mutex
	emitMu    sync.Mutex // keeps listener calls in mutation order
	items     []domain.Notification
	listeners []subscription
	nextSub   uint64
	lastID    int64
	nextID    func() int64
	now       func() time.Time
	disposed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDSource makes the Manager draw ids from fn, which must return
// strictly increasing values. Used to share ids across managers.
func WithIDSource(fn func() int64) Option {
	return func(m *Manager) { m.nextID = fn }
}

// WithClock overrides the timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) { m.now = fn }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{now: time.Now}
	m.nextID = func() int64 {
		m.lastID++
		return m.lastID
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers l and returns a function that unregisters it.
// Listeners are called synchronously in registration order and must not call
// back into the Manager from inside the callback.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return func() {}
	}
	m.nextSub++
	id := m.nextSub
	m.listeners = append(m.listeners, subscription{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.listeners {
				if s.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Show resolves opts against the per-type defaults, prepends the result and
// returns its id. A disposed Manager returns 0.
func (m *Manager) Show(opts domain.NotificationOptions) int64 {
	typ := domain.ParseNotificationType(opts.Type)
	defaults := typ.Defaults()

	title := opts.Title
	if title == "" {
		title = defaults.Title
	}
	duration := defaults.DurationMS
	if opts.Duration != nil {
		if *opts.Duration >= 0 {
			duration = *opts.Duration
		} else {
			slog.Debug("negative notification duration, using default", "type", typ, "duration", *opts.Duration)
		}
	}
	showProgress := true
	if opts.ShowProgress != nil {
		showProgress = *opts.ShowProgress
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return 0
	}
	n := domain.Notification{
		ID:           m.nextID(),
		Type:         typ,
		Title:        title,
		Message:      opts.Message,
		Description:  opts.Description,
		Duration:     duration,
		ShowProgress: showProgress,
		Action:       opts.Action,
		Timestamp:    m.now().UnixMilli(),
	}
	keep := len(m.items)
	if keep > MaxNotifications-1 {
		keep = MaxNotifications - 1
	}
	items := make([]domain.Notification, 0, keep+1)
	items = append(items, n)
	items = append(items, m.items[:keep]...)
	m.items = items
	m.emit()
	return n.ID
}

// Remove drops the notification with id. Unknown ids are not an error;
// subscribers are notified either way.
func (m *Manager) Remove(id int64) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	items := make([]domain.Notification, 0, len(m.items))
	for _, n := range m.items {
		if n.ID != id {
			items = append(items, n)
		}
	}
	m.items = items
	m.emit()
}

// Clear empties the queue.
func (m *Manager) Clear() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.items = nil
	m.emit()
}

// Notifications returns a copy of the queue, newest first.
func (m *Manager) Notifications() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.items...)
}

// Dispose drops every subscriber and the queue. Later calls are no-ops.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	m.items = nil
	m.listeners = nil
}

func (m *Manager) Success(title string, opts domain.NotificationOptions) int64 {
	return m.showTyped(domain.NotificationSuccess, title, opts)
}

func (m *Manager) Error(title string, opts domain.NotificationOptions) int64 {
	return m.showTyped(domain.NotificationError, title, opts)
}

func (m *Manager) Warning(title string, opts domain.NotificationOptions) int64 {
	return m.showTyped(domain.NotificationWarning, title, opts)
}

func (m *Manager) Info(title string, opts domain.NotificationOptions) int64 {
	return m.showTyped(domain.NotificationInfo, title, opts)
}

// AI shows an ai-processing notification. It persists and shows progress
// unless opts says otherwise.
func (m *Manager) AI(title string, opts domain.NotificationOptions) int64 {
	if opts.Duration == nil {
		var zero int64
		opts.Duration = &zero
	}
	return m.showTyped(domain.NotificationAI, title, opts)
}

func (m *Manager) showTyped(typ domain.NotificationType, title string, opts domain.NotificationOptions) int64 {
	opts.Type = string(typ)
	if title != "" {
		opts.Title = title
	}
	return m.Show(opts)
}

// emit must be called with m.mu held; it releases it.
func (m *Manager) emit() {
	snapshot := append([]domain.Notification(nil), m.items...)
	listeners := append([]subscription(nil), m.listeners...)
	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()
	for _, s := range listeners {
		s.fn(snapshot)
	}
}
