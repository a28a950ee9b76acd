package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ai-content-platform/internal/domain"
)

type hubEntry struct {
	manager  *Manager
	expirer  *Expirer
	lastUsed time.Time
	holds    int
}

// Hub owns one Manager per user. Managers are created on first use and share
// a single id sequence, so ids are unique across the whole process.
type Hub struct {
	tick time.Duration
	now  func() time.Time

	mu       sync.Mutex
	entries  map[string]*hubEntry
	onCreate []func(userID string, m *Manager)
	ids      atomic.Int64
}

// NewHub returns an empty Hub. A positive tick attaches an Expirer to every
// Manager so notifications also expire server-side.
func NewHub(tick time.Duration) *Hub {
	return &Hub{tick: tick, now: time.Now, entries: make(map[string]*hubEntry)}
}

// OnCreate registers fn to run for every Manager created after the call.
func (h *Hub) OnCreate(fn func(userID string, m *Manager)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCreate = append(h.onCreate, fn)
}

// For returns the Manager for userID, creating it if needed.
func (h *Hub) For(userID string) *Manager {
	return h.entry(userID).manager
}

// Hold returns userID's Manager and pins it against idle release until the
// returned func is called. Long-lived readers such as streams use it.
func (h *Hub) Hold(userID string) (*Manager, func()) {
	h.mu.Lock()
	e := h.entryLocked(userID)
	e.holds++
	h.mu.Unlock()

	var once sync.Once
	return e.manager, func() {
		once.Do(func() {
			h.mu.Lock()
			e.holds--
			e.lastUsed = h.now()
			h.mu.Unlock()
		})
	}
}

// Expirer returns the Expirer attached to userID's Manager, if any.
func (h *Hub) Expirer(userID string) (*Expirer, bool) {
	e := h.entry(userID).expirer
	return e, e != nil
}

func (h *Hub) entry(userID string) *hubEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entryLocked(userID)
}

func (h *Hub) entryLocked(userID string) *hubEntry {
	if e, ok := h.entries[userID]; ok {
		e.lastUsed = h.now()
		return e
	}
	m := NewManager(WithIDSource(func() int64 { return h.ids.Add(1) }))
	e := &hubEntry{manager: m, lastUsed: h.now()}
	if h.tick > 0 {
		e.expirer = NewExpirer(m, h.tick)
	}
	for _, fn := range h.onCreate {
		fn(userID, m)
	}
	h.entries[userID] = e
	return e
}

// Release disposes userID's Manager. The next For call starts a fresh queue.
func (h *Hub) Release(userID string) {
	h.mu.Lock()
	e, ok := h.entries[userID]
	delete(h.entries, userID)
	h.mu.Unlock()
	if ok {
		e.close()
	}
}

// ReleaseIdle releases every user whose Manager has not been touched for
// idle and is not held, checking once per idle period until ctx is done.
// A non-positive idle returns immediately.
func (h *Hub) ReleaseIdle(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep(idle)
		}
	}
}

func (h *Hub) sweep(idle time.Duration) int {
	h.mu.Lock()
	var stale []*hubEntry
	for userID, e := range h.entries {
		if e.holds == 0 && h.now().Sub(e.lastUsed) > idle {
			stale = append(stale, e)
			delete(h.entries, userID)
		}
	}
	h.mu.Unlock()
	for _, e := range stale {
		e.close()
	}
	return len(stale)
}

// Len reports how many users currently have a Manager.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Dispose releases every Manager.
func (h *Hub) Dispose() {
	h.mu.Lock()
	entries := h.entries
	h.entries = make(map[string]*hubEntry)
	h.mu.Unlock()
	for _, e := range entries {
		e.close()
	}
}

func (e *hubEntry) close() {
	if e.expirer != nil {
		e.expirer.Close()
	}
	e.manager.Dispose()
}

// NewArrivals adapts fn into a Listener that is called once for each
// notification not seen in an earlier snapshot.
func NewArrivals(fn func(domain.Notification)) Listener {
	var (
		mu   sync.Mutex
		seen int64
	)
	return func(items []domain.Notification) {
		mu.Lock()
		var fresh []domain.Notification
		high := seen
		for _, n := range items {
			if n.ID > seen {
				fresh = append(fresh, n)
				if n.ID > high {
					high = n.ID
				}
			}
		}
		seen = high
		mu.Unlock()
		// items are newest first; deliver oldest first
		for i := len(fresh) - 1; i >= 0; i-- {
			fn(fresh[i])
		}
	}
}
