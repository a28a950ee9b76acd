package notification

import (
	"sync"
	"time"

	"github.com/ai-content-platform/internal/domain"
)

// Source is the part of a Manager an Expirer needs.
type Source interface {
	Subscribe(l Listener) (unsubscribe func())
	Remove(id int64)
}

type countdown struct {
	remaining time.Duration
	lastTick  time.Time
	paused    bool
	stop      chan struct{}
}

// Expirer dismisses notifications whose duration has elapsed. Each tracked
// notification gets its own ticker that polls the remaining time every
// interval; a paused countdown does not advance.
type Expirer struct {
	src      Source
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[int64]*countdown
	closed bool
	wg     sync.WaitGroup

	unsubscribe func()
}

// NewExpirer subscribes to src and starts tracking its notifications.
func NewExpirer(src Source, interval time.Duration) *Expirer {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	e := &Expirer{
		src:      src,
		interval: interval,
		now:      time.Now,
		timers:   make(map[int64]*countdown),
	}
	e.unsubscribe = src.Subscribe(e.sync)
	return e
}

// sync reconciles running countdowns with a queue snapshot.
func (e *Expirer) sync(items []domain.Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	present := make(map[int64]struct{}, len(items))
	for _, n := range items {
		present[n.ID] = struct{}{}
		if n.Duration <= 0 {
			continue
		}
		if _, ok := e.timers[n.ID]; ok {
			continue
		}
		c := &countdown{
			remaining: time.Duration(n.Duration) * time.Millisecond,
			lastTick:  e.now(),
			stop:      make(chan struct{}),
		}
		e.timers[n.ID] = c
		e.wg.Add(1)
		go e.run(n.ID, c)
	}
	for id, c := range e.timers {
		if _, ok := present[id]; !ok {
			close(c.stop)
			delete(e.timers, id)
		}
	}
}

func (e *Expirer) run(id int64, c *countdown) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}
		if e.tick(id, c) {
			e.src.Remove(id)
			return
		}
	}
}

// tick advances c and reports whether it has run out. An expired countdown
// is forgotten before Remove is called so a late snapshot cannot close it twice.
func (e *Expirer) tick(id int64, c *countdown) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timers[id] != c {
		return false
	}
	now := e.now()
	if !c.paused {
		c.remaining -= now.Sub(c.lastTick)
	}
	c.lastTick = now
	if c.remaining > 0 {
		return false
	}
	delete(e.timers, id)
	return true
}

// Pause freezes the countdown for id. It reports whether id is tracked.
func (e *Expirer) Pause(id int64) bool {
	return e.setPaused(id, true)
}

// Resume continues a paused countdown from where it stopped.
func (e *Expirer) Resume(id int64) bool {
	return e.setPaused(id, false)
}

func (e *Expirer) setPaused(id int64, paused bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.timers[id]
	if !ok {
		return false
	}
	now := e.now()
	if !c.paused {
		c.remaining -= now.Sub(c.lastTick)
	}
	c.lastTick = now
	c.paused = paused
	return true
}

// Remaining reports the time left for id.
func (e *Expirer) Remaining(id int64) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.timers[id]
	if !ok {
		return 0, false
	}
	return c.remaining, true
}

// Close unsubscribes and stops every countdown. It waits for the tickers to exit.
func (e *Expirer) Close() {
	e.unsubscribe()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for id, c := range e.timers {
		close(c.stop)
		delete(e.timers, id)
	}
	e.mu.Unlock()
	e.wg.Wait()
}
