package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/perttula/whispden/internal/game/storage"
	"github.com/perttula/whispden/internal/platform/timeouts"
)

// purgeTimeout bounds one background purge run.
const purgeTimeout = 10 * time.Second

// Cleaner purges a finished session's rows after a grace delay. The delay
// gives clients a window to fetch final scores before the rows disappear.
// The session row itself survives as a tombstone.
type Cleaner struct {
	store storage.SessionStore
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewCleaner builds a cleaner. A non-positive delay falls back to the
// shared default.
func NewCleaner(store storage.SessionStore, delay time.Duration) *Cleaner {
	if delay <= 0 {
		delay = timeouts.CleanupDelay
	}
	return &Cleaner{store: store, delay: delay, timers: make(map[string]*time.Timer)}
}

// Schedule arranges a purge of the session's rows after the delay.
// Scheduling a session that is already pending resets its timer. Purge
// failures are logged and dropped; the next sweep or a repeated schedule
// retries naturally.
func (c *Cleaner) Schedule(sessionID string) {
	if c == nil || c.store == nil {
		return
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if t, ok := c.timers[sessionID]; ok {
		t.Stop()
	}
	c.timers[sessionID] = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		delete(c.timers, sessionID)
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		if err := c.Purge(ctx, sessionID); err != nil {
			log.Printf("cleanup: purge session %s: %v", sessionID, err)
		}
	})
}

// Purge removes the session's turns, guesses, and players immediately.
// Purging an already purged session is a no-op.
func (c *Cleaner) Purge(ctx context.Context, sessionID string) error {
	if c == nil || c.store == nil {
		return ErrStoreNotConfigured
	}
	return c.store.PurgeSessionData(ctx, sessionID)
}

// Stop cancels all pending purges and ignores further Schedule calls.
// Timers that already fired may still finish their purge.
func (c *Cleaner) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
