// Package flood gates inbound events per user: at most one admitted
// event per user within the configured window. Rejected events are
// dropped silently so the bot never amplifies a flood with replies.
package flood

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

// Limiter keeps one token-bucket limiter per user id, with rate
// 1/window and burst 1, which is exactly "admit if the last admitted
// event is at least window ago".
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[int64]*limiterEntry
	stopCh  chan struct{}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func New(window time.Duration) *Limiter {
	l := &Limiter{
		window:  window,
		entries: make(map[int64]*limiterEntry),
		stopCh:  make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Admit reports whether an event from userID arriving at now may be
// processed. A zero window admits everything (antiflood disabled).
func (l *Limiter) Admit(userID int64, now time.Time) bool {
	if l.window <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[userID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.entries[userID] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// cleanup drops entries for users not seen recently so the map does
// not grow without bound.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for userID, entry := range l.entries {
				if now.Sub(entry.lastSeen) > entryTTL {
					delete(l.entries, userID)
				}
			}
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) Stop() {
	close(l.stopCh)
}
