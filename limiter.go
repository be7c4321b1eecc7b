package spacetraveling

import (
	"sync"
	"time"
)

// FailureLimiter blocks a client after too many failed attempts within a
// sliding window. The revalidation webhook uses it to throttle wrong secrets.
type FailureLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewFailureLimiter creates a FailureLimiter that allows max failures per
// window. Call Stop to end its cleanup goroutine.
func NewFailureLimiter(max int, window time.Duration) *FailureLimiter {
	l := &FailureLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *FailureLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			for key := range l.failures {
				l.prune(key)
			}
			l.mu.Unlock()
		}
	}
}

// prune drops expired failures for key. l.mu must be held.
func (l *FailureLimiter) prune(key string) int {
	cutoff := l.now().Add(-l.window)
	hits := l.failures[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return 0
	}
	l.failures[key] = kept
	return len(kept)
}

// Check reports whether key is still below the failure limit. It does not
// record anything.
func (l *FailureLimiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(key) < l.max
}

// Record registers a failed attempt for key.
func (l *FailureLimiter) Record(key string) {
	l.mu.Lock()
	l.failures[key] = append(l.failures[key], l.now())
	l.mu.Unlock()
}

// Reset forgets every failure recorded for key.
func (l *FailureLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.failures, key)
	l.mu.Unlock()
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *FailureLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
