package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/bookshelf/internal/config"
)

const (
	defaultLoginAttempts  = 5
	defaultThrottleWindow = 15 * time.Minute
	defaultLockout        = 30 * time.Minute
	throttleSweepInterval = 5 * time.Minute
)

// loginThrottle locks a client out of an account after too many wrong
// passwords. Failures are counted per client IP and normalized email inside
// a window that opens with the first failure.
type loginThrottle struct {
	mu      sync.Mutex
	entries map[throttleKey]*throttleEntry
	limit   int
	window  time.Duration
	lockout time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type throttleKey struct {
	ip    string
	email string
}

type throttleEntry struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// stale reports whether the entry no longer affects any login.
func (e *throttleEntry) stale(now time.Time, window time.Duration) bool {
	return !now.Before(e.lockedUntil) && now.Sub(e.windowStart) >= window
}

func newLoginThrottle(cfg config.Auth) *loginThrottle {
	t := &loginThrottle{
		entries: make(map[throttleKey]*throttleEntry),
		limit:   cfg.MaxLoginAttempts,
		window:  cfg.RateLimitWindow,
		lockout: cfg.LockoutDuration,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if t.limit <= 0 {
		t.limit = defaultLoginAttempts
	}
	if t.window <= 0 {
		t.window = defaultThrottleWindow
	}
	if t.lockout <= 0 {
		t.lockout = defaultLockout
	}

	go t.sweepEvery(throttleSweepInterval)
	return t
}

func throttleKeyFor(ip, email string) throttleKey {
	return throttleKey{ip: ip, email: strings.ToLower(strings.TrimSpace(email))}
}

// locked reports whether ip is barred from trying email, and for how long.
func (t *loginThrottle) locked(ip, email string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[throttleKeyFor(ip, email)]
	if !ok {
		return 0, false
	}
	if wait := e.lockedUntil.Sub(t.now()); wait > 0 {
		return wait, true
	}
	return 0, false
}

// fail records a wrong password. The failure that reaches the limit starts
// the lockout and is reported as locked.
func (t *loginThrottle) fail(ip, email string) (time.Duration, bool) {
	key := throttleKeyFor(ip, email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil || e.stale(now, t.window) {
		e = &throttleEntry{windowStart: now}
		t.entries[key] = e
	}

	e.failures++
	if e.failures < t.limit {
		return 0, false
	}

	e.failures = 0
	e.windowStart = now
	e.lockedUntil = now.Add(t.lockout)
	return t.lockout, true
}

// reset forgets the failures of ip against email after a good password.
func (t *loginThrottle) reset(ip, email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, throttleKeyFor(ip, email))
}

func (t *loginThrottle) sweep() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.entries {
		if e.stale(now, t.window) {
			delete(t.entries, key)
		}
	}
}

func (t *loginThrottle) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.done:
			return
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (t *loginThrottle) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}
