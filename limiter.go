package pilotsite

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits failed sign-ins per IP address. Each IP gets a
// token bucket holding max attempts that refills over window.
type LoginLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window
// and starts a janitor dropping idle entries. Call Stop to end it.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *LoginLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := l.now().Add(-l.window)
			l.mu.Lock()
			for ip, e := range l.clients {
				if e.lastSeen.Before(cutoff) {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop ends the janitor goroutine.
func (l *LoginLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *LoginLimiter) entry(ip string) *limiterEntry {
	e, ok := l.clients[ip]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = e
	}
	e.lastSeen = l.now()
	return e
}

// Allow checks the limit and records an attempt in one step.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entry(ip).lim.AllowN(l.now(), 1)
}

// Check reports whether ip may attempt a sign-in. It does not record an
// attempt; call Record after a failure.
func (l *LoginLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entry(ip).lim.TokensAt(l.now()) >= 1
}

// Record registers a failed sign-in for ip.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry(ip).lim.AllowN(l.now(), 1)
}
