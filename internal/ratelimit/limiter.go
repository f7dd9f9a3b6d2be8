// Package ratelimit implements sliding-window submission limits keyed by
// email and client IP.
package ratelimit

import (
	"sync"
	"time"

	"leadgate/internal/platform/config"
)

// Result is the outcome of one limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Limiter enforces per-email and per-IP submission limits over a sliding
// window. In-memory, single instance; counts reset on restart.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	cfg     config.RateLimitConfig
	now     func() time.Time
}

// slidingWindow tracks request timestamps. Sliding rather than fixed so a
// burst straddling a window boundary cannot double the effective limit.
type slidingWindow struct {
	timestamps []time.Time
}

// New constructs a limiter from config.
func New(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		windows: make(map[string]*slidingWindow),
		cfg:     cfg,
		now:     time.Now,
	}
}

// CheckSubmission checks both keys and consumes one slot from each only when
// both allow. A denied check consumes nothing.
func (l *Limiter) CheckSubmission(email, ip string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	emailKey := "email:" + email
	ipKey := "ip:" + ip

	emailRes := l.peek(emailKey, l.cfg.PerEmail, now)
	ipRes := l.peek(ipKey, l.cfg.PerIP, now)

	if !emailRes.Allowed {
		return emailRes
	}
	if !ipRes.Allowed {
		return ipRes
	}

	l.consume(emailKey, now)
	l.consume(ipKey, now)
	emailRes.Remaining--
	return emailRes
}

// peek evaluates a key without consuming a slot.
func (l *Limiter) peek(key string, limit int, now time.Time) Result {
	w := l.window(key)
	w.cleanup(now, l.cfg.Window)
	count := len(w.timestamps)

	resetAt := now.Add(l.cfg.Window)
	if count > 0 {
		resetAt = w.timestamps[0].Add(l.cfg.Window)
	}

	return Result{
		Allowed:   count < limit,
		Remaining: max(limit-count, 0),
		Limit:     limit,
		ResetAt:   resetAt,
	}
}

func (l *Limiter) consume(key string, now time.Time) {
	w := l.window(key)
	w.timestamps = append(w.timestamps, now)
}

func (l *Limiter) window(key string) *slidingWindow {
	if w := l.windows[key]; w != nil {
		return w
	}
	w := &slidingWindow{}
	l.windows[key] = w
	return w
}

// Sweep drops empty windows. Run periodically to bound memory.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, w := range l.windows {
		w.cleanup(now, l.cfg.Window)
		if len(w.timestamps) == 0 {
			delete(l.windows, key)
		}
	}
}

func (w *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}
