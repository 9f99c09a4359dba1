package sitemap

import (
	"log/slog"
	"sync"
	"time"
)

// rateLimitedLogger emits at most one warning per key and interval.
type rateLimitedLogger struct {
	mu       sync.Mutex
	lastAt   map[string]time.Time
	interval time.Duration
	log      *slog.Logger
}

func newRateLimitedLogger(log *slog.Logger, interval time.Duration) *rateLimitedLogger {
	return &rateLimitedLogger{log: log, interval: interval, lastAt: map[string]time.Time{}}
}

func (l *rateLimitedLogger) Warn(key, msg string, args ...any) {
	l.mu.Lock()
	now := time.Now()
	last, seen := l.lastAt[key]
	if seen && now.Sub(last) < l.interval {
		l.mu.Unlock()
		return
	}
	l.lastAt[key] = now
	l.mu.Unlock()
	l.log.Warn(msg, args...)
}
