// Package ratelimit bounds how many chat events one user may send per minute.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	window    = time.Minute
	staleTime = 10 * time.Minute
)

// Limiter counts events per key in a fixed one-minute window.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*clientInfo
	perMinute int
	now       func() time.Time
	hits      atomic.Int64
}

type clientInfo struct {
	windowStart time.Time
	lastSeen    time.Time
	events      int
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a limiter allowing perMinute events per key; zero or less
// disables limiting.
func New(perMinute int, opts ...Option) *Limiter {
	l := &Limiter{
		clients:   make(map[string]*clientInfo),
		perMinute: perMinute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one event for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok || now.Sub(c.windowStart) >= window {
		l.clients[key] = &clientInfo{windowStart: now, lastSeen: now, events: 1}
		return true
	}
	c.events++
	c.lastSeen = now
	if c.events > l.perMinute {
		l.hits.Add(1)
		return false
	}
	return true
}

// CleanExpired forgets keys idle for ten minutes.
func (l *Limiter) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-staleTime)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked keys.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Hits is the number of events refused so far.
func (l *Limiter) Hits() int64 {
	return l.hits.Load()
}
