// Package session keeps the per-user form contexts of the chat bot.
//
// Events for one user are serialized through Acquire; different users never
// wait on each other. Contexts idle for longer than the TTL are treated as
// absent and reclaimed by Sweep.
package session

import (
	"sync"
	"time"
)

const DefaultTTL = 15 * time.Minute

type Store struct {
	mu    sync.Mutex
	slots map[string]*slot
	ttl   time.Duration
	now   func() time.Time
}

type slot struct {
	mu       sync.Mutex // held for the duration of one event
	refs     int        // guarded by Store.mu
	fc       *FormContext
	lastSeen time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store; ttl <= 0 selects DefaultTTL.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		slots: make(map[string]*slot),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle is exclusive access to one user's context. It must be released.
type Handle struct {
	store    *Store
	key      string
	slot     *slot
	released bool
}

// Acquire blocks until no other event for key is in progress.
func (s *Store) Acquire(key string) *Handle {
	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{}
		s.slots[key] = sl
	}
	sl.refs++
	s.mu.Unlock()

	sl.mu.Lock()
	return &Handle{store: s, key: key, slot: sl}
}

func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	if h.slot.fc != nil && !h.store.expired(h.slot.lastSeen) {
		h.slot.lastSeen = h.store.now()
	}
	h.slot.mu.Unlock()

	h.store.mu.Lock()
	h.slot.refs--
	if h.slot.refs == 0 && h.slot.fc == nil {
		delete(h.store.slots, h.key)
	}
	h.store.mu.Unlock()
}

// Get returns the live context or nil. Expired contexts are dropped here.
func (h *Handle) Get() *FormContext {
	if h.slot.fc != nil && h.store.expired(h.slot.lastSeen) {
		h.slot.fc = nil
	}
	return h.slot.fc
}

// Start replaces any existing context with a fresh one.
func (h *Handle) Start(kind Kind) *FormContext {
	now := h.store.now()
	h.slot.fc = newFormContext(kind, now)
	h.slot.lastSeen = now
	return h.slot.fc
}

// GetOrCreate returns the live context, starting one of kind if there is none.
// An existing context of another kind is returned unchanged.
func (h *Handle) GetOrCreate(kind Kind) *FormContext {
	if fc := h.Get(); fc != nil {
		return fc
	}
	return h.Start(kind)
}

// Put stores fc as the user's context, e.g. after restoring a snapshot.
func (h *Handle) Put(fc *FormContext) {
	h.slot.fc = fc
	if fc != nil {
		h.slot.lastSeen = h.store.now()
	}
}

func (h *Handle) Clear() {
	h.slot.fc = nil
}

// Get returns a snapshot of key's context, or nil.
func (s *Store) Get(key string) *FormContext {
	h := s.Acquire(key)
	defer h.Release()
	return h.Get().Clone()
}

// GetOrCreate returns a snapshot of key's context, creating it when absent.
func (s *Store) GetOrCreate(key string, kind Kind) *FormContext {
	h := s.Acquire(key)
	defer h.Release()
	return h.GetOrCreate(kind).Clone()
}

// Start overwrites key's context with a fresh one of kind.
func (s *Store) Start(key string, kind Kind) *FormContext {
	h := s.Acquire(key)
	defer h.Release()
	return h.Start(kind).Clone()
}

func (s *Store) Clear(key string) {
	h := s.Acquire(key)
	defer h.Release()
	h.Clear()
}

// Len counts idle users with a live context; contexts in use are skipped.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sl := range s.slots {
		if sl.refs == 0 && sl.fc != nil && !s.expired(sl.lastSeen) {
			n++
		}
	}
	return n
}

// Sweep removes expired contexts nobody is using and reports how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sl := range s.slots {
		// refs == 0 means nobody holds or waits for sl.mu.
		if sl.refs != 0 {
			continue
		}
		if sl.fc == nil || s.expired(sl.lastSeen) {
			if sl.fc != nil {
				removed++
			}
			delete(s.slots, key)
		}
	}
	return removed
}

// CleanExpired lets the janitor drive Sweep.
func (s *Store) CleanExpired() int { return s.Sweep() }

func (s *Store) expired(lastSeen time.Time) bool {
	return s.now().Sub(lastSeen) > s.ttl
}
