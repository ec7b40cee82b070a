package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nuxo/internal/log"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(ttl, WithClock(clock.Now)), clock
}

func TestStore_Lifecycle(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	if fc := s.Get("u1"); fc != nil {
		t.Fatalf("expected no context, got %+v", fc)
	}

	fc := s.GetOrCreate("u1", "registration")
	if fc.Flow != "registration" || len(fc.Values) != 0 {
		t.Fatalf("unexpected new context %+v", fc)
	}

	h := s.Acquire("u1")
	h.Get().Set("amount", "10.00")
	h.Release()

	if got := s.GetOrCreate("u1", "export"); got.Flow != "registration" || got.Value("amount") != "10.00" {
		t.Fatalf("GetOrCreate must keep existing context, got %+v", got)
	}

	restarted := s.Start("u1", "export")
	if restarted.Flow != "export" || restarted.Value("amount") != "" {
		t.Fatalf("Start must overwrite, got %+v", restarted)
	}

	s.Clear("u1")
	if fc := s.Get("u1"); fc != nil {
		t.Fatalf("expected cleared context, got %+v", fc)
	}
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.Start("u1", "registration")

	snap := s.Get("u1")
	snap.Set("amount", "99")

	if v := s.Get("u1").Value("amount"); v != "" {
		t.Fatalf("snapshot mutation leaked into store: %q", v)
	}
}

func TestStore_Expiry(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	s.Start("u1", "registration")
	s.Start("u2", "visualization")

	clock.Advance(30 * time.Second)
	h := s.Acquire("u2")
	h.Get().Set("year", "2025") // touching keeps u2 alive
	h.Release()

	clock.Advance(45 * time.Second)
	if fc := s.Get("u1"); fc != nil {
		t.Fatalf("u1 should have expired")
	}
	if fc := s.Get("u2"); fc == nil {
		t.Fatalf("u2 should still be live")
	}

	clock.Advance(2 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if n := s.Len(); n != 0 {
		t.Fatalf("Len = %d after sweep", n)
	}
}

func TestStore_SweepSkipsHeldSlots(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	s.Start("u1", "registration")
	clock.Advance(time.Hour)

	h := s.Acquire("u1")
	if n := s.Sweep(); n != 0 {
		t.Fatalf("Sweep removed a held slot")
	}
	h.Release()
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
}

func TestStore_SerializesPerKey(t *testing.T) {
	s := NewStore(time.Minute)
	s.Start("u1", "registration")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := s.Acquire("u1")
			defer h.Release()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			fc := h.Get()
			fc.Set("count", fc.Value("count")+"x")
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("%d events ran concurrently for one key", maxInside)
	}
	if got := len(s.Get("u1").Value("count")); got != 50 {
		t.Fatalf("lost updates: %d of 50", got)
	}
}

func TestStore_DifferentKeysDoNotBlock(t *testing.T) {
	s := NewStore(time.Minute)
	h1 := s.Acquire("u1")
	defer h1.Release()

	done := make(chan struct{})
	go func() {
		h2 := s.Acquire("u2")
		h2.Start("registration")
		h2.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("u2 blocked behind u1")
	}
}

func TestFormContext_Clone(t *testing.T) {
	fc := newFormContext("registration", time.Now())
	fc.Set("amount", "1")
	cp := fc.Clone()
	cp.Set("amount", "2")
	cp.State = "other"
	if fc.Value("amount") != "1" || fc.State != "" {
		t.Fatalf("clone shares state with original")
	}
	var nilCtx *FormContext
	if nilCtx.Clone() != nil {
		t.Fatalf("clone of nil must be nil")
	}
}

func TestJanitor_RunOnce(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	s.Start("u1", "registration")
	clock.Advance(2 * time.Minute)

	j := NewJanitor(log.Discard())
	j.Register(s)
	if n := j.RunOnce(); n != 1 {
		t.Fatalf("RunOnce removed %d, want 1", n)
	}
	if err := j.Start("not a schedule"); err == nil {
		t.Fatal("expected schedule error")
	}
	if err := j.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	j.Stop()
}
