// Package ratelimit implements fixed-window request counters keyed by a
// client identifier.
//
// A window opens on the first request for an identifier and lasts for the
// configured duration; once it elapses the next request opens a fresh
// window. Bursts of up to twice the limit are therefore possible across a
// window boundary.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired entries are dropped from memory.
const DefaultSweepInterval = 5 * time.Minute

// Result is the outcome of a single check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// Rule names a limit. Name namespaces identifiers so distinct endpoints
// never share a bucket.
type Rule struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Key returns the counter key for identifier under this rule.
func (r Rule) Key(identifier string) string {
	return r.Name + ":" + identifier
}

// Limiter counts requests per identifier.
type Limiter interface {
	Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) Result
}

type entry struct {
	count     int
	resetTime time.Time
}

// Option configures a Memory limiter.
type Option func(*Memory)

// WithClock makes the limiter read time from now.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithSweepInterval changes how often expired entries are removed.
// A non-positive interval disables the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Memory) { m.sweepEvery = d }
}

// Memory is an in-process fixed-window limiter. Counters are not shared
// between processes.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry

	now        func() time.Time
	sweepEvery time.Duration
	stop       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemory returns a Memory limiter and starts its sweep goroutine.
// Call Close to stop it.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries:    make(map[string]entry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if m.sweepEvery > 0 {
		go m.sweepLoop()
	} else {
		close(m.done)
	}
	return m
}

// Check records one request for identifier and reports whether it is
// within maxRequests for the current window. It never fails.
func (m *Memory) Check(_ context.Context, identifier string, maxRequests int, window time.Duration) Result {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[identifier]
	if !ok || now.After(e.resetTime) {
		e = entry{count: 1, resetTime: now.Add(window)}
		m.entries[identifier] = e
		return Result{Allowed: maxRequests > 0, Remaining: max(maxRequests-1, 0), ResetTime: e.resetTime}
	}

	if e.count >= maxRequests {
		return Result{Allowed: false, Remaining: 0, ResetTime: e.resetTime}
	}

	e.count++
	m.entries[identifier] = e
	return Result{Allowed: true, Remaining: maxRequests - e.count, ResetTime: e.resetTime}
}

// Reset forgets the counter for identifier.
func (m *Memory) Reset(identifier string) {
	m.mu.Lock()
	delete(m.entries, identifier)
	m.mu.Unlock()
}

// Clear forgets every counter.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

// Len returns the number of tracked identifiers.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes entries whose window has passed and returns how many were
// removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if now.After(e.resetTime) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

func (m *Memory) sweepLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
