package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock is a photobak.Clock for tests. Archive folder stamps and run
// start/finish times come out predictable. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-03-05 08:15:30 UTC, which
// stamps archives as <id>.20240305T081530Z.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 3, 5, 8, 15, 30, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator replaces photobak.UUIDGenerator so run IDs in history
// rows and log lines read "run-1", "run-2" and so on.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("run-%d", g.counter)
}
