package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StepClock starts at a fixed instant and moves one second forward on
// every reading, so history records made in one test sort by creation.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
}

// FixedClock returns a StepClock starting at 2024-01-15 10:30:00 UTC.
func FixedClock() *StepClock {
	return &StepClock{next: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Second)
	return now
}

// MaterializationIDs hands out "mat-1", "mat-2", ...
type MaterializationIDs struct {
	mu sync.Mutex
	n  int
}

func NewMaterializationIDs() *MaterializationIDs {
	return &MaterializationIDs{}
}

func (g *MaterializationIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("mat-%d", g.n)
}
