// Package health provides periodic self-checks for a running device: has
// its wire listener been bound, has it discovered the peers it needs.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/discovery"
)

// DefaultInterval is the steady-state cadence of the check loop.
const DefaultInterval = 15 * time.Second

// Check defines a single health check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status is the result of one check run.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs a fixed set of checks on a cadence and keeps the most
// recent result of each.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// New builds a Checker running the given checks at DefaultInterval.
func New(checks ...Check) *Checker {
	return &Checker{checks: checks, interval: DefaultInterval}
}

// SetInterval overrides the check cadence.
func (c *Checker) SetInterval(d time.Duration) { c.interval = d }

// Run starts the check loop. Call in a goroutine; it returns when ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{Name: check.Name, CheckedAt: time.Now()}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
		} else {
			s.Healthy = true
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns a snapshot of the most recent check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy reports whether every known check last passed. It is
// vacuously true before the first run.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ListenerCheck reports whether base's wire listener has been bound (see
// device.Base.ListenerAlive).
func ListenerCheck(base *device.Base) Check {
	return Check{
		Name:    "listener",
		CheckFn: func(ctx context.Context) error { return base.ListenerAlive() },
	}
}

// SlotCheck reports whether slot has resolved a peer yet. name identifies
// the peer group in the check's Status (e.g. "environment", "controller").
func SlotCheck(name string, slot *discovery.Slot) Check {
	return Check{
		Name: name,
		CheckFn: func(ctx context.Context) error {
			if _, ok := slot.Get(); !ok {
				return fmt.Errorf("%s not yet discovered", name)
			}
			return nil
		},
	}
}
