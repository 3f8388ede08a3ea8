// Package health runs periodic self-checks over the journal and the live
// snapshot.
package health

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roboos-network/roboos/internal/domain"
	"github.com/roboos-network/roboos/internal/infra/metrics"
)

// DefaultInterval is how often checks run.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is satisfied by the journal database.
type Pinger interface {
	Ping() error
}

// Sources are the live values the checks read.
type Sources struct {
	Journal  Pinger                 // nil skips the journal check
	Snapshot func() domain.Snapshot // current store snapshot
	Clock    Clock                  // nil skips the clock gate check
}

// Clock is the part of the simulation clock the gate check reads and repairs.
type Clock interface {
	Running() bool
	Start() bool
	Stop()
}

// clockGateMisses is how many consecutive mismatched runs fail clock_gate.
// The session is written before the clock is started or stopped.
const clockGateMisses = 2

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker over src. interval <= 0 uses DefaultInterval.
func NewChecker(src Sources, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Checker{interval: interval}

	if src.Journal != nil {
		c.checks = append(c.checks, Check{
			Name: "journal",
			CheckFn: func(ctx context.Context) error {
				return src.Journal.Ping()
			},
		})
	}
	c.checks = append(c.checks, Check{
		Name: "snapshot_invariants",
		CheckFn: func(ctx context.Context) error {
			return src.Snapshot().Validate()
		},
	})
	if src.Clock != nil {
		g := &clockGate{clock: src.Clock, snapshot: src.Snapshot}
		c.checks = append(c.checks, Check{
			Name:      "clock_gate",
			CheckFn:   g.check,
			RecoverFn: g.recover,
		})
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check now.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			log.Printf("[health] %s: %v", check.Name, err)
			if check.RecoverFn != nil {
				_ = check.RecoverFn(ctx)
			}
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
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

// ─── Check Implementations ──────────────────────────────────────────────────

type clockGate struct {
	clock    Clock
	snapshot func() domain.Snapshot
	misses   atomic.Int32
}

func (g *clockGate) check(ctx context.Context) error {
	err := checkClockGate(g.snapshot().Session.Connected, g.clock.Running())
	if err == nil {
		g.misses.Store(0)
		return nil
	}
	if g.misses.Add(1) < clockGateMisses {
		return nil
	}
	return err
}

// recover brings the clock back in line with the session.
func (g *clockGate) recover(ctx context.Context) error {
	if g.snapshot().Session.Connected {
		if g.clock.Start() {
			log.Printf("[health] clock_gate: restarted clock for connected session")
		}
		return nil
	}
	g.clock.Stop()
	log.Printf("[health] clock_gate: stopped clock with no connected session")
	return nil
}

func checkClockGate(connected, running bool) error {
	if running && !connected {
		return fmt.Errorf("clock running with no connected session")
	}
	if connected && !running {
		return fmt.Errorf("session connected but clock stopped")
	}
	return nil
}
