// Package clock drives the simulation: once per interval, while a session
// is connected, it reads the current snapshot, applies the transition rules
// and writes the result back.
//
// Ticks are serialized by a single mutex. A tick whose base snapshot goes
// stale (the session controller wrote in between) is recomputed against the
// latest snapshot using the very same random draws, so a retry never changes
// the trajectory. A tick whose base shows the session disconnected is
// abandoned, which is what guarantees no mutation lands after a disconnect.
package clock

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roboos-network/roboos/internal/domain"
	"github.com/roboos-network/roboos/internal/engine/rules"
	"github.com/roboos-network/roboos/internal/engine/store"
	"github.com/roboos-network/roboos/internal/infra/metrics"
)

// DefaultInterval is the tick period.
const DefaultInterval = 3 * time.Second

// Config configures the clock.
type Config struct {
	Interval time.Duration
	Verbose  bool // log every tick, not just faults
	Manual   bool // Start never launches the loop; ticks only happen through Step
}

// Clock is the simulation driver. Create with New.
type Clock struct {
	store   *store.Store
	rules   *rules.Rules
	src     *rules.Replay
	journal domain.Journal
	cfg     Config

	mu sync.Mutex // serializes every write this package makes

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped clock. journal may be nil.
func New(st *store.Store, r *rules.Rules, src domain.RandomSource, journal domain.Journal, cfg Config) *Clock {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Clock{
		store:   st,
		rules:   r,
		src:     rules.NewReplay(src),
		journal: journal,
		cfg:     cfg,
	}
}

// Interval returns the tick period.
func (c *Clock) Interval() time.Duration { return c.cfg.Interval }

// Start launches the tick loop. It returns false if already running or
// the clock is manual.
func (c *Clock) Start() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil || c.cfg.Manual {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx, c.done)

	log.Printf("[clock] started (interval %s)", c.cfg.Interval)
	return true
}

// Stop halts the tick loop and waits for it to exit; a tick already in
// flight finishes first. Safe to call when stopped.
func (c *Clock) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	log.Printf("[clock] stopped")
}

// Running reports whether the tick loop is active.
func (c *Clock) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.cancel != nil
}

func (c *Clock) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			_, err := c.Step()
			switch {
			case err == nil, errors.Is(err, domain.ErrNotConnected):
			case errors.Is(err, store.ErrClosed):
				return
			default:
				log.Printf("[clock] tick error: %v", err)
			}
		}
	}
}

// Step applies one tick now. It returns domain.ErrNotConnected, writing
// nothing, when the session is disconnected. Faults for individual tasks
// are in the result, not the error.
func (c *Clock) Step() (rules.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	c.src.Reset()
	for {
		base := c.store.Current()
		if !base.Session.Connected {
			return rules.Result{Snapshot: base}, domain.ErrNotConnected
		}

		c.src.Rewind()
		res := c.rules.Apply(base, c.src)
		res.Snapshot.Generation = base.Generation

		gen, err := c.store.Replace(res.Snapshot)
		if errors.Is(err, domain.ErrStaleSnapshot) {
			metrics.TickRetries.Inc()
			continue
		}
		if err != nil {
			return res, err
		}
		res.Snapshot.Generation = gen

		c.observe(res, time.Since(start))
		return res, nil
	}
}

func (c *Clock) observe(res rules.Result, took time.Duration) {
	snap := res.Snapshot

	metrics.Ticks.Inc()
	metrics.TickDuration.Observe(took.Seconds())
	metrics.ObserveSnapshot(snap)
	for _, tr := range res.Transitions {
		metrics.TaskTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
	}
	for _, f := range res.Faults {
		metrics.TickFaults.WithLabelValues(faultReason(f)).Inc()
		log.Printf("[clock] tick %d refused: %v", snap.Tick, f)
	}
	if c.cfg.Verbose {
		log.Printf("[clock] tick %d gen=%d transitions=%d open=%d settled=%d zk=%.2f",
			snap.Tick, snap.Generation, len(res.Transitions),
			snap.Metrics.OpenChannels, snap.Metrics.TasksSettled, snap.Metrics.ZKProofSuccess)
	}

	if c.journal == nil {
		return
	}
	err := c.journal.RecordTick(domain.TickRecord{
		ID:          uuid.New().String(),
		SessionID:   snap.Session.ID,
		Tick:        snap.Tick,
		Generation:  snap.Generation,
		Metrics:     snap.Metrics,
		Transitions: res.Transitions,
		Faults:      len(res.Faults),
		At:          time.Now(),
	})
	if err != nil {
		log.Printf("[clock] journal: %v", err)
	}
}

// UpdateChannel applies a manual channel change through the clock's write
// path. Empty status or nil capacity leave that field unchanged.
func (c *Clock) UpdateChannel(id string, status domain.ChannelStatus, capacity *float64) (domain.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var updated domain.Channel
	_, err := c.store.Update(func(snap *domain.Snapshot) error {
		i := snap.ChannelIndex(id)
		if i < 0 {
			return domain.ErrChannelNotFound
		}
		ch, err := rules.UpdateChannel(snap.Channels[i], status, capacity)
		if err != nil {
			return err
		}
		snap.Channels[i] = ch
		updated = ch
		return nil
	})
	if err != nil {
		return domain.Channel{}, err
	}
	log.Printf("[clock] channel %s -> %s (capacity %.2f)", updated.ID, updated.Status, updated.Capacity)
	return updated, nil
}

func faultReason(err error) string {
	if errors.Is(err, domain.ErrInvalidReference) {
		return "invalid_reference"
	}
	return "other"
}
