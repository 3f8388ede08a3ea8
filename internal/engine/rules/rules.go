// Package rules computes the next marketplace state from the current one.
//
// Every function here is pure given its RandomSource: the same snapshot and
// the same sequence of draws always yield the same result. Draw order per
// tick is fixed:
//
//  1. four metric draws (open channels, stealth volume, tasks settled,
//     proof success), in that order;
//  2. one draw per task whose status has a rule, in task order. Tasks in a
//     status without a rule, and tasks that fail validation, consume none.
package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/roboos-network/roboos/internal/domain"
)

// TaskTransition moves a task From one status To another when a uniform
// draw is strictly greater than Threshold.
type TaskTransition struct {
	From      domain.TaskStatus `toml:"from" json:"from"`
	To        domain.TaskStatus `toml:"to" json:"to"`
	Threshold float64           `toml:"threshold" json:"threshold"`
}

// Config parameterizes the rule set.
type Config struct {
	Transitions       []TaskTransition
	StartETA          time.Duration // eta given to a task entering assigned/in_progress without one
	ClampOpenChannels bool          // floor openChannels at zero
}

// DefaultTransitions is the live rule table: in_progress completes with
// p=0.10 per tick, pending starts with p=0.05 per tick. Nothing drives
// assigned or failed.
func DefaultTransitions() []TaskTransition {
	return []TaskTransition{
		{From: domain.TaskInProgress, To: domain.TaskCompleted, Threshold: 0.90},
		{From: domain.TaskPending, To: domain.TaskInProgress, Threshold: 0.95},
	}
}

// DefaultConfig returns the rule set with the live table and no clamping.
func DefaultConfig() Config {
	return Config{
		Transitions: DefaultTransitions(),
		StartETA:    time.Minute + 41*time.Second,
	}
}

// Validate rejects tables that could break the task state machine.
func (c Config) Validate() error {
	seen := make(map[domain.TaskStatus]bool, len(c.Transitions))
	for _, tr := range c.Transitions {
		if !tr.From.Valid() || !tr.To.Valid() {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, tr.From, tr.To)
		}
		if tr.From.IsTerminal() {
			return fmt.Errorf("%w: %s is terminal", domain.ErrInvalidTransition, tr.From)
		}
		if tr.From == tr.To {
			return fmt.Errorf("%w: %s -> %s is a self loop", domain.ErrInvalidTransition, tr.From, tr.To)
		}
		if tr.Threshold < 0 || tr.Threshold >= 1 {
			return fmt.Errorf("%w: threshold %.3f for %s outside [0, 1)", domain.ErrInvalidTransition, tr.Threshold, tr.From)
		}
		if seen[tr.From] {
			return fmt.Errorf("%w: more than one rule from %s", domain.ErrInvalidTransition, tr.From)
		}
		seen[tr.From] = true
	}
	if c.StartETA <= 0 {
		return fmt.Errorf("start eta must be positive, got %s", c.StartETA)
	}
	return nil
}

// Rules applies a validated Config.
type Rules struct {
	cfg      Config
	byStatus map[domain.TaskStatus]TaskTransition
}

// New validates cfg and builds the rule set.
func New(cfg Config) (*Rules, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Rules{cfg: cfg, byStatus: make(map[domain.TaskStatus]TaskTransition)}
	for _, tr := range cfg.Transitions {
		r.byStatus[tr.From] = tr
	}
	return r, nil
}

// NextMetrics perturbs the aggregate metrics. Consumes four draws.
func (r *Rules) NextMetrics(m domain.Metrics, src domain.RandomSource) domain.Metrics {
	next := m
	next.OpenChannels += int(math.Floor(src.Float64()*3 - 1)) // {-1, 0, 1}
	next.StealthVolume += (src.Float64() - 0.5) * 5           // [-2.5, 2.5)
	next.TasksSettled += int(math.Floor(src.Float64() * 2))   // {0, 1}
	next.ZKProofSuccess = clamp(next.ZKProofSuccess+(src.Float64()-0.5)*0.1, 0, domain.MaxZKProofSuccess)

	if r.cfg.ClampOpenChannels && next.OpenChannels < 0 {
		next.OpenChannels = 0
	}
	return next
}

// NextTask advances one task. It consumes one draw if the task's status has
// a rule and none otherwise. The bool is true when the status changed.
func (r *Rules) NextTask(t domain.Task, src domain.RandomSource) (domain.Task, bool) {
	tr, ok := r.byStatus[t.Status]
	if !ok {
		return t, false
	}
	if src.Float64() <= tr.Threshold {
		return t, false
	}
	return t.WithStatus(tr.To, r.cfg.StartETA), true
}

// Result is the outcome of one tick.
type Result struct {
	Snapshot    domain.Snapshot
	Transitions []domain.TransitionRecord
	Faults      []error // *domain.TaskFault, one per task left untouched
}

// Apply computes the tick that follows base. base is not modified; the
// result carries base's generation so it can be handed to the store.
// A task whose robot reference does not resolve is left as is and reported
// in Faults; the rest of the tick still applies.
func (r *Rules) Apply(base domain.Snapshot, src domain.RandomSource) Result {
	next := base.Clone()
	next.Tick++
	next.Metrics = r.NextMetrics(base.Metrics, src)

	var res Result
	for i, t := range next.Tasks {
		if t.RobotID != "" && !base.HasRobot(t.RobotID) {
			res.Faults = append(res.Faults, &domain.TaskFault{TaskID: t.ID, Err: domain.ErrInvalidReference})
			continue
		}
		moved, changed := r.NextTask(t, src)
		if !changed {
			continue
		}
		next.Tasks[i] = moved
		res.Transitions = append(res.Transitions, domain.TransitionRecord{TaskID: t.ID, From: t.Status, To: moved.Status})
	}
	res.Snapshot = next
	return res
}

// UpdateChannel applies a manual channel change. status may be empty to
// keep the current one; capacity may be nil to keep the current one.
func UpdateChannel(ch domain.Channel, status domain.ChannelStatus, capacity *float64) (domain.Channel, error) {
	if status != "" {
		if !ch.Status.CanTransition(status) {
			return ch, fmt.Errorf("%w: channel %s %s -> %s", domain.ErrInvalidTransition, ch.ID, ch.Status, status)
		}
		ch.Status = status
	}
	if capacity != nil {
		if *capacity < 0 || math.IsNaN(*capacity) {
			return ch, fmt.Errorf("%w: %v", domain.ErrInvalidCapacity, *capacity)
		}
		ch.Capacity = *capacity
	}
	return ch, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
