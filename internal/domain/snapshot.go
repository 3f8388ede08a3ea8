package domain

import (
	"errors"
	"fmt"
	"slices"
)

// Snapshot is the full marketplace state at one instant. A Snapshot held by
// the store is never mutated; writers Clone, change, and replace.
type Snapshot struct {
	Generation uint64    `json:"generation"`
	Tick       uint64    `json:"tick"`
	Robots     []Robot   `json:"robots"`
	Tasks      []Task    `json:"tasks"`
	Channels   []Channel `json:"channels"`
	Metrics    Metrics   `json:"metrics"`
	Session    Session   `json:"session"`
}

// Clone returns a deep copy that can be freely modified.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Robots = slices.Clone(s.Robots)
	out.Channels = slices.Clone(s.Channels)
	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.ETA != nil {
			eta := *t.ETA
			t.ETA = &eta
		}
		out.Tasks[i] = t
	}
	if s.Tasks == nil {
		out.Tasks = nil
	}
	return out
}

// HasRobot reports whether id names a robot in the snapshot.
func (s Snapshot) HasRobot(id string) bool {
	return slices.ContainsFunc(s.Robots, func(r Robot) bool { return r.ID == id })
}

// ChannelIndex returns the index of channel id, or -1.
func (s Snapshot) ChannelIndex(id string) int {
	return slices.IndexFunc(s.Channels, func(c Channel) bool { return c.ID == id })
}

// Validate checks every data-model invariant and returns all violations
// joined, each wrapping ErrSnapshotInvariant or ErrInvalidReference.
func (s Snapshot) Validate() error {
	var errs []error
	for _, t := range s.Tasks {
		if t.RobotID != "" && !s.HasRobot(t.RobotID) {
			errs = append(errs, &TaskFault{TaskID: t.ID, Err: ErrInvalidReference})
		}
		if !t.Status.Valid() {
			errs = append(errs, fmt.Errorf("%w: task %s has unknown status %q", ErrSnapshotInvariant, t.ID, t.Status))
		}
		if t.Status.CarriesETA() != (t.ETA != nil) {
			errs = append(errs, fmt.Errorf("%w: task %s eta presence does not match status %s", ErrSnapshotInvariant, t.ID, t.Status))
		}
		if t.Reward < 0 {
			errs = append(errs, fmt.Errorf("%w: task %s has negative reward", ErrSnapshotInvariant, t.ID))
		}
	}
	for _, c := range s.Channels {
		if !c.Status.Valid() {
			errs = append(errs, fmt.Errorf("%w: channel %s has unknown status %q", ErrSnapshotInvariant, c.ID, c.Status))
		}
		if c.Capacity < 0 {
			errs = append(errs, fmt.Errorf("%w: channel %s has negative capacity", ErrSnapshotInvariant, c.ID))
		}
	}
	if z := s.Metrics.ZKProofSuccess; z < 0 || z > MaxZKProofSuccess {
		errs = append(errs, fmt.Errorf("%w: zk proof success %.3f outside [0, %.1f]", ErrSnapshotInvariant, z, MaxZKProofSuccess))
	}
	sess := s.Session
	if sess.Connected && sess.Address == "" {
		errs = append(errs, fmt.Errorf("%w: connected session without wallet address", ErrSnapshotInvariant))
	}
	if !sess.Connected && (sess.Address != "" || sess.Balance != 0) {
		errs = append(errs, fmt.Errorf("%w: disconnected session still holds wallet fields", ErrSnapshotInvariant))
	}
	return errors.Join(errs...)
}
