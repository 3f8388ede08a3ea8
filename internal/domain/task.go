package domain

import "time"

// TaskStatus tracks task lifecycle.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskAssigned, TaskInProgress, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// IsTerminal returns true for completed and failed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// CarriesETA returns true for the states that must have an eta.
func (s TaskStatus) CarriesETA() bool {
	return s == TaskAssigned || s == TaskInProgress
}

// Task is a unit of work executed by one robot. Reward is in ROS.
type Task struct {
	ID      string         `json:"id"`
	RobotID string         `json:"robot_id"`
	Kind    string         `json:"type"`
	Status  TaskStatus     `json:"status"`
	Reward  float64        `json:"reward"`
	ETA     *time.Duration `json:"eta,omitempty"`
}

// WithStatus returns a copy of t moved to status, with the eta adjusted so
// the eta invariant holds. fallback is used when the new status needs an
// eta and t carries none.
func (t Task) WithStatus(status TaskStatus, fallback time.Duration) Task {
	t.Status = status
	if !status.CarriesETA() {
		t.ETA = nil
		return t
	}
	if t.ETA == nil {
		eta := fallback
		t.ETA = &eta
	} else {
		eta := *t.ETA
		t.ETA = &eta
	}
	return t
}

// Duration returns a pointer to d, for building tasks with an eta.
func Duration(d time.Duration) *time.Duration {
	return &d
}
