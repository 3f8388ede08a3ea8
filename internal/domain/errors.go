package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Tick errors
	ErrInvalidReference  = errors.New("task references a robot that does not exist")
	ErrStaleSnapshot     = errors.New("snapshot is no longer current")
	ErrSnapshotInvariant = errors.New("snapshot invariant violated")

	// Session errors
	ErrAlreadyConnected = errors.New("session is already connected")
	ErrNotConnected     = errors.New("session is not connected")
	ErrInvalidNetwork   = errors.New("unknown network (want mainnet, devnet or testnet)")

	// Channel errors
	ErrChannelNotFound   = errors.New("payment channel not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidCapacity   = errors.New("channel capacity must be non-negative")
)

// TaskFault reports that a tick refused to advance one task.
type TaskFault struct {
	TaskID string
	Err    error
}

func (f *TaskFault) Error() string {
	return fmt.Sprintf("task %s: %v", f.TaskID, f.Err)
}

func (f *TaskFault) Unwrap() error { return f.Err }
