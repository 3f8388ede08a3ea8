package domain

import "time"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// Infrastructure implements these; the engine depends on them.

// RandomSource yields uniform draws in [0, 1). Transition rules take one
// explicitly so that a tick is a pure function of (snapshot, draws).
type RandomSource interface {
	Float64() float64
}

// TransitionRecord is one task status change produced by a tick.
type TransitionRecord struct {
	TickID string     `json:"tick_id,omitempty"`
	TaskID string     `json:"task_id"`
	From   TaskStatus `json:"from"`
	To     TaskStatus `json:"to"`
}

// TickRecord summarizes one applied tick.
type TickRecord struct {
	ID          string             `json:"id"`
	SessionID   string             `json:"session_id"`
	Tick        uint64             `json:"tick"`
	Generation  uint64             `json:"generation"`
	Metrics     Metrics            `json:"metrics"`
	Transitions []TransitionRecord `json:"transitions,omitempty"`
	Faults      int                `json:"faults"`
	At          time.Time          `json:"at"`
}

// SessionEvent is a connect, disconnect or network change.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Network   Network   `json:"network"`
	At        time.Time `json:"at"`
}

// Journal receives tick and session history. Implemented by infra/sqlite.DB.
type Journal interface {
	RecordTick(rec TickRecord) error
	RecordSessionEvent(ev SessionEvent) error
}
