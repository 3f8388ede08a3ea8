package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roboos-network/roboos/internal/domain"
)

// ─── Ticks ──────────────────────────────────────────────────────────────────

// RecordTick stores a tick and its transitions in one transaction, then
// trims rows beyond the retention limit.
func (d *DB) RecordTick(rec domain.TickRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO ticks (id, session_id, tick, generation, open_channels, stealth_volume, tasks_settled, zk_success, faults, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, int64(rec.Tick), int64(rec.Generation),
		rec.Metrics.OpenChannels, rec.Metrics.StealthVolume,
		rec.Metrics.TasksSettled, rec.Metrics.ZKProofSuccess,
		rec.Faults, rec.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}

	for _, tr := range rec.Transitions {
		_, err := tx.Exec(
			`INSERT INTO transitions (tick_id, task_id, from_status, to_status) VALUES (?, ?, ?, ?)`,
			rec.ID, tr.TaskID, string(tr.From), string(tr.To),
		)
		if err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
	}

	if d.retention > 0 {
		if err := trim(tx, d.retention); err != nil {
			return fmt.Errorf("trim journal: %w", err)
		}
	}
	return tx.Commit()
}

// Ticks returns the most recent ticks, newest first.
func (d *DB) Ticks(limit int) ([]domain.TickRecord, error) {
	rows, err := d.db.Query(
		`SELECT id, session_id, tick, generation, open_channels, stealth_volume, tasks_settled, zk_success, faults, recorded_at
		 FROM ticks ORDER BY seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TickRecord
	for rows.Next() {
		var r domain.TickRecord
		var tick, gen, at int64
		err := rows.Scan(&r.ID, &r.SessionID, &tick, &gen,
			&r.Metrics.OpenChannels, &r.Metrics.StealthVolume,
			&r.Metrics.TasksSettled, &r.Metrics.ZKProofSuccess,
			&r.Faults, &at)
		if err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.Generation = uint64(gen)
		r.At = time.UnixMilli(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TickCount returns the number of tick rows kept.
func (d *DB) TickCount() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n)
	return n, err
}

// ─── Transitions ────────────────────────────────────────────────────────────

// Transitions returns the most recent task transitions, newest first.
// An empty taskID returns transitions for every task.
func (d *DB) Transitions(taskID string, limit int) ([]domain.TransitionRecord, error) {
	rows, err := d.db.Query(
		`SELECT tick_id, task_id, from_status, to_status FROM transitions
		 WHERE ? = '' OR task_id = ?
		 ORDER BY id DESC LIMIT ?`, taskID, taskID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TransitionRecord
	for rows.Next() {
		var t domain.TransitionRecord
		if err := rows.Scan(&t.TickID, &t.TaskID, &t.From, &t.To); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ─── Session Events ─────────────────────────────────────────────────────────

// RecordSessionEvent stores a connect, disconnect or network change.
func (d *DB) RecordSessionEvent(ev domain.SessionEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	_, err := d.db.Exec(
		`INSERT INTO session_events (session_id, kind, network, recorded_at) VALUES (?, ?, ?, ?)`,
		ev.SessionID, ev.Kind, string(ev.Network), ev.At.UnixMilli(),
	)
	return err
}

// SessionEvents returns the most recent session events, newest first.
func (d *DB) SessionEvents(limit int) ([]domain.SessionEvent, error) {
	rows, err := d.db.Query(
		`SELECT session_id, kind, network, recorded_at FROM session_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionEvent
	for rows.Next() {
		var ev domain.SessionEvent
		var at int64
		if err := rows.Scan(&ev.SessionID, &ev.Kind, &ev.Network, &at); err != nil {
			return nil, err
		}
		ev.At = time.UnixMilli(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func trim(tx *sql.Tx, keep int) error {
	_, err := tx.Exec(
		`DELETE FROM transitions WHERE tick_id IN (
			SELECT id FROM ticks WHERE seq <= (SELECT MAX(seq) FROM ticks) - ?
		)`, keep,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`DELETE FROM ticks WHERE seq <= (SELECT MAX(seq) FROM ticks) - ?`, keep)
	return err
}
