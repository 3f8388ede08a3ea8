package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/roboos-network/roboos/internal/domain"
)

func newTestDB(t *testing.T, retention int) *DB {
	t.Helper()
	db, err := Open("", retention)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tickRecord(id string, tick uint64, transitions ...domain.TransitionRecord) domain.TickRecord {
	return domain.TickRecord{
		ID:          id,
		SessionID:   "sess-1",
		Tick:        tick,
		Generation:  tick + 1,
		Metrics:     domain.Metrics{OpenChannels: 18, StealthVolume: 212.4, TasksSettled: 74, ZKProofSuccess: 99.3},
		Transitions: transitions,
	}
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_InMemory(t *testing.T) {
	db := newTestDB(t, 0)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	n, err := db.TickCount()
	if err != nil || n != 0 {
		t.Errorf("TickCount() = %d, %v, want 0", n, err)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "state.db")
	db, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open(%s) error: %v", path, err)
	}
	defer db.Close()
	if err := db.RecordTick(tickRecord("t1", 1)); err != nil {
		t.Fatalf("RecordTick() error: %v", err)
	}
}

func TestOpen_MemoryIsPrivate(t *testing.T) {
	a := newTestDB(t, 0)
	b := newTestDB(t, 0)
	if err := a.RecordTick(tickRecord("t1", 1)); err != nil {
		t.Fatalf("RecordTick() error: %v", err)
	}
	if n, _ := b.TickCount(); n != 0 {
		t.Errorf("second in-memory journal sees %d ticks, want 0", n)
	}
}

// ─── Ticks & Transitions ────────────────────────────────────────────────────

func TestRecordTick_RoundTrip(t *testing.T) {
	db := newTestDB(t, 0)
	rec := tickRecord("t1", 1, domain.TransitionRecord{TaskID: "TASK-885", From: domain.TaskPending, To: domain.TaskInProgress})
	rec.Faults = 2
	if err := db.RecordTick(rec); err != nil {
		t.Fatalf("RecordTick() error: %v", err)
	}

	ticks, err := db.Ticks(10)
	if err != nil {
		t.Fatalf("Ticks() error: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("len(Ticks) = %d, want 1", len(ticks))
	}
	got := ticks[0]
	if got.ID != "t1" || got.Tick != 1 || got.Generation != 2 || got.Faults != 2 {
		t.Errorf("tick = %+v", got)
	}
	if got.Metrics != rec.Metrics {
		t.Errorf("Metrics = %+v, want %+v", got.Metrics, rec.Metrics)
	}
	if got.At.IsZero() {
		t.Error("At not recorded")
	}

	trs, err := db.Transitions("", 10)
	if err != nil {
		t.Fatalf("Transitions() error: %v", err)
	}
	if len(trs) != 1 || trs[0].TickID != "t1" || trs[0].To != domain.TaskInProgress {
		t.Errorf("Transitions = %+v", trs)
	}
}

func TestTransitions_FilterByTask(t *testing.T) {
	db := newTestDB(t, 0)
	db.RecordTick(tickRecord("t1", 1, domain.TransitionRecord{TaskID: "TASK-885", From: domain.TaskPending, To: domain.TaskInProgress}))
	db.RecordTick(tickRecord("t2", 2, domain.TransitionRecord{TaskID: "TASK-884", From: domain.TaskInProgress, To: domain.TaskCompleted}))

	trs, err := db.Transitions("TASK-884", 10)
	if err != nil {
		t.Fatalf("Transitions() error: %v", err)
	}
	if len(trs) != 1 || trs[0].TaskID != "TASK-884" {
		t.Errorf("Transitions(TASK-884) = %+v", trs)
	}

	all, _ := db.Transitions("", 10)
	if len(all) != 2 || all[0].TickID != "t2" {
		t.Errorf("Transitions() = %+v, want newest first", all)
	}
}

func TestRecordTick_Retention(t *testing.T) {
	db := newTestDB(t, 3)
	for i := 1; i <= 5; i++ {
		id := string(rune('a' + i))
		rec := tickRecord(id, uint64(i), domain.TransitionRecord{TaskID: "T" + id, From: domain.TaskPending, To: domain.TaskInProgress})
		if err := db.RecordTick(rec); err != nil {
			t.Fatalf("RecordTick(%d) error: %v", i, err)
		}
	}

	n, _ := db.TickCount()
	if n != 3 {
		t.Errorf("TickCount() = %d, want 3", n)
	}
	ticks, _ := db.Ticks(10)
	if ticks[len(ticks)-1].Tick != 3 {
		t.Errorf("oldest kept tick = %d, want 3", ticks[len(ticks)-1].Tick)
	}
	trs, _ := db.Transitions("", 10)
	if len(trs) != 3 {
		t.Errorf("len(Transitions) = %d, want 3 after trim", len(trs))
	}
}

// ─── Session Events ─────────────────────────────────────────────────────────

func TestSessionEvents(t *testing.T) {
	db := newTestDB(t, 0)
	db.RecordSessionEvent(domain.SessionEvent{SessionID: "s1", Kind: "connect", Network: domain.NetworkDevnet})
	db.RecordSessionEvent(domain.SessionEvent{SessionID: "s1", Kind: "disconnect", Network: domain.NetworkDevnet})

	evs, err := db.SessionEvents(10)
	if err != nil {
		t.Fatalf("SessionEvents() error: %v", err)
	}
	if len(evs) != 2 || evs[0].Kind != "disconnect" {
		t.Errorf("SessionEvents = %+v, want newest first", evs)
	}
}

func TestDB_ImplementsJournal(t *testing.T) {
	var _ domain.Journal = newTestDB(t, 0)
}
