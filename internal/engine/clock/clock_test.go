package clock

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/roboos-network/roboos/internal/domain"
	"github.com/roboos-network/roboos/internal/engine/rules"
	"github.com/roboos-network/roboos/internal/engine/store"
)

type memJournal struct {
	mu    sync.Mutex
	ticks []domain.TickRecord
}

func (j *memJournal) RecordTick(rec domain.TickRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ticks = append(j.ticks, rec)
	return nil
}

func (j *memJournal) RecordSessionEvent(domain.SessionEvent) error { return nil }

func (j *memJournal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.ticks)
}

// hookSource runs hook before the first draw it serves.
type hookSource struct {
	src  domain.RandomSource
	hook func()
	once sync.Once
}

func (h *hookSource) Float64() float64 {
	h.once.Do(h.hook)
	return h.src.Float64()
}

func newTestStore(t *testing.T, connected bool) *store.Store {
	t.Helper()
	snap := domain.InitialSnapshot(domain.NetworkDevnet)
	if connected {
		snap.Session = domain.Session{ID: "sess-test", Connected: true, Address: "addr", Balance: 1, Network: domain.NetworkDevnet}
	}
	st := store.New(snap)
	t.Cleanup(st.Close)
	return st
}

func newTestClock(t *testing.T, st *store.Store, src domain.RandomSource, j domain.Journal, interval time.Duration) *Clock {
	t.Helper()
	r, err := rules.New(rules.DefaultConfig())
	if err != nil {
		t.Fatalf("rules.New() error: %v", err)
	}
	c := New(st, r, src, j, Config{Interval: interval})
	t.Cleanup(c.Stop)
	return c
}

func taskStatus(snap domain.Snapshot, id string) domain.TaskStatus {
	for _, t := range snap.Tasks {
		if t.ID == id {
			return t.Status
		}
	}
	return ""
}

// ─── Step ───────────────────────────────────────────────────────────────────

func TestStep_Disconnected(t *testing.T) {
	st := newTestStore(t, false)
	c := newTestClock(t, st, rules.NewScripted(), nil, time.Hour)

	before := st.Current()
	if _, err := c.Step(); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("Step() = %v, want ErrNotConnected", err)
	}
	if st.Generation() != before.Generation {
		t.Error("Step wrote while disconnected")
	}
}

func TestStep_AppliesRules(t *testing.T) {
	st := newTestStore(t, true)
	j := &memJournal{}
	src := rules.NewScripted(0.5, 0.5, 0.1, 0.5, 0.0, 0.96)
	c := newTestClock(t, st, src, j, time.Hour)

	res, err := c.Step()
	if err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	cur := st.Current()
	if taskStatus(cur, "TASK-885") != domain.TaskInProgress {
		t.Errorf("TASK-885 = %s, want in_progress", taskStatus(cur, "TASK-885"))
	}
	if cur.Generation != 1 || res.Snapshot.Generation != 1 {
		t.Errorf("generation store=%d result=%d, want 1", cur.Generation, res.Snapshot.Generation)
	}
	if cur.Tick != 1 {
		t.Errorf("Tick = %d, want 1", cur.Tick)
	}
	if j.len() != 1 {
		t.Fatalf("journal ticks = %d, want 1", j.len())
	}
	rec := j.ticks[0]
	if rec.SessionID != "sess-test" || len(rec.Transitions) != 1 || rec.ID == "" {
		t.Errorf("journal record = %+v", rec)
	}
}

func TestStep_StaleRetryReusesDraws(t *testing.T) {
	st := newTestStore(t, true)
	scripted := rules.NewScripted(0.5, 0.5, 0.1, 0.5, 0.91, 0.96)
	src := &hookSource{src: scripted, hook: func() {
		// a session write lands while the tick is computing
		if _, err := st.Update(func(s *domain.Snapshot) error {
			s.Session.Balance = 7
			return nil
		}); err != nil {
			t.Errorf("Update() error: %v", err)
		}
	}}
	c := newTestClock(t, st, src, nil, time.Hour)

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	cur := st.Current()
	if cur.Session.Balance != 7 {
		t.Errorf("Balance = %v, want 7 (concurrent write lost)", cur.Session.Balance)
	}
	if taskStatus(cur, "TASK-884") != domain.TaskCompleted || taskStatus(cur, "TASK-885") != domain.TaskInProgress {
		t.Errorf("tasks after retry: 884=%s 885=%s", taskStatus(cur, "TASK-884"), taskStatus(cur, "TASK-885"))
	}
	if scripted.Used() != 6 {
		t.Errorf("draws used = %d, want 6 (retry must replay, not redraw)", scripted.Used())
	}
	if cur.Generation != 2 || cur.Tick != 1 {
		t.Errorf("generation=%d tick=%d, want 2/1", cur.Generation, cur.Tick)
	}
}

func TestStep_DisconnectMidTickAbandons(t *testing.T) {
	st := newTestStore(t, true)
	before := st.Current()
	src := &hookSource{src: rules.NewScripted(0.99, 0.99, 0.99, 0.99, 0.99, 0.99), hook: func() {
		st.Update(func(s *domain.Snapshot) error {
			s.Session = domain.Session{Network: s.Session.Network}
			return nil
		})
	}}
	c := newTestClock(t, st, src, nil, time.Hour)

	if _, err := c.Step(); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("Step() = %v, want ErrNotConnected", err)
	}
	cur := st.Current()
	if !reflect.DeepEqual(cur.Tasks, before.Tasks) || cur.Metrics != before.Metrics {
		t.Error("tick mutated tasks or metrics after disconnect")
	}
}

func TestStep_SeededDeterminism(t *testing.T) {
	run := func() domain.Snapshot {
		st := newTestStore(t, true)
		c := newTestClock(t, st, rules.NewSeeded(2024), nil, time.Hour)
		for i := 0; i < 100; i++ {
			if _, err := c.Step(); err != nil {
				t.Fatalf("Step() error: %v", err)
			}
		}
		return st.Current()
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Error("two seeded clocks produced different snapshots")
	}
}

// ─── Loop ───────────────────────────────────────────────────────────────────

func TestLoop_TicksUntilStopped(t *testing.T) {
	st := newTestStore(t, true)
	j := &memJournal{}
	c := newTestClock(t, st, rules.NewSeeded(1), j, 2*time.Millisecond)

	if !c.Start() {
		t.Fatal("Start() = false on a stopped clock")
	}
	if c.Start() {
		t.Error("second Start() = true, want false")
	}

	deadline := time.After(2 * time.Second)
	for st.Current().Tick < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d ticks after 2s", st.Current().Tick)
		case <-time.After(time.Millisecond):
		}
	}

	c.Stop()
	if c.Running() {
		t.Error("Running() = true after Stop")
	}
	frozen := st.Current()
	time.Sleep(20 * time.Millisecond)
	if st.Current().Generation != frozen.Generation {
		t.Error("store changed after Stop")
	}
	if j.len() != int(frozen.Tick) {
		t.Errorf("journal ticks = %d, want %d", j.len(), frozen.Tick)
	}
}

func TestLoop_IdleWhileDisconnected(t *testing.T) {
	st := newTestStore(t, false)
	c := newTestClock(t, st, rules.NewSeeded(1), nil, time.Millisecond)
	c.Start()
	time.Sleep(15 * time.Millisecond)
	c.Stop()
	if st.Generation() != 0 {
		t.Errorf("Generation() = %d, want 0", st.Generation())
	}
}

// ─── Channels ───────────────────────────────────────────────────────────────

func TestUpdateChannel(t *testing.T) {
	st := newTestStore(t, false)
	c := newTestClock(t, st, rules.NewScripted(), nil, time.Hour)

	ch, err := c.UpdateChannel("CH-003", domain.ChannelClosed, nil)
	if err != nil {
		t.Fatalf("UpdateChannel() error: %v", err)
	}
	if ch.Status != domain.ChannelClosed {
		t.Errorf("Status = %s, want closed", ch.Status)
	}
	if i := st.Current().ChannelIndex("CH-003"); st.Current().Channels[i].Status != domain.ChannelClosed {
		t.Error("store not updated")
	}

	if _, err := c.UpdateChannel("CH-404", domain.ChannelOpen, nil); !errors.Is(err, domain.ErrChannelNotFound) {
		t.Errorf("unknown channel = %v, want ErrChannelNotFound", err)
	}
	if _, err := c.UpdateChannel("CH-003", domain.ChannelOpen, nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("closed -> open = %v, want ErrInvalidTransition", err)
	}
}

func TestStart_ManualClockNeverTicks(t *testing.T) {
	st := newTestStore(t, true)
	r, err := rules.New(rules.DefaultConfig())
	if err != nil {
		t.Fatalf("rules.New() error: %v", err)
	}
	c := New(st, r, rules.NewSeeded(1), nil, Config{Interval: time.Nanosecond, Manual: true})
	t.Cleanup(c.Stop)

	if c.Start() {
		t.Error("Start() = true on a manual clock")
	}
	if c.Running() {
		t.Error("Running() = true on a manual clock")
	}
	time.Sleep(10 * time.Millisecond)
	if tick := st.Current().Tick; tick != 0 {
		t.Fatalf("Tick = %d before any Step, want 0", tick)
	}

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	if tick := st.Current().Tick; tick != 1 {
		t.Errorf("Tick = %d after one Step, want 1", tick)
	}
}
