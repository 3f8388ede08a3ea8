package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestInitialSnapshot_Valid(t *testing.T) {
	snap := InitialSnapshot(NetworkDevnet)
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(snap.Robots) != 4 || len(snap.Tasks) != 4 || len(snap.Channels) != 3 {
		t.Errorf("roster sizes = %d/%d/%d, want 4/4/3", len(snap.Robots), len(snap.Tasks), len(snap.Channels))
	}
	if snap.Session.Connected {
		t.Error("initial session should be disconnected")
	}
	if snap.Session.Network != NetworkDevnet {
		t.Errorf("Network = %q, want devnet", snap.Session.Network)
	}
}

func TestTaskStatus_Predicates(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
		eta      bool
	}{
		{TaskPending, false, false},
		{TaskAssigned, false, true},
		{TaskInProgress, false, true},
		{TaskCompleted, true, false},
		{TaskFailed, true, false},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
		if got := tt.status.CarriesETA(); got != tt.eta {
			t.Errorf("%s.CarriesETA() = %v, want %v", tt.status, got, tt.eta)
		}
	}
	if TaskStatus("paused").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestTask_WithStatus(t *testing.T) {
	pending := Task{ID: "T", Status: TaskPending}
	started := pending.WithStatus(TaskInProgress, time.Minute)
	if started.ETA == nil || *started.ETA != time.Minute {
		t.Fatalf("ETA = %v, want 1m", started.ETA)
	}
	if pending.ETA != nil {
		t.Error("WithStatus mutated the receiver")
	}

	done := started.WithStatus(TaskCompleted, time.Minute)
	if done.ETA != nil {
		t.Errorf("completed ETA = %v, want nil", *done.ETA)
	}

	keep := Task{ID: "K", Status: TaskAssigned, ETA: Duration(3 * time.Second)}.WithStatus(TaskInProgress, time.Hour)
	if *keep.ETA != 3*time.Second {
		t.Errorf("ETA = %v, want existing 3s kept", *keep.ETA)
	}
}

func TestChannelStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to ChannelStatus
		want     bool
	}{
		{ChannelOpen, ChannelSettling, true},
		{ChannelOpen, ChannelClosed, false},
		{ChannelSettling, ChannelOpen, true},
		{ChannelSettling, ChannelClosed, true},
		{ChannelClosed, ChannelOpen, false},
		{ChannelClosed, ChannelClosed, true},
		{ChannelOpen, ChannelStatus("frozen"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseNetwork(t *testing.T) {
	for _, s := range []string{"mainnet", "devnet", "testnet"} {
		if _, err := ParseNetwork(s); err != nil {
			t.Errorf("ParseNetwork(%q) error: %v", s, err)
		}
	}
	if _, err := ParseNetwork("mainnet-beta"); !errors.Is(err, ErrInvalidNetwork) {
		t.Errorf("ParseNetwork(mainnet-beta) = %v, want ErrInvalidNetwork", err)
	}
}

func TestSnapshot_Clone(t *testing.T) {
	snap := InitialSnapshot(NetworkDevnet)
	cp := snap.Clone()
	cp.Tasks[0].Status = TaskFailed
	*cp.Tasks[0].ETA = time.Hour
	cp.Channels[0].Capacity = 0

	if snap.Tasks[0].Status != TaskInProgress {
		t.Error("Clone shares task slice")
	}
	if *snap.Tasks[0].ETA == time.Hour {
		t.Error("Clone shares eta pointer")
	}
	if snap.Channels[0].Capacity != 12.5 {
		t.Error("Clone shares channel slice")
	}
}

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   error
	}{
		{"dangling robot", func(s *Snapshot) { s.Tasks[0].RobotID = "ghost" }, ErrInvalidReference},
		{"pending with eta", func(s *Snapshot) { s.Tasks[1].ETA = Duration(time.Second) }, ErrSnapshotInvariant},
		{"in progress without eta", func(s *Snapshot) { s.Tasks[0].ETA = nil }, ErrSnapshotInvariant},
		{"zk above cap", func(s *Snapshot) { s.Metrics.ZKProofSuccess = 100 }, ErrSnapshotInvariant},
		{"wallet while disconnected", func(s *Snapshot) { s.Session.Address = "x" }, ErrSnapshotInvariant},
		{"negative capacity", func(s *Snapshot) { s.Channels[0].Capacity = -1 }, ErrSnapshotInvariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := InitialSnapshot(NetworkDevnet).Clone()
			tt.mutate(&snap)
			if err := snap.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTaskFault_Unwrap(t *testing.T) {
	var err error = &TaskFault{TaskID: "TASK-1", Err: ErrInvalidReference}
	if !errors.Is(err, ErrInvalidReference) {
		t.Error("TaskFault does not unwrap to its cause")
	}
	var f *TaskFault
	if !errors.As(err, &f) || f.TaskID != "TASK-1" {
		t.Errorf("errors.As TaskFault = %+v", f)
	}
}

func TestSession_MarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		sess        Session
		wantBalance bool
	}{
		{"disconnected", Session{Network: NetworkDevnet}, false},
		{"connected", Session{ID: "s", Connected: true, Address: DefaultWalletAddress, Balance: 42.5, Network: NetworkDevnet}, true},
		{"connected zero balance", Session{ID: "s", Connected: true, Address: "addr", Network: NetworkTestnet}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.sess)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			var fields map[string]any
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			bal, ok := fields["wallet_balance"]
			if ok != tt.wantBalance {
				t.Errorf("wallet_balance present = %v, want %v (%s)", ok, tt.wantBalance, data)
			}
			if ok && bal.(float64) != tt.sess.Balance {
				t.Errorf("wallet_balance = %v, want %v", bal, tt.sess.Balance)
			}
			if fields["network"] != string(tt.sess.Network) {
				t.Errorf("network = %v, want %s", fields["network"], tt.sess.Network)
			}

			var back Session
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal(Session) error: %v", err)
			}
			if back != tt.sess {
				t.Errorf("decoded = %+v, want %+v", back, tt.sess)
			}
		})
	}
}
