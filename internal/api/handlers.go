package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roboos-network/roboos/internal/domain"
)

// ─── Views ──────────────────────────────────────────────────────────────────
// Values stay raw; currency and percent formatting belong to the client.

type taskView struct {
	ID         string            `json:"id"`
	RobotID    string            `json:"robot_id"`
	Kind       string            `json:"type"`
	Status     domain.TaskStatus `json:"status"`
	Reward     float64           `json:"reward"`
	ETA        string            `json:"eta,omitempty"`
	ETASeconds *float64          `json:"eta_seconds,omitempty"`
}

type snapshotView struct {
	Generation uint64           `json:"generation"`
	Tick       uint64           `json:"tick"`
	Robots     []domain.Robot   `json:"robots"`
	Tasks      []taskView       `json:"tasks"`
	Channels   []domain.Channel `json:"channels"`
	Metrics    domain.Metrics   `json:"metrics"`
	Session    domain.Session   `json:"session"`
}

func newTaskView(t domain.Task) taskView {
	v := taskView{ID: t.ID, RobotID: t.RobotID, Kind: t.Kind, Status: t.Status, Reward: t.Reward}
	if t.ETA != nil {
		v.ETA = t.ETA.String()
		secs := t.ETA.Seconds()
		v.ETASeconds = &secs
	}
	return v
}

func newTaskViews(tasks []domain.Task) []taskView {
	out := make([]taskView, len(tasks))
	for i, t := range tasks {
		out[i] = newTaskView(t)
	}
	return out
}

func newSnapshotView(s domain.Snapshot) snapshotView {
	return snapshotView{
		Generation: s.Generation,
		Tick:       s.Tick,
		Robots:     s.Robots,
		Tasks:      newTaskViews(s.Tasks),
		Channels:   s.Channels,
		Metrics:    s.Metrics,
		Session:    s.Session,
	}
}

// ─── Snapshot reads ─────────────────────────────────────────────────────────

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSnapshotView(s.store.Current()))
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"robots": s.store.Current().Robots})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": newTaskViews(s.store.Current().Tasks)})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"channels": s.store.Current().Channels})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Current().Metrics)
}

// ─── Session commands ───────────────────────────────────────────────────────

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Session())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	info, err := s.session.Connect()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Disconnect(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Session())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session.Toggle()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type networkRequest struct {
	Network string `json:"network"`
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	var req networkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := domain.ParseNetwork(req.Network)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.session.SelectNetwork(n); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Session())
}

// ─── Channels ───────────────────────────────────────────────────────────────

type channelRequest struct {
	Status   domain.ChannelStatus `json:"status,omitempty"`
	Capacity *float64             `json:"capacity,omitempty"`
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ch, err := s.clock.UpdateChannel(chi.URLParam(r, "id"), req.Status, req.Capacity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// ─── History ────────────────────────────────────────────────────────────────

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	ticks, err := s.journal.Ticks(queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.journal.TickCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticks": ticks, "total": total})
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	trs, err := s.journal.Transitions(r.URL.Query().Get("task"), queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": trs})
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	evs, err := s.journal.SessionEvents(queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evs})
}
