package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roboos-network/roboos/internal/domain"
)

// ─── Server-Sent Events ─────────────────────────────────────────────────────

// handleStream pushes every new snapshot as an SSE "snapshot" event.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range s.store.Subscribe(r.Context()) {
		data, err := json.Marshal(newSnapshotView(snap))
		if err != nil {
			log.Printf("[api] marshal snapshot: %v", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Generation, data); err != nil {
			return
		}
		flusher.Flush()
	}
}

// ─── WebSocket ──────────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsCommand is a session command sent by the client over the socket.
type wsCommand struct {
	Command string `json:"command"` // "connect", "disconnect", "toggle", "network"
	Network string `json:"network,omitempty"`
}

// wsMessage is everything the server writes to the socket.
type wsMessage struct {
	Type     string          `json:"type"` // "snapshot", "session", "error"
	Snapshot *snapshotView   `json:"snapshot,omitempty"`
	Session  *domain.Session `json:"session,omitempty"`
	Error    string          `json:"error,omitempty"`
}

const wsWriteWait = 10 * time.Second

// handleWebSocket streams snapshots and accepts session commands. All
// writes happen on this goroutine; the reader hands replies over a channel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replies := make(chan wsMessage, 8)
	go func() {
		defer cancel()
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[api] websocket read error: %v", err)
				}
				return
			}
			select {
			case replies <- s.runCommand(cmd):
			case <-ctx.Done():
				return
			}
		}
	}()

	snaps := s.store.Subscribe(ctx)
	for {
		var msg wsMessage
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			view := newSnapshotView(snap)
			msg = wsMessage{Type: "snapshot", Snapshot: &view}
		case msg = <-replies:
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *Server) runCommand(cmd wsCommand) wsMessage {
	var err error
	switch cmd.Command {
	case "connect":
		_, err = s.session.Connect()
	case "disconnect":
		err = s.session.Disconnect()
	case "toggle":
		_, err = s.session.Toggle()
	case "network":
		var n domain.Network
		if n, err = domain.ParseNetwork(cmd.Network); err == nil {
			err = s.session.SelectNetwork(n)
		}
	default:
		err = fmt.Errorf("unknown command %q", cmd.Command)
	}
	if err != nil {
		return wsMessage{Type: "error", Error: err.Error()}
	}
	sess := s.session.Session()
	return wsMessage{Type: "session", Session: &sess}
}
