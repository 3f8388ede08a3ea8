// Package session owns the wallet session: connect, disconnect and network
// selection. Connecting starts the simulation clock; disconnecting clears
// the wallet fields and stops it.
package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roboos-network/roboos/internal/domain"
	"github.com/roboos-network/roboos/internal/engine/store"
	"github.com/roboos-network/roboos/internal/infra/metrics"
)

// Clock is the part of the simulation clock the controller gates.
type Clock interface {
	Start() bool
	Stop()
}

// Config holds the placeholder wallet values handed out on connect.
type Config struct {
	WalletAddress   string
	StartingBalance float64
}

// DefaultConfig returns the fixed placeholder wallet.
func DefaultConfig() Config {
	return Config{
		WalletAddress:   domain.DefaultWalletAddress,
		StartingBalance: domain.DefaultStartingBalance,
	}
}

// Controller serializes session commands. journal may be nil.
type Controller struct {
	mu      sync.Mutex
	store   *store.Store
	clock   Clock
	journal domain.Journal
	cfg     Config
}

// New creates a controller over st that gates clk.
func New(st *store.Store, clk Clock, journal domain.Journal, cfg Config) *Controller {
	if cfg.WalletAddress == "" {
		cfg.WalletAddress = domain.DefaultWalletAddress
	}
	return &Controller{store: st, clock: clk, journal: journal, cfg: cfg}
}

// Session returns the current session state.
func (c *Controller) Session() domain.Session {
	return c.store.Current().Session
}

// Connect opens a session, assigns the wallet and starts the clock.
// Returns domain.ErrAlreadyConnected if a session is open.
func (c *Controller) Connect() (domain.SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

// Disconnect clears the wallet and stops the clock. Calling it with no
// open session changes nothing and returns domain.ErrNotConnected.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

// Toggle connects when disconnected and disconnects when connected, the
// behavior of the dashboard's single wallet button. It returns the
// resulting session.
func (c *Controller) Toggle() (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.store.Current().Session.Connected {
		err = c.disconnectLocked()
	} else {
		_, err = c.connectLocked()
	}
	return c.store.Current().Session, err
}

// SelectNetwork records the chosen network. It gates nothing else.
func (c *Controller) SelectNetwork(n domain.Network) error {
	if _, err := domain.ParseNetwork(string(n)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.store.Update(func(snap *domain.Snapshot) error {
		snap.Session.Network = n
		return nil
	})
	if err != nil {
		return err
	}
	c.record("network", snap.Session)
	return nil
}

// Teardown closes any open session and stops the clock. Used at shutdown.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.disconnectLocked(); err != nil && !errors.Is(err, domain.ErrNotConnected) {
		log.Printf("[session] teardown: %v", err)
	}
	c.clock.Stop()
}

func (c *Controller) connectLocked() (domain.SessionInfo, error) {
	snap, err := c.store.Update(func(snap *domain.Snapshot) error {
		if snap.Session.Connected {
			return domain.ErrAlreadyConnected
		}
		snap.Session.ID = uuid.New().String()
		snap.Session.Connected = true
		snap.Session.Address = c.cfg.WalletAddress
		snap.Session.Balance = c.cfg.StartingBalance
		return nil
	})
	if err != nil {
		return domain.SessionInfo{}, err
	}

	c.clock.Start()
	metrics.SessionConnected.Set(1)
	c.record("connect", snap.Session)
	log.Printf("[session] connected %s on %s", snap.Session.ID, snap.Session.Network)
	return snap.Session.Info(), nil
}

func (c *Controller) disconnectLocked() error {
	var closed domain.Session
	_, err := c.store.Update(func(snap *domain.Snapshot) error {
		if !snap.Session.Connected {
			return domain.ErrNotConnected
		}
		closed = snap.Session
		snap.Session = domain.Session{Network: snap.Session.Network}
		return nil
	})
	if err != nil {
		return err
	}

	// The session is already cleared in the store, so any tick still in
	// flight is abandoned on its next read; Stop only reaps the loop.
	c.clock.Stop()
	metrics.SessionConnected.Set(0)
	c.record("disconnect", closed)
	log.Printf("[session] disconnected %s", closed.ID)
	return nil
}

func (c *Controller) record(kind string, s domain.Session) {
	metrics.SessionEvents.WithLabelValues(kind).Inc()
	if c.journal == nil {
		return
	}
	err := c.journal.RecordSessionEvent(domain.SessionEvent{
		SessionID: s.ID,
		Kind:      kind,
		Network:   s.Network,
		At:        time.Now(),
	})
	if err != nil {
		log.Printf("[session] journal: %v", err)
	}
}
