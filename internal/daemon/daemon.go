package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roboos-network/roboos/internal/api"
	"github.com/roboos-network/roboos/internal/domain"
	"github.com/roboos-network/roboos/internal/engine/clock"
	"github.com/roboos-network/roboos/internal/engine/rules"
	"github.com/roboos-network/roboos/internal/engine/session"
	"github.com/roboos-network/roboos/internal/engine/store"
	"github.com/roboos-network/roboos/internal/health"
	"github.com/roboos-network/roboos/internal/infra/metrics"
	"github.com/roboos-network/roboos/internal/infra/sqlite"
)

// Daemon is the core RoboOS runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Store   *store.Store
	Rules   *rules.Rules
	Clock   *clock.Clock
	Session *session.Controller
	Health  *health.Checker
	Server  *api.Server
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	rc, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	r, err := rules.New(rc)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Journal.Path, cfg.Journal.Retention)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	st := store.New(domain.InitialSnapshot(cfg.Network()))
	metrics.ObserveSnapshot(st.Current())

	clk := clock.New(st, r, randomSource(cfg.Simulation.Seed), db, cfg.Clock())
	sess := session.New(st, clk, db, cfg.SessionController())

	src := health.Sources{Journal: db, Snapshot: st.Current}
	if !cfg.Simulation.Manual {
		src.Clock = clk
	}
	checker := health.NewChecker(src, parseDuration(cfg.Health.Interval, health.DefaultInterval))

	srv := api.NewServer(st, sess, clk)
	srv.SetJournal(db)
	srv.SetHealth(checker)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:  cfg,
		DB:      db,
		Store:   st,
		Rules:   r,
		Clock:   clk,
		Session: sess,
		Health:  checker,
		Server:  srv,
	}, nil
}

// randomSource returns a seeded source for reproducible runs, or an
// entropy-seeded one when seed is 0.
func randomSource(seed uint64) domain.RandomSource {
	if seed != 0 {
		return rules.NewSeeded(seed)
	}
	return rules.NewEntropy()
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     d.Server.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		log.Printf("[daemon] shutting down")
		d.Session.Teardown()
		// Closing the store ends open SSE and WebSocket streams.
		d.Store.Close()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("RoboOS serving on http://%s\n", addr)
	fmt.Printf("  Ticks:   every %s while connected\n", d.Clock.Interval())
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Session != nil {
		d.Session.Teardown()
	}
	if d.Store != nil {
		d.Store.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
