// Package metrics provides Prometheus metrics for RoboOS.
// Gauges mirror the marketplace metrics bundle after every tick; counters
// track the engine itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roboos-network/roboos/internal/domain"
)

// ─── Marketplace ────────────────────────────────────────────────────────────

// OpenChannels mirrors the open payment channel count.
var OpenChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "roboos",
	Name:      "open_channels",
	Help:      "Open payment channels reported by the marketplace.",
})

// StealthVolume mirrors the 24h stealth channel volume in ROS.
var StealthVolume = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "roboos",
	Name:      "stealth_volume_ros",
	Help:      "Rolling 24h stealth channel volume in ROS.",
})

// TasksSettled mirrors the settled task count.
var TasksSettled = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "roboos",
	Name:      "tasks_settled",
	Help:      "Tasks settled through payment channels.",
})

// ZKProofSuccess mirrors the proof success percentage.
var ZKProofSuccess = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "roboos",
	Name:      "zk_proof_success_percent",
	Help:      "Proof verification success rate in percent.",
})

// TasksByStatus counts tasks per lifecycle status.
var TasksByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roboos",
	Name:      "tasks",
	Help:      "Tasks in the current snapshot by status.",
}, []string{"status"})

// ─── Engine ─────────────────────────────────────────────────────────────────

// Ticks counts applied simulation ticks.
var Ticks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "roboos",
	Name:      "ticks_total",
	Help:      "Simulation ticks applied to the store.",
})

// TickRetries counts ticks recomputed after a stale snapshot.
var TickRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "roboos",
	Name:      "tick_retries_total",
	Help:      "Ticks recomputed because the base snapshot went stale.",
})

// TickFaults counts entities a tick refused to advance.
var TickFaults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roboos",
	Name:      "tick_faults_total",
	Help:      "Entities left untouched by a tick, by reason.",
}, []string{"reason"})

// TaskTransitions counts task status changes.
var TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roboos",
	Name:      "task_transitions_total",
	Help:      "Task status transitions applied by the clock.",
}, []string{"from", "to"})

// TickDuration tracks how long one read-transform-write cycle takes.
var TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "roboos",
	Name:      "tick_duration_seconds",
	Help:      "Duration of one simulation tick.",
	Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
})

// ─── Session ────────────────────────────────────────────────────────────────

// SessionConnected is 1 while a wallet session is connected.
var SessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "roboos",
	Name:      "session_connected",
	Help:      "1 while a wallet session is connected, else 0.",
})

// SessionEvents counts connect, disconnect and network changes.
var SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roboos",
	Name:      "session_events_total",
	Help:      "Session commands applied, by kind.",
}, []string{"kind"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roboos",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// ObserveSnapshot sets the marketplace gauges from snap.
func ObserveSnapshot(snap domain.Snapshot) {
	OpenChannels.Set(float64(snap.Metrics.OpenChannels))
	StealthVolume.Set(snap.Metrics.StealthVolume)
	TasksSettled.Set(float64(snap.Metrics.TasksSettled))
	ZKProofSuccess.Set(snap.Metrics.ZKProofSuccess)

	counts := map[domain.TaskStatus]int{
		domain.TaskPending: 0, domain.TaskAssigned: 0, domain.TaskInProgress: 0,
		domain.TaskCompleted: 0, domain.TaskFailed: 0,
	}
	for _, t := range snap.Tasks {
		counts[t.Status]++
	}
	for status, n := range counts {
		TasksByStatus.WithLabelValues(string(status)).Set(float64(n))
	}

	if snap.Session.Connected {
		SessionConnected.Set(1)
	} else {
		SessionConnected.Set(0)
	}
}
