package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the prometheus collectors updated by the room layer
type Metrics struct {
	ActiveRooms      prometheus.Gauge
	ConnectedPlayers prometheus.Gauge
	RoundsStarted    prometheus.Counter
	RoundsFinished   prometheus.Counter
	RoundsAbandoned  prometheus.Counter
	InboundEvents    *prometheus.CounterVec
	Errors           *prometheus.CounterVec
	ThrottledTyping  prometheus.Counter
	TimerDrift       prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms held in memory",
		}),
		ConnectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_players",
			Help:      "Number of players currently in a room",
		}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Total number of rounds started",
		}),
		RoundsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_finished_total",
			Help:      "Total number of rounds that ran to timer expiry",
		}),
		RoundsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_abandoned_total",
			Help:      "Total number of rounds cancelled because the room emptied",
		}),
		InboundEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound client events by type",
		}, []string{"event"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Rejected client events by error kind",
		}, []string{"kind"}),
		ThrottledTyping: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_typing_total",
			Help:      "player-typed messages dropped by the per-connection rate limit",
		}),
		TimerDrift: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_timer_drift_seconds",
			Help:      "Absolute difference between client-reported and server countdown",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		m.ActiveRooms,
		m.ConnectedPlayers,
		m.RoundsStarted,
		m.RoundsFinished,
		m.RoundsAbandoned,
		m.InboundEvents,
		m.Errors,
		m.ThrottledTyping,
		m.TimerDrift,
	)

	return m
}
