package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks live WebSocket connections on this instance.
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cook_connections_active",
			Help: "Number of live WebSocket connections",
		},
	)

	// RoomsActive tracks rooms with at least one member.
	RoomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cook_rooms_active",
			Help: "Number of recipe rooms with at least one member",
		},
	)

	// RoomLanes tracks running per-room sequencer goroutines.
	RoomLanes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cook_room_lanes",
			Help: "Number of running per-room sequencer lanes",
		},
	)

	// EventsTotal counts inbound events by name and outcome.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cook_events_total",
			Help: "Inbound WebSocket events by name and outcome",
		},
		[]string{"event", "outcome"},
	)

	// NotificationsTotal counts dispatcher results by type and outcome.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cook_notifications_total",
			Help: "Notification dispatch results by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// SlowConsumersClosed counts clients closed because their buffer was full.
	SlowConsumersClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cook_slow_consumers_closed_total",
			Help: "Clients disconnected because their outbound buffer was full",
		},
	)

	// PersistDuration tracks append latency of the chat log.
	PersistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cook_persist_duration_seconds",
			Help:    "Time spent appending chat messages and cooking steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
	OutcomeSuppressed = "suppressed"
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		RoomsActive,
		RoomLanes,
		EventsTotal,
		NotificationsTotal,
		SlowConsumersClosed,
		PersistDuration,
	)
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
