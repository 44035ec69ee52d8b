package observability

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Gateway metrics
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of open gateway connections",
		},
	)

	WebSocketRoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_rooms_active",
			Help: "Number of rooms with at least one joined connection",
		},
	)

	WebSocketEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_total",
			Help: "Inbound gateway events by name and outcome",
		},
		[]string{"event", "outcome"},
	)

	WebSocketBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_total",
			Help: "Room broadcasts delivered to connections",
		},
		[]string{"event"},
	)

	WebSocketDroppedClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_dropped_clients_total",
			Help: "Connections dropped because their send buffer was full",
		},
	)

	// Mention / notification metrics
	MentionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_created_total",
			Help: "Mention records created",
		},
		[]string{"source_type"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notification events published to the broker by result",
		},
		[]string{"result"},
	)

	NotificationsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_consumed_total",
			Help: "Notification events consumed by result",
		},
		[]string{"result"},
	)

	BrokerConnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_connects_total",
			Help: "Broker connections established",
		},
	)

	// Database metrics
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordDBStats copies pool statistics into the database gauges
func RecordDBStats(stats sql.DBStats) {
	DBConnectionsOpen.Set(float64(stats.OpenConnections))
	DBConnectionsInUse.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
}

// ReportDBStats samples db pool statistics every interval until ctx is done
func ReportDBStats(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			RecordDBStats(db.Stats())
		}
	}
}
