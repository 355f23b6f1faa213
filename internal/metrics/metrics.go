// Package metrics holds the Prometheus collectors shared by rooms and the
// API layer.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-player or per-room labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one room tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_rooms",
		Help: "Current number of rooms",
	})

	players = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_players",
		Help: "Players across all rooms, dead or alive",
	})

	bullets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_bullets_in_flight",
		Help: "Bullets in flight across all rooms",
	})

	shotsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_shots_fired_total",
		Help: "Bullets spawned",
	})

	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_hits_total",
		Help: "Bullet-player hits",
	})

	deaths = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_deaths_total",
		Help: "Players whose hp reached zero",
	})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_commands_total",
		Help: "Commands applied to rooms",
	}, []string{"command", "result"}) // command: join|move|dir|shoot, result: ok|not_joined|room_full

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the chi route pattern

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// RecordTick records one room tick and its outcome.
func RecordTick(d time.Duration, hitCount, deathCount int) {
	tickDuration.Observe(d.Seconds())
	hits.Add(float64(hitCount))
	deaths.Add(float64(deathCount))
}

// RecordShot counts a spawned bullet.
func RecordShot() {
	shotsFired.Inc()
}

// RecordCommand counts an applied command by outcome.
func RecordCommand(command, result string) {
	commands.WithLabelValues(command, result).Inc()
}

// AddPlayers adjusts the global player gauge.
func AddPlayers(n int) {
	players.Add(float64(n))
}

// AddBullets adjusts the global in-flight bullet gauge.
func AddBullets(n int) {
	bullets.Add(float64(n))
}

// SetRooms sets the room gauge.
func SetRooms(n int) {
	rooms.Set(float64(n))
}

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, endpoint, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// UpdateWSConnections sets the WebSocket connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one outbound WebSocket message.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

var registerEventLogOnce sync.Once

// RegisterEventLog exposes the event log counters. Only the first call
// registers; later calls are ignored.
func RegisterEventLog(written, dropped func() uint64) {
	registerEventLogOnce.Do(func() {
		promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "event_log_written_total",
			Help: "Events written to the audit log",
		}, func() float64 { return float64(written()) })

		promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "event_log_dropped_total",
			Help: "Events dropped due to rate limiting or buffer full",
		}, func() float64 { return float64(dropped()) })
	})
}
