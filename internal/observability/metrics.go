// Package observability holds the Prometheus collectors and OpenTelemetry
// tracer shared across the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialapi_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// WebSocketConnections is the gauge of open realtime sessions on this instance.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialapi_websocket_connections",
		Help: "Number of open WebSocket connections",
	})

	// WebSocketEventsTotal counts inbound and outbound realtime events by name.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialapi_websocket_events_total",
		Help: "Total WebSocket events by direction and event name",
	}, []string{"direction", "event"})

	// WebSocketBackpressureDrops counts frames dropped because a client buffer was full
	// or its inbound rate limit was exceeded.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialapi_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket frames dropped",
	}, []string{"reason"})

	// NotificationsDispatched counts notification deliveries by channel and outcome.
	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialapi_notifications_dispatched_total",
		Help: "Notification deliveries by channel (realtime, push) and outcome",
	}, []string{"channel", "outcome"})

	// FeedQueries counts feed compositions by feed kind.
	FeedQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialapi_feed_queries_total",
		Help: "Feed compositions by kind",
	}, []string{"kind"})
)
