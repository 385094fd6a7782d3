// Package metrics provides Prometheus instrumentation for the chat server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConversationsTotal tracks conversations created, by kind.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_conversations_created_total",
			Help: "Total conversations created",
		},
		[]string{"kind"},
	)

	// MessagesTotal tracks messages sent, by conversation kind.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total messages sent",
		},
		[]string{"kind"},
	)

	// RealtimeEvents tracks realtime events by name and outcome (published, dropped, failed).
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_realtime_events_total",
			Help: "Realtime events by outcome",
		},
		[]string{"event", "outcome"},
	)

	// PushNotifications tracks push notification deliveries by outcome.
	PushNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_push_notifications_total",
			Help: "Push notifications by outcome",
		},
		[]string{"outcome"},
	)

	// WSConnectionsActive tracks open websocket connections on this instance.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)
)

const (
	OutcomePublished = "published"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordConversation counts a created conversation.
func RecordConversation(kind string) {
	ConversationsTotal.WithLabelValues(kind).Inc()
}

// RecordMessage counts a sent message.
func RecordMessage(kind string) {
	MessagesTotal.WithLabelValues(kind).Inc()
}

// RecordRealtime counts a realtime event outcome.
func RecordRealtime(event, outcome string) {
	RealtimeEvents.WithLabelValues(event, outcome).Inc()
}

// RecordPush counts a push notification outcome.
func RecordPush(outcome string) {
	PushNotifications.WithLabelValues(outcome).Inc()
}

func IncrementWSConnections() {
	WSConnectionsActive.Inc()
}

func DecrementWSConnections() {
	WSConnectionsActive.Dec()
}
