package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "eduaudit.websocket"

// hubMetrics are the otel instruments of the hub. Instruments that fail to
// register are left nil and skipped.
type hubMetrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	droppedClients     metric.Int64Counter
}

func newHubMetrics() *hubMetrics {
	meter := otel.Meter(meterName)
	m := &hubMetrics{}
	m.connectionsTotal, _ = meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	)
	m.connectionsActive, _ = meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	)
	m.connectionDuration, _ = meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	)
	m.droppedClients, _ = meter.Int64Counter(
		"websocket_dropped_clients_total",
		metric.WithDescription("Clients disconnected because their buffer was full"),
	)
	return m
}

func (m *hubMetrics) connected(ctx context.Context) {
	if m.connectionsTotal != nil {
		m.connectionsTotal.Add(ctx, 1)
	}
	if m.connectionsActive != nil {
		m.connectionsActive.Add(ctx, 1)
	}
}

func (m *hubMetrics) disconnected(ctx context.Context, d time.Duration) {
	if m.connectionsActive != nil {
		m.connectionsActive.Add(ctx, -1)
	}
	if m.connectionDuration != nil {
		m.connectionDuration.Record(ctx, d.Seconds())
	}
}

func (m *hubMetrics) dropped(ctx context.Context) {
	if m.connectionsActive != nil {
		m.connectionsActive.Add(ctx, -1)
	}
	if m.droppedClients != nil {
		m.droppedClients.Add(ctx, 1)
	}
}
