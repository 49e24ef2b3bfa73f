package metrics

import "github.com/prometheus/client_golang/prometheus"

// Streaming metrics for the SSE world-frame feed and the WebSocket
// transfer-control channel, grounded on the teacher's stream package
// metrics (connection counters, bytes/messages sent, per-reason error
// counter).
var (
	streamConnectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitsim_stream_connections_total",
		Help: "Total number of SSE stream connect/disconnect events.",
	}, []string{"event"})

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitsim_streams_active",
		Help: "Current number of open SSE stream connections.",
	})

	streamErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitsim_stream_errors_total",
		Help: "Total number of SSE stream errors by reason.",
	}, []string{"reason"})

	streamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_stream_messages_total",
		Help: "Total number of SSE messages sent.",
	})

	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_stream_bytes_total",
		Help: "Total number of bytes written to SSE stream connections.",
	})

	wsConnectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitsim_ws_connections_total",
		Help: "Total number of WebSocket transfer-control connect/disconnect events.",
	}, []string{"event"})

	wsErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitsim_ws_errors_total",
		Help: "Total number of WebSocket transfer-control errors by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		streamConnectionsTotal,
		streamsActive,
		streamErrorsTotal,
		streamMessagesTotal,
		streamBytesTotal,
		wsConnectionsTotal,
		wsErrorsTotal,
	)
}

// IncStreamConnections counts one SSE connect or disconnect event.
func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }

// IncStreamsActive/DecStreamsActive track the open SSE connection gauge.
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamErrors counts one SSE error by reason.
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// IncStreamMessages counts one SSE message sent.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// AddStreamBytes adds n bytes to the SSE byte counter.
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }

// IncWSConnections counts one WebSocket connect or disconnect event.
func IncWSConnections(event string) { wsConnectionsTotal.WithLabelValues(event).Inc() }

// IncWSErrors counts one WebSocket error by reason.
func IncWSErrors(reason string) { wsErrorsTotal.WithLabelValues(reason).Inc() }
