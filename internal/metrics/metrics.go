package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All metrics are low-cardinality (no event_id/camera_id labels)

var (
	// IngestTotal counts applied or rejected transitions by incoming state and outcome
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rada_ingest_total",
			Help: "Event ingest requests by state and outcome",
		},
		[]string{"state", "outcome"},
	)

	// IngestLatency tracks the transactional part of ingestion
	IngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rada_ingest_latency_ms",
			Help:    "Ingest transaction latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// PublishFailuresTotal counts transitions a publisher failed to deliver
	PublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rada_publish_failures_total",
			Help: "Transition publish failures by publisher",
		},
		[]string{"publisher"},
	)

	// LoginTotal counts login attempts by result
	LoginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rada_login_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// RelayViewers is the number of connected MJPEG viewers
	RelayViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rada_relay_viewers",
			Help: "Connected MJPEG viewers",
		},
	)

	// RelayFramesWritten counts frames delivered to viewers
	RelayFramesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rada_relay_frames_written_total",
			Help: "Frames written to MJPEG viewers",
		},
	)

	// ProducerFramesTotal counts frames pushed into the broadcast buffer
	ProducerFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rada_producer_frames_total",
			Help: "Frames published by the producer",
		},
	)

	// ProducerRestartsTotal counts decode source restarts by cause
	ProducerRestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rada_producer_restarts_total",
			Help: "Decode source restarts by cause",
		},
		[]string{"cause"},
	)

	// OverlayFailuresTotal counts frames passed through unmodified
	OverlayFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rada_overlay_failures_total",
			Help: "Frames the overlay could not decode or encode",
		},
	)

	// SimulatorEventsTotal counts simulator posts by state and result
	SimulatorEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rada_simulator_events_total",
			Help: "Simulator ingest posts by state and result",
		},
		[]string{"state", "result"},
	)
)

func RecordIngest(state, outcome string) {
	IngestTotal.WithLabelValues(state, outcome).Inc()
}

func RecordPublishFailure(publisher string) {
	PublishFailuresTotal.WithLabelValues(publisher).Inc()
}

func RecordLogin(result string) {
	LoginTotal.WithLabelValues(result).Inc()
}

func RecordRestart(cause string) {
	ProducerRestartsTotal.WithLabelValues(cause).Inc()
}
