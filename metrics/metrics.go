package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the sender and the monitor.
var (
	SendAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synburst_send_attempts_total",
			Help: "Number of packets handed to the raw socket.",
		},
	)
	Packets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synburst_packets_total",
			Help: "Number of send attempts by result.",
		},
		[]string{"result"},
	)
	BytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synburst_bytes_sent_total",
			Help: "Number of bytes written to the raw socket.",
		},
	)
	SendLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "synburst_send_latency_seconds",
			Help: "A histogram of raw socket send call latencies.",
			Buckets: []float64{
				.000001, .000002, .000005, .00001, .000015, .000025, .00004, .00006,
				.0001, .00015, .00025, .0004, .0006,
				.001, .0025, .01, .1},
		},
	)
	MonitorRTT = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synburst_monitor_rtt_seconds",
			Help:    "A histogram of TCP connect round trip times seen by the monitor.",
			Buckets: prometheus.ExponentialBuckets(.0001, 2, 16),
		},
		[]string{"result"},
	)
)
