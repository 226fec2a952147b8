// Package metrics provides ledger client metrics collection.
// It wraps Prometheus collectors to provide structured telemetry for
// submissions, precheck outcomes, receipt polling and topic streams.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector provides ledger client metrics collection. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Submission metrics
	submissions      *prometheus.CounterVec
	submitAttempts   *prometheus.CounterVec
	submitLatency    *prometheus.HistogramVec
	precheckCodes    *prometheus.CounterVec
	receiptPolls     *prometheus.CounterVec
	confirmationTime prometheus.Histogram
	chunkSegments    *prometheus.CounterVec

	// Stream metrics
	streamRecords      prometheus.Counter
	streamTerminations *prometheus.CounterVec
	streamQueueDepth   prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "ledger"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "submissions_total",
			Help:      "Total number of logical submissions by result",
		},
		[]string{"result"},
	)

	c.submitAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "submit_attempts_total",
			Help:      "Total number of submit attempts per endpoint",
		},
		[]string{"endpoint", "outcome"},
	)

	c.submitLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "submit_attempt_duration_seconds",
			Help:      "Time taken by a single submit attempt",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"endpoint"},
	)

	c.precheckCodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "precheck_codes_total",
			Help:      "Precheck response codes returned by gateways",
		},
		[]string{"code"},
	)

	c.receiptPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "receipt_polls_total",
			Help:      "Receipt queries by returned status",
		},
		[]string{"status"},
	)

	c.confirmationTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "confirmation_duration_seconds",
			Help:      "Time from first submit attempt to terminal receipt",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
	)

	c.chunkSegments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "chunk_segments_total",
			Help:      "Chunked message segments by result",
		},
		[]string{"result"},
	)

	c.streamRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "records_total",
			Help:      "Records delivered to consumer queues",
		},
	)

	c.streamTerminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "terminations_total",
			Help:      "Subscriptions ended by terminal state",
		},
		[]string{"state"},
	)

	c.streamQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "queue_depth",
			Help:      "Depth of the most recently written consumer queue",
		},
	)

	c.registry.MustRegister(
		c.submissions,
		c.submitAttempts,
		c.submitLatency,
		c.precheckCodes,
		c.receiptPolls,
		c.confirmationTime,
		c.chunkSegments,
		c.streamRecords,
		c.streamTerminations,
		c.streamQueueDepth,
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordSubmission records the outcome of one logical submission.
func (c *Collector) RecordSubmission(err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.submissions.WithLabelValues(result).Inc()
}

// RecordSubmitAttempt records one submit attempt against endpoint.
func (c *Collector) RecordSubmitAttempt(endpoint, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.submitAttempts.WithLabelValues(endpoint, outcome).Inc()
	c.submitLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordPrecheck records a precheck response code.
func (c *Collector) RecordPrecheck(code string) {
	if c == nil {
		return
	}
	c.precheckCodes.WithLabelValues(code).Inc()
}

// RecordReceiptPoll records one receipt query.
func (c *Collector) RecordReceiptPoll(status string) {
	if c == nil {
		return
	}
	c.receiptPolls.WithLabelValues(status).Inc()
}

// RecordConfirmation records time to a terminal receipt.
func (c *Collector) RecordConfirmation(duration time.Duration) {
	if c == nil {
		return
	}
	c.confirmationTime.Observe(duration.Seconds())
}

// RecordChunkSegment records one chunk segment result.
func (c *Collector) RecordChunkSegment(err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.chunkSegments.WithLabelValues(result).Inc()
}

// RecordStreamRecord records a record handed to a consumer queue.
func (c *Collector) RecordStreamRecord(queueDepth int) {
	if c == nil {
		return
	}
	c.streamRecords.Inc()
	c.streamQueueDepth.Set(float64(queueDepth))
}

// RecordStreamTermination records the terminal state of a subscription.
func (c *Collector) RecordStreamTermination(state string) {
	if c == nil {
		return
	}
	c.streamTerminations.WithLabelValues(state).Inc()
}
