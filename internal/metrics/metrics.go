// Package metrics provides the Prometheus collectors for cage tracking.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scale message outcomes.
const (
	ScaleResultRecorded    = "recorded"
	ScaleResultDecodeError = "decode_error"
	ScaleResultRejected    = "rejected"
)

// Metrics contains every collector exported by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	WeighingsRecorded   *prometheus.CounterVec
	DivergenceAlerts    prometheus.Counter
	StageChanges        *prometheus.CounterVec
	NotificationLogSize prometheus.Gauge
	ScaleMessages       *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register cagetrack metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.WeighingsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cagetrack_weighings_recorded_total",
		Help: "Total number of weighings recorded, by kind",
	}, []string{"kind"})

	m.DivergenceAlerts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cagetrack_divergence_alerts_total",
		Help: "Total number of weighings whose divergence exceeded the alert threshold",
	})

	m.StageChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cagetrack_stage_changes_total",
		Help: "Total number of cage stage changes, by target stage",
	}, []string{"stage"})

	m.NotificationLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cagetrack_notification_log_size",
		Help: "Number of stage change events currently retained",
	})

	m.ScaleMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cagetrack_scale_messages_total",
		Help: "Total number of scale readings received, by outcome",
	}, []string{"result"})

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cagetrack_http_requests_total",
		Help: "Total number of HTTP requests, by method and status",
	}, []string{"method", "status"})

	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cagetrack_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
}

// WeighingRecorded counts a stored weighing and its alert flag.
func (m *Metrics) WeighingRecorded(kind string, alert bool) {
	if m == nil {
		return
	}
	m.WeighingsRecorded.WithLabelValues(kind).Inc()
	if alert {
		m.DivergenceAlerts.Inc()
	}
}

// StageChanged counts a stage transition and updates the retained log size.
func (m *Metrics) StageChanged(stage string, logSize int) {
	if m == nil {
		return
	}
	m.StageChanges.WithLabelValues(stage).Inc()
	m.NotificationLogSize.Set(float64(logSize))
}

// ScaleMessage counts a scale reading outcome.
func (m *Metrics) ScaleMessage(result string) {
	if m == nil {
		return
	}
	m.ScaleMessages.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.WeighingsRecorded.Collect(ch)
	ch <- m.DivergenceAlerts
	m.StageChanges.Collect(ch)
	ch <- m.NotificationLogSize
	m.ScaleMessages.Collect(ch)
	m.HTTPRequests.Collect(ch)
	m.HTTPDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.WeighingsRecorded.Describe(ch)
	ch <- m.DivergenceAlerts.Desc()
	m.StageChanges.Describe(ch)
	ch <- m.NotificationLogSize.Desc()
	m.ScaleMessages.Describe(ch)
	m.HTTPRequests.Describe(ch)
	m.HTTPDuration.Describe(ch)
}
