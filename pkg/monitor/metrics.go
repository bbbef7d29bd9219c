package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports the store's recordings as Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	requestSize       *prometheus.HistogramVec
	errorsTotal       prometheus.Counter
	historyLength     prometheus.Gauge
}

// NewMetrics registers the collectors with reg, labelled with the active
// provider.
func NewMetrics(reg prometheus.Registerer, provider string) *Metrics {
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"provider": provider}

	return &Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "parlance_operations_total",
				Help:        "Total number of successful detections and translations",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "parlance_operation_duration_seconds",
				Help:        "Latency of provider calls in seconds",
				ConstLabels: constLabels,
				Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"kind"},
		),
		requestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "parlance_request_text_length_chars",
				Help:        "Length of submitted text in characters",
				ConstLabels: constLabels,
				Buckets:     []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{"kind"},
		),
		errorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "parlance_errors_total",
				Help:        "Total number of failed provider calls",
				ConstLabels: constLabels,
			},
		),
		historyLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "parlance_activity_log_length",
				Help:        "Number of entries currently held in the activity log",
				ConstLabels: constLabels,
			},
		),
	}
}

func (m *Metrics) observe(kind Kind, latencyMs int64, textLen int) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(string(kind)).Inc()
	m.operationDuration.WithLabelValues(string(kind)).Observe(float64(latencyMs) / 1000)
	m.requestSize.WithLabelValues(string(kind)).Observe(float64(textLen))
}

func (m *Metrics) observeError() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

func (m *Metrics) setHistoryLength(n int) {
	if m == nil {
		return
	}
	m.historyLength.Set(float64(n))
}
