package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultPassed      = "passed"
	ResultCMORPassed  = "cmor_passed"
	ResultFailed      = "failed"
	ResultInvalid     = "invalid_metadata_format"
	ResultCreateError = "create_failure"
)

// Metrics tracks handler activity.
type Metrics struct {
	ValidationsTotal *prometheus.CounterVec
	CVChecksTotal    *prometheus.CounterVec
	CVCheckLatency   prometheus.Histogram
	ContextReads     *prometheus.CounterVec
	TableUpdates     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates and registers the handler metrics. A nil registry uses the
// default Prometheus registry.
func New(registry *prometheus.Registry) *Metrics {
	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if registry != nil {
		reg = registry
		gatherer = registry
	}

	return &Metrics{
		ValidationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "esghandlers_validations_total",
			Help: "Total number of file validations by project and result",
		}, []string{"project", "result"}),
		CVChecksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "esghandlers_cv_checks_total",
			Help: "Total number of external CV checks by project and result",
		}, []string{"project", "result"}),
		CVCheckLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "esghandlers_cv_check_duration_seconds",
			Help:    "External CV check duration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ContextReads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "esghandlers_context_reads_total",
			Help: "Total number of dataset context reads by project",
		}, []string{"project"}),
		TableUpdates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "esghandlers_table_updates_total",
			Help: "CMOR table repository updates by result",
		}, []string{"result"}),
		gatherer: gatherer,
	}
}

// The record helpers accept a nil receiver so handlers can run without
// metrics.

func (m *Metrics) RecordValidation(project, result string) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(project, result).Inc()
}

func (m *Metrics) RecordCVCheck(project, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.CVChecksTotal.WithLabelValues(project, result).Inc()
	m.CVCheckLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordContextRead(project string) {
	if m == nil {
		return
	}
	m.ContextReads.WithLabelValues(project).Inc()
}

func (m *Metrics) RecordTableUpdate(result string) {
	if m == nil {
		return
	}
	m.TableUpdates.WithLabelValues(result).Inc()
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
