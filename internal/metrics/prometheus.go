package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Batch metrics
	BatchesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_batches_total",
			Help: "Total number of processed batches",
		},
		[]string{"institution", "status"}, // status: success|error
	)

	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscore_batch_duration_seconds",
			Help:    "Batch processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"institution"},
	)

	LeadsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_leads_scored_total",
			Help: "Total number of scored leads",
		},
		[]string{"institution", "tier"},
	)

	// Taxonomy drift metrics
	UnknownResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_unknown_resolutions_total",
			Help: "Outcome strings no resolution keyword matched",
		},
		[]string{"institution"},
	)

	UnseenCategories = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_unseen_categories_total",
			Help: "Encoder fallback substitutions for category values never seen at fit time",
		},
		[]string{"feature"},
	)

	// Detection metrics
	LowConfidenceDetections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_low_confidence_detections_total",
			Help: "Batches whose institution was resolved by the volume fallback",
		},
		[]string{"institution"},
	)

	// Inference metrics
	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadscore_inference_duration_seconds",
			Help:    "Classifier inference duration per batch in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscore_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leadscore_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Sink metrics
	SinkWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_sink_writes_total",
			Help: "Audit sink write attempts",
		},
		[]string{"sink", "status"}, // sink: postgres|clickhouse
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(BatchesProcessed)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(LeadsScored)

	prometheus.MustRegister(UnknownResolutions)
	prometheus.MustRegister(UnseenCategories)
	prometheus.MustRegister(LowConfidenceDetections)

	prometheus.MustRegister(InferenceDuration)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	prometheus.MustRegister(SinkWrites)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordBatch records one processed batch
func RecordBatch(institution string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	BatchesProcessed.WithLabelValues(institution, status).Inc()
	BatchDuration.WithLabelValues(institution).Observe(duration.Seconds())
}

// RecordSinkWrite records an audit sink write attempt
func RecordSinkWrite(sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SinkWrites.WithLabelValues(sink, status).Inc()
}
