package metrics

import (
	"net/http"
	"time"

	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartwallet"

// Recorder counts session and user operation events on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	initAttempts   *prometheus.CounterVec
	retryDelay     prometheus.Histogram
	clientReady    prometheus.Counter
	clientReadyAt  prometheus.Gauge
	userOperations *prometheus.CounterVec

	now func() time.Time
}

var (
	_ ports.SessionObserver = (*Recorder)(nil)
	_ ports.PaymentObserver = (*Recorder)(nil)
)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		initAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "init_attempts_total",
				Help:      "Smart account client initialization attempts by result.",
			},
			[]string{"result"},
		),
		retryDelay: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "retry_delay_seconds",
				Help:      "Backoff delays scheduled after failed initialization.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 7), // 1s to 64s
			},
		),
		clientReady: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "client_ready_total",
				Help:      "Times a smart account client became ready.",
			},
		),
		clientReadyAt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "client_ready_timestamp_seconds",
				Help:      "Unix time the current client became ready.",
			},
		),
		userOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "userop",
				Name:      "status_total",
				Help:      "User operation lifecycle events by status.",
			},
			[]string{"status"},
		),
		now: time.Now,
	}

	r.registry.MustRegister(
		r.initAttempts,
		r.retryDelay,
		r.clientReady,
		r.clientReadyAt,
		r.userOperations,
		prometheus.NewGoCollector(),
	)

	return r
}

func (r *Recorder) InitAttempt(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.initAttempts.WithLabelValues(result).Inc()
}

func (r *Recorder) RetryScheduled(delay time.Duration) {
	r.retryDelay.Observe(delay.Seconds())
}

func (r *Recorder) ClientReady() {
	r.clientReady.Inc()
	r.clientReadyAt.Set(float64(r.now().Unix()))
}

func (r *Recorder) UserOperationSubmitted(status string) {
	r.userOperations.WithLabelValues(status).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
