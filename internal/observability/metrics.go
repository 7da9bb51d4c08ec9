package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	contractCallCounter   *prometheus.CounterVec
	contractDuration      *prometheus.HistogramVec
	idempotencyCounter    *prometheus.CounterVec
	outboxBacklogGauge    prometheus.Gauge
	eventPublishCounter   *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
	invariantCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		contractCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_contract_calls_total",
			Help: "Contract entry point calls by result code",
		}, []string{"entry", "code"})

		contractDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_contract_call_duration_seconds",
			Help:    "Contract entry point latency including serialization wait",
			Buckets: prometheus.DefBuckets,
		}, []string{"entry"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		outboxBacklogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_outbox_backlog",
			Help: "Committed events waiting to be published",
		})

		eventPublishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Outbox events handed to the sink",
		}, []string{"event", "result"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		invariantCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_invariant_violations_total",
			Help: "Quantity invariant violations found by reconciliation",
		}, []string{"kind"})

		prometheus.MustRegister(
			httpDurationHistogram,
			contractCallCounter,
			contractDuration,
			idempotencyCounter,
			outboxBacklogGauge,
			eventPublishCounter,
			workerRunCounter,
			invariantCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func ObserveContractCall(entry string, code int, duration time.Duration) {
	if contractCallCounter == nil {
		return
	}
	contractCallCounter.WithLabelValues(entry, strconv.Itoa(code)).Inc()
	contractDuration.WithLabelValues(entry).Observe(duration.Seconds())
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetOutboxBacklog(size int) {
	if outboxBacklogGauge == nil {
		return
	}
	outboxBacklogGauge.Set(float64(size))
}

func IncrementEventPublished(event, result string) {
	if eventPublishCounter == nil {
		return
	}
	eventPublishCounter.WithLabelValues(event, result).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func IncrementInvariantViolation(kind string) {
	if invariantCounter == nil {
		return
	}
	invariantCounter.WithLabelValues(kind).Inc()
}
