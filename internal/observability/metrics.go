package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tickerql"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "route", "status"})

	nlQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nl_queries_total",
		Help:      "Natural-language questions answered, by outcome.",
	}, []string{"outcome"})

	completionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "completion_latency_ms",
		Help:      "Completion service round-trip latency in milliseconds.",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
	})

	completionRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_retries_total",
		Help:      "Completion attempts repeated after the service was unavailable.",
	})

	executionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_execution_latency_ms",
		Help:      "Generated SQL execution latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	ingestTickers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_tickers_total",
		Help:      "Tickers processed by ingest, by outcome.",
	}, []string{"outcome"})

	ingestStatements = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_statements_total",
		Help:      "Quarterly statements written by ingest.",
	})

	ingestRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_run_duration_seconds",
		Help:      "Wall time of complete ingest runs.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	ingestLastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingest_last_success_timestamp_seconds",
		Help:      "Unix time of the last ingest run without ticker failures.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		nlQueries,
		completionLatency,
		completionRetries,
		executionLatency,
		ingestTickers,
		ingestStatements,
		ingestRunDuration,
		ingestLastSuccess,
	)
}

// ObserveNLQuery counts one pipeline invocation; an empty outcome means it
// succeeded, otherwise it is the failure kind.
func ObserveNLQuery(outcome string) {
	if outcome == "" {
		outcome = "succeeded"
	}
	nlQueries.WithLabelValues(outcome).Inc()
}

func ObserveCompletionLatency(elapsed time.Duration) {
	completionLatency.Observe(float64(elapsed.Milliseconds()))
}

func IncrementCompletionRetry() { completionRetries.Inc() }

func ObserveQueryExecutionLatency(elapsed time.Duration) {
	executionLatency.Observe(float64(elapsed.Milliseconds()))
}

func ObserveIngestTicker(ok bool, statements int) {
	if !ok {
		ingestTickers.WithLabelValues("failed").Inc()
		return
	}
	ingestTickers.WithLabelValues("ok").Inc()
	ingestStatements.Add(float64(statements))
}

func ObserveIngestRun(elapsed time.Duration, failed int, finishedAt time.Time) {
	ingestRunDuration.Observe(elapsed.Seconds())
	if failed == 0 {
		ingestLastSuccess.Set(float64(finishedAt.Unix()))
	}
}
