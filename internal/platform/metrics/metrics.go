package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solver"

// Pipeline outcome labels.
const (
	OutcomeSolved   = "solved"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeQueued   = "queued"
)

var (
	PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_outcomes_total",
		Help:      "Problem submissions by final outcome.",
	}, []string{"outcome"})

	AIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ai_request_duration_seconds",
		Help:      "Latency of AI completion calls.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"provider"})

	AITokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_tokens_total",
		Help:      "Tokens consumed by AI completion calls.",
	}, []string{"provider", "kind"})

	ExecutionPolls = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "execution_polls",
		Help:      "Status polls issued per sandbox job.",
		Buckets:   prometheus.LinearBuckets(0, 1, 12),
	})

	ExecutionResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "execution_results_total",
		Help:      "Sandbox results by normalized status label.",
	}, []string{"status"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
