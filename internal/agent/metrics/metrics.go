package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat requests by final step",
		},
		[]string{"final_step"},
	)

	ChatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "End-to-end chat request latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"cached"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_lookups_total",
			Help: "Cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	Intents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_intents_total",
			Help: "Classified intents by source layer",
		},
		[]string{"intent", "source"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_stage_duration_seconds",
			Help: "Duration of each orchestration stage",
		},
		[]string{"stage"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_llm_calls_total",
			Help: "Model calls by purpose and result",
		},
		[]string{"purpose", "result"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_llm_tokens_total",
			Help: "Tokens consumed by model calls",
		},
		[]string{"model", "kind"},
	)

	PersistWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_log_writes_total",
			Help: "Background log writes by result",
		},
		[]string{"result"},
	)

	PersistInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_log_writes_in_flight",
			Help: "Background log writes currently running",
		},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_total",
			Help: "Human notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)

// Result maps an error to a metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
