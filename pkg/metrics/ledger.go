package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records counters for balance mutations and reward decisions.
type LedgerMetrics struct {
	transactions *prometheus.CounterVec
	rewards      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_total",
		Help: "Ledger transactions by kind and outcome.",
	}, []string{"kind", "outcome"})
	rewards := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_decisions_total",
		Help: "Reward calculator decisions by engagement kind and result.",
	}, []string{"kind", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_cache_lookups_total",
		Help: "Balance cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(transactions, rewards, duration, cacheLookups)
	return &LedgerMetrics{
		transactions: transactions,
		rewards:      rewards,
		duration:     duration,
		cacheLookups: cacheLookups,
	}
}

// IncTransaction counts one transaction attempt for the given kind.
func (m *LedgerMetrics) IncTransaction(kind, outcome string) {
	if m == nil || m.transactions == nil {
		return
	}
	m.transactions.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncReward counts one reward decision for the given engagement kind.
func (m *LedgerMetrics) IncReward(kind, result string) {
	if m == nil || m.rewards == nil {
		return
	}
	m.rewards.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

// ObserveDuration records how long the named operation took.
func (m *LedgerMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncCacheLookup counts one balance cache lookup (hit, miss, error).
func (m *LedgerMetrics) IncCacheLookup(result string) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	m.cacheLookups.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
