package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FundingMetrics records ledger mutation outcomes and broadcast delivery.
type FundingMetrics struct {
	mutations *prometheus.CounterVec
	lockWait  *prometheus.HistogramVec
	broadcast *prometheus.CounterVec
}

// NewFundingMetrics registers the ledger metrics on the provided registerer.
func NewFundingMetrics(reg prometheus.Registerer) *FundingMetrics {
	if reg == nil {
		return &FundingMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funding_mutations_total",
		Help: "Ledger mutations by intent and outcome.",
	}, []string{"intent", "outcome"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "funding_lock_wait_seconds",
		Help:    "Time spent waiting for the per-item mutation lock.",
		Buckets: prometheus.DefBuckets,
	}, []string{"intent"})
	broadcast := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funding_broadcasts_total",
		Help: "Funding event broadcasts by delivery result.",
	}, []string{"result"})
	reg.MustRegister(mutations, lockWait, broadcast)
	return &FundingMetrics{
		mutations: mutations,
		lockWait:  lockWait,
		broadcast: broadcast,
	}
}

// IncMutation increments the counter for a mutation intent and outcome.
func (f *FundingMetrics) IncMutation(intent, outcome string) {
	if f == nil || f.mutations == nil {
		return
	}
	f.mutations.WithLabelValues(normalizeLabel(intent), normalizeLabel(outcome)).Inc()
}

// ObserveLockWait records how long a mutation waited for the item lock.
func (f *FundingMetrics) ObserveLockWait(intent string, wait time.Duration) {
	if f == nil || f.lockWait == nil {
		return
	}
	f.lockWait.WithLabelValues(normalizeLabel(intent)).Observe(wait.Seconds())
}

// IncBroadcast counts a broadcast delivery result (delivered or dropped).
func (f *FundingMetrics) IncBroadcast(result string) {
	if f == nil || f.broadcast == nil {
		return
	}
	f.broadcast.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
