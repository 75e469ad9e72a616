package services

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the ledger's domain collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	EntriesRecorded *prometheus.CounterVec
	Resolutions     *prometheus.CounterVec
	BusyRejections  *prometheus.CounterVec
	RateLookups     *prometheus.CounterVec
	RateFetchDur    prometheus.Histogram
	PollerPending   prometheus.Gauge
}

// NewMetrics creates and registers the domain collectors.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		EntriesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_entries_recorded_total",
				Help: "Ledger entries recorded by type and initial status.",
			},
			[]string{"type", "status"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_settlement_resolutions_total",
				Help: "Settlement resolve attempts by result.",
			},
			[]string{"type", "result"},
		),
		BusyRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_busy_rejections_total",
				Help: "Operations rejected because of lock contention.",
			},
			[]string{"operation"},
		),
		RateLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rate_lookups_total",
				Help: "Rate cache lookups by result.",
			},
			[]string{"result"},
		),
		RateFetchDur: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_rate_fetch_duration_seconds",
				Help:    "Rate source fetch duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		PollerPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledger_reconcile_pending_settlements",
				Help: "Pending settlements seen by the last poll.",
			},
		),
	}
	registry.MustRegister(m.EntriesRecorded, m.Resolutions, m.BusyRejections, m.RateLookups, m.RateFetchDur, m.PollerPending)
	return m
}

func (m *Metrics) entryRecorded(entryType, status string) {
	if m == nil {
		return
	}
	m.EntriesRecorded.WithLabelValues(entryType, status).Inc()
}

func (m *Metrics) resolution(entryType, result string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(entryType, result).Inc()
}

func (m *Metrics) busy(operation string) {
	if m == nil {
		return
	}
	m.BusyRejections.WithLabelValues(operation).Inc()
}

func (m *Metrics) rateLookup(result string) {
	if m == nil {
		return
	}
	m.RateLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) rateFetch(seconds float64) {
	if m == nil {
		return
	}
	m.RateFetchDur.Observe(seconds)
}

func (m *Metrics) pollerPending(n int) {
	if m == nil {
		return
	}
	m.PollerPending.Set(float64(n))
}
