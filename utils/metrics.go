package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the counters the session, quota and news layers report to.
type Metrics struct {
	Registry       *prometheus.Registry
	IdentityEvents *prometheus.CounterVec
	QuotaConsumed  *prometheus.CounterVec
	QuotaBlocked   prometheus.Counter
	UsageWrites    *prometheus.CounterVec
	NewsRefreshes  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		IdentityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtwise_identity_events_total",
			Help: "Identity change events applied to client sessions.",
		}, []string{"event"}),
		QuotaConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtwise_quota_consumed_total",
			Help: "Protected case views consumed, by role.",
		}, []string{"role"}),
		QuotaBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtwise_quota_blocked_total",
			Help: "Protected case views refused because the daily allowance was exhausted.",
		}),
		UsageWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtwise_usage_writes_total",
			Help: "Usage record writes, by result.",
		}, []string{"result"}),
		NewsRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtwise_news_refresh_total",
			Help: "News refresh runs, by result.",
		}, []string{"result"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtwise_active_sessions",
			Help: "Client sessions currently held in memory.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.IdentityEvents,
		m.QuotaConsumed,
		m.QuotaBlocked,
		m.UsageWrites,
		m.NewsRefreshes,
		m.ActiveSessions,
	)
	return m
}
