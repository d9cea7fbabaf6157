package metrics

import "github.com/prometheus/client_golang/prometheus"

// Audit outcomes
const (
	AuditPersisted    = "persisted"
	AuditRetried      = "retried"
	AuditDropped      = "dropped"
	AuditDeadLettered = "dead_lettered"
)

// AuditCounters counts audit recorder outcomes by table
type AuditCounters struct {
	entries *prometheus.CounterVec
	queued  prometheus.Gauge
}

// NewAuditCounters registers the audit metrics on reg. A nil reg returns nil,
// and a nil *AuditCounters ignores every call.
func NewAuditCounters(reg *prometheus.Registry) *AuditCounters {
	if reg == nil {
		return nil
	}
	c := &AuditCounters{
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookinventory_audit_entries_total",
				Help: "Audit entries by table and outcome.",
			},
			[]string{"table", "outcome"},
		),
		queued: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bookinventory_audit_queue_depth",
				Help: "Audit entries waiting to be persisted.",
			},
		),
	}
	reg.MustRegister(c.entries, c.queued)
	return c
}

func (c *AuditCounters) Inc(table, outcome string) {
	if c == nil {
		return
	}
	c.entries.WithLabelValues(table, outcome).Inc()
}

func (c *AuditCounters) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.queued.Set(float64(n))
}
