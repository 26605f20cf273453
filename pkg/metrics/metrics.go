package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway operation counters. Registered on the default registry; the host
// application decides how (and whether) to expose them.
var (
	ReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rowfence",
		Name:      "gateway_reads_total",
		Help:      "Read operations executed through the access gateway.",
	}, []string{"entity"})

	WritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rowfence",
		Name:      "gateway_writes_total",
		Help:      "Mutations committed through the access gateway.",
	}, []string{"entity", "op"})

	DenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rowfence",
		Name:      "gateway_denials_total",
		Help:      "Operations denied by the policy evaluator.",
	}, []string{"entity", "op"})

	AuditAppendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rowfence",
		Name:      "audit_appends_total",
		Help:      "Audit records appended.",
	})
)
