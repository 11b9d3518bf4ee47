// Package metrics holds the Prometheus collectors of the console.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisions counts guard outcomes by guard and outcome.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Name:      "guard_decisions_total",
		Help:      "Guard decisions by guard and outcome.",
	}, []string{"guard", "outcome"})

	// OrganizationFetches counts organization fetches by kind and result.
	OrganizationFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Name:      "organization_fetches_total",
		Help:      "Organization fetches by kind (list, find) and result.",
	}, []string{"kind", "result"})

	// SessionRestores counts user restores by result.
	SessionRestores = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Name:      "session_restores_total",
		Help:      "Session user restores by result.",
	}, []string{"result"})

	// LiveSessions is the number of session contexts held in memory.
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crm",
		Name:      "live_sessions",
		Help:      "Session contexts currently held in memory.",
	})
)
