package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SweepRuns counts scheduler sweep executions by kind and outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_sweep_runs_total",
		Help: "Scheduler sweep executions.",
	}, []string{"sweep", "outcome"})

	// SweepTicketFailures counts tickets skipped inside a sweep.
	SweepTicketFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_sweep_ticket_failures_total",
		Help: "Per-ticket failures during sweeps.",
	}, []string{"sweep"})

	// Escalations counts automatic escalations fired by the engine.
	Escalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sla_escalations_total",
		Help: "Automatic SLA escalations.",
	})

	// ViolationsDetected counts milestone violations flipped by sweeps.
	ViolationsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sla_violations_detected_total",
		Help: "Newly detected SLA violations.",
	})

	// RiskNotifications counts at-risk notifications emitted.
	RiskNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sla_risk_notifications_total",
		Help: "At-risk notifications emitted.",
	})

	// ComplianceRate holds the latest daily compliance percentage.
	ComplianceRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sla_daily_compliance_rate",
		Help: "Compliance percentage of the latest daily report.",
	})

	// HTTPRequests counts handled HTTP requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests.",
	}, []string{"method", "path", "status"})
)
