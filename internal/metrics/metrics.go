package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "billing_"

var (
	registerOnce sync.Once

	ruleExecutions       *prometheus.CounterVec
	ruleExecutionLatency *prometheus.HistogramVec
	invoicesEmitted      *prometheus.CounterVec
	numbersAllocated     *prometheus.CounterVec
	schedulerTicks       *prometheus.CounterVec
	schedulerDueRules    prometheus.Gauge
)

// Init registers the billing metrics with reg. Calling it more than once is a no-op.
// Until Init runs every Observe/Inc function is a no-op.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		ruleExecutions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rule_executions_total",
				Help: "Billing rule executions by rule type and status",
			},
			[]string{"rule_type", "status", "dry_run"},
		)
		ruleExecutionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "rule_execution_duration_seconds",
				Help:    "Billing rule execution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"rule_type"},
		)
		invoicesEmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoices_emitted_total",
				Help: "Invoices emitted by source",
			},
			[]string{"reference_type", "invoice_type"},
		)
		numbersAllocated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_numbers_allocated_total",
				Help: "Invoice numbers reserved by invoice type",
			},
			[]string{"invoice_type"},
		)
		schedulerTicks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scheduler_ticks_total",
				Help: "Scheduler passes by result",
			},
			[]string{"result"},
		)
		schedulerDueRules = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "scheduler_due_rules",
				Help: "Rules found due in the last scheduler pass",
			},
		)

		reg.MustRegister(
			ruleExecutions,
			ruleExecutionLatency,
			invoicesEmitted,
			numbersAllocated,
			schedulerTicks,
			schedulerDueRules,
		)
	})
}

// ObserveRuleExecution counts one execution and its latency.
func ObserveRuleExecution(ruleType, status string, dryRun bool, duration time.Duration) {
	if ruleType == "" {
		ruleType = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	if ruleExecutions != nil {
		dry := "false"
		if dryRun {
			dry = "true"
		}
		ruleExecutions.WithLabelValues(ruleType, status, dry).Inc()
	}
	if ruleExecutionLatency != nil {
		ruleExecutionLatency.WithLabelValues(ruleType).Observe(duration.Seconds())
	}
}

// AddInvoicesEmitted counts persisted invoices.
func AddInvoicesEmitted(referenceType, invoiceType string, count int) {
	if count <= 0 {
		return
	}
	if invoicesEmitted != nil {
		invoicesEmitted.WithLabelValues(referenceType, invoiceType).Add(float64(count))
	}
}

// AddNumbersAllocated counts reserved invoice numbers.
func AddNumbersAllocated(invoiceType string, count int) {
	if count <= 0 {
		return
	}
	if numbersAllocated != nil {
		numbersAllocated.WithLabelValues(invoiceType).Add(float64(count))
	}
}

// ObserveSchedulerTick records one scheduler pass.
func ObserveSchedulerTick(result string, due int) {
	if schedulerTicks != nil {
		schedulerTicks.WithLabelValues(result).Inc()
	}
	if schedulerDueRules != nil {
		schedulerDueRules.Set(float64(due))
	}
}
