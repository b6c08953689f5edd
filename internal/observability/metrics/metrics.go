package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "ledger_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	billingRunTotal   *prometheus.CounterVec
	billingRunLatency *prometheus.HistogramVec
	billsCreatedTotal *prometheus.CounterVec

	admissionDecisions *prometheus.CounterVec

	balanceQueryTotal   *prometheus.CounterVec
	balanceQueryLatency *prometheus.HistogramVec

	statementExportTotal   *prometheus.CounterVec
	statementExportLatency *prometheus.HistogramVec

	notifySendTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		billingRunTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "billing_run_total",
				Help: "Total period billing runs by result",
			},
			[]string{"result"},
		)
		billingRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "billing_run_latency_seconds",
				Help:    "Period billing run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		billsCreatedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bills_created_total",
				Help: "Total bills created by bill type",
			},
			[]string{"type"},
		)

		admissionDecisions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "admission_decisions_total",
				Help: "Total access request decisions by outcome",
			},
			[]string{"decision"},
		)

		balanceQueryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "balance_query_total",
				Help: "Total balance queries by result",
			},
			[]string{"result"},
		)
		balanceQueryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "balance_query_latency_seconds",
				Help:    "Balance query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total statement export operations by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		notifySendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notify_send_total",
				Help: "Total outbound notifications by kind and result",
			},
			[]string{"kind", "result"},
		)

		prometheus.MustRegister(
			billingRunTotal,
			billingRunLatency,
			billsCreatedTotal,
			admissionDecisions,
			balanceQueryTotal,
			balanceQueryLatency,
			statementExportTotal,
			statementExportLatency,
			notifySendTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveBillingRun records billing run duration and result.
func ObserveBillingRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if billingRunTotal != nil {
		billingRunTotal.WithLabelValues(result).Inc()
	}
	if billingRunLatency != nil {
		billingRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddBillsCreated increments the created-bill counter by count.
func AddBillsCreated(billType string, count int) {
	if count <= 0 {
		return
	}
	if billType == "" {
		billType = "unknown"
	}
	if billsCreatedTotal != nil {
		billsCreatedTotal.WithLabelValues(billType).Add(float64(count))
	}
}

// IncAdmissionDecision increments the decision counter.
func IncAdmissionDecision(decision string) {
	if decision == "" {
		decision = "unknown"
	}
	if admissionDecisions != nil {
		admissionDecisions.WithLabelValues(decision).Inc()
	}
}

// ObserveBalanceQuery records balance query duration and result.
func ObserveBalanceQuery(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if balanceQueryTotal != nil {
		balanceQueryTotal.WithLabelValues(result).Inc()
	}
	if balanceQueryLatency != nil {
		balanceQueryLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementExportTotal != nil {
		statementExportTotal.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncNotifySend increments the outbound notification counter.
func IncNotifySend(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if notifySendTotal != nil {
		notifySendTotal.WithLabelValues(kind, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
