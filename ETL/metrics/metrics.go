package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	stageRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sales_dwh",
		Subsystem: "etl",
		Name:      "stage_runs_total",
		Help:      "Number of pipeline stage runs by stage and status.",
	}, []string{"stage", "status"})

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sales_dwh",
		Subsystem: "etl",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stage runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})

	tableRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sales_dwh",
		Subsystem: "warehouse",
		Name:      "table_rows",
		Help:      "Row count of each warehouse table after the latest run.",
	}, []string{"table"})

	violations = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sales_dwh",
		Subsystem: "quality",
		Name:      "violations",
		Help:      "Quality gate violations of the latest run by stage and severity.",
	}, []string{"stage", "severity"})

	lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sales_dwh",
		Subsystem: "etl",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful stage run.",
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(stageRuns, stageDuration, tableRows, violations, lastSuccess)
}

// RecordStage фиксирует завершение этапа
func RecordStage(stage, status string, started, finished time.Time) {
	stageRuns.WithLabelValues(stage, status).Inc()
	stageDuration.WithLabelValues(stage).Observe(finished.Sub(started).Seconds())
	if status == "success" {
		lastSuccess.WithLabelValues(stage).Set(float64(finished.Unix()))
	}
}

// RecordRows обновляет количество строк по таблицам
func RecordRows(rows map[string]int) {
	for table, n := range rows {
		tableRows.WithLabelValues(table).Set(float64(n))
	}
}

// RecordViolations обновляет количество нарушений этапа по важности
func RecordViolations(stage string, bySeverity map[string]int) {
	for severity, n := range bySeverity {
		violations.WithLabelValues(stage, severity).Set(float64(n))
	}
}
