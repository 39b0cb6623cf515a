package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScanRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scan_runs_total", Help: "Auto-scan runs started"},
	)
	ScanPairFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scan_pair_failures_total", Help: "Per-pair failures during auto-scan"},
		[]string{"kind"},
	)
	ScanAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scan_alerts_total", Help: "Signals raised by auto-scan"},
		[]string{"kind"},
	)
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Wall time of one auto-scan run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_total", Help: "Outbound notifications by channel and result"},
		[]string{"channel", "result"},
	)
	InteractiveScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "interactive_scans_total", Help: "Manual pair scans by outcome"},
		[]string{"outcome"},
	)
	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "job_runs_total", Help: "Scheduled job executions"},
		[]string{"job", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		ScanRunsTotal,
		ScanPairFailuresTotal,
		ScanAlertsTotal,
		ScanDuration,
		NotificationsTotal,
		InteractiveScansTotal,
		JobRunsTotal,
	)
}

// Handler 返回/metrics的处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result 将布尔结果转为标签值
func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
