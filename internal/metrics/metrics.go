package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Marks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendly", Name: "attendance_marks_total", Help: "Mark calls by outcome (created|updated|rejected)",
	}, []string{"outcome"})
	Replacements = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "attendly", Name: "attendance_replacements_total", Help: "Successful attendance corrections",
	})
	Deletions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "attendly", Name: "attendance_deletions_total", Help: "Attendance records removed",
	})
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendly", Name: "store_errors_total", Help: "Store failures by kind",
	}, []string{"kind"})
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendly", Name: "cache_lookups_total", Help: "Derivation cache lookups (hit|miss|error)",
	}, []string{"result"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendly", Name: "http_request_duration_seconds", Help: "HTTP latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendly", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	RedisPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendly", Name: "redis_ping_seconds", Help: "Redis ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Marks, Replacements, Deletions, StoreErrors, CacheLookups, HTTPDuration, DBPing, RedisPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveRedisPing(d time.Duration) { RedisPing.Observe(d.Seconds()) }

func ObserveHTTP(method, route, status string, d time.Duration) {
	HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
