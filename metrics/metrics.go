// metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dev-mohitbeniwal/permcheck/model"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "permcheck_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permcheck_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "status"})

	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permcheck_checks_total",
		Help: "Consistency checks by outcome.",
	}, []string{"outcome"})

	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "permcheck_check_duration_seconds",
		Help:    "Wall time of completed checks.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	findings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permcheck_findings_total",
		Help: "Redundant permissions and lacking rules reported.",
	}, []string{"kind"})

	oracleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "permcheck_oracle_failures_total",
		Help: "Oracle calls that failed and left facts unresolved.",
	})
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCached    = "cached"
)

// ObserveCheck records one completed check.
func ObserveCheck(report *model.CheckReport) {
	checksTotal.WithLabelValues(OutcomeCompleted).Inc()
	checkDuration.Observe(report.Duration.Seconds())
	findings.WithLabelValues("redundant").Add(float64(len(report.RedundantRule)))
	findings.WithLabelValues("lacking").Add(float64(len(report.LackRule)))
	oracleFailures.Add(float64(report.Stats.OracleFailures))
}

func IncCheck(outcome string) {
	checksTotal.WithLabelValues(outcome).Inc()
}

// Middleware records RED metrics per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpDuration.WithLabelValues(path, c.Request.Method, status).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(path, c.Request.Method, status).Inc()
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
