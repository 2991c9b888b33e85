package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dev-mohitbeniwal/permcheck/model"
)

func TestObserveCheck(t *testing.T) {
	completed := testutil.ToFloat64(checksTotal.WithLabelValues(OutcomeCompleted))
	lacking := testutil.ToFloat64(findings.WithLabelValues("lacking"))
	failures := testutil.ToFloat64(oracleFailures)

	ObserveCheck(&model.CheckReport{
		ReconciliationResult: model.ReconciliationResult{
			LackRule: []model.PolicyRule{{Role: "USER"}, {Role: "ADMIN"}},
		},
		Stats:    model.CheckStats{OracleFailures: 1},
		Duration: time.Second,
	})

	assert.Equal(t, completed+1, testutil.ToFloat64(checksTotal.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, lacking+2, testutil.ToFloat64(findings.WithLabelValues("lacking")))
	assert.Equal(t, failures+1, testutil.ToFloat64(oracleFailures))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("/ping", http.MethodGet, "204"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/ping", http.MethodGet, "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "permcheck_http_requests_total")
}
