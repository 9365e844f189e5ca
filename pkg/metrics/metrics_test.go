package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest("/api/v1/tweets", http.StatusCreated, 0.01)
	m.ObserveRequest("/api/v1/tweets", http.StatusForbidden, 0.01)
	m.ObserveRequest("/api/v1/tweets", http.StatusBadRequest, 0.01)
	m.ObserveRequest("/api/v1/tweets", http.StatusInternalServerError, 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SuccessfulRequests.WithLabelValues("/api/v1/tweets")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BadRequests.WithLabelValues("/api/v1/tweets")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailedRequests.WithLabelValues("/api/v1/tweets")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.FollowRequests.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "twitterlite_follows_total 1"))
}

func TestNewMetricsIsRepeatable(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
