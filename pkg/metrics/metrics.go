package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SuccessfulRequests *prometheus.CounterVec
	BadRequests        *prometheus.CounterVec
	FailedRequests     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	TweetsPosted       prometheus.Counter
	TweetsUpdated      prometheus.Counter
	TweetsDeleted      prometheus.Counter
	FollowRequests     prometheus.Counter
	UnfollowRequests   prometheus.Counter
	Logins             *prometheus.CounterVec
}

// NewMetrics 每次使用独立的registry，测试中可重复创建
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twitterlite_successful_requests_total",
				Help: "Total number of successful (2xx/3xx) HTTP requests",
			},
			[]string{"path"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twitterlite_bad_requests_total",
				Help: "Total number of unsuccessful (4xx) HTTP requests",
			},
			[]string{"path"},
		),
		FailedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twitterlite_failed_requests_total",
				Help: "Total number of failed (5xx) HTTP requests",
			},
			[]string{"path"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "twitterlite_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		TweetsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twitterlite_tweets_posted_total",
			Help: "Total number of tweets posted",
		}),
		TweetsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twitterlite_tweets_updated_total",
			Help: "Total number of tweets updated",
		}),
		TweetsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twitterlite_tweets_deleted_total",
			Help: "Total number of tweets deleted",
		}),
		FollowRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twitterlite_follows_total",
			Help: "Total number of successful follow requests",
		}),
		UnfollowRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twitterlite_unfollows_total",
			Help: "Total number of successful unfollow requests",
		}),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twitterlite_logins_total",
				Help: "Total number of logins, labelled by whether the user signed up",
			},
			[]string{"signed_up"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SuccessfulRequests,
		m.BadRequests,
		m.FailedRequests,
		m.RequestDuration,
		m.TweetsPosted,
		m.TweetsUpdated,
		m.TweetsDeleted,
		m.FollowRequests,
		m.UnfollowRequests,
		m.Logins,
	)

	return m
}

// ObserveRequest 按状态码归类计数
func (m *Metrics) ObserveRequest(path string, status int, seconds float64) {
	m.RequestDuration.WithLabelValues(path).Observe(seconds)
	switch {
	case status >= http.StatusInternalServerError:
		m.FailedRequests.WithLabelValues(path).Inc()
	case status >= http.StatusBadRequest:
		m.BadRequests.WithLabelValues(path).Inc()
	default:
		m.SuccessfulRequests.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
