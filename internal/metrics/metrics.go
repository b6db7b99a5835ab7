// Package metrics exposes Prometheus counters for the session lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decision outcomes of the session token check
const (
	DecisionAnonymous = "anonymous"
	DecisionValid     = "valid"
	DecisionRefreshed = "refreshed"
	DecisionRejected  = "rejected"
)

// Result labels for refresh and login
const (
	ResultSuccess         = "success"
	ResultSessionNotFound = "session_not_found"
	ResultUpstreamFailure = "upstream_failure"
	ResultStorageFailure  = "storage_failure"
	ResultCsrfMismatch    = "csrf_mismatch"
	ResultError           = "error"
)

// Recorder is what the auth service and HTTP layer report to
type Recorder interface {
	RecordDecision(outcome string)
	RecordRefresh(result string, duration time.Duration)
	RecordLogin(result string)
	RecordHTTPStatus(statusCode int)
}

type Collector struct {
	decisions      *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	refreshLatency prometheus.Histogram
	logins         *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector registers the metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actions_auth_decisions_total",
			Help: "Session token checks by outcome",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actions_auth_refresh_total",
			Help: "Upstream token refreshes by result",
		}, []string{"result"}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "actions_auth_refresh_duration_seconds",
			Help:    "Duration of the refresh sub-flow",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actions_auth_login_total",
			Help: "Completed OAuth callbacks by result",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actions_http_responses_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.decisions,
		c.refreshes,
		c.refreshLatency,
		c.logins,
		c.httpStatus,
	)
	return c
}

func (c *Collector) RecordDecision(outcome string) {
	c.decisions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRefresh(result string, duration time.Duration) {
	c.refreshes.WithLabelValues(result).Inc()
	c.refreshLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler serves the Prometheus exposition format for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordDecision(string)               {}
func (Nop) RecordRefresh(string, time.Duration) {}
func (Nop) RecordLogin(string)                  {}
func (Nop) RecordHTTPStatus(int)                {}
