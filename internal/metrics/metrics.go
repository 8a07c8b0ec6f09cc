// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for proxied request latency. Release downloads
// can take minutes, so the tail is longer than for a JSON API.
var defaultBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	RouteDecisions   *prometheus.CounterVec
	GuardRejections  prometheus.Counter
	RedirectRewrites *prometheus.CounterVec

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec
	UpstreamErrors    *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gh_proxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gh_proxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gh_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		RouteDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gh_proxy_route_decisions_total",
			Help: "Inbound paths by matched category and chosen action.",
		}, []string{"category", "action"}),

		GuardRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gh_proxy_guard_rejections_total",
			Help: "Upstream URLs rejected by the allow-list.",
		}),

		RedirectRewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gh_proxy_redirect_rewrites_total",
			Help: "Upstream Location headers by outcome (proxied or direct).",
		}, []string{"outcome"}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gh_proxy_upstream_request_duration_seconds",
			Help:    "Upstream call latency in seconds, until response headers arrive.",
			Buckets: defaultBuckets,
		}, []string{"method", "host"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gh_proxy_upstream_responses_total",
			Help: "Total upstream responses by method, host and status code.",
		}, []string{"method", "host", "status_code"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gh_proxy_upstream_errors_total",
			Help: "Upstream transport failures by host.",
		}, []string{"host"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.RouteDecisions,
		m.GuardRejections,
		m.RedirectRewrites,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.UpstreamErrors,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed path label values (bounded cardinality).
var knownPrefixes = []string{"/healthz", "/proxy/status", "/metrics"}

// NormalizePath returns a bounded path label for Prometheus metrics. Anything
// that is not one of the proxy's own endpoints is reported as "proxy".
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "proxy"
}

// knownHosts lists the upstream host label values (bounded cardinality).
var knownHosts = map[string]bool{
	"github.com":                 true,
	"api.github.com":             true,
	"raw.githubusercontent.com":  true,
	"raw.github.com":             true,
	"gist.github.com":            true,
	"gist.githubusercontent.com": true,
}

// NormalizeHost returns a bounded upstream host label. The asset mirror and
// any other host are reported as "other".
func NormalizeHost(host string) string {
	host = strings.ToLower(host)
	if knownHosts[host] {
		return host
	}
	return "other"
}
