// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"net/http"
	"strconv"

	"github.com/gregjones/httpcache"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "sharedhttp_client"

// Collector is a prometheus.Collector that collects metrics about calls
// made through clients it is installed on.
type Collector struct {
	inFlight  prometheus.Gauge
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cacheHits prometheus.Counter
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "requests_in_flight",
				Help:      "The number of calls waiting for a response.",
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "The number of calls by method and response code.",
			}, []string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "The time taken to receive response headers, redirects included.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			}, []string{"method"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_hits_total",
				Help:      "The number of responses served from the response cache.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.inFlight.Describe(ch)
	c.requests.Describe(ch)
	c.duration.Describe(ch)
	c.cacheHits.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.inFlight.Collect(ch)
	c.requests.Collect(ch)
	c.duration.Collect(ch)
	c.cacheHits.Collect(ch)
}

// Interceptor returns an application interceptor recording every call.
// Calls that fail without a response are counted with the code "error".
func (c *Collector) Interceptor() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			c.inFlight.Inc()
			defer c.inFlight.Dec()
			timer := prometheus.NewTimer(c.duration.WithLabelValues(req.Method))
			defer timer.ObserveDuration()

			resp, err := next.RoundTrip(req)
			if err != nil {
				c.requests.WithLabelValues(req.Method, "error").Inc()
				return nil, err
			}
			c.requests.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
			if resp.Header.Get(httpcache.XFromCache) != "" {
				c.cacheHits.Inc()
			}
			return resp, nil
		})
	}
}
