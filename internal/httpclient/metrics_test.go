// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gc "gopkg.in/check.v1"
)

type metricsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&metricsSuite{})

func (s *metricsSuite) TestRegisters(c *gc.C) {
	registry := prometheus.NewPedanticRegistry()
	err := registry.Register(NewMetricsCollector())
	c.Assert(err, jc.ErrorIsNil)
}

func (s *metricsSuite) TestCountsCallsAndCacheHits(c *gc.C) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "max-age=3600")
		fmt.Fprint(w, "episode list")
	}))
	defer server.Close()

	collector := NewMetricsCollector()
	client := newClient(c, newSettings(c, Config{
		Interceptors: []Interceptor{collector.Interceptor()},
	}))

	get(c, client, server.URL+"/feed.xml")
	get(c, client, server.URL+"/feed.xml")
	get(c, client, server.URL+"/missing")

	c.Check(testutil.ToFloat64(collector.requests.WithLabelValues("GET", "200")), gc.Equals, float64(2))
	c.Check(testutil.ToFloat64(collector.requests.WithLabelValues("GET", "404")), gc.Equals, float64(1))
	c.Check(testutil.ToFloat64(collector.cacheHits), gc.Equals, float64(1))
	c.Check(testutil.ToFloat64(collector.inFlight), gc.Equals, float64(0))
	c.Check(testutil.CollectAndCount(collector.duration), gc.Equals, 1)
}

func (s *metricsSuite) TestCountsFailures(c *gc.C) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	collector := NewMetricsCollector()
	client := newClient(c, newSettings(c, Config{
		Interceptors: []Interceptor{collector.Interceptor()},
	}))
	_, err := client.Get(url)
	c.Assert(err, gc.NotNil)

	c.Check(testutil.ToFloat64(collector.requests.WithLabelValues("GET", "error")), gc.Equals, float64(1))
}
