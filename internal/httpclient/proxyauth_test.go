// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/sharedhttp/internal/proxy"
)

type proxySuite struct {
	testing.IsolationSuite

	mu       sync.Mutex
	requests []*http.Request
	proxy    *httptest.Server
}

var _ = gc.Suite(&proxySuite{})

func (s *proxySuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.requests = nil
	// The proxy demands credentials before forwarding anything.
	s.proxy = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r)
		s.mu.Unlock()
		if r.Header.Get("Proxy-Authorization") == "" {
			w.Header().Set("Proxy-Authenticate", `Basic realm="proxy"`)
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}
		fmt.Fprintf(w, "proxied %s", r.URL)
	}))
	s.AddCleanup(func(*gc.C) { s.proxy.Close() })
}

func (s *proxySuite) proxyConfig(c *gc.C, proxyType proxy.Type) *proxy.Config {
	host, port := hostPort(c, s.proxy)
	return &proxy.Config{Type: proxyType, Host: host, Port: port}
}

func (s *proxySuite) authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []string
	for _, req := range s.requests {
		result = append(result, req.Header.Get("Proxy-Authorization"))
	}
	return result
}

func (s *proxySuite) TestDirectIgnoresEverythingElse(c *gc.C) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "origin")
	}))
	defer origin.Close()

	cfg := s.proxyConfig(c, proxy.Direct)
	cfg.User = url.UserPassword("u", "p")
	b, err := NewBuilder(newSettings(c, Config{Proxy: cfg}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(b.transport.Proxy, gc.IsNil)
	c.Check(b.proxyAuthorization, gc.Equals, "")

	_, body := get(c, b.Build(), origin.URL)
	c.Check(body, gc.Equals, "origin")
	c.Check(s.requests, gc.HasLen, 0)
}

func (s *proxySuite) TestEmptyHostIsNotAProxy(c *gc.C) {
	b, err := NewBuilder(newSettings(c, Config{Proxy: &proxy.Config{Type: proxy.HTTP, Port: 3128}}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(b.transport.Proxy, gc.IsNil)
}

func (s *proxySuite) TestDefaultPort(c *gc.C) {
	cfg := &proxy.Config{Type: proxy.HTTP, Host: "proxy.example.com", Port: 0}
	b, err := NewBuilder(newSettings(c, Config{Proxy: cfg}))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(b.transport.Proxy, gc.NotNil)

	req, err := http.NewRequest("GET", "http://feeds.example.com/rss", nil)
	c.Assert(err, jc.ErrorIsNil)
	proxyURL, err := b.transport.Proxy(req)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(proxyURL.String(), gc.Equals, "http://proxy.example.com:8080")
}

func (s *proxySuite) TestAnswersChallenge(c *gc.C) {
	cfg := s.proxyConfig(c, proxy.HTTP)
	cfg.User = url.UserPassword("u", "p")
	b, err := NewBuilder(newSettings(c, Config{Proxy: cfg}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(b.transport.ProxyConnectHeader.Get("Proxy-Authorization"), gc.Equals, "Basic dTpw")

	status, body := get(c, b.Build(), "http://feeds.example.com/rss")
	c.Check(status, gc.Equals, http.StatusOK)
	c.Check(body, gc.Equals, "proxied http://feeds.example.com/rss")
	c.Check(s.authorizations(), jc.DeepEquals, []string{"", "Basic dTpw"})
}

func (s *proxySuite) TestAnswersChallengeWithBody(c *gc.C) {
	cfg := s.proxyConfig(c, proxy.HTTP)
	cfg.User = url.UserPassword("u", "p")
	client := newClient(c, newSettings(c, Config{Proxy: cfg}))

	resp, err := client.Post("http://feeds.example.com/subscribe", "text/plain", strings.NewReader("feed"))
	c.Assert(err, jc.ErrorIsNil)
	resp.Body.Close()
	c.Check(resp.StatusCode, gc.Equals, http.StatusOK)
	c.Check(s.authorizations(), jc.DeepEquals, []string{"", "Basic dTpw"})
}

func (s *proxySuite) TestUsernameWithoutPassword(c *gc.C) {
	cfg := s.proxyConfig(c, proxy.HTTP)
	cfg.User = url.User("u")
	b, err := NewBuilder(newSettings(c, Config{Proxy: cfg}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(b.proxyAuthorization, gc.Equals, "")
	c.Check(b.transport.ProxyConnectHeader, gc.HasLen, 0)

	status, _ := get(c, b.Build(), "http://feeds.example.com/rss")
	c.Check(status, gc.Equals, http.StatusProxyAuthRequired)
	c.Check(s.authorizations(), jc.DeepEquals, []string{""})
}

func (s *proxySuite) TestEmptyPasswordAnswersChallenge(c *gc.C) {
	cfg := s.proxyConfig(c, proxy.HTTP)
	cfg.User = url.UserPassword("u", "")
	b, err := NewBuilder(newSettings(c, Config{Proxy: cfg}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(b.proxyAuthorization, gc.Equals, "Basic dTo=")

	status, _ := get(c, b.Build(), "http://feeds.example.com/rss")
	c.Check(status, gc.Equals, http.StatusOK)
	c.Check(s.authorizations(), jc.DeepEquals, []string{"", "Basic dTo="})
}

func (s *proxySuite) TestSOCKSUsesDialer(c *gc.C) {
	cfg := &proxy.Config{Type: proxy.SOCKS, Host: "socks.example.com", User: url.UserPassword("u", "p")}
	b, err := NewBuilder(newSettings(c, Config{Proxy: cfg}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(b.transport.Proxy, gc.IsNil)
	c.Check(b.transport.DialContext, gc.NotNil)
	c.Check(b.proxyAuthorization, gc.Equals, "")
}

func (s *proxySuite) TestInvalidProxyFailsBuild(c *gc.C) {
	settings := newSettings(c, Config{})
	settings.SetProxyConfig(&proxy.Config{Type: "PAC", Host: "proxy.example.com"})

	_, err := NewBuilder(settings)
	c.Assert(err, gc.ErrorMatches, `proxy type "PAC" not valid`)
}
