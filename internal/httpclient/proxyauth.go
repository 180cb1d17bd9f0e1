// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/juju/clock"
	"github.com/juju/errors"
	netproxy "golang.org/x/net/proxy"

	"github.com/juju/sharedhttp/internal/proxy"
)

const proxyAuthorizationHeader = "Proxy-Authorization"

// configureProxy routes the transport through the configured proxy. It
// returns the Proxy-Authorization value to answer HTTP proxy challenges
// with, or "" when no proxy authentication applies.
func configureProxy(transport *http.Transport, dialer *net.Dialer, clk clock.Clock, cfg *proxy.Config) (string, error) {
	transport.Proxy = nil
	if !cfg.Enabled() {
		return "", nil
	}
	switch cfg.Type {
	case proxy.HTTP:
		transport.Proxy = http.ProxyURL(&url.URL{Scheme: "http", Host: cfg.Address()})
		if !cfg.HasCredentials() {
			return "", nil
		}
		authorization := basicCredentials(cfg.Credentials())
		// A CONNECT tunnel cannot be retried after a 407, so tunnels
		// always carry the credentials.
		transport.ProxyConnectHeader = http.Header{
			proxyAuthorizationHeader: []string{authorization},
		}
		return authorization, nil

	case proxy.SOCKS:
		var auth *netproxy.Auth
		if cfg.HasCredentials() {
			username, password := cfg.Credentials()
			auth = &netproxy.Auth{User: username, Password: password}
		}
		socks, err := netproxy.SOCKS5("tcp", cfg.Address(), auth, dialer)
		if err != nil {
			return "", errors.Annotatef(err, "creating SOCKS dialer for %s", cfg.Address())
		}
		contextDialer, ok := socks.(netproxy.ContextDialer)
		if !ok {
			return "", errors.NotSupportedf("SOCKS dialer without context")
		}
		transport.DialContext = withDeadlines(contextDialer.DialContext, clk, ReadTimeout, WriteTimeout)
		return "", nil
	}
	return "", errors.NotValidf("proxy type %q", cfg.Type)
}

func basicCredentials(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// proxyAuthenticator answers "407 Proxy Authentication Required" by sending
// the request again with a Proxy-Authorization header.
type proxyAuthenticator struct {
	next          http.RoundTripper
	authorization string
}

// RoundTrip implements http.RoundTripper.
func (a *proxyAuthenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := a.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusProxyAuthRequired {
		return resp, err
	}
	if req.Header.Get(proxyAuthorizationHeader) != "" {
		// The proxy has already refused these credentials.
		return resp, nil
	}
	retry, ok := rewind(req)
	if !ok {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	retry.Header.Set(proxyAuthorizationHeader, a.authorization)
	return a.next.RoundTrip(retry)
}

// rewind returns a copy of req that can be sent again, or false if the body
// cannot be replayed.
func rewind(req *http.Request) (*http.Request, bool) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	retry.Body = body
	return retry, true
}
