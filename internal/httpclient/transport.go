// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
)

const (
	keepAlive       = 30 * time.Second
	idleConnTimeout = 5 * time.Minute

	// maxFollowUps is the number of redirects followed before giving up.
	maxFollowUps = 20
)

type dialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

var limitDefaultTransport sync.Once

// applyProcessConnectionLimit caps connections on http.DefaultTransport.
// This reaches every client in the process that uses the default
// transport, not just the ones built here.
func applyProcessConnectionLimit() {
	limitDefaultTransport.Do(func() {
		if transport, ok := http.DefaultTransport.(*http.Transport); ok {
			transport.MaxConnsPerHost = MaxConnections
			transport.MaxIdleConnsPerHost = MaxConnections
		}
	})
}

func newDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   ConnectTimeout,
		KeepAlive: keepAlive,
	}
}

func newTransport(dialer *net.Dialer, clk clock.Clock) *http.Transport {
	return &http.Transport{
		DialContext:           withDeadlines(dialer.DialContext, clk, ReadTimeout, WriteTimeout),
		ForceAttemptHTTP2:     true,
		MaxConnsPerHost:       MaxConnections,
		MaxIdleConnsPerHost:   MaxConnections,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   ConnectTimeout,
		ResponseHeaderTimeout: ReadTimeout,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{},
	}
}

// withDeadlines wraps every dialled connection so that each read and write
// must complete within the given timeouts.
func withDeadlines(dial dialContextFunc, clk clock.Clock, readTimeout, writeTimeout time.Duration) dialContextFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{
			Conn:         conn,
			clock:        clk,
			readTimeout:  readTimeout,
			writeTimeout: writeTimeout,
		}, nil
	}
}

type deadlineConn struct {
	net.Conn
	clock        clock.Clock
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(c.clock.Now().Add(c.readTimeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(c.clock.Now().Add(c.writeTimeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// followRedirects follows redirects in both directions between http and
// https, up to maxFollowUps.
func followRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= maxFollowUps {
		return errors.Errorf("stopped after %d redirects", maxFollowUps)
	}
	return nil
}
