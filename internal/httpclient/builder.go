// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	cookiejar "github.com/juju/persistent-cookiejar"
	"golang.org/x/net/publicsuffix"
)

var logger = loggo.GetLogger("sharedhttp.httpclient")

// Builder holds a fully configured client pipeline. Clients built from the
// same builder share its connections, cookies and cache; clients from
// different builders share nothing.
type Builder struct {
	transport           *http.Transport
	jar                 http.CookieJar
	cache               httpcache.Cache
	proxyAuthorization  string
	interceptors        []Interceptor
	networkInterceptors []Interceptor
}

// NewBuilder returns a private builder configured from the current
// settings. Its clients cache responses in memory, never in the cache
// directory, so they share no cached responses with any other builder. An
// error means no usable client can be built with these settings.
//
// Building applies the connection limit to http.DefaultTransport as well,
// which affects every client in the process using the default transport.
func NewBuilder(settings *Settings) (*Builder, error) {
	return newBuilder(settings, false)
}

// newSharedBuilder returns a builder for the shared client, caching
// responses in the configured cache directory.
func newSharedBuilder(settings *Settings) (*Builder, error) {
	return newBuilder(settings, true)
}

func newBuilder(settings *Settings, shared bool) (*Builder, error) {
	logger.Debugf("creating new instance of HTTP client")

	cfg := settings.snapshot()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	applyProcessConnectionLimit()

	dialer := newDialer()
	b := &Builder{
		// Timeouts are part of the transport and its connections.
		transport: newTransport(dialer, cfg.Clock),
	}

	b.AddInterceptor(BasicAuthorization())
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	b.AddNetworkInterceptor(UserAgent(userAgent))
	for _, interceptor := range cfg.Interceptors {
		b.AddInterceptor(interceptor)
	}
	for _, interceptor := range cfg.NetworkInterceptors {
		b.AddNetworkInterceptor(interceptor)
	}

	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
		NoPersist:        true,
	})
	if err != nil {
		return nil, errors.Annotate(err, "creating cookie jar")
	}
	b.jar = jar

	switch {
	case !shared:
		b.cache = newMemoryCache()
	case cfg.CacheDirectory == "":
		logger.Warningf("no cache directory configured, caching responses in memory")
		b.cache = newMemoryCache()
	default:
		if b.cache, err = newDiskCache(cfg.CacheDirectory); err != nil {
			return nil, errors.Trace(err)
		}
	}

	if b.proxyAuthorization, err = configureProxy(b.transport, dialer, cfg.Clock, cfg.Proxy); err != nil {
		return nil, errors.Annotate(err, "configuring proxy")
	}

	if cfg.CertificateInstaller != nil {
		if err := cfg.CertificateInstaller.InstallCertificates(b.transport.TLSClientConfig); err != nil {
			return nil, errors.Annotate(err, "installing certificates")
		}
	}
	if cfg.AcceptAllCertificates {
		logger.Warningf("TLS certificate and host name validation is disabled")
		acceptAllCertificates(b.transport.TLSClientConfig)
	}
	return b, nil
}

// AddInterceptor adds an interceptor that sees each call once, with the
// caller's original request.
func (b *Builder) AddInterceptor(interceptor Interceptor) *Builder {
	b.interceptors = append(b.interceptors, interceptor)
	return b
}

// AddNetworkInterceptor adds an interceptor that sees every request written
// to the wire, after redirects and proxy authentication.
func (b *Builder) AddNetworkInterceptor(interceptor Interceptor) *Builder {
	b.networkInterceptors = append(b.networkInterceptors, interceptor)
	return b
}

// Build returns a client using the builder's pipeline.
//
// From the outside in: interceptors, then redirects and cookies, then
// proxy authentication, then the response cache, then network
// interceptors, then the transport.
func (b *Builder) Build() *http.Client {
	rt := chain(b.transport, b.networkInterceptors)
	if b.cache != nil {
		cached := httpcache.NewTransport(b.cache)
		cached.Transport = rt
		rt = cached
	}
	if b.proxyAuthorization != "" {
		rt = &proxyAuthenticator{next: rt, authorization: b.proxyAuthorization}
	}
	network := &http.Client{
		Transport:     rt,
		Jar:           b.jar,
		CheckRedirect: followRedirects,
	}
	return &http.Client{
		Transport: chain(clientTransport{client: network}, b.interceptors),
		// Redirects were already followed by the network client.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
