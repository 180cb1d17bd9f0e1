// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"net/http"
	"net/url"
)

// Interceptor decorates a round tripper. Interceptors added with
// Builder.AddInterceptor run once per call with the caller's request, above
// redirects and proxy authentication. Interceptors added with
// Builder.AddNetworkInterceptor run for every request written to the wire,
// including each redirect hop.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// chain wraps rt so that the first interceptor is the outermost.
func chain(rt http.RoundTripper, interceptors []Interceptor) http.RoundTripper {
	for i := len(interceptors) - 1; i >= 0; i-- {
		rt = interceptors[i](rt)
	}
	return rt
}

// BasicAuthorization turns credentials embedded in the request URL into an
// Authorization header, unless one is already set. The credentials are
// removed from the URL passed on, so redirects never see them.
func BasicAuthorization() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			user := req.URL.User
			if user == nil {
				return next.RoundTrip(req)
			}
			req = req.Clone(req.Context())
			req.URL.User = nil
			if req.Header.Get("Authorization") == "" {
				password, _ := user.Password()
				req.SetBasicAuth(user.Username(), password)
			}
			return next.RoundTrip(req)
		})
	}
}

// UserAgent sets the User-Agent header, replacing any value the caller set.
func UserAgent(agent string) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			req.Header.Set("User-Agent", agent)
			return next.RoundTrip(req)
		})
	}
}

// clientTransport sends requests through a client, so that interceptors
// wrapped around it see a whole call, redirects included.
type clientTransport struct {
	client *http.Client
}

// RoundTrip implements http.RoundTripper.
func (t clientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		// The calling client adds its own url.Error.
		if urlErr, ok := err.(*url.Error); ok {
			err = urlErr.Err
		}
		return nil, err
	}
	return resp, nil
}
