// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package http

import (
	"net/http"

	"github.com/juju/errors"
)

const (
	// ErrNoClient is returned by getters that have no client to hand out,
	// for example because building one failed.
	ErrNoClient = errors.ConstError("no http client available")
)

// HTTPClient is the interface that is used to do http requests.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response. The client will
	// follow policy (such as redirects, cookies, auth) as configured on the
	// client.
	Do(*http.Request) (*http.Response, error)
}

// SharedClientGetter is the interface that is used to get the client shared
// by the whole process.
type SharedClientGetter interface {
	// SharedClient returns the shared client, building it if needed.
	SharedClient() (*http.Client, error)
}

// ClientGetter returns the shared client of getter as an HTTPClient. Any
// failure to build the client is reported as ErrNoClient.
func ClientGetter(getter SharedClientGetter) (HTTPClient, error) {
	client, err := getter.SharedClient()
	if err != nil {
		return nil, errors.WithType(err, ErrNoClient)
	}
	if client == nil {
		return nil, errors.Trace(ErrNoClient)
	}
	return client, nil
}
