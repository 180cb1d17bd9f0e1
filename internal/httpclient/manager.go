// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"net/http"
	"sync"

	"github.com/juju/errors"
)

// Manager owns the client shared by the whole process.
type Manager struct {
	settings   *Settings
	newBuilder func(*Settings) (*Builder, error)

	mu     sync.Mutex
	client *http.Client
}

// NewManager returns a manager building clients from settings. No client is
// built until one is asked for.
func NewManager(settings *Settings) *Manager {
	return &Manager{
		settings:   settings,
		newBuilder: newSharedBuilder,
	}
}

// SharedClient returns the shared client, building it on first use. Every
// call returns the same client until Reinit replaces it.
func (m *Manager) SharedClient() (*http.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		client, err := m.build()
		if err != nil {
			return nil, errors.Trace(err)
		}
		m.client = client
	}
	return m.client, nil
}

// Reinit replaces the shared client with one built from the current
// settings. Requests in flight on the previous client are left alone. If
// building fails the previous client stays in place.
func (m *Manager) Reinit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, err := m.build()
	if err != nil {
		return errors.Trace(err)
	}
	m.client = client
	return nil
}

// NewBuilder returns a private builder for callers that must not share
// cookies or cached responses with the shared client.
func (m *Manager) NewBuilder() (*Builder, error) {
	return NewBuilder(m.settings)
}

func (m *Manager) build() (*http.Client, error) {
	b, err := m.newBuilder(m.settings)
	if err != nil {
		return nil, errors.Annotate(err, "building shared http client")
	}
	return b.Build(), nil
}
