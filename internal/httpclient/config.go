// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/juju/sharedhttp/internal/proxy"
)

const (
	// MaxConnections is the connection limit applied to every built
	// transport, and to http.DefaultTransport.
	MaxConnections = 8

	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout = 10 * time.Second

	// ReadTimeout and WriteTimeout bound each individual read or write on a
	// connection, not the whole request.
	ReadTimeout  = 30 * time.Second
	WriteTimeout = 30 * time.Second

	// MaxCacheSize is the response cache budget in bytes (20MB).
	MaxCacheSize = 20 * 1000 * 1000

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "sharedhttp/1.0"
)

// Config holds the values consulted each time a client is built.
type Config struct {
	// CacheDirectory is where the shared client caches responses. When
	// empty, it falls back to an in-memory cache. Private builders always
	// cache in memory.
	CacheDirectory string

	// Proxy routes outgoing connections. Nil means no proxy.
	Proxy *proxy.Config

	// UserAgent overwrites the User-Agent header of every request placed on
	// the wire.
	UserAgent string

	// CACertificates are PEM encoded certificates added to the system trust
	// pool. Ignored when CertificateInstaller is set.
	CACertificates []string

	// CertificateInstaller adds trust anchors to each client's TLS config.
	CertificateInstaller CertificateInstaller

	// AcceptAllCertificates disables certificate chain and hostname
	// validation for every client. Opt-in only.
	AcceptAllCertificates bool

	// Clock sets the per read and write deadlines on connections.
	Clock clock.Clock

	// Interceptors and NetworkInterceptors are installed on every built
	// client, after the default ones.
	Interceptors        []Interceptor
	NetworkInterceptors []Interceptor
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Proxy.Validate(); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Settings is the configuration shared by the shared client and every
// private builder. The cache directory and proxy may be replaced at any time;
// a change only affects clients built afterwards.
//
// Changing settings while another goroutine is building a client gives no
// ordering guarantee: that build sees either the old or the new value.
type Settings struct {
	mu     sync.RWMutex
	config Config
}

// NewSettings returns settings holding a copy of cfg.
func NewSettings(cfg Config) (*Settings, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.CertificateInstaller == nil {
		cfg.CertificateInstaller = CACertificates(cfg.CACertificates...)
	}
	if cfg.Proxy != nil {
		copied := *cfg.Proxy
		cfg.Proxy = &copied
	}
	return &Settings{config: cfg}, nil
}

// SetCacheDirectory replaces the cache directory used by the next build.
func (s *Settings) SetCacheDirectory(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.CacheDirectory = path
}

// SetProxyConfig replaces the proxy used by the next build. The config is
// copied; nil removes the proxy.
func (s *Settings) SetProxyConfig(cfg *proxy.Config) {
	if cfg != nil {
		copied := *cfg
		cfg = &copied
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Proxy = cfg
}

// snapshot returns a copy of the current configuration.
func (s *Settings) snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.config
	if cfg.Proxy != nil {
		copied := *cfg.Proxy
		cfg.Proxy = &copied
	}
	cfg.CACertificates = append([]string(nil), cfg.CACertificates...)
	cfg.Interceptors = append([]Interceptor(nil), cfg.Interceptors...)
	cfg.NetworkInterceptors = append([]Interceptor(nil), cfg.NetworkInterceptors...)
	return cfg
}
