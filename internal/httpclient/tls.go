// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/juju/errors"
)

// CertificateInstaller adds trust anchors to a client's TLS configuration.
type CertificateInstaller interface {
	// InstallCertificates augments cfg. Having nothing to install is not
	// an error.
	InstallCertificates(cfg *tls.Config) error
}

// CertificateInstallerFunc adapts a function to CertificateInstaller.
type CertificateInstallerFunc func(*tls.Config) error

// InstallCertificates implements CertificateInstaller.
func (f CertificateInstallerFunc) InstallCertificates(cfg *tls.Config) error {
	return f(cfg)
}

// CACertificates returns an installer adding the PEM encoded certificates
// to the system roots.
func CACertificates(pems ...string) CertificateInstaller {
	return caCertificates(pems)
}

type caCertificates []string

// InstallCertificates implements CertificateInstaller.
func (certs caCertificates) InstallCertificates(cfg *tls.Config) error {
	if len(certs) == 0 {
		return nil
	}
	pool := cfg.RootCAs
	if pool == nil {
		var err error
		if pool, err = x509.SystemCertPool(); err != nil {
			logger.Warningf("cannot load system certificates, trusting only configured ones: %v", err)
			pool = x509.NewCertPool()
		}
	}
	for i, cert := range certs {
		if !pool.AppendCertsFromPEM([]byte(cert)) {
			return errors.NotValidf("CA certificate %d", i)
		}
	}
	cfg.RootCAs = pool
	return nil
}

// acceptAllCertificates makes cfg accept any certificate chain for any
// host name, whatever trust anchors were installed.
func acceptAllCertificates(cfg *tls.Config) {
	cfg.InsecureSkipVerify = true // #nosec G402
	cfg.VerifyPeerCertificate = nil
	cfg.VerifyConnection = nil
}
