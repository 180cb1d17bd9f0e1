// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package httpclient builds the HTTP clients used for all network access:
// one shared client for the whole process, and private builders for
// callers that must keep their cookies and cached responses to themselves.
//
// Every client gets the same pipeline: connection limits, timeouts, an
// origin-only cookie jar, a size bounded response cache, redirects,
// optional proxying with authentication, extra trust anchors and, when
// explicitly enabled, acceptance of any TLS certificate.
package httpclient
