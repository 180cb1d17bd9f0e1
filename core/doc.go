// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package core holds the interfaces consumers of the shared HTTP client depend
on, without pulling in how clients are built.

When adding to core:

  - it's fine to import from any subpackage of "github.com/juju/sharedhttp/core"
  - but never import from any other subpackage of "github.com/juju/sharedhttp"
  - no mutable global state
*/
package core
