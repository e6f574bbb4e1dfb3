// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [NewTenant] starts an httptest server that plays the identity
// platform and both authorities. Its token endpoint answers the
// client-credentials grant with a signed token naming a fixed
// principal; authority routes are registered per test with
// [Tenant.Handle] or [Tenant.Reply] using [http.ServeMux] patterns.
// Every authority call is recorded for assertions.
//
// [Tenant.WriteConfig] writes a configuration file pointing all three
// endpoints at the server, with the token cache disabled, so the full
// command path from configuration to HTTP can run in a test.
//
// [UniqueID] generates monotonically increasing identifiers for
// server-assigned request IDs.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
