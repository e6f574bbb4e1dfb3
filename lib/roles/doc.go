// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roles turns the role names people type into the role
// definition IDs the authorities expect.
//
// Resolution tries an exact display-name match in the authority's
// scope first and a direct ID lookup second, so a display name always
// wins over an ID that happens to contain it. Definitions are
// immutable, so resolved values are kept in a bounded LRU cache keyed
// by authority, scope, and input.
package roles
