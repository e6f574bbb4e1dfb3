// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the pim command's configuration.
//
// Configuration comes from a single file named by the PIM_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). Files ending in .json or .jsonc are read as JSON with
// comments; anything else is YAML. Without a file, [Default] values
// apply.
//
// A small set of environment variables fills fields the file leaves
// empty: ARM_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, and
// PIM_DEFAULT_DURATION. They never override a value the file sets. The
// client secret is held only in memory and is never written by
// [Config.Save].
//
// Path fields support ${VAR} and ${VAR:-default} expansion after
// loading.
//
// Key exports:
//
//   - [Config] -- master struct with Auth, TokenCache, Directory, Resource
//   - [Default] -- returns a Config with working defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
