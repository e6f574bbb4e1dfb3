// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package authority implements the HTTP surfaces of the two privileged
// access authorities as [access.Backend] values.
//
// [Directory] speaks to the directory authority (Microsoft Graph role
// management): flat scopes, request IDs assigned by the server in
// response to a POST. [Resource] speaks to the resource authority
// (Azure Resource Manager authorization provider): hierarchical
// scopes, request IDs chosen by the caller and embedded in a PUT URL.
//
// Both share one request path that attaches an Authorization header
// from a [TokenSource] on every call, bounds response reads, and maps
// failures into the access error taxonomy:
//
//   - 429 becomes [access.RateLimitError] with the Retry-After delay
//   - step-up challenges become [token.MFARequiredError]
//   - rejected submissions become [access.PolicyViolationError] or
//     [access.ActivationError]
//   - everything else, including transport failures (status 0),
//     becomes [access.APIError]
//
// Nothing here retries. Wire records are decoded leniently: unknown
// fields are ignored and malformed timestamps read as absent.
package authority
