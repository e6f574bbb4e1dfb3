// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package access defines privileged-access requests and the engine that
// submits them.
//
// An [AccessRequest] asks an authority to change a principal's standing
// for one role at one scope: activate an eligible role for a bounded
// time, deactivate it early, or (as an administrator) grant and remove
// eligibility. Both authorities share the same eight actions and the
// same status lifecycle; they differ in request ID assignment, wire
// spelling, and URL shape, which the [Backend] interface hides.
//
// [Engine] builds a request, validates its schedule, gives it a fresh
// request ID, and submits it exactly once. It never retries: rate
// limits surface as [RateLimitError] with the server's Retry-After, and
// the decision to try again belongs to the caller.
//
// The error taxonomy lives here too so every layer can classify a
// failure without importing the HTTP code:
//
//   - [RoleNotFoundError]: the role is neither a display name nor an ID
//   - [ActivationError]: the authority rejected the request's preconditions
//   - [PolicyViolationError]: the request broke a role management rule
//   - [ApprovalRequiredError]: the request is parked waiting for an approver
//   - [RateLimitError]: throttled, with the server-suggested delay
//   - [APIError]: any other failure, including transport errors (status 0)
package access
