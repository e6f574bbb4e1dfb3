// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/scope"
)

// APIError is a failure from an authority that no more specific type
// describes. Transport failures (no response) have StatusCode 0 and the
// underlying error in Err.
type APIError struct {
	// StatusCode is the HTTP status, or 0 if no response arrived.
	StatusCode int

	// Code is the authority's machine-readable error code, when present.
	Code string

	// Message is the authority's human-readable message, or the raw
	// body when it could not be decoded.
	Message string

	// Body is the raw response body.
	Body string

	Method string
	Path   string

	// Err is the transport error for StatusCode 0.
	Err error
}

func (err *APIError) Error() string {
	var builder strings.Builder
	builder.WriteString("access: ")
	if err.Method != "" {
		fmt.Fprintf(&builder, "%s %s: ", err.Method, err.Path)
	}
	if err.StatusCode == 0 {
		fmt.Fprintf(&builder, "request failed: %v", err.Err)
		return builder.String()
	}
	fmt.Fprintf(&builder, "HTTP %d", err.StatusCode)
	if err.Code != "" {
		fmt.Fprintf(&builder, " (%s)", err.Code)
	}
	if err.Message != "" {
		fmt.Fprintf(&builder, ": %s", err.Message)
	}
	return builder.String()
}

func (err *APIError) Unwrap() error { return err.Err }

// ActivationError reports that an authority rejected a request because
// a precondition did not hold: the principal is not eligible, the role
// is already active, the duration is out of range, and so on.
type ActivationError struct {
	Action     Action
	StatusCode int
	Code       string
	Message    string
}

func (err *ActivationError) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("access: %s rejected (%s): %s", err.Action, err.Code, err.Message)
	}
	return fmt.Sprintf("access: %s rejected: %s", err.Action, err.Message)
}

// PolicyViolationError reports a request that broke a role management
// policy rule (missing justification or ticket, duration above the
// policy maximum, and similar).
type PolicyViolationError struct {
	Action     Action
	StatusCode int
	Code       string
	Message    string
}

func (err *PolicyViolationError) Error() string {
	return fmt.Sprintf("access: %s violates role management policy (%s): %s", err.Action, err.Code, err.Message)
}

// RateLimitError reports throttling. RetryAfter is the server's
// requested delay.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (err *RateLimitError) Error() string {
	if err.Message != "" {
		return fmt.Sprintf("access: rate limited, retry after %s: %s", err.RetryAfter, err.Message)
	}
	return fmt.Sprintf("access: rate limited, retry after %s", err.RetryAfter)
}

// RoleNotFoundError reports a role that matched neither a display name
// nor an ID at the given scope.
type RoleNotFoundError struct {
	Authority scope.Kind
	Scope     string
	Role      string

	// Suggestions holds display names close to Role, if any.
	Suggestions []string
}

func (err *RoleNotFoundError) Error() string {
	message := fmt.Sprintf("access: no %s role named or identified by %q at scope %s", err.Authority, err.Role, err.Scope)
	if len(err.Suggestions) > 0 {
		message += fmt.Sprintf(" (did you mean %s?)", strings.Join(quoteAll(err.Suggestions), ", "))
	}
	return message
}

// ApprovalRequiredError reports a request that is parked waiting for an
// approver. Request is the latest observed state.
type ApprovalRequiredError struct {
	Request *AccessRequest
}

func (err *ApprovalRequiredError) Error() string {
	if err.Request == nil {
		return "access: request is waiting for approval"
	}
	if err.Request.ApprovalID != "" {
		return fmt.Sprintf("access: request %s is waiting for approval %s", err.Request.ID, err.Request.ApprovalID)
	}
	return fmt.Sprintf("access: request %s is waiting for approval", err.Request.ID)
}

// IsNotFound reports whether err is a RoleNotFoundError or a 404 from
// an authority.
func IsNotFound(err error) bool {
	var roleError *RoleNotFoundError
	if errors.As(err, &roleError) {
		return true
	}
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsRateLimited reports whether err is a RateLimitError, and if so the
// server-requested delay.
func IsRateLimited(err error) (time.Duration, bool) {
	var rateError *RateLimitError
	if errors.As(err, &rateError) {
		return rateError.RetryAfter, true
	}
	return 0, false
}

// IsPolicyViolation reports whether err is a PolicyViolationError.
func IsPolicyViolation(err error) bool {
	var policyError *PolicyViolationError
	return errors.As(err, &policyError)
}

// IsActivationRejected reports whether err is an ActivationError.
func IsActivationRejected(err error) bool {
	var activationError *ActivationError
	return errors.As(err, &activationError)
}

// IsApprovalRequired reports whether err is an ApprovalRequiredError.
func IsApprovalRequired(err error) bool {
	var approvalError *ApprovalRequiredError
	return errors.As(err, &approvalError)
}

// IsTransport reports whether err is an APIError for a request that
// never received a response.
func IsTransport(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 0
}

// StatusCode extracts the HTTP status from any error in this package's
// taxonomy, or 0.
func StatusCode(err error) int {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.StatusCode
	}
	var activationError *ActivationError
	if errors.As(err, &activationError) {
		return activationError.StatusCode
	}
	var policyError *PolicyViolationError
	if errors.As(err, &policyError) {
		return policyError.StatusCode
	}
	if _, ok := IsRateLimited(err); ok {
		return 429
	}
	return 0
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for index, value := range values {
		quoted[index] = fmt.Sprintf("%q", value)
	}
	return quoted
}
