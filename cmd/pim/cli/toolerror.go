// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/token"
)

// ErrorCategory classifies command failures so scripts can react
// without parsing message text.
type ErrorCategory string

const (
	// CategoryValidation: bad input. Fix it and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a role, request, or policy does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden: the caller lacks permission, must step up
	// authentication, or the authority's policy refused the request.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict: the request conflicts with existing state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient: rate limit, timeout, or network failure. Back
	// off and retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal: anything unexpected.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error wrapping the underlying
// error.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify returns err as a ToolError, choosing a category from the
// access and token error types when err is not one already.
func Classify(err error) *ToolError {
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return toolError
	}

	category := CategoryInternal
	var roleNotFound *access.RoleNotFoundError
	switch {
	case errors.As(err, &roleNotFound), access.IsNotFound(err):
		category = CategoryNotFound
	case token.IsAuthentication(err), access.IsPolicyViolation(err), access.IsApprovalRequired(err):
		category = CategoryForbidden
	case access.IsActivationRejected(err):
		category = CategoryConflict
		if status := access.StatusCode(err); status == http.StatusForbidden || status == http.StatusUnauthorized {
			category = CategoryForbidden
		}
	case access.IsTransport(err), errors.Is(err, context.DeadlineExceeded):
		category = CategoryTransient
	default:
		if _, limited := access.IsRateLimited(err); limited {
			category = CategoryTransient
			break
		}
		switch status := access.StatusCode(err); {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			category = CategoryForbidden
		case status == http.StatusBadRequest:
			category = CategoryValidation
		case status == http.StatusConflict:
			category = CategoryConflict
		case status >= 500:
			category = CategoryTransient
		}
	}
	return &ToolError{Category: category, Err: err}
}
