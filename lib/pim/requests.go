// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pim

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/scope"
)

// ActivateRequest asks for a time-bounded activation of an eligible
// role.
type ActivateRequest struct {
	// Role is a display name or definition ID.
	Role  string
	Scope scope.Scope

	// PrincipalID defaults to the broker's identity.
	PrincipalID string

	Justification string

	// Duration defaults to the configured default duration.
	Duration time.Duration

	Ticket *access.Ticket
}

// Activate resolves the role and submits a SelfActivate request. A
// role that cannot be resolved fails with *access.RoleNotFoundError
// before anything is submitted.
func (facade *PIM) Activate(ctx context.Context, request ActivateRequest) (*access.AccessRequest, error) {
	backend, definition, principalID, err := facade.prepare(ctx, request.Scope, request.Role, request.PrincipalID)
	if err != nil {
		return nil, err
	}
	duration := request.Duration
	if duration == 0 {
		duration = facade.defaultDuration
	}

	facade.logger.Info("activating role",
		"role", definition.DisplayName,
		"scope", request.Scope.String(),
		"duration", duration,
	)
	return facade.engine.Activate(ctx, backend, access.ActivateParams{
		PrincipalID:      principalID,
		RoleDefinitionID: definition.ID,
		Scope:            request.Scope,
		Justification:    request.Justification,
		Duration:         duration,
		Ticket:           request.Ticket,
	})
}

// RoleRequest names a role held by a principal at a scope.
type RoleRequest struct {
	Role  string
	Scope scope.Scope

	// PrincipalID defaults to the broker's identity.
	PrincipalID string
}

// Deactivate ends an active grant before it expires.
func (facade *PIM) Deactivate(ctx context.Context, request RoleRequest) (*access.AccessRequest, error) {
	backend, definition, principalID, err := facade.prepare(ctx, request.Scope, request.Role, request.PrincipalID)
	if err != nil {
		return nil, err
	}
	facade.logger.Info("deactivating role", "role", definition.DisplayName, "scope", request.Scope.String())
	return facade.engine.Deactivate(ctx, backend, principalID, definition.ID, request.Scope)
}

// AssignRequest grants eligibility to a principal.
type AssignRequest struct {
	Role        string
	Scope       scope.Scope
	PrincipalID string

	Justification string

	// Expiration defaults to access.Never().
	Expiration access.Expiration

	// StartTime defers the eligibility; nil starts it immediately.
	StartTime *time.Time

	Ticket *access.Ticket
}

// AssignEligibility submits an AdminAssign request for another
// principal. PrincipalID is required.
func (facade *PIM) AssignEligibility(ctx context.Context, request AssignRequest) (*access.AccessRequest, error) {
	if request.PrincipalID == "" {
		return nil, errors.New("pim: assigning eligibility requires a principal ID")
	}
	backend, definition, _, err := facade.prepare(ctx, request.Scope, request.Role, request.PrincipalID)
	if err != nil {
		return nil, err
	}
	expiration := request.Expiration
	if expiration.Kind == "" {
		expiration = access.Never()
	}
	facade.logger.Info("assigning eligibility",
		"role", definition.DisplayName,
		"scope", request.Scope.String(),
		"principal", request.PrincipalID,
	)
	return facade.engine.AssignEligibility(ctx, backend, access.AssignParams{
		PrincipalID:      request.PrincipalID,
		RoleDefinitionID: definition.ID,
		Scope:            request.Scope,
		Justification:    request.Justification,
		Schedule:         access.Schedule{StartTime: request.StartTime, Expiration: expiration},
		Ticket:           request.Ticket,
	})
}

// RemoveRequest withdraws a principal's eligibility.
type RemoveRequest struct {
	Role          string
	Scope         scope.Scope
	PrincipalID   string
	Justification string
}

// RemoveEligibility submits an AdminRemove request. PrincipalID is
// required.
func (facade *PIM) RemoveEligibility(ctx context.Context, request RemoveRequest) (*access.AccessRequest, error) {
	if request.PrincipalID == "" {
		return nil, errors.New("pim: removing eligibility requires a principal ID")
	}
	backend, definition, _, err := facade.prepare(ctx, request.Scope, request.Role, request.PrincipalID)
	if err != nil {
		return nil, err
	}
	facade.logger.Info("removing eligibility",
		"role", definition.DisplayName,
		"scope", request.Scope.String(),
		"principal", request.PrincipalID,
	)
	return facade.engine.RemoveEligibility(ctx, backend, access.RemoveParams{
		PrincipalID:      request.PrincipalID,
		RoleDefinitionID: definition.ID,
		Scope:            request.Scope,
		Justification:    request.Justification,
	})
}

// ExtendRequest lengthens an active grant. When PrincipalID names
// someone other than the caller the request is an AdminExtend.
type ExtendRequest struct {
	Role          string
	Scope         scope.Scope
	PrincipalID   string
	Justification string
	Duration      time.Duration
}

// Extend submits a SelfExtend or AdminExtend request.
func (facade *PIM) Extend(ctx context.Context, request ExtendRequest) (*access.AccessRequest, error) {
	backend, definition, principalID, err := facade.prepare(ctx, request.Scope, request.Role, "")
	if err != nil {
		return nil, err
	}
	admin := request.PrincipalID != "" && request.PrincipalID != principalID
	if request.PrincipalID != "" {
		principalID = request.PrincipalID
	}
	duration := request.Duration
	if duration == 0 {
		duration = facade.defaultDuration
	}
	return facade.engine.Extend(ctx, backend, access.ExtendParams{
		PrincipalID:      principalID,
		RoleDefinitionID: definition.ID,
		Scope:            request.Scope,
		Justification:    request.Justification,
		Duration:         duration,
		Admin:            admin,
	})
}

// Status re-reads a submitted request by ID.
func (facade *PIM) Status(ctx context.Context, target scope.Scope, collection access.Collection, requestID string) (*access.AccessRequest, error) {
	backend, err := facade.authority(target)
	if err != nil {
		return nil, err
	}
	return facade.engine.Status(ctx, backend, collection, target, requestID)
}

// prepare picks the authority for target, resolves role there, and
// settles the principal.
func (facade *PIM) prepare(ctx context.Context, target scope.Scope, role, principalID string) (Authority, access.RoleDefinition, string, error) {
	backend, err := facade.authority(target)
	if err != nil {
		return nil, access.RoleDefinition{}, "", err
	}
	definition, err := facade.resolver.Resolve(ctx, target.Kind(), target, role)
	if err != nil {
		return nil, access.RoleDefinition{}, "", err
	}
	principalID, err = facade.principal(ctx, target.Kind(), principalID)
	if err != nil {
		return nil, access.RoleDefinition{}, "", err
	}
	return backend, definition, principalID, nil
}
