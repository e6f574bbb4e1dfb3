// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/scope"
)

// Backend is one authority's request surface.
type Backend interface {
	// Authority reports which scope kind this backend accepts.
	Authority() scope.Kind

	// AssignsRequestIDServerSide reports whether the authority ignores
	// the caller's request ID and returns its own.
	AssignsRequestIDServerSide() bool

	// Submit sends request once. On success it returns the authority's
	// echo, or nil if the echo could not be decoded.
	Submit(ctx context.Context, request *AccessRequest) (*AccessRequest, error)

	// Get fetches a previously submitted request.
	Get(ctx context.Context, collection Collection, target scope.Scope, requestID string) (*AccessRequest, error)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Clock stamps CreatedAt. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// NewID generates request IDs. Defaults to random UUIDs.
	NewID func() string
}

// Engine builds, validates, and submits access requests.
type Engine struct {
	clock  clock.Clock
	logger *slog.Logger
	newID  func() string
}

// NewEngine creates an Engine.
func NewEngine(config EngineConfig) *Engine {
	engine := &Engine{
		clock:  config.Clock,
		logger: config.Logger,
		newID:  config.NewID,
	}
	if engine.clock == nil {
		engine.clock = clock.Real()
	}
	if engine.logger == nil {
		engine.logger = slog.Default()
	}
	if engine.newID == nil {
		engine.newID = func() string { return uuid.NewString() }
	}
	return engine
}

// ActivateParams describes a self-activation of an eligible role.
type ActivateParams struct {
	PrincipalID      string
	RoleDefinitionID string
	Scope            scope.Scope
	Justification    string
	Duration         time.Duration
	Ticket           *Ticket
}

// Activate submits a SelfActivate request that expires Duration after
// it takes effect.
func (engine *Engine) Activate(ctx context.Context, backend Backend, params ActivateParams) (*AccessRequest, error) {
	return engine.Submit(ctx, backend, &AccessRequest{
		Action:           ActionSelfActivate,
		Collection:       CollectionAssignment,
		PrincipalID:      params.PrincipalID,
		RoleDefinitionID: params.RoleDefinitionID,
		Scope:            params.Scope,
		Justification:    params.Justification,
		Schedule:         Schedule{Expiration: ExpireAfter(params.Duration)},
		Ticket:           params.Ticket,
	})
}

// Deactivate submits a SelfDeactivate request ending an active grant
// early.
func (engine *Engine) Deactivate(ctx context.Context, backend Backend, principalID, roleDefinitionID string, target scope.Scope) (*AccessRequest, error) {
	return engine.Submit(ctx, backend, &AccessRequest{
		Action:           ActionSelfDeactivate,
		Collection:       CollectionAssignment,
		PrincipalID:      principalID,
		RoleDefinitionID: roleDefinitionID,
		Scope:            target,
	})
}

// AssignParams describes an administrator granting eligibility.
type AssignParams struct {
	PrincipalID      string
	RoleDefinitionID string
	Scope            scope.Scope
	Justification    string
	Schedule         Schedule
	Ticket           *Ticket
}

// AssignEligibility submits an AdminAssign request against the
// eligibility collection.
func (engine *Engine) AssignEligibility(ctx context.Context, backend Backend, params AssignParams) (*AccessRequest, error) {
	return engine.Submit(ctx, backend, &AccessRequest{
		Action:           ActionAdminAssign,
		Collection:       CollectionEligibility,
		PrincipalID:      params.PrincipalID,
		RoleDefinitionID: params.RoleDefinitionID,
		Scope:            params.Scope,
		Justification:    params.Justification,
		Schedule:         params.Schedule,
		Ticket:           params.Ticket,
	})
}

// RemoveParams describes an administrator removing eligibility.
type RemoveParams struct {
	PrincipalID      string
	RoleDefinitionID string
	Scope            scope.Scope
	Justification    string
}

// RemoveEligibility submits an AdminRemove request against the
// eligibility collection.
func (engine *Engine) RemoveEligibility(ctx context.Context, backend Backend, params RemoveParams) (*AccessRequest, error) {
	return engine.Submit(ctx, backend, &AccessRequest{
		Action:           ActionAdminRemove,
		Collection:       CollectionEligibility,
		PrincipalID:      params.PrincipalID,
		RoleDefinitionID: params.RoleDefinitionID,
		Scope:            params.Scope,
		Justification:    params.Justification,
	})
}

// ExtendParams describes lengthening an active grant. Admin selects
// AdminExtend (on another principal's grant) over SelfExtend.
type ExtendParams struct {
	PrincipalID      string
	RoleDefinitionID string
	Scope            scope.Scope
	Justification    string
	Duration         time.Duration
	Admin            bool
}

// Extend submits a SelfExtend or AdminExtend request.
func (engine *Engine) Extend(ctx context.Context, backend Backend, params ExtendParams) (*AccessRequest, error) {
	action := ActionSelfExtend
	if params.Admin {
		action = ActionAdminExtend
	}
	return engine.Submit(ctx, backend, &AccessRequest{
		Action:           action,
		Collection:       CollectionAssignment,
		PrincipalID:      params.PrincipalID,
		RoleDefinitionID: params.RoleDefinitionID,
		Scope:            params.Scope,
		Justification:    params.Justification,
		Schedule:         Schedule{Expiration: ExpireAfter(params.Duration)},
	})
}

// Status fetches the current state of a submitted request. It has no
// side effects.
func (engine *Engine) Status(ctx context.Context, backend Backend, collection Collection, target scope.Scope, requestID string) (*AccessRequest, error) {
	if requestID == "" {
		return nil, errors.New("access: request ID is required")
	}
	if err := checkScope(backend, target); err != nil {
		return nil, err
	}
	return backend.Get(ctx, collection, target, requestID)
}

// Submit validates request, assigns it a fresh ID, and sends it to
// backend exactly once. The caller's value is not modified. If the
// authority accepts the request but its echo cannot be read, the local
// request is returned with StatusUnknown.
func (engine *Engine) Submit(ctx context.Context, backend Backend, request *AccessRequest) (*AccessRequest, error) {
	prepared := *request
	if prepared.Collection == "" {
		prepared.Collection = CollectionAssignment
	}
	if prepared.Action.Removes() {
		prepared.Schedule = Schedule{}
	}
	if err := validate(backend, &prepared); err != nil {
		return nil, err
	}

	prepared.ID = engine.newID()
	prepared.Authority = backend.Authority()
	prepared.ScopePath = prepared.Scope.String()
	prepared.Status = StatusPending
	prepared.CreatedAt = engine.clock.Now()

	engine.logger.Info("submitting access request",
		"authority", prepared.Authority,
		"action", prepared.Action,
		"role_definition_id", prepared.RoleDefinitionID,
		"scope", prepared.ScopePath,
		"request_id", prepared.ID,
	)

	echo, err := backend.Submit(ctx, &prepared)
	if err != nil {
		return nil, err
	}
	if echo == nil {
		engine.logger.Warn("access request accepted but response unreadable", "request_id", prepared.ID)
		prepared.Status = StatusUnknown
		return &prepared, nil
	}
	return merge(&prepared, echo, backend.AssignsRequestIDServerSide()), nil
}

func validate(backend Backend, request *AccessRequest) error {
	if !request.Action.Valid() {
		return fmt.Errorf("access: unknown action %q", request.Action)
	}
	if request.RoleDefinitionID == "" {
		return errors.New("access: role definition ID is required")
	}
	if request.PrincipalID == "" {
		return errors.New("access: principal ID is required")
	}
	if err := checkScope(backend, request.Scope); err != nil {
		return err
	}
	if request.Action.Removes() {
		return nil
	}
	return request.Schedule.Validate()
}

func checkScope(backend Backend, target scope.Scope) error {
	if target == nil {
		return errors.New("access: scope is required")
	}
	if target.Kind() != backend.Authority() {
		return fmt.Errorf("access: %s scope %s cannot be used with the %s authority", target.Kind(), target, backend.Authority())
	}
	if resource, ok := target.(scope.Resource); ok {
		return resource.Validate()
	}
	return nil
}

// merge overlays the authority's echo on the submitted request. Fields
// the echo omits keep their submitted values.
func merge(submitted, echo *AccessRequest, serverAssignsID bool) *AccessRequest {
	result := *submitted
	if echo.ID != "" && (serverAssignsID || result.ID == "") {
		result.ID = echo.ID
	}
	result.Status = echo.Status
	if echo.ApprovalID != "" {
		result.ApprovalID = echo.ApprovalID
	}
	if !echo.CreatedAt.IsZero() {
		result.CreatedAt = echo.CreatedAt
	}
	if echo.CompletedAt != nil {
		result.CompletedAt = echo.CompletedAt
	}
	if echo.Schedule.StartTime != nil {
		result.Schedule.StartTime = echo.Schedule.StartTime
	}
	return &result
}
