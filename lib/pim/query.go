// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/scope"
	"github.com/bureau-foundation/pim/lib/token"
)

// ListEligible lists eligibility at target for principalID, or for
// the caller when principalID is empty. Role names the authority left
// out are filled in through the resolver.
func (facade *PIM) ListEligible(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error) {
	backend, err := facade.authority(target)
	if err != nil {
		return nil, err
	}
	assignments, err := backend.ListEligible(ctx, target, principalID)
	if err != nil {
		return nil, err
	}
	return facade.nameRoles(ctx, target, assignments)
}

// ListActive lists active grants at target for principalID, or for
// the caller when principalID is empty.
func (facade *PIM) ListActive(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error) {
	backend, err := facade.authority(target)
	if err != nil {
		return nil, err
	}
	assignments, err := backend.ListActive(ctx, target, principalID)
	if err != nil {
		return nil, err
	}
	return facade.nameRoles(ctx, target, assignments)
}

func (facade *PIM) nameRoles(ctx context.Context, target scope.Scope, assignments []access.Assignment) ([]access.Assignment, error) {
	var unnamed []string
	for _, assignment := range assignments {
		if assignment.RoleName == "" && assignment.RoleDefinitionID != "" {
			unnamed = append(unnamed, assignment.RoleDefinitionID)
		}
	}
	if len(unnamed) == 0 {
		return assignments, nil
	}
	names, err := facade.resolver.Names(ctx, target.Kind(), target, unnamed)
	if err != nil {
		return nil, fmt.Errorf("pim: naming roles: %w", err)
	}
	for index := range assignments {
		if assignments[index].RoleName == "" {
			assignments[index].RoleName = names[assignments[index].RoleDefinitionID]
		}
	}
	return assignments, nil
}

// ListRoles lists the role definitions visible at target.
func (facade *PIM) ListRoles(ctx context.Context, target scope.Scope) ([]access.RoleDefinition, error) {
	if _, err := facade.authority(target); err != nil {
		return nil, err
	}
	return facade.resolver.List(ctx, target.Kind(), target)
}

// Policy returns the management policy of a directory role. Policies
// are reported, never enforced here.
func (facade *PIM) Policy(ctx context.Context, role string) (access.RolePolicy, access.RoleDefinition, error) {
	if facade.directory == nil {
		return access.RolePolicy{}, access.RoleDefinition{}, errors.New("pim: role policies require the directory authority")
	}
	definition, err := facade.resolver.Resolve(ctx, scope.KindDirectory, scope.Tenant, role)
	if err != nil {
		return access.RolePolicy{}, access.RoleDefinition{}, err
	}
	policy, err := facade.directory.Policy(ctx, definition.ID)
	if err != nil {
		return access.RolePolicy{}, definition, err
	}
	return policy, definition, nil
}

// WhoAmI identifies the caller. The directory token's claims are used
// when they name the principal; otherwise the directory is asked.
func (facade *PIM) WhoAmI(ctx context.Context) (access.Principal, error) {
	claims, err := facade.broker.Subject(ctx, token.AudienceGraph)
	if err == nil && claims.UserPrincipalName != "" {
		return access.Principal{
			ID:                claims.ObjectID,
			DisplayName:       claims.Name,
			UserPrincipalName: claims.UserPrincipalName,
		}, nil
	}
	if err != nil && token.IsAuthentication(err) {
		return access.Principal{}, err
	}
	if facade.directory == nil {
		if err != nil {
			return access.Principal{}, err
		}
		return access.Principal{ID: claims.ObjectID, DisplayName: claims.Name}, nil
	}
	return facade.directory.Me(ctx)
}

// Login acquires a token for each audience so later commands run
// without prompting, and returns each token's expiry.
func (facade *PIM) Login(ctx context.Context, audiences ...token.Audience) (map[token.Audience]time.Time, error) {
	if len(audiences) == 0 {
		audiences = []token.Audience{token.AudienceGraph, token.AudienceResourceManager}
	}
	expiries := make(map[token.Audience]time.Time, len(audiences))
	for _, audience := range audiences {
		if _, err := facade.broker.Token(ctx, audience); err != nil {
			return nil, err
		}
		if expiry, ok := facade.broker.Cached(audience); ok {
			expiries[audience] = expiry
		}
	}
	facade.logger.Info("signed in", "provider", facade.broker.ProviderKind(), "audiences", len(audiences))
	return expiries, nil
}

// Logout forgets every cached token.
func (facade *PIM) Logout() error {
	if err := facade.broker.Clear(); err != nil {
		return fmt.Errorf("pim: clearing token cache: %w", err)
	}
	return nil
}
