// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/scope"
)

// DefaultCacheSize is the number of resolved definitions kept.
const DefaultCacheSize = 256

// Lookup is one authority's role definition surface. *authority.Directory
// and *authority.Resource implement it.
type Lookup interface {
	// FindRoleByName returns the definition whose display name equals
	// name exactly, or nil when there is none.
	FindRoleByName(ctx context.Context, target scope.Scope, name string) (*access.RoleDefinition, error)

	// GetRoleDefinition fetches a definition by ID.
	GetRoleDefinition(ctx context.Context, target scope.Scope, id string) (access.RoleDefinition, error)

	// ListRoleDefinitions lists the definitions visible at target.
	ListRoleDefinitions(ctx context.Context, target scope.Scope) ([]access.RoleDefinition, error)
}

// Config configures a Resolver. At least one lookup is required.
type Config struct {
	Directory Lookup
	Resource  Lookup

	// CacheSize defaults to DefaultCacheSize.
	CacheSize int

	Logger *slog.Logger
}

// Resolver resolves role names and IDs against the authorities.
type Resolver struct {
	lookups map[scope.Kind]Lookup
	cache   *lru.Cache[string, access.RoleDefinition]
	logger  *slog.Logger
}

// New creates a Resolver.
func New(config Config) (*Resolver, error) {
	lookups := map[scope.Kind]Lookup{}
	if config.Directory != nil {
		lookups[scope.KindDirectory] = config.Directory
	}
	if config.Resource != nil {
		lookups[scope.KindResource] = config.Resource
	}
	if len(lookups) == 0 {
		return nil, errors.New("roles: resolver requires at least one lookup")
	}

	size := config.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, access.RoleDefinition](size)
	if err != nil {
		return nil, fmt.Errorf("roles: creating cache: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lookups: lookups, cache: cache, logger: logger.With("component", "role_resolver")}, nil
}

// Resolve returns the definition named or identified by nameOrID in
// target. An exact display name is tried before an ID; 404 and 400
// responses to either lookup count as misses, any other failure is
// returned as is. When both miss the error is *access.RoleNotFoundError
// carrying close display names.
func (resolver *Resolver) Resolve(ctx context.Context, authority scope.Kind, target scope.Scope, nameOrID string) (access.RoleDefinition, error) {
	input := strings.TrimSpace(nameOrID)
	if input == "" {
		return access.RoleDefinition{}, errors.New("roles: role name or ID is required")
	}
	lookup, err := resolver.lookup(authority, target)
	if err != nil {
		return access.RoleDefinition{}, err
	}

	key := cacheKey(authority, target, input)
	if definition, ok := resolver.cache.Get(key); ok {
		return definition, nil
	}

	byName, err := lookup.FindRoleByName(ctx, target, input)
	if err != nil && !isMiss(err) {
		return access.RoleDefinition{}, err
	}
	if err == nil && byName != nil {
		resolver.store(key, *byName)
		return *byName, nil
	}

	byID, err := lookup.GetRoleDefinition(ctx, target, input)
	if err == nil {
		resolver.store(key, byID)
		return byID, nil
	}
	if !isMiss(err) {
		return access.RoleDefinition{}, err
	}

	resolver.logger.Debug("role not found", "authority", authority, "scope", target.String(), "role", input)
	return access.RoleDefinition{}, &access.RoleNotFoundError{
		Authority:   authority,
		Scope:       target.String(),
		Role:        input,
		Suggestions: resolver.Suggest(ctx, authority, target, input),
	}
}

// Names maps role definition IDs to display names for presentation. It
// lists the scope's definitions once. If that listing is refused with a
// permanent error (403 or 404) it falls back to fetching each ID;
// transient failures are returned. IDs that cannot be resolved are
// absent from the result.
func (resolver *Resolver) Names(ctx context.Context, authority scope.Kind, target scope.Scope, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	lookup, err := resolver.lookup(authority, target)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if definition, ok := resolver.cache.Get(cacheKey(authority, target, id)); ok {
			names[id] = definition.DisplayName
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names, nil
	}

	definitions, err := lookup.ListRoleDefinitions(ctx, target)
	if err == nil {
		index := make(map[string]access.RoleDefinition, len(definitions)*2)
		for _, definition := range definitions {
			index[identityKey(definition.ID)] = definition
			if definition.Name != "" {
				index[identityKey(definition.Name)] = definition
			}
		}
		for _, id := range missing {
			if definition, ok := index[identityKey(id)]; ok {
				names[id] = definition.DisplayName
				resolver.store(cacheKey(authority, target, id), definition)
			}
		}
		return names, nil
	}
	if !isPermanent(err) {
		return nil, err
	}

	resolver.logger.Debug("role listing refused, resolving individually", "authority", authority, "error", err)
	for _, id := range missing {
		definition, err := lookup.GetRoleDefinition(ctx, target, id)
		if err != nil {
			if isMiss(err) || isPermanent(err) {
				continue
			}
			return nil, err
		}
		names[id] = definition.DisplayName
		resolver.store(cacheKey(authority, target, id), definition)
	}
	return names, nil
}

// List returns the definitions visible at target.
func (resolver *Resolver) List(ctx context.Context, authority scope.Kind, target scope.Scope) ([]access.RoleDefinition, error) {
	lookup, err := resolver.lookup(authority, target)
	if err != nil {
		return nil, err
	}
	return lookup.ListRoleDefinitions(ctx, target)
}

func (resolver *Resolver) lookup(authority scope.Kind, target scope.Scope) (Lookup, error) {
	if target == nil {
		return nil, errors.New("roles: scope is required")
	}
	if target.Kind() != authority {
		return nil, fmt.Errorf("roles: %s scope %s cannot be used with the %s authority", target.Kind(), target, authority)
	}
	lookup, ok := resolver.lookups[authority]
	if !ok {
		return nil, fmt.Errorf("roles: no %s authority configured", authority)
	}
	return lookup, nil
}

func (resolver *Resolver) store(key string, definition access.RoleDefinition) {
	resolver.cache.Add(key, definition)
}

func cacheKey(authority scope.Kind, target scope.Scope, input string) string {
	return string(authority) + "|" + strings.ToLower(target.String()) + "|" + input
}

// identityKey normalizes a definition ID for matching: the resource
// authority reports the same definition under several path prefixes,
// so only the final segment is compared.
func identityKey(id string) string {
	trimmed := strings.TrimRight(id, "/")
	if index := strings.LastIndexByte(trimmed, '/'); index >= 0 {
		trimmed = trimmed[index+1:]
	}
	return strings.ToLower(trimmed)
}

// isMiss reports a lookup that found nothing: 404, or 400 for an input
// that is not a well-formed ID.
func isMiss(err error) bool {
	return access.IsNotFound(err) || access.StatusCode(err) == http.StatusBadRequest
}

// isPermanent reports failures that retrying the same call cannot fix.
func isPermanent(err error) bool {
	status := access.StatusCode(err)
	return status == http.StatusForbidden || status == http.StatusNotFound
}
