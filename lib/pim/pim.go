// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/roles"
	"github.com/bureau-foundation/pim/lib/scope"
	"github.com/bureau-foundation/pim/lib/token"
)

const (
	// DefaultDuration is the activation length when a request names
	// none.
	DefaultDuration = time.Hour

	// DefaultPollInterval is how often Wait re-reads a request.
	DefaultPollInterval = 10 * time.Second
)

// Authority is the surface of one authority the facade uses.
// *authority.Resource implements it.
type Authority interface {
	access.Backend
	roles.Lookup

	ListEligible(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error)
	ListActive(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error)
}

// DirectoryAuthority adds the directory-only reads.
// *authority.Directory implements it.
type DirectoryAuthority interface {
	Authority

	Me(ctx context.Context) (access.Principal, error)
	Policy(ctx context.Context, roleDefinitionID string) (access.RolePolicy, error)
}

// Broker supplies the caller's identity. *token.Broker implements it.
type Broker interface {
	ProviderKind() token.Kind
	Token(ctx context.Context, audience token.Audience) (string, error)
	Subject(ctx context.Context, audience token.Audience) (token.Claims, error)
	Cached(audience token.Audience) (time.Time, bool)
	Clear() error
}

// Config configures a PIM. Broker and at least one authority are
// required.
type Config struct {
	Broker Broker

	Directory DirectoryAuthority
	Resource  Authority

	// Resolver defaults to one built over the configured authorities.
	Resolver *roles.Resolver

	// Engine defaults to access.NewEngine with Clock and Logger.
	Engine *access.Engine

	// DefaultDuration applies to activations and extensions that
	// carry no duration. Defaults to DefaultDuration.
	DefaultDuration time.Duration

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// PIM runs privileged-access operations on behalf of the broker's
// identity.
type PIM struct {
	broker          Broker
	directory       DirectoryAuthority
	resource        Authority
	resolver        *roles.Resolver
	engine          *access.Engine
	defaultDuration time.Duration
	pollInterval    time.Duration
	clock           clock.Clock
	logger          *slog.Logger
}

// New creates a PIM.
func New(config Config) (*PIM, error) {
	if config.Broker == nil {
		return nil, errors.New("pim: broker is required")
	}
	if config.Directory == nil && config.Resource == nil {
		return nil, errors.New("pim: at least one authority is required")
	}

	facade := &PIM{
		broker:          config.Broker,
		directory:       config.Directory,
		resource:        config.Resource,
		resolver:        config.Resolver,
		engine:          config.Engine,
		defaultDuration: config.DefaultDuration,
		pollInterval:    config.PollInterval,
		clock:           config.Clock,
		logger:          config.Logger,
	}
	if facade.clock == nil {
		facade.clock = clock.Real()
	}
	if facade.logger == nil {
		facade.logger = slog.Default()
	}
	facade.logger = facade.logger.With("component", "pim")
	if facade.defaultDuration <= 0 {
		facade.defaultDuration = DefaultDuration
	}
	if facade.pollInterval <= 0 {
		facade.pollInterval = DefaultPollInterval
	}
	if facade.engine == nil {
		facade.engine = access.NewEngine(access.EngineConfig{Clock: facade.clock, Logger: facade.logger})
	}
	if facade.resolver == nil {
		resolverConfig := roles.Config{Logger: facade.logger}
		if facade.directory != nil {
			resolverConfig.Directory = facade.directory
		}
		if facade.resource != nil {
			resolverConfig.Resource = facade.resource
		}
		resolver, err := roles.New(resolverConfig)
		if err != nil {
			return nil, fmt.Errorf("pim: %w", err)
		}
		facade.resolver = resolver
	}
	return facade, nil
}

// Resolver returns the role resolver.
func (facade *PIM) Resolver() *roles.Resolver { return facade.resolver }

// authority picks the authority that owns target.
func (facade *PIM) authority(target scope.Scope) (Authority, error) {
	if target == nil {
		return nil, errors.New("pim: scope is required")
	}
	switch target.Kind() {
	case scope.KindDirectory:
		if facade.directory != nil {
			return facade.directory, nil
		}
	case scope.KindResource:
		if facade.resource != nil {
			return facade.resource, nil
		}
	default:
		return nil, fmt.Errorf("pim: unsupported scope kind %q", target.Kind())
	}
	return nil, fmt.Errorf("pim: no %s authority configured", target.Kind())
}

// Audience returns the token audience of the authority that owns
// kind.
func Audience(kind scope.Kind) token.Audience {
	if kind == scope.KindDirectory {
		return token.AudienceGraph
	}
	return token.AudienceResourceManager
}

// principal returns principalID, or the broker identity's object ID
// when it is empty. The directory's /me is consulted when the token
// carries no oid claim.
func (facade *PIM) principal(ctx context.Context, kind scope.Kind, principalID string) (string, error) {
	if principalID != "" {
		return principalID, nil
	}
	claims, err := facade.broker.Subject(ctx, Audience(kind))
	if err == nil {
		return claims.ObjectID, nil
	}
	if token.IsAuthentication(err) || facade.directory == nil {
		return "", err
	}
	facade.logger.Debug("token carries no identity, asking the directory", "error", err)
	me, meErr := facade.directory.Me(ctx)
	if meErr != nil {
		return "", fmt.Errorf("pim: determining current principal: %w", errors.Join(err, meErr))
	}
	return me.ID, nil
}
