// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/pim/lib/clock"
)

// DefaultMargin is how long before expiry a cached token stops being
// handed out.
const DefaultMargin = 5 * time.Minute

// BrokerConfig configures a Broker.
type BrokerConfig struct {
	// Provider acquires new tokens. Required.
	Provider Provider

	// Scopes lists the delegated scopes requested per audience. An
	// audience without an entry requests its default scope.
	Scopes map[Audience][]string

	// Store persists tokens. Nil keeps them in memory only.
	Store Store

	// Margin defaults to DefaultMargin.
	Margin time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Broker hands out tokens per audience from one provider, caching them
// until they come within the margin of expiry.
type Broker struct {
	provider Provider
	scopes   map[Audience][]string
	store    Store
	margin   time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	loaded  bool
	records map[Audience]Record
}

// NewBroker creates a Broker and reads the persistent cache once.
func NewBroker(config BrokerConfig) (*Broker, error) {
	if config.Provider == nil {
		return nil, errors.New("token: broker requires a provider")
	}
	broker := &Broker{
		provider: config.Provider,
		scopes:   config.Scopes,
		store:    config.Store,
		margin:   config.Margin,
		clock:    config.Clock,
		logger:   config.Logger,
		records:  map[Audience]Record{},
	}
	if broker.store == nil {
		broker.store = NewMemoryStore()
	}
	if broker.margin <= 0 {
		broker.margin = DefaultMargin
	}
	if broker.clock == nil {
		broker.clock = clock.Real()
	}
	if broker.logger == nil {
		broker.logger = slog.Default()
	}
	broker.logger = broker.logger.With("component", "token_broker", "provider", config.Provider.Kind())
	// Not yet shared, so no lock.
	broker.loadLocked()
	return broker, nil
}

// ProviderKind reports which strategy the broker acquires with.
func (broker *Broker) ProviderKind() Kind { return broker.provider.Kind() }

// Token returns an access token for audience that is valid for longer
// than the margin.
func (broker *Broker) Token(ctx context.Context, audience Audience) (string, error) {
	record, err := broker.current(ctx, audience)
	if err != nil {
		return "", err
	}
	return record.AccessToken, nil
}

// AuthorizationHeader returns "Bearer <token>" for audience.
func (broker *Broker) AuthorizationHeader(ctx context.Context, audience Audience) (string, error) {
	accessToken, err := broker.Token(ctx, audience)
	if err != nil {
		return "", err
	}
	return "Bearer " + accessToken, nil
}

// Subject returns the identity claims of the token for audience.
func (broker *Broker) Subject(ctx context.Context, audience Audience) (Claims, error) {
	accessToken, err := broker.Token(ctx, audience)
	if err != nil {
		return Claims{}, err
	}
	claims, err := ParseClaims(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.ObjectID == "" {
		return Claims{}, fmt.Errorf("token: %s token carries no oid claim", audience)
	}
	return claims, nil
}

// Cached reports the expiry of the cached token for audience without
// acquiring anything.
func (broker *Broker) Cached(audience Audience) (time.Time, bool) {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	broker.loadLocked()
	record, ok := broker.records[audience]
	if !ok {
		return time.Time{}, false
	}
	return record.ExpiresAt, true
}

// Clear forgets every cached token, in memory and in the store.
func (broker *Broker) Clear() error {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	broker.records = map[Audience]Record{}
	broker.loaded = true
	return broker.store.Clear()
}

func (broker *Broker) current(ctx context.Context, audience Audience) (Record, error) {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	broker.loadLocked()
	now := broker.clock.Now()

	record, cached := broker.records[audience]
	if cached && now.Before(record.ExpiresAt.Add(-broker.margin)) {
		return record, nil
	}

	token, err := broker.obtain(ctx, audience, record, cached)
	if err != nil {
		return Record{}, err
	}

	record = Record{
		Audience:     audience,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
	}
	broker.records[audience] = record
	if err := broker.store.Save(broker.records); err != nil {
		broker.logger.Warn("token cache write failed", "error", err)
	}
	return record, nil
}

// obtain tries a silent refresh before a full acquisition.
func (broker *Broker) obtain(ctx context.Context, audience Audience, previous Record, cached bool) (Token, error) {
	scopes := broker.scopes[audience]
	if refresher, ok := broker.provider.(Refresher); ok && cached && previous.RefreshToken != "" {
		token, err := refresher.Refresh(ctx, audience, scopes, previous.RefreshToken)
		if err == nil {
			if usable, err := checkUsable(broker.provider.Kind(), token, broker.clock.Now()); err == nil {
				broker.logger.Debug("token refreshed", "audience", audience, "expires_at", usable.ExpiresAt)
				return usable, nil
			}
		} else {
			broker.logger.Debug("silent refresh failed, acquiring", "audience", audience, "error", err)
		}
	}

	token, err := broker.provider.Acquire(ctx, audience, scopes)
	if err != nil {
		return Token{}, err
	}
	token, err = checkUsable(broker.provider.Kind(), token, broker.clock.Now())
	if err != nil {
		return Token{}, err
	}
	broker.logger.Info("token acquired", "audience", audience, "expires_at", token.ExpiresAt)
	return token, nil
}

// loadLocked reads the store once. Must be called with mu held.
func (broker *Broker) loadLocked() {
	if broker.loaded {
		return
	}
	broker.loaded = true
	records, err := broker.store.Load()
	if err != nil {
		broker.logger.Warn("ignoring unreadable token cache", "error", err)
		return
	}
	for audience, record := range records {
		broker.records[audience] = record
	}
}
