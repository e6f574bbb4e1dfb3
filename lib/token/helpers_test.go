// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// signedToken builds an HS256 JWT carrying claims. Signatures are never
// verified by this package; the token only needs to be well formed.
func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

// countingProvider hands out numbered tokens with a fixed lifetime.
type countingProvider struct {
	mu       sync.Mutex
	kind     Kind
	now      func() time.Time
	lifetime time.Duration
	refresh  string
	acquired int
	err      error
}

func (provider *countingProvider) Kind() Kind {
	if provider.kind == "" {
		return KindInteractive
	}
	return provider.kind
}

func (provider *countingProvider) Acquire(_ context.Context, audience Audience, _ []string) (Token, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	if provider.err != nil {
		return Token{}, provider.err
	}
	provider.acquired++
	return Token{
		AccessToken:  string(audience) + "#" + string(rune('0'+provider.acquired)),
		RefreshToken: provider.refresh,
		ExpiresAt:    provider.now().Add(provider.lifetime),
	}, nil
}

func (provider *countingProvider) count() int {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return provider.acquired
}

// refreshingProvider adds Refresh to countingProvider.
type refreshingProvider struct {
	countingProvider
	refreshed   int
	refreshFail bool
}

func (provider *refreshingProvider) Refresh(_ context.Context, audience Audience, _ []string, refreshToken string) (Token, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	if provider.refreshFail {
		return Token{}, &AuthenticationError{Provider: KindInteractive, Code: "invalid_grant"}
	}
	provider.refreshed++
	return Token{
		AccessToken:  string(audience) + "#refreshed",
		RefreshToken: refreshToken,
		ExpiresAt:    provider.now().Add(provider.lifetime),
	}, nil
}

func mapLookup(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		value, ok := values[name]
		return value, ok
	}
}
