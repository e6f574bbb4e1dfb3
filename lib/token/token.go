// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Audience is the resource a token is issued for.
type Audience string

const (
	// AudienceGraph is the directory authority.
	AudienceGraph Audience = "https://graph.microsoft.com"

	// AudienceResourceManager is the resource authority.
	AudienceResourceManager Audience = "https://management.azure.com"
)

// DefaultScope returns the "{audience}/.default" scope used by
// app-only flows.
func (a Audience) DefaultScope() string {
	return strings.TrimRight(string(a), "/") + "/.default"
}

// Token is an access token with its expiry and, for delegated flows,
// a refresh token.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Kind names a provider strategy.
type Kind string

const (
	KindInteractive       Kind = "interactive"
	KindDeviceCode        Kind = "device-code"
	KindClientCredentials Kind = "client-credentials"
	KindManagedIdentity   Kind = "managed-identity"
	KindHostCLI           Kind = "host-cli"
)

// Kinds lists every provider kind.
var Kinds = []Kind{KindInteractive, KindDeviceCode, KindClientCredentials, KindManagedIdentity, KindHostCLI}

// ParseKind reads a provider kind. "auto" and "" return the empty Kind,
// meaning select from the environment.
func ParseKind(text string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" || normalized == "auto" {
		return "", nil
	}
	for _, kind := range Kinds {
		if normalized == string(kind) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("token: unknown provider %q (want one of auto, %s)", text, joinKinds())
}

func joinKinds() string {
	names := make([]string, len(Kinds))
	for index, kind := range Kinds {
		names[index] = string(kind)
	}
	return strings.Join(names, ", ")
}

// Provider obtains tokens with one strategy.
type Provider interface {
	// Kind identifies the strategy.
	Kind() Kind

	// Acquire obtains a new token for audience. Delegated providers
	// request scopes; app-only providers request the audience's
	// default scope and ignore scopes.
	Acquire(ctx context.Context, audience Audience, scopes []string) (Token, error)
}

// Refresher is implemented by providers that can exchange a refresh
// token without user interaction.
type Refresher interface {
	Refresh(ctx context.Context, audience Audience, scopes []string, refreshToken string) (Token, error)
}
