// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/secret"
)

// ClientCredentialsConfig configures a ClientCredentials provider.
type ClientCredentialsConfig struct {
	// AuthorityURL is the tenant authority. The tenant must be a real
	// tenant, not "organizations" or "common".
	AuthorityURL string

	// ClientID is the application (client) ID. Required.
	ClientID string

	// ClientSecret is borrowed, not closed by the provider. Required.
	ClientSecret *secret.Buffer

	HTTPClient *http.Client
	Clock      clock.Clock
}

// ClientCredentials acquires app-only tokens with a client secret.
type ClientCredentials struct {
	endpoint identityEndpoint
	secret   *secret.Buffer
}

// NewClientCredentials creates a ClientCredentials provider.
func NewClientCredentials(config ClientCredentialsConfig) (*ClientCredentials, error) {
	if config.ClientID == "" {
		return nil, fmt.Errorf("token: client credentials require a client ID")
	}
	if config.ClientSecret == nil || config.ClientSecret.Len() == 0 {
		return nil, fmt.Errorf("token: client credentials require a client secret")
	}
	return &ClientCredentials{
		endpoint: newIdentityEndpoint(KindClientCredentials, config.AuthorityURL, config.ClientID, config.HTTPClient, config.Clock),
		secret:   config.ClientSecret,
	}, nil
}

// Kind returns KindClientCredentials.
func (provider *ClientCredentials) Kind() Kind { return KindClientCredentials }

// Acquire requests a token for the audience's default scope. scopes is
// ignored: app-only tokens carry the application's granted roles.
func (provider *ClientCredentials) Acquire(ctx context.Context, audience Audience, _ []string) (Token, error) {
	token, failure, err := provider.endpoint.exchange(ctx, url.Values{
		"grant_type":    {"client_credentials"},
		"client_secret": {provider.secret.String()},
		"scope":         {audience.DefaultScope()},
	})
	if err != nil {
		return Token{}, err
	}
	if failure != nil {
		return Token{}, classify(KindClientCredentials, failure)
	}
	return checkUsable(KindClientCredentials, token, provider.endpoint.clock.Now())
}
