// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/netutil"
)

// InstanceMetadataEndpoint is the link-local instance metadata token
// endpoint available on virtual machines.
const InstanceMetadataEndpoint = "http://169.254.169.254/metadata/identity/oauth2/token"

// ManagedIdentityConfig configures a ManagedIdentity provider. Use
// ManagedIdentityFromEnvironment to fill it from the platform's
// variables.
type ManagedIdentityConfig struct {
	// Endpoint is the token endpoint. Defaults to
	// InstanceMetadataEndpoint.
	Endpoint string

	// IdentityHeader is the App Service secret sent as
	// X-IDENTITY-HEADER. When set, the App Service protocol
	// (api-version 2019-08-01) is used.
	IdentityHeader string

	// LegacySecret is the MSI_SECRET of older App Service hosts, sent
	// as the "secret" header with api-version 2017-09-01.
	LegacySecret string

	// ClientID selects a user-assigned identity. Empty uses the
	// system-assigned identity.
	ClientID string

	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client
	Clock      clock.Clock
}

// ManagedIdentityFromEnvironment reads IDENTITY_ENDPOINT and
// IDENTITY_HEADER, falling back to MSI_ENDPOINT and MSI_SECRET.
func ManagedIdentityFromEnvironment(lookup func(string) (string, bool)) ManagedIdentityConfig {
	var config ManagedIdentityConfig
	if endpoint, ok := lookup("IDENTITY_ENDPOINT"); ok && endpoint != "" {
		config.Endpoint = endpoint
		config.IdentityHeader, _ = lookup("IDENTITY_HEADER")
		return config
	}
	if endpoint, ok := lookup("MSI_ENDPOINT"); ok && endpoint != "" {
		config.Endpoint = endpoint
		config.LegacySecret, _ = lookup("MSI_SECRET")
	}
	return config
}

// ManagedIdentity acquires tokens from the hosting platform's identity
// endpoint.
type ManagedIdentity struct {
	config     ManagedIdentityConfig
	httpClient *http.Client
	clock      clock.Clock
}

// NewManagedIdentity creates a ManagedIdentity provider.
func NewManagedIdentity(config ManagedIdentityConfig) *ManagedIdentity {
	if config.Endpoint == "" {
		config.Endpoint = InstanceMetadataEndpoint
	}
	provider := &ManagedIdentity{config: config, httpClient: config.HTTPClient, clock: config.Clock}
	if provider.httpClient == nil {
		provider.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if provider.clock == nil {
		provider.clock = clock.Real()
	}
	return provider
}

// Kind returns KindManagedIdentity.
func (provider *ManagedIdentity) Kind() Kind { return KindManagedIdentity }

// managedIdentityResponse covers the instance metadata and App Service
// shapes. expires_in and expires_on arrive as numbers or strings.
type managedIdentityResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   flexibleInt64 `json:"expires_in"`
	ExpiresOn   flexibleInt64 `json:"expires_on"`
	Error       string        `json:"error"`
	Description string        `json:"error_description"`
	Message     string        `json:"message"`
}

// Acquire requests a token for audience from the identity endpoint.
func (provider *ManagedIdentity) Acquire(ctx context.Context, audience Audience, _ []string) (Token, error) {
	query := url.Values{"resource": {string(audience)}}
	switch {
	case provider.config.IdentityHeader != "":
		query.Set("api-version", "2019-08-01")
	case provider.config.LegacySecret != "":
		query.Set("api-version", "2017-09-01")
	default:
		query.Set("api-version", "2018-02-01")
	}
	if provider.config.ClientID != "" {
		if provider.config.LegacySecret != "" {
			query.Set("clientid", provider.config.ClientID)
		} else {
			query.Set("client_id", provider.config.ClientID)
		}
	}

	separator := "?"
	if strings.Contains(provider.config.Endpoint, "?") {
		separator = "&"
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.config.Endpoint+separator+query.Encode(), nil)
	if err != nil {
		return Token{}, &AuthenticationError{Provider: KindManagedIdentity, Message: "creating request", Err: err}
	}
	request.Header.Set("Metadata", "true")
	if provider.config.IdentityHeader != "" {
		request.Header.Set("X-IDENTITY-HEADER", provider.config.IdentityHeader)
	}
	if provider.config.LegacySecret != "" {
		request.Header.Set("secret", provider.config.LegacySecret)
	}

	response, err := provider.httpClient.Do(request)
	if err != nil {
		return Token{}, &AuthenticationError{Provider: KindManagedIdentity, Message: "managed identity endpoint unreachable", Err: err}
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return Token{}, &AuthenticationError{Provider: KindManagedIdentity, Message: "reading response", Err: err}
	}

	var decoded managedIdentityResponse
	decodeErr := json.Unmarshal(body, &decoded)
	if response.StatusCode != http.StatusOK {
		message := decoded.Description
		if message == "" {
			message = decoded.Message
		}
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return Token{}, &AuthenticationError{
			Provider: KindManagedIdentity,
			Code:     decoded.Error,
			Message:  fmt.Sprintf("HTTP %d: %s", response.StatusCode, message),
		}
	}
	if decodeErr != nil {
		return Token{}, &AuthenticationError{Provider: KindManagedIdentity, Message: "decoding response", Err: decodeErr}
	}
	if decoded.AccessToken == "" {
		return Token{}, &AuthenticationError{Provider: KindManagedIdentity, Message: "response carries no access token"}
	}

	now := provider.clock.Now()
	var expiresAt time.Time
	switch {
	case decoded.ExpiresOn > 0:
		expiresAt = time.Unix(int64(decoded.ExpiresOn), 0)
	case decoded.ExpiresIn > 0:
		expiresAt = now.Add(time.Duration(decoded.ExpiresIn) * time.Second)
	default:
		if fromClaims, ok := expiryFromClaims(decoded.AccessToken); ok {
			expiresAt = fromClaims
		}
	}
	return checkUsable(KindManagedIdentity, Token{AccessToken: decoded.AccessToken, ExpiresAt: expiresAt}, now)
}
