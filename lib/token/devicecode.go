// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bureau-foundation/pim/lib/clock"
)

// DeviceCodeConfig configures a DeviceCode provider.
type DeviceCodeConfig struct {
	// AuthorityURL is the tenant authority (see AuthorityURL).
	AuthorityURL string

	// ClientID defaults to DefaultPublicClientID.
	ClientID string

	// Display receives the sign-in instructions (URL and user code).
	// Required.
	Display func(message string)

	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *slog.Logger
}

// DeviceCode signs in through the device authorization grant: the user
// enters a short code on another device while this process polls.
type DeviceCode struct {
	endpoint identityEndpoint
	display  func(string)
	logger   *slog.Logger
}

// NewDeviceCode creates a DeviceCode provider.
func NewDeviceCode(config DeviceCodeConfig) (*DeviceCode, error) {
	if config.Display == nil {
		return nil, fmt.Errorf("token: device code provider requires a Display callback")
	}
	endpoint := newIdentityEndpoint(KindDeviceCode, config.AuthorityURL, config.ClientID, config.HTTPClient, config.Clock)
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceCode{endpoint: endpoint, display: config.Display, logger: logger}, nil
}

// Kind returns KindDeviceCode.
func (provider *DeviceCode) Kind() Kind { return KindDeviceCode }

// deviceAuthorization is the device code endpoint's response.
type deviceAuthorization struct {
	DeviceCode      string        `json:"device_code"`
	UserCode        string        `json:"user_code"`
	VerificationURI string        `json:"verification_uri"`
	ExpiresIn       flexibleInt64 `json:"expires_in"`
	Interval        flexibleInt64 `json:"interval"`
	Message         string        `json:"message"`
}

const (
	defaultPollInterval = 5 * time.Second
	slowDownIncrement   = 5 * time.Second

	// defaultCodeLifetime bounds polling when the endpoint omits
	// expires_in.
	defaultCodeLifetime = 15 * time.Minute
)

// Acquire starts a device authorization, shows the instructions once,
// and polls until the user completes sign-in, the code expires, or ctx
// is done.
func (provider *DeviceCode) Acquire(ctx context.Context, audience Audience, scopes []string) (Token, error) {
	requested := delegatedScopes(audience, scopes)
	body, statusCode, err := provider.endpoint.post(ctx, provider.endpoint.authority+"/oauth2/v2.0/devicecode", url.Values{
		"client_id": {provider.endpoint.clientID},
		"scope":     {joinScopes(requested)},
	})
	if err != nil {
		return Token{}, err
	}
	if statusCode != http.StatusOK {
		var failure oauthError
		if json.Unmarshal(body, &failure) == nil && failure.Code != "" {
			return Token{}, classify(KindDeviceCode, &failure)
		}
		return Token{}, &AuthenticationError{Provider: KindDeviceCode, Message: fmt.Sprintf("device code endpoint returned HTTP %d", statusCode)}
	}

	var authorization deviceAuthorization
	if err := json.Unmarshal(body, &authorization); err != nil || authorization.DeviceCode == "" {
		return Token{}, &AuthenticationError{Provider: KindDeviceCode, Message: "device code response is malformed", Err: err}
	}

	message := authorization.Message
	if message == "" {
		message = fmt.Sprintf("To sign in, open %s and enter the code %s", authorization.VerificationURI, authorization.UserCode)
	}
	provider.display(message)

	interval := time.Duration(authorization.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}
	lifetime := time.Duration(authorization.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = defaultCodeLifetime
	}
	deadline := provider.endpoint.clock.Now().Add(lifetime)

	for {
		select {
		case <-provider.endpoint.clock.After(interval):
		case <-ctx.Done():
			return Token{}, &AuthenticationError{Provider: KindDeviceCode, Message: "sign-in abandoned", Err: ctx.Err()}
		}
		if !provider.endpoint.clock.Now().Before(deadline) {
			return Token{}, &AuthenticationError{Provider: KindDeviceCode, Code: "expired_token", Message: "the device code expired before sign-in completed"}
		}

		token, failure, err := provider.endpoint.exchange(ctx, url.Values{
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
			"device_code": {authorization.DeviceCode},
		})
		if err != nil {
			return Token{}, err
		}
		if failure == nil {
			return checkUsable(KindDeviceCode, token, provider.endpoint.clock.Now())
		}

		switch failure.Code {
		case "authorization_pending":
			continue
		case "slow_down":
			interval += slowDownIncrement
			provider.logger.Debug("device code polling slowed", "interval", interval)
			continue
		default:
			return Token{}, classify(KindDeviceCode, failure)
		}
	}
}

// Refresh redeems a refresh token from an earlier sign-in.
func (provider *DeviceCode) Refresh(ctx context.Context, audience Audience, scopes []string, refreshToken string) (Token, error) {
	return provider.endpoint.refresh(ctx, delegatedScopes(audience, scopes), refreshToken)
}

func newIdentityEndpoint(kind Kind, authority, clientID string, httpClient *http.Client, clk clock.Clock) identityEndpoint {
	if authority == "" {
		authority = AuthorityURL("", "")
	}
	if clientID == "" {
		clientID = DefaultPublicClientID
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if clk == nil {
		clk = clock.Real()
	}
	return identityEndpoint{
		authority:  authority,
		clientID:   clientID,
		httpClient: httpClient,
		clock:      clk,
		provider:   kind,
	}
}
