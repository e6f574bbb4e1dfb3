// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/netutil"
)

// DefaultAuthorityHost is the public cloud sign-in host.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

// DefaultPublicClientID is the well-known first-party public client
// used for delegated sign-in when no application is configured.
const DefaultPublicClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

// AuthorityURL returns the tenant-specific authority URL.
func AuthorityURL(host, tenant string) string {
	if host == "" {
		host = DefaultAuthorityHost
	}
	if tenant == "" {
		tenant = "organizations"
	}
	return strings.TrimRight(host, "/") + "/" + tenant
}

// identityEndpoint talks to the OAuth 2.0 endpoints of one authority.
type identityEndpoint struct {
	authority  string
	clientID   string
	httpClient *http.Client
	clock      clock.Clock
	provider   Kind
}

func (endpoint *identityEndpoint) tokenURL() string {
	return endpoint.authority + "/oauth2/v2.0/token"
}

// tokenResponse is the success body of the token endpoint.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    flexibleInt64 `json:"expires_in"`
	TokenType    string        `json:"token_type"`
}

// oauthError is the error body of the identity platform.
type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	ErrorCodes  []int  `json:"error_codes"`
	SubError    string `json:"suberror"`
	Claims      string `json:"claims"`
}

// flexibleInt64 decodes a JSON number or a numeric string. The identity
// endpoints disagree on which they send.
type flexibleInt64 int64

func (value *flexibleInt64) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	if text == "" || text == "null" {
		*value = 0
		return nil
	}
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("token: invalid numeric value %s", data)
	}
	*value = flexibleInt64(parsed)
	return nil
}

// exchange posts form to the token endpoint. On a structured identity
// platform error it returns the decoded error with a nil Go error so
// callers can react to specific codes (the device code flow polls on
// authorization_pending).
func (endpoint *identityEndpoint) exchange(ctx context.Context, form url.Values) (Token, *oauthError, error) {
	form.Set("client_id", endpoint.clientID)
	return endpoint.postForm(ctx, endpoint.tokenURL(), form)
}

func (endpoint *identityEndpoint) postForm(ctx context.Context, target string, form url.Values) (Token, *oauthError, error) {
	body, statusCode, err := endpoint.post(ctx, target, form)
	if err != nil {
		return Token{}, nil, err
	}

	if statusCode != http.StatusOK {
		var failure oauthError
		if json.Unmarshal(body, &failure) == nil && failure.Code != "" {
			return Token{}, &failure, nil
		}
		return Token{}, nil, &AuthenticationError{
			Provider: endpoint.provider,
			Message:  fmt.Sprintf("token endpoint returned HTTP %d: %s", statusCode, strings.TrimSpace(string(body))),
		}
	}

	var response tokenResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Token{}, nil, &AuthenticationError{Provider: endpoint.provider, Message: "decoding token response", Err: err}
	}
	if response.AccessToken == "" {
		return Token{}, nil, &AuthenticationError{Provider: endpoint.provider, Message: "token response carries no access_token"}
	}
	return Token{
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
		ExpiresAt:    endpoint.clock.Now().Add(time.Duration(response.ExpiresIn) * time.Second),
	}, nil, nil
}

// post sends a form and returns the bounded body and status.
func (endpoint *identityEndpoint) post(ctx context.Context, target string, form url.Values) ([]byte, int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("token: creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")

	response, err := endpoint.httpClient.Do(request)
	if err != nil {
		return nil, 0, &AuthenticationError{Provider: endpoint.provider, Message: "contacting identity endpoint", Err: err}
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, 0, &AuthenticationError{Provider: endpoint.provider, Message: "reading identity endpoint response", Err: err}
	}
	return body, response.StatusCode, nil
}

// refresh redeems a refresh token.
func (endpoint *identityEndpoint) refresh(ctx context.Context, scopes []string, refreshToken string) (Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {joinScopes(scopes)},
	}
	token, failure, err := endpoint.exchange(ctx, form)
	if err != nil {
		return Token{}, err
	}
	if failure != nil {
		return Token{}, classify(endpoint.provider, failure)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// mfaErrorCodes are the AADSTS codes that mean a stronger sign-in is
// required: 50076 (MFA required), 50079 (MFA enrollment required),
// 50158 (external security challenge).
var mfaErrorCodes = map[int]bool{50076: true, 50079: true, 50158: true}

// classify turns an identity platform error into AuthenticationError or
// MFARequiredError.
func classify(provider Kind, failure *oauthError) error {
	base := AuthenticationError{Provider: provider, Code: failure.Code, Message: failure.Description}
	if isMFAChallenge(failure) {
		return &MFARequiredError{AuthenticationError: base, Claims: failure.Claims}
	}
	return &base
}

func isMFAChallenge(failure *oauthError) bool {
	for _, code := range failure.ErrorCodes {
		if mfaErrorCodes[code] {
			return true
		}
	}
	if failure.Code == "interaction_required" && failure.Claims != "" {
		return true
	}
	return mentionsMFA(failure.Description)
}

// mentionsMFA reports whether free text describes a multi-factor
// requirement.
func mentionsMFA(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{"aadsts50076", "aadsts50079", "aadsts50158", "multi-factor", "multifactor", "mfa"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// delegatedScopes adds offline_access so delegated flows receive a
// refresh token.
func delegatedScopes(audience Audience, scopes []string) []string {
	if len(scopes) == 0 {
		scopes = []string{audience.DefaultScope()}
	}
	for _, scope := range scopes {
		if scope == "offline_access" {
			return scopes
		}
	}
	return append(append([]string(nil), scopes...), "offline_access")
}

func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// checkUsable rejects tokens that are already expired.
func checkUsable(provider Kind, token Token, now time.Time) (Token, error) {
	if token.AccessToken == "" {
		return Token{}, &AuthenticationError{Provider: provider, Message: "provider returned an empty token"}
	}
	if !token.ExpiresAt.After(now) {
		return Token{}, &AuthenticationError{Provider: provider, Message: fmt.Sprintf("provider returned a token that expired at %s", token.ExpiresAt.Format(time.RFC3339))}
	}
	return token, nil
}
