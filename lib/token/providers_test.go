// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/secret"
)

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

func testSecret(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestClientCredentialsAcquire(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/tenant-1/oauth2/v2.0/token" {
			t.Errorf("path = %q", request.URL.Path)
		}
		if err := request.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		form = request.PostForm
		writeJSON(writer, http.StatusOK, map[string]any{"access_token": "app-token", "expires_in": "3599", "token_type": "Bearer"})
	}))
	defer server.Close()

	fake := clock.Fake(epoch)
	provider, err := NewClientCredentials(ClientCredentialsConfig{
		AuthorityURL: AuthorityURL(server.URL, "tenant-1"),
		ClientID:     "client-1",
		ClientSecret: testSecret(t, "s3cret"),
		Clock:        fake,
	})
	if err != nil {
		t.Fatalf("NewClientCredentials: %v", err)
	}

	token, err := provider.Acquire(context.Background(), AudienceResourceManager, []string{"ignored"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if token.AccessToken != "app-token" {
		t.Errorf("AccessToken = %q, want app-token", token.AccessToken)
	}
	if want := epoch.Add(3599 * time.Second); !token.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", token.ExpiresAt, want)
	}
	if form.Get("grant_type") != "client_credentials" {
		t.Errorf("grant_type = %q", form.Get("grant_type"))
	}
	if form.Get("client_id") != "client-1" || form.Get("client_secret") != "s3cret" {
		t.Errorf("client_id/client_secret = %q/%q", form.Get("client_id"), form.Get("client_secret"))
	}
	if form.Get("scope") != "https://management.azure.com/.default" {
		t.Errorf("scope = %q, want the default scope", form.Get("scope"))
	}
}

func TestClientCredentialsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusUnauthorized, map[string]any{
			"error":             "invalid_client",
			"error_description": "AADSTS7000215: Invalid client secret provided.",
			"error_codes":       []int{7000215},
		})
	}))
	defer server.Close()

	provider, err := NewClientCredentials(ClientCredentialsConfig{
		AuthorityURL: AuthorityURL(server.URL, "tenant-1"),
		ClientID:     "client-1",
		ClientSecret: testSecret(t, "wrong"),
	})
	if err != nil {
		t.Fatalf("NewClientCredentials: %v", err)
	}

	_, err = provider.Acquire(context.Background(), AudienceGraph, nil)
	var authenticationError *AuthenticationError
	if !errors.As(err, &authenticationError) {
		t.Fatalf("Acquire error = %v, want AuthenticationError", err)
	}
	if authenticationError.Code != "invalid_client" {
		t.Errorf("Code = %q, want invalid_client", authenticationError.Code)
	}
	if IsMFARequired(err) {
		t.Error("invalid_client classified as an MFA challenge")
	}
}

func TestNewClientCredentialsValidation(t *testing.T) {
	if _, err := NewClientCredentials(ClientCredentialsConfig{ClientSecret: testSecret(t, "x")}); err == nil {
		t.Error("missing client ID accepted")
	}
	if _, err := NewClientCredentials(ClientCredentialsConfig{ClientID: "client-1"}); err == nil {
		t.Error("missing client secret accepted")
	}
}

func TestClassifyMFA(t *testing.T) {
	tests := []struct {
		name    string
		failure oauthError
		want    bool
	}{
		{"error code 50076", oauthError{Code: "invalid_grant", ErrorCodes: []int{50076}}, true},
		{"error code 50079", oauthError{Code: "invalid_grant", ErrorCodes: []int{50079}}, true},
		{"interaction with claims", oauthError{Code: "interaction_required", Claims: `{"access_token":{"acrs":{"essential":true}}}`}, true},
		{"description marker", oauthError{Code: "invalid_grant", Description: "Due to a configuration change you must use multi-factor authentication"}, true},
		{"interaction without claims", oauthError{Code: "interaction_required", Description: "consent required"}, false},
		{"plain failure", oauthError{Code: "invalid_grant", ErrorCodes: []int{70008}, Description: "refresh token expired"}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := classify(KindInteractive, &test.failure)
			if got := IsMFARequired(err); got != test.want {
				t.Errorf("IsMFARequired = %v, want %v (err = %v)", got, test.want, err)
			}
			if !IsAuthentication(err) {
				t.Errorf("classify result %v is not an AuthenticationError", err)
			}
		})
	}
}

func TestMFARequiredErrorCarriesClaims(t *testing.T) {
	err := classify(KindDeviceCode, &oauthError{Code: "interaction_required", Claims: "challenge"})
	var mfaError *MFARequiredError
	if !errors.As(err, &mfaError) {
		t.Fatalf("classify = %v, want MFARequiredError", err)
	}
	if mfaError.Claims != "challenge" || mfaError.Provider != KindDeviceCode {
		t.Errorf("MFARequiredError = %+v", mfaError)
	}
}

func TestManagedIdentityAcquire(t *testing.T) {
	expiresOn := epoch.Add(time.Hour).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Metadata") != "true" {
			t.Errorf("Metadata header = %q", request.Header.Get("Metadata"))
		}
		if request.Header.Get("X-IDENTITY-HEADER") != "header-secret" {
			t.Errorf("X-IDENTITY-HEADER = %q", request.Header.Get("X-IDENTITY-HEADER"))
		}
		query := request.URL.Query()
		if query.Get("resource") != string(AudienceGraph) || query.Get("api-version") != "2019-08-01" {
			t.Errorf("query = %v", query)
		}
		if query.Get("client_id") != "user-assigned" {
			t.Errorf("client_id = %q", query.Get("client_id"))
		}
		writeJSON(writer, http.StatusOK, map[string]any{"access_token": "mi-token", "expires_on": fmt.Sprint(expiresOn)})
	}))
	defer server.Close()

	config := ManagedIdentityFromEnvironment(mapLookup(map[string]string{
		"IDENTITY_ENDPOINT": server.URL,
		"IDENTITY_HEADER":   "header-secret",
	}))
	config.ClientID = "user-assigned"
	config.Clock = clock.Fake(epoch)
	provider := NewManagedIdentity(config)

	token, err := provider.Acquire(context.Background(), AudienceGraph, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if token.AccessToken != "mi-token" || token.ExpiresAt.Unix() != expiresOn {
		t.Errorf("token = %+v", token)
	}
}

func TestManagedIdentityNumericExpiresIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Query().Get("api-version") != "2018-02-01" {
			t.Errorf("api-version = %q", request.URL.Query().Get("api-version"))
		}
		writeJSON(writer, http.StatusOK, map[string]any{"access_token": "imds-token", "expires_in": 600})
	}))
	defer server.Close()

	provider := NewManagedIdentity(ManagedIdentityConfig{Endpoint: server.URL, Clock: clock.Fake(epoch)})
	token, err := provider.Acquire(context.Background(), AudienceResourceManager, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if want := epoch.Add(10 * time.Minute); !token.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", token.ExpiresAt, want)
	}
}

func TestManagedIdentityFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "invalid_request", "error_description": "Identity not found"})
	}))
	defer server.Close()

	provider := NewManagedIdentity(ManagedIdentityConfig{Endpoint: server.URL})
	_, err := provider.Acquire(context.Background(), AudienceGraph, nil)
	var authenticationError *AuthenticationError
	if !errors.As(err, &authenticationError) {
		t.Fatalf("Acquire error = %v, want AuthenticationError", err)
	}
	if authenticationError.Code != "invalid_request" || !strings.Contains(authenticationError.Message, "Identity not found") {
		t.Errorf("AuthenticationError = %+v", authenticationError)
	}
}

func TestManagedIdentityFromLegacyEnvironment(t *testing.T) {
	config := ManagedIdentityFromEnvironment(mapLookup(map[string]string{
		"MSI_ENDPOINT": "http://127.0.0.1:41741/MSI/token/",
		"MSI_SECRET":   "legacy",
	}))
	if config.Endpoint != "http://127.0.0.1:41741/MSI/token/" || config.LegacySecret != "legacy" || config.IdentityHeader != "" {
		t.Errorf("config = %+v", config)
	}
	if empty := ManagedIdentityFromEnvironment(mapLookup(nil)); empty.Endpoint != "" {
		t.Errorf("config without variables = %+v", empty)
	}
}

// deviceCodeServer answers the device authorization and then replays
// poll responses in order.
type deviceCodeServer struct {
	mu        sync.Mutex
	responses []func(http.ResponseWriter)
	polls     int
	expiresIn int
}

func (server *deviceCodeServer) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	request.ParseForm()
	switch {
	case strings.HasSuffix(request.URL.Path, "/devicecode"):
		writeJSON(writer, http.StatusOK, map[string]any{
			"device_code":      "device-1",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://microsoft.com/devicelogin",
			"expires_in":       server.expiresIn,
			"interval":         1,
		})
	case strings.HasSuffix(request.URL.Path, "/token"):
		if request.PostForm.Get("device_code") != "device-1" {
			writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			return
		}
		server.mu.Lock()
		index := server.polls
		server.polls++
		server.mu.Unlock()
		if index >= len(server.responses) {
			writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "authorization_pending"})
			return
		}
		server.responses[index](writer)
	default:
		http.NotFound(writer, request)
	}
}

func pending(code string) func(http.ResponseWriter) {
	return func(writer http.ResponseWriter) {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": code})
	}
}

func TestDeviceCodeAcquire(t *testing.T) {
	handler := &deviceCodeServer{
		expiresIn: 900,
		responses: []func(http.ResponseWriter){
			pending("authorization_pending"),
			pending("slow_down"),
			func(writer http.ResponseWriter) {
				writeJSON(writer, http.StatusOK, map[string]any{"access_token": "user-token", "refresh_token": "refresh-1", "expires_in": 3600})
			},
		},
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	fake := clock.Fake(epoch)
	var displayed []string
	var displayMu sync.Mutex
	provider, err := NewDeviceCode(DeviceCodeConfig{
		AuthorityURL: AuthorityURL(server.URL, "tenant-1"),
		Display: func(message string) {
			displayMu.Lock()
			displayed = append(displayed, message)
			displayMu.Unlock()
		},
		Clock: fake,
	})
	if err != nil {
		t.Fatalf("NewDeviceCode: %v", err)
	}

	type outcome struct {
		token Token
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		token, err := provider.Acquire(context.Background(), AudienceGraph, nil)
		done <- outcome{token, err}
	}()

	// First poll: authorization_pending.
	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	// Second poll: slow_down raises the interval to six seconds.
	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	fake.WaitForTimers(1)
	fake.Advance(5 * time.Second)
	if fake.PendingCount() != 1 {
		t.Fatalf("poll fired before the slowed interval elapsed")
	}
	fake.Advance(time.Second)

	result := <-done
	if result.err != nil {
		t.Fatalf("Acquire: %v", result.err)
	}
	if result.token.AccessToken != "user-token" || result.token.RefreshToken != "refresh-1" {
		t.Errorf("token = %+v", result.token)
	}
	displayMu.Lock()
	defer displayMu.Unlock()
	if len(displayed) != 1 || !strings.Contains(displayed[0], "ABCD-EFGH") {
		t.Errorf("displayed = %q, want one message with the user code", displayed)
	}
}

func TestDeviceCodeExpires(t *testing.T) {
	server := httptest.NewServer(&deviceCodeServer{expiresIn: 3})
	defer server.Close()

	fake := clock.Fake(epoch)
	provider, err := NewDeviceCode(DeviceCodeConfig{
		AuthorityURL: AuthorityURL(server.URL, "tenant-1"),
		Display:      func(string) {},
		Clock:        fake,
	})
	if err != nil {
		t.Fatalf("NewDeviceCode: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := provider.Acquire(context.Background(), AudienceGraph, nil)
		done <- err
	}()
	for range 3 {
		fake.WaitForTimers(1)
		fake.Advance(time.Second)
	}

	err = <-done
	var authenticationError *AuthenticationError
	if !errors.As(err, &authenticationError) || authenticationError.Code != "expired_token" {
		t.Fatalf("Acquire error = %v, want expired_token", err)
	}
}

func TestDeviceCodeDefaultLifetime(t *testing.T) {
	handler := &deviceCodeServer{}
	server := httptest.NewServer(handler)
	defer server.Close()

	fake := clock.Fake(epoch)
	provider, err := NewDeviceCode(DeviceCodeConfig{
		AuthorityURL: AuthorityURL(server.URL, "tenant-1"),
		Display:      func(string) {},
		Clock:        fake,
	})
	if err != nil {
		t.Fatalf("NewDeviceCode: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := provider.Acquire(context.Background(), AudienceGraph, nil)
		done <- err
	}()

	// The response carries no expires_in; polling still stops once
	// the default code lifetime has passed.
	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	fake.WaitForTimers(1)
	fake.Advance(defaultCodeLifetime)

	err = <-done
	var authenticationError *AuthenticationError
	if !errors.As(err, &authenticationError) || authenticationError.Code != "expired_token" {
		t.Fatalf("Acquire error = %v, want expired_token", err)
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if handler.polls != 1 {
		t.Errorf("polls = %d, want 1 before the code expired", handler.polls)
	}
}

func TestDeviceCodeCanceled(t *testing.T) {
	server := httptest.NewServer(&deviceCodeServer{expiresIn: 900})
	defer server.Close()

	fake := clock.Fake(epoch)
	provider, err := NewDeviceCode(DeviceCodeConfig{
		AuthorityURL: AuthorityURL(server.URL, "tenant-1"),
		Display:      func(string) {},
		Clock:        fake,
	})
	if err != nil {
		t.Fatalf("NewDeviceCode: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := provider.Acquire(ctx, AudienceGraph, nil)
		done <- err
	}()
	fake.WaitForTimers(1)
	cancel()

	err = <-done
	if !IsAuthentication(err) {
		t.Errorf("Acquire error = %v, want AuthenticationError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire error = %v, want it to wrap context.Canceled", err)
	}
}

func TestDeviceCodeRequiresDisplay(t *testing.T) {
	if _, err := NewDeviceCode(DeviceCodeConfig{}); err == nil {
		t.Fatal("NewDeviceCode without Display should fail")
	}
}

func TestInteractiveAcquire(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		request.ParseForm()
		form = request.PostForm
		writeJSON(writer, http.StatusOK, map[string]any{"access_token": "interactive-token", "refresh_token": "refresh-2", "expires_in": 3600})
	}))
	defer server.Close()

	var authorizeQuery url.Values
	provider := NewInteractive(InteractiveConfig{
		AuthorityURL: AuthorityURL(server.URL, "tenant-1"),
		OpenBrowser: func(target string) error {
			parsed, err := url.Parse(target)
			if err != nil {
				return err
			}
			authorizeQuery = parsed.Query()
			redirect := authorizeQuery.Get("redirect_uri") + "?" + url.Values{
				"code":  {"auth-code"},
				"state": {authorizeQuery.Get("state")},
			}.Encode()
			response, err := http.Get(redirect)
			if err != nil {
				return err
			}
			response.Body.Close()
			return nil
		},
	})

	token, err := provider.Acquire(context.Background(), AudienceGraph, []string{"RoleManagement.ReadWrite.Directory"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if token.AccessToken != "interactive-token" || token.RefreshToken != "refresh-2" {
		t.Errorf("token = %+v", token)
	}
	if authorizeQuery.Get("code_challenge_method") != "S256" || authorizeQuery.Get("code_challenge") == "" {
		t.Errorf("authorize query lacks PKCE: %v", authorizeQuery)
	}
	if !strings.Contains(authorizeQuery.Get("scope"), "offline_access") {
		t.Errorf("scope = %q, want offline_access added", authorizeQuery.Get("scope"))
	}
	if form.Get("grant_type") != "authorization_code" || form.Get("code") != "auth-code" {
		t.Errorf("token form = %v", form)
	}
	if form.Get("code_verifier") == "" || form.Get("redirect_uri") != authorizeQuery.Get("redirect_uri") {
		t.Errorf("token form = %v", form)
	}
}

func TestInteractiveIgnoresForeignState(t *testing.T) {
	results := make(chan redirectResult, 1)
	provider := NewInteractive(InteractiveConfig{})
	handler := provider.redirectHandler("expected", results)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/?code=x&state=forged", nil))
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
	select {
	case result := <-results:
		t.Fatalf("forged redirect delivered %+v", result)
	default:
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/?error=access_denied&state=expected", nil))
	if result := <-results; result.errorCode != "access_denied" {
		t.Errorf("errorCode = %q, want access_denied", result.errorCode)
	}
}

func TestInteractiveConsentTimeout(t *testing.T) {
	fake := clock.Fake(epoch)
	var shown []string
	provider := NewInteractive(InteractiveConfig{
		OpenBrowser:    NoBrowser,
		Display:        func(message string) { shown = append(shown, message) },
		ConsentTimeout: time.Minute,
		Clock:          fake,
	})

	done := make(chan error, 1)
	go func() {
		_, err := provider.Acquire(context.Background(), AudienceGraph, nil)
		done <- err
	}()
	fake.WaitForTimers(1)
	fake.Advance(time.Minute)

	if err := <-done; !IsAuthentication(err) {
		t.Fatalf("Acquire error = %v, want AuthenticationError", err)
	}
	if len(shown) != 1 || !strings.Contains(shown[0], "/oauth2/v2.0/authorize?") {
		t.Errorf("shown = %q, want the authorize URL", shown)
	}
}

func TestInteractiveCanceled(t *testing.T) {
	fake := clock.Fake(epoch)
	provider := NewInteractive(InteractiveConfig{
		OpenBrowser:    NoBrowser,
		Display:        func(string) {},
		ConsentTimeout: time.Minute,
		Clock:          fake,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := provider.Acquire(ctx, AudienceGraph, nil)
		done <- err
	}()
	fake.WaitForTimers(1)
	cancel()

	err := <-done
	var authenticationError *AuthenticationError
	if !errors.As(err, &authenticationError) || authenticationError.Provider != KindInteractive {
		t.Errorf("Acquire error = %v, want an interactive AuthenticationError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire error = %v, want it to wrap context.Canceled", err)
	}
}

func TestPKCEChallenge(t *testing.T) {
	verifier, challenge, err := newPKCE()
	if err != nil {
		t.Fatalf("newPKCE: %v", err)
	}
	if len(verifier) != 43 || len(challenge) != 43 {
		t.Errorf("verifier/challenge lengths = %d/%d, want 43/43", len(verifier), len(challenge))
	}
	if verifier == challenge {
		t.Error("challenge equals verifier")
	}
}

// scriptedRunner records invocations and answers from a table.
type scriptedRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (runner *scriptedRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	runner.calls = append(runner.calls, append([]string{name}, args...))
	return runner.output, runner.err
}

func TestHostCLIAcquire(t *testing.T) {
	expiresOn := epoch.Add(time.Hour).Unix()
	runner := &scriptedRunner{output: []byte(fmt.Sprintf(`{"accessToken":"cli-token","expiresOn":"2026-03-01 10:00:00.000000","expires_on":%d,"tokenType":"Bearer"}`, expiresOn))}
	provider := NewHostCLI(HostCLIConfig{Tenant: "tenant-1", Runner: runner.run, Clock: clock.Fake(epoch)})

	token, err := provider.Acquire(context.Background(), AudienceResourceManager, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if token.AccessToken != "cli-token" || token.ExpiresAt.Unix() != expiresOn {
		t.Errorf("token = %+v", token)
	}
	want := "az account get-access-token --resource https://management.azure.com --output json --tenant tenant-1"
	if got := strings.Join(runner.calls[0], " "); got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestHostCLIExpiryFromClaims(t *testing.T) {
	accessToken := signedToken(t, jwt.MapClaims{"oid": "x", "exp": epoch.Add(30 * time.Minute).Unix()})
	runner := &scriptedRunner{output: []byte(`{"accessToken":"` + accessToken + `"}`)}
	provider := NewHostCLI(HostCLIConfig{Runner: runner.run, Clock: clock.Fake(epoch)})

	token, err := provider.Acquire(context.Background(), AudienceGraph, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if want := epoch.Add(30 * time.Minute); !token.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", token.ExpiresAt, want)
	}
}

func TestHostCLIFailures(t *testing.T) {
	notInstalled := &scriptedRunner{err: fmt.Errorf("az: %w", exec.ErrNotFound)}
	_, err := NewHostCLI(HostCLIConfig{Runner: notInstalled.run}).Acquire(context.Background(), AudienceGraph, nil)
	var authenticationError *AuthenticationError
	if !errors.As(err, &authenticationError) || !strings.Contains(authenticationError.Message, "not installed") {
		t.Errorf("missing binary error = %v", err)
	}

	mfa := &scriptedRunner{err: errors.New("az: exit status 1: AADSTS50076: you must use multi-factor authentication")}
	_, err = NewHostCLI(HostCLIConfig{Runner: mfa.run}).Acquire(context.Background(), AudienceGraph, nil)
	if !IsMFARequired(err) {
		t.Errorf("MFA stderr error = %v, want MFARequiredError", err)
	}

	signedOut := &scriptedRunner{err: errors.New("az: exit status 1: Please run 'az login'")}
	provider := NewHostCLI(HostCLIConfig{Runner: signedOut.run})
	if provider.Authenticated(context.Background()) {
		t.Error("Authenticated() = true for a failing probe")
	}
	if got := strings.Join(signedOut.calls[0], " "); got != "az account show --output json" {
		t.Errorf("probe command = %q", got)
	}
}
