// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/pim/lib/clock"
)

// InteractiveConfig configures an Interactive provider.
type InteractiveConfig struct {
	// AuthorityURL is the tenant authority (see AuthorityURL).
	AuthorityURL string

	// ClientID defaults to DefaultPublicClientID.
	ClientID string

	// OpenBrowser opens the sign-in URL. Defaults to the platform's
	// URL opener. If it fails, the URL is passed to Display instead.
	OpenBrowser func(url string) error

	// Display shows messages to the user. Defaults to discarding them.
	Display func(message string)

	// ConsentTimeout bounds the wait for the browser redirect. Defaults
	// to five minutes.
	ConsentTimeout time.Duration

	// ListenAddress is the loopback address of the redirect listener.
	// Defaults to "127.0.0.1:0".
	ListenAddress string

	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Interactive signs in through the system browser using the
// authorization code flow with PKCE and a loopback redirect.
type Interactive struct {
	endpoint       identityEndpoint
	openBrowser    func(string) error
	display        func(string)
	consentTimeout time.Duration
	listenAddress  string
	logger         *slog.Logger
}

// NewInteractive creates an Interactive provider.
func NewInteractive(config InteractiveConfig) *Interactive {
	provider := &Interactive{
		endpoint:       newIdentityEndpoint(KindInteractive, config.AuthorityURL, config.ClientID, config.HTTPClient, config.Clock),
		openBrowser:    config.OpenBrowser,
		display:        config.Display,
		consentTimeout: config.ConsentTimeout,
		listenAddress:  config.ListenAddress,
		logger:         config.Logger,
	}
	if provider.openBrowser == nil {
		provider.openBrowser = openSystemBrowser
	}
	if provider.display == nil {
		provider.display = func(string) {}
	}
	if provider.consentTimeout <= 0 {
		provider.consentTimeout = 5 * time.Minute
	}
	if provider.listenAddress == "" {
		provider.listenAddress = "127.0.0.1:0"
	}
	if provider.logger == nil {
		provider.logger = slog.Default()
	}
	return provider
}

// Kind returns KindInteractive.
func (provider *Interactive) Kind() Kind { return KindInteractive }

// redirectResult is what the loopback handler observed.
type redirectResult struct {
	code        string
	errorCode   string
	description string
}

// Acquire opens the browser on the authorize endpoint and waits for the
// redirect, the consent timeout, or ctx.
func (provider *Interactive) Acquire(ctx context.Context, audience Audience, scopes []string) (Token, error) {
	verifier, challenge, err := newPKCE()
	if err != nil {
		return Token{}, &AuthenticationError{Provider: KindInteractive, Message: "generating PKCE verifier", Err: err}
	}
	state := uuid.NewString()
	requested := delegatedScopes(audience, scopes)

	listener, err := net.Listen("tcp", provider.listenAddress)
	if err != nil {
		return Token{}, &AuthenticationError{Provider: KindInteractive, Message: "starting loopback listener", Err: err}
	}
	redirectURI := fmt.Sprintf("http://localhost:%d/", listener.Addr().(*net.TCPAddr).Port)

	results := make(chan redirectResult, 1)
	server := &http.Server{
		Handler:           provider.redirectHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go server.Serve(listener)
	defer server.Close()

	authorizeURL := provider.endpoint.authority + "/oauth2/v2.0/authorize?" + url.Values{
		"client_id":             {provider.endpoint.clientID},
		"response_type":         {"code"},
		"response_mode":         {"query"},
		"redirect_uri":          {redirectURI},
		"scope":                 {joinScopes(requested)},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"prompt":                {"select_account"},
	}.Encode()

	if err := provider.openBrowser(authorizeURL); err != nil {
		provider.logger.Debug("could not open browser", "error", err)
		provider.display("Open this URL in a browser to sign in:\n" + authorizeURL)
	} else {
		provider.display("Waiting for sign-in to complete in the browser...")
	}

	var result redirectResult
	select {
	case result = <-results:
	case <-provider.endpoint.clock.After(provider.consentTimeout):
		return Token{}, &AuthenticationError{Provider: KindInteractive, Message: fmt.Sprintf("no sign-in completed within %s", provider.consentTimeout)}
	case <-ctx.Done():
		return Token{}, &AuthenticationError{Provider: KindInteractive, Message: "sign-in abandoned", Err: ctx.Err()}
	}

	if result.errorCode != "" {
		return Token{}, classify(KindInteractive, &oauthError{Code: result.errorCode, Description: result.description})
	}

	token, failure, err := provider.endpoint.exchange(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {result.code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
		"scope":         {joinScopes(requested)},
	})
	if err != nil {
		return Token{}, err
	}
	if failure != nil {
		return Token{}, classify(KindInteractive, failure)
	}
	return checkUsable(KindInteractive, token, provider.endpoint.clock.Now())
}

// Refresh redeems a refresh token from an earlier sign-in.
func (provider *Interactive) Refresh(ctx context.Context, audience Audience, scopes []string, refreshToken string) (Token, error) {
	return provider.endpoint.refresh(ctx, delegatedScopes(audience, scopes), refreshToken)
}

// redirectHandler accepts exactly one redirect carrying the expected
// state. Requests with a foreign state are answered but ignored.
func (provider *Interactive) redirectHandler(state string, results chan<- redirectResult) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		if query.Get("state") != state {
			http.Error(writer, "unexpected sign-in state", http.StatusBadRequest)
			return
		}

		result := redirectResult{
			code:        query.Get("code"),
			errorCode:   query.Get("error"),
			description: query.Get("error_description"),
		}
		if result.code == "" && result.errorCode == "" {
			result.errorCode = "invalid_response"
			result.description = "redirect carried neither a code nor an error"
		}

		writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if result.errorCode != "" {
			fmt.Fprintf(writer, "Sign-in failed: %s. You can close this window.\n", result.errorCode)
		} else {
			fmt.Fprintln(writer, "Sign-in complete. You can close this window.")
		}

		select {
		case results <- result:
		default:
		}
	})
}

// newPKCE returns a verifier and its S256 challenge (RFC 7636).
func newPKCE() (verifier, challenge string, err error) {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(random)
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func openSystemBrowser(target string) error {
	var command *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		command = exec.Command("open", target)
	case "windows":
		command = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		command = exec.Command("xdg-open", target)
	}
	if err := command.Start(); err != nil {
		return err
	}
	go command.Wait()
	return nil
}

var errNoBrowser = errors.New("no browser available")

// NoBrowser is an OpenBrowser function that always fails, so the
// sign-in URL is shown through Display.
func NoBrowser(string) error { return errNoBrowser }
