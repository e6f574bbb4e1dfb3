// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/clock"
)

// Runner executes a command and returns its standard output. A non-nil
// error should carry the command's standard error text.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// HostCLIConfig configures a HostCLI provider.
type HostCLIConfig struct {
	// Binary is the CLI executable. Defaults to "az".
	Binary string

	// Tenant, if set, is passed with --tenant.
	Tenant string

	// Runner defaults to ExecRunner.
	Runner Runner

	// Timeout bounds token retrieval. Defaults to 30 seconds.
	Timeout time.Duration

	// ProbeTimeout bounds the signed-in check. Defaults to 5 seconds.
	ProbeTimeout time.Duration

	Clock clock.Clock
}

// HostCLI borrows the session of a signed-in host command-line tool.
type HostCLI struct {
	binary       string
	tenant       string
	run          Runner
	timeout      time.Duration
	probeTimeout time.Duration
	clock        clock.Clock
}

// NewHostCLI creates a HostCLI provider.
func NewHostCLI(config HostCLIConfig) *HostCLI {
	provider := &HostCLI{
		binary:       config.Binary,
		tenant:       config.Tenant,
		run:          config.Runner,
		timeout:      config.Timeout,
		probeTimeout: config.ProbeTimeout,
		clock:        config.Clock,
	}
	if provider.binary == "" {
		provider.binary = "az"
	}
	if provider.run == nil {
		provider.run = ExecRunner
	}
	if provider.timeout <= 0 {
		provider.timeout = 30 * time.Second
	}
	if provider.probeTimeout <= 0 {
		provider.probeTimeout = 5 * time.Second
	}
	if provider.clock == nil {
		provider.clock = clock.Real()
	}
	return provider
}

// Kind returns KindHostCLI.
func (provider *HostCLI) Kind() Kind { return KindHostCLI }

// Authenticated reports whether the host CLI is installed and signed
// in.
func (provider *HostCLI) Authenticated(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, provider.probeTimeout)
	defer cancel()
	_, err := provider.run(ctx, provider.binary, "account", "show", "--output", "json")
	return err == nil
}

// hostCLIToken is the JSON printed by "account get-access-token".
// expires_on is epoch seconds; expiresOn is a local timestamp printed
// by older releases.
type hostCLIToken struct {
	AccessToken string        `json:"accessToken"`
	ExpiresOn   string        `json:"expiresOn"`
	ExpiresOnAt flexibleInt64 `json:"expires_on"`
}

// Acquire asks the host CLI for a token for audience.
func (provider *HostCLI) Acquire(ctx context.Context, audience Audience, _ []string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, provider.timeout)
	defer cancel()

	args := []string{"account", "get-access-token", "--resource", string(audience), "--output", "json"}
	if provider.tenant != "" {
		args = append(args, "--tenant", provider.tenant)
	}
	output, err := provider.run(ctx, provider.binary, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Token{}, &AuthenticationError{Provider: KindHostCLI, Message: fmt.Sprintf("%s is not installed", provider.binary), Err: err}
		}
		base := AuthenticationError{Provider: KindHostCLI, Message: "host CLI could not provide a token", Err: err}
		if mentionsMFA(err.Error()) {
			return Token{}, &MFARequiredError{AuthenticationError: base}
		}
		return Token{}, &base
	}

	var decoded hostCLIToken
	if err := json.Unmarshal(output, &decoded); err != nil {
		return Token{}, &AuthenticationError{Provider: KindHostCLI, Message: "decoding host CLI output", Err: err}
	}
	if decoded.AccessToken == "" {
		return Token{}, &AuthenticationError{Provider: KindHostCLI, Message: "host CLI output carries no accessToken"}
	}

	expiresAt, ok := hostCLIExpiry(decoded)
	if !ok {
		expiresAt, ok = expiryFromClaims(decoded.AccessToken)
	}
	if !ok {
		return Token{}, &AuthenticationError{Provider: KindHostCLI, Message: "cannot determine token expiry"}
	}
	return checkUsable(KindHostCLI, Token{AccessToken: decoded.AccessToken, ExpiresAt: expiresAt}, provider.clock.Now())
}

var hostCLITimeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func hostCLIExpiry(decoded hostCLIToken) (time.Time, bool) {
	if decoded.ExpiresOnAt > 0 {
		return time.Unix(int64(decoded.ExpiresOnAt), 0), true
	}
	for _, layout := range hostCLITimeLayouts {
		if parsed, err := time.ParseInLocation(layout, decoded.ExpiresOn, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// ExecRunner runs a command with os/exec, returning stdout. On failure
// the error includes trimmed stderr.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		if message := strings.TrimSpace(stderr.String()); message != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, message)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}
