// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/testutil"
	"github.com/bureau-foundation/pim/lib/token"
)

func setup(t *testing.T) (*testutil.Tenant, *bytes.Buffer) {
	t.Helper()
	tenant := testutil.NewTenant(t)
	configPath := tenant.WriteConfig(t, "")

	previousEnvironment := cli.SessionEnvironment
	cli.SessionEnvironment = func(bool) cli.Environment {
		return cli.Environment{
			Lookup: tenant.Lookup(configPath),
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		}
	}
	var output bytes.Buffer
	previousStdout := cli.Stdout
	cli.Stdout = &output
	t.Cleanup(func() {
		cli.SessionEnvironment = previousEnvironment
		cli.Stdout = previousStdout
	})
	return tenant, &output
}

func TestLoginBothAuthorities(t *testing.T) {
	tenant, output := setup(t)

	if err := LoginCommand().Execute(context.Background(), []string{"--json"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	var views []loginView
	if err := json.Unmarshal(output.Bytes(), &views); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output.String())
	}
	if len(views) != 2 {
		t.Fatalf("got %d authorities, want 2: %+v", len(views), views)
	}
	if views[0].Authority != "directory" || views[1].Authority != "resource" {
		t.Errorf("authorities = %q, %q; want directory, resource", views[0].Authority, views[1].Authority)
	}
	for _, view := range views {
		if view.ExpiresAt.IsZero() {
			t.Errorf("%s: zero expiry", view.Authority)
		}
	}
	if got := tenant.TokensIssued(); got != 2 {
		t.Errorf("TokensIssued = %d, want 2", got)
	}
}

func TestLoginSingleAuthority(t *testing.T) {
	tenant, output := setup(t)

	if err := LoginCommand().Execute(context.Background(), []string{"--authority", "resource"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	text := output.String()
	if !strings.Contains(text, "Signed in with client-credentials.") {
		t.Errorf("output missing provider line:\n%s", text)
	}
	if !strings.Contains(text, "resource") || strings.Contains(text, "directory") {
		t.Errorf("output should list only the resource authority:\n%s", text)
	}
	if got := tenant.TokensIssued(); got != 1 {
		t.Errorf("TokensIssued = %d, want 1", got)
	}
}

func TestParseAuthorities(t *testing.T) {
	audiences, err := parseAuthorities([]string{"Resource", "directory", "resource"})
	if err != nil {
		t.Fatalf("parseAuthorities: %v", err)
	}
	want := []token.Audience{token.AudienceResourceManager, token.AudienceGraph}
	if len(audiences) != len(want) {
		t.Fatalf("audiences = %v, want %v", audiences, want)
	}
	for index := range want {
		if audiences[index] != want[index] {
			t.Errorf("audience %d = %q, want %q", index, audiences[index], want[index])
		}
	}

	for _, bad := range [][]string{{"graph"}, nil} {
		_, err := parseAuthorities(bad)
		if err == nil {
			t.Errorf("parseAuthorities(%q) succeeded", bad)
			continue
		}
		if cli.ExitCode(err) != cli.ExitValidation {
			t.Errorf("parseAuthorities(%q) exit code = %d, want %d", bad, cli.ExitCode(err), cli.ExitValidation)
		}
	}
}

func TestWhoAmIFromTokenClaims(t *testing.T) {
	tenant, output := setup(t)

	if err := WhoAmICommand().Execute(context.Background(), []string{"--json"}); err != nil {
		t.Fatalf("whoami: %v", err)
	}
	var view whoAmIView
	if err := json.Unmarshal(output.Bytes(), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output.String())
	}
	if view.ID != tenant.ObjectID {
		t.Errorf("ID = %q, want %q", view.ID, tenant.ObjectID)
	}
	if view.UserPrincipalName != tenant.UserPrincipalName {
		t.Errorf("UserPrincipalName = %q, want %q", view.UserPrincipalName, tenant.UserPrincipalName)
	}
	if view.Tenant != testutil.TenantID {
		t.Errorf("Tenant = %q, want %q", view.Tenant, testutil.TenantID)
	}
	if view.Provider != string(token.KindClientCredentials) {
		t.Errorf("Provider = %q, want %q", view.Provider, token.KindClientCredentials)
	}
	if requests := tenant.Requests(""); len(requests) != 0 {
		t.Errorf("whoami called the directory: %+v", requests)
	}
}

func TestLogout(t *testing.T) {
	_, output := setup(t)

	if err := LogoutCommand().Execute(context.Background(), nil); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := output.String(); got != "Signed out.\n" {
		t.Errorf("output = %q, want %q", got, "Signed out.\n")
	}
}

func TestRejectsArguments(t *testing.T) {
	setup(t)
	for _, command := range []*cli.Command{LoginCommand(), LogoutCommand(), WhoAmICommand()} {
		err := command.Execute(context.Background(), []string{"extra"})
		if err == nil {
			t.Errorf("%s accepted an argument", command.Name)
			continue
		}
		if cli.ExitCode(err) != cli.ExitValidation {
			t.Errorf("%s exit code = %d, want %d", command.Name, cli.ExitCode(err), cli.ExitValidation)
		}
	}
}
