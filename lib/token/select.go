// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import "context"

// Environment is what Select decides on.
type Environment struct {
	// ManagedIdentity is true when the platform advertises a managed
	// identity endpoint.
	ManagedIdentity bool

	// ClientSecret is true when a client ID and secret are configured.
	ClientSecret bool

	// HostCLIAuthenticated is true when the host CLI is signed in.
	HostCLIAuthenticated bool
}

// Select picks a provider kind: managed identity, then client secret,
// then the host CLI, then interactive sign-in.
func Select(environment Environment) Kind {
	switch {
	case environment.ManagedIdentity:
		return KindManagedIdentity
	case environment.ClientSecret:
		return KindClientCredentials
	case environment.HostCLIAuthenticated:
		return KindHostCLI
	default:
		return KindInteractive
	}
}

// ManagedIdentityAvailable reports whether the App Service or legacy
// MSI variables are present.
func ManagedIdentityAvailable(lookup func(string) (string, bool)) bool {
	for _, name := range []string{"IDENTITY_ENDPOINT", "MSI_ENDPOINT"} {
		if value, ok := lookup(name); ok && value != "" {
			return true
		}
	}
	return false
}

// signedInChecker is satisfied by *HostCLI.
type signedInChecker interface {
	Authenticated(ctx context.Context) bool
}

// DetectEnvironment gathers the inputs to Select. The host CLI is only
// probed when neither higher-precedence source is present, since the
// probe runs a subprocess.
func DetectEnvironment(ctx context.Context, lookup func(string) (string, bool), clientSecretConfigured bool, hostCLI signedInChecker) Environment {
	environment := Environment{
		ManagedIdentity: ManagedIdentityAvailable(lookup),
		ClientSecret:    clientSecretConfigured,
	}
	if !environment.ManagedIdentity && !environment.ClientSecret && hostCLI != nil {
		environment.HostCLIAuthenticated = hostCLI.Authenticated(ctx)
	}
	return environment
}
