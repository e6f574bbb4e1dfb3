// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/pim/lib/authority"
	"github.com/bureau-foundation/pim/lib/config"
	"github.com/bureau-foundation/pim/lib/pim"
	"github.com/bureau-foundation/pim/lib/sealed"
	"github.com/bureau-foundation/pim/lib/secret"
	"github.com/bureau-foundation/pim/lib/token"
)

// SessionParams are the flags shared by every command that talks to an
// authority. Embed it in a command's parameter struct.
type SessionParams struct {
	ConfigFile string `json:"-" flag:"config"    desc:"configuration file (default: $PIM_CONFIG)"`
	Provider   string `json:"-" flag:"provider"  desc:"token provider: auto, interactive, device-code, client-credentials, managed-identity, host-cli"`
	Verbose    bool   `json:"-" flag:"verbose,v" desc:"log debug detail to stderr"`
}

// Environment is the process surroundings a session is built from.
type Environment struct {
	// Lookup reads environment variables.
	Lookup func(string) (string, bool)

	// Stderr receives sign-in instructions.
	Stderr io.Writer

	Logger *slog.Logger

	// Interactive is true when a person can answer a browser sign-in.
	// Automatic selection uses the device code flow otherwise.
	Interactive bool

	// HostCLIRunner runs the host CLI. Nil uses token.ExecRunner.
	HostCLIRunner token.Runner

	// OpenBrowser opens the interactive sign-in URL. Nil uses the
	// platform opener.
	OpenBrowser func(url string) error
}

// SessionEnvironment builds the Environment for a command run. Tests
// replace it.
var SessionEnvironment = processEnvironment

func processEnvironment(verbose bool) Environment {
	return Environment{
		Lookup:      os.LookupEnv,
		Stderr:      os.Stderr,
		Logger:      NewCommandLogger(verbose),
		Interactive: IsInteractive(),
	}
}

// Session is a configured PIM with the token broker behind it. Close
// it when the command finishes.
type Session struct {
	Config *config.Config
	Broker *token.Broker
	PIM    *pim.PIM
	Logger *slog.Logger

	buffers []*secret.Buffer
}

// Close releases the secrets the session holds.
func (session *Session) Close() error {
	var errs []error
	for _, buffer := range session.buffers {
		errs = append(errs, buffer.Close())
	}
	session.buffers = nil
	return errors.Join(errs...)
}

// LoadConfig reads the configuration named by --config, or by
// PIM_CONFIG, fills it from the environment, applies --provider, and
// validates it.
func LoadConfig(params SessionParams, environment Environment) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if params.ConfigFile != "" {
		cfg, err = config.LoadFile(params.ConfigFile)
		if err == nil {
			cfg.ApplyEnvironment(environment.Lookup)
		}
	} else {
		cfg, err = config.LoadWith(environment.Lookup)
	}
	if err != nil {
		return nil, Validation("%w", err)
	}
	if params.Provider != "" {
		cfg.Auth.Provider = params.Provider
	}
	if err := cfg.Validate(); err != nil {
		return nil, Validation("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// Connect builds a Session for params from the process environment.
func Connect(ctx context.Context, params SessionParams) (*Session, error) {
	return ConnectWith(ctx, params, SessionEnvironment(params.Verbose))
}

// ConnectWith builds a Session for params from environment.
func ConnectWith(ctx context.Context, params SessionParams, environment Environment) (*Session, error) {
	if environment.Lookup == nil {
		environment.Lookup = func(string) (string, bool) { return "", false }
	}
	if environment.Stderr == nil {
		environment.Stderr = io.Discard
	}
	if environment.Logger == nil {
		environment.Logger = slog.Default()
	}

	cfg, err := LoadConfig(params, environment)
	if err != nil {
		return nil, err
	}
	session := &Session{Config: cfg, Logger: environment.Logger}

	broker, err := session.newBroker(ctx, environment)
	if err != nil {
		session.Close()
		return nil, err
	}
	session.Broker = broker

	// Validate has already checked every duration.
	timeout, _ := cfg.APITimeout()
	duration, _ := cfg.ActivationDuration()

	directory, err := authority.NewDirectory(authority.DirectoryConfig{
		BaseURL: cfg.Directory.BaseURL,
		Tokens:  broker,
		Timeout: timeout,
		Logger:  environment.Logger,
	})
	if err != nil {
		session.Close()
		return nil, Validation("%w", err)
	}
	resource, err := authority.NewResource(authority.ResourceConfig{
		BaseURL:    cfg.Resource.BaseURL,
		APIVersion: cfg.Resource.APIVersion,
		Tokens:     broker,
		Timeout:    timeout,
		Logger:     environment.Logger,
	})
	if err != nil {
		session.Close()
		return nil, Validation("%w", err)
	}

	facade, err := pim.New(pim.Config{
		Broker:          broker,
		Directory:       directory,
		Resource:        resource,
		DefaultDuration: duration,
		Logger:          environment.Logger,
	})
	if err != nil {
		session.Close()
		return nil, Internal("%w", err)
	}
	session.PIM = facade
	return session, nil
}

func (session *Session) newBroker(ctx context.Context, environment Environment) (*token.Broker, error) {
	cfg := session.Config
	provider, err := session.newProvider(ctx, environment)
	if err != nil {
		return nil, err
	}
	store, err := session.newStore(provider.Kind())
	if err != nil {
		return nil, err
	}
	margin, _ := cfg.RotationMargin()
	broker, err := token.NewBroker(token.BrokerConfig{
		Provider: provider,
		Scopes: map[token.Audience][]string{
			token.AudienceGraph:           cfg.Directory.Scopes,
			token.AudienceResourceManager: cfg.Resource.Scopes,
		},
		Store:  store,
		Margin: margin,
		Logger: environment.Logger,
	})
	if err != nil {
		return nil, Internal("%w", err)
	}
	return broker, nil
}

// newProvider builds the pinned provider, or selects one from the
// environment when none is pinned.
func (session *Session) newProvider(ctx context.Context, environment Environment) (token.Provider, error) {
	cfg := session.Config
	kind, _ := cfg.Provider()

	hostCLI := token.NewHostCLI(token.HostCLIConfig{
		Tenant: specificTenant(cfg.TenantID),
		Runner: environment.HostCLIRunner,
	})
	if kind == "" {
		detected := token.DetectEnvironment(ctx, environment.Lookup, cfg.HasClientSecret(), hostCLI)
		kind = token.Select(detected)
		if kind == token.KindInteractive && !environment.Interactive {
			kind = token.KindDeviceCode
		}
		environment.Logger.Debug("selected token provider", "provider", kind)
	}

	display := func(message string) { fmt.Fprintln(environment.Stderr, message) }
	consentTimeout, _ := cfg.ConsentTimeout()

	switch kind {
	case token.KindInteractive:
		return token.NewInteractive(token.InteractiveConfig{
			AuthorityURL:   cfg.AuthorityURL(),
			ClientID:       cfg.ClientID,
			OpenBrowser:    environment.OpenBrowser,
			Display:        display,
			ConsentTimeout: consentTimeout,
			Logger:         environment.Logger,
		}), nil
	case token.KindDeviceCode:
		provider, err := token.NewDeviceCode(token.DeviceCodeConfig{
			AuthorityURL: cfg.AuthorityURL(),
			ClientID:     cfg.ClientID,
			Display:      display,
			Logger:       environment.Logger,
		})
		if err != nil {
			return nil, Internal("%w", err)
		}
		return provider, nil
	case token.KindClientCredentials:
		clientSecret, err := cfg.ClientSecret()
		if err != nil {
			return nil, Validation("%w", err)
		}
		session.buffers = append(session.buffers, clientSecret)
		provider, err := token.NewClientCredentials(token.ClientCredentialsConfig{
			AuthorityURL: cfg.AuthorityURL(),
			ClientID:     cfg.ClientID,
			ClientSecret: clientSecret,
		})
		if err != nil {
			return nil, Validation("%w", err)
		}
		return provider, nil
	case token.KindManagedIdentity:
		identity := token.ManagedIdentityFromEnvironment(environment.Lookup)
		if cfg.ClientID != config.DefaultClientID {
			identity.ClientID = cfg.ClientID
		}
		return token.NewManagedIdentity(identity), nil
	case token.KindHostCLI:
		return hostCLI, nil
	}
	return nil, Validation("unsupported token provider %q", kind)
}

// newStore opens the token cache for one identity. Tokens from another
// tenant, client, or provider never load from the same file.
func (session *Session) newStore(kind token.Kind) (token.Store, error) {
	cfg := session.Config
	if cfg.TokenCache.Disabled {
		return token.NewMemoryStore(), nil
	}
	storeConfig := token.FileStoreConfig{
		Path:      cfg.TokenCache.Path,
		Partition: strings.Join([]string{cfg.TenantID, cfg.ClientID, string(kind)}, "|"),
	}
	if cfg.TokenCache.IdentityFile != "" {
		identity, err := sealed.ReadIdentityFile(cfg.TokenCache.IdentityFile)
		if err != nil {
			return nil, Validation("token cache identity: %w", err)
		}
		session.buffers = append(session.buffers, identity)
		storeConfig.Identity = identity
	}
	store, err := token.NewFileStore(storeConfig)
	if err != nil {
		return nil, Validation("%w", err)
	}
	return store, nil
}

// specificTenant returns tenant unless it is one of the multi-tenant
// aliases the host CLI does not accept.
func specificTenant(tenant string) string {
	switch strings.ToLower(tenant) {
	case "", "common", "organizations", "consumers":
		return ""
	}
	return tenant
}
