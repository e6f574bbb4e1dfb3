// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/secret"
	"github.com/bureau-foundation/pim/lib/token"
)

const (
	// DefaultTenant lets the identity platform pick the signed-in
	// user's home tenant.
	DefaultTenant = "organizations"

	// DefaultClientID is the public client used for delegated flows
	// when no application is registered.
	DefaultClientID = token.DefaultPublicClientID
)

// Config is the master configuration for pim.
type Config struct {
	// TenantID is the directory tenant to authenticate against.
	TenantID string `yaml:"tenant_id" json:"tenant_id"`

	// ClientID is the application registration used for
	// authentication.
	ClientID string `yaml:"client_id" json:"client_id"`

	// ClientSecretFile holds the client secret for the
	// client-credentials provider, one line.
	ClientSecretFile string `yaml:"client_secret_file" json:"client_secret_file"`

	// DefaultDuration is the activation length when none is given, as
	// an ISO-8601 duration ("PT1H") or a Go duration ("90m").
	// Default: PT1H
	DefaultDuration string `yaml:"default_duration" json:"default_duration"`

	// Timeout bounds each authority API call.
	// Default: 30s
	Timeout string `yaml:"timeout" json:"timeout"`

	Auth       AuthConfig       `yaml:"auth" json:"auth"`
	TokenCache TokenCacheConfig `yaml:"token_cache" json:"token_cache"`
	Directory  DirectoryConfig  `yaml:"directory" json:"directory"`
	Resource   ResourceConfig   `yaml:"resource" json:"resource"`

	// clientSecret comes from AZURE_CLIENT_SECRET only.
	clientSecret string
}

// AuthConfig configures token acquisition.
type AuthConfig struct {
	// Provider pins a token provider: interactive, device-code,
	// client-credentials, managed-identity, host-cli, or auto.
	// Default: auto
	Provider string `yaml:"provider" json:"provider"`

	// AuthorityHost is the identity platform sign-in host.
	// Default: https://login.microsoftonline.com
	AuthorityHost string `yaml:"authority_host" json:"authority_host"`

	// ConsentTimeout bounds how long the interactive flow waits for
	// the browser redirect.
	// Default: 5m
	ConsentTimeout string `yaml:"consent_timeout" json:"consent_timeout"`

	// RotationMargin is how long before expiry a cached token is
	// replaced.
	// Default: 5m
	RotationMargin string `yaml:"rotation_margin" json:"rotation_margin"`
}

// TokenCacheConfig configures the persistent token cache.
type TokenCacheConfig struct {
	// Path is the cache file.
	// Default: $XDG_CACHE_HOME/pim/tokens.cbor
	Path string `yaml:"path" json:"path"`

	// IdentityFile, when set, is an age identity the cache is sealed
	// to. Create one with "pim cache keygen".
	IdentityFile string `yaml:"identity_file" json:"identity_file"`

	// Disabled keeps tokens in memory for one invocation only.
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// DirectoryConfig configures the directory authority.
type DirectoryConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Scopes are the delegated permissions requested for directory
	// tokens.
	Scopes []string `yaml:"scopes" json:"scopes"`
}

// ResourceConfig configures the resource authority.
type ResourceConfig struct {
	BaseURL    string   `yaml:"base_url" json:"base_url"`
	APIVersion string   `yaml:"api_version" json:"api_version"`
	Scopes     []string `yaml:"scopes" json:"scopes"`
}

// Default returns the default configuration.
func Default() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		cacheDir = filepath.Join(homeDir, ".cache")
	}

	return &Config{
		TenantID:        DefaultTenant,
		ClientID:        DefaultClientID,
		DefaultDuration: "PT1H",
		Timeout:         "30s",
		Auth: AuthConfig{
			Provider:       "auto",
			AuthorityHost:  token.DefaultAuthorityHost,
			ConsentTimeout: "5m",
			RotationMargin: "5m",
		},
		TokenCache: TokenCacheConfig{
			Path: filepath.Join(cacheDir, "pim", "tokens.cbor"),
		},
		Directory: DirectoryConfig{
			BaseURL: "https://graph.microsoft.com/v1.0",
			Scopes: []string{
				"https://graph.microsoft.com/RoleManagement.ReadWrite.Directory",
				"https://graph.microsoft.com/RoleAssignmentSchedule.ReadWrite.Directory",
				"https://graph.microsoft.com/RoleEligibilitySchedule.ReadWrite.Directory",
				"https://graph.microsoft.com/User.Read",
			},
		},
		Resource: ResourceConfig{
			BaseURL:    "https://management.azure.com",
			APIVersion: "2022-04-01-preview",
			Scopes:     []string{"https://management.azure.com/user_impersonation"},
		},
	}
}

// Load loads the file named by PIM_CONFIG, or the defaults when it is
// unset, and then fills empty fields from the environment.
func Load() (*Config, error) {
	return LoadWith(os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path, ok := lookup("PIM_CONFIG"); ok && path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnvironment(lookup)
	return cfg, nil
}

// LoadFile loads configuration from a specific file path, on top of
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	return nil
}

// FromEnvironment returns the defaults with the environment applied.
func FromEnvironment() *Config {
	cfg := Default()
	cfg.ApplyEnvironment(os.LookupEnv)
	return cfg
}

// ApplyEnvironment fills fields from ARM_TENANT_ID, AZURE_CLIENT_ID,
// AZURE_CLIENT_SECRET, and PIM_DEFAULT_DURATION. Values already set
// away from their defaults are kept.
func (c *Config) ApplyEnvironment(lookup func(string) (string, bool)) {
	get := func(name string) string {
		value, _ := lookup(name)
		return strings.TrimSpace(value)
	}
	if value := get("ARM_TENANT_ID"); value != "" && (c.TenantID == "" || c.TenantID == DefaultTenant) {
		c.TenantID = value
	}
	if value := get("AZURE_CLIENT_ID"); value != "" && (c.ClientID == "" || c.ClientID == DefaultClientID) {
		c.ClientID = value
	}
	if value := get("PIM_DEFAULT_DURATION"); value != "" && (c.DefaultDuration == "" || c.DefaultDuration == "PT1H") {
		c.DefaultDuration = value
	}
	if value, ok := lookup("AZURE_CLIENT_SECRET"); ok && value != "" {
		c.clientSecret = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path fields.
func (c *Config) expandVariables() {
	c.ClientSecretFile = expandVars(c.ClientSecretFile)
	c.TokenCache.Path = expandVars(c.TokenCache.Path)
	c.TokenCache.IdentityFile = expandVars(c.TokenCache.IdentityFile)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.TenantID == "" {
		errs = append(errs, errors.New("tenant_id is required"))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("client_id is required"))
	}
	if _, err := token.ParseKind(c.Auth.Provider); err != nil {
		errs = append(errs, fmt.Errorf("auth.provider: %w", err))
	}
	for _, field := range []struct {
		name  string
		value string
		parse func(string) (time.Duration, error)
	}{
		{"default_duration", c.DefaultDuration, access.ParseFlexibleDuration},
		{"timeout", c.Timeout, time.ParseDuration},
		{"auth.consent_timeout", c.Auth.ConsentTimeout, time.ParseDuration},
		{"auth.rotation_margin", c.Auth.RotationMargin, time.ParseDuration},
	} {
		duration, err := field.parse(field.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		} else if duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", field.name))
		}
	}
	if !c.TokenCache.Disabled && c.TokenCache.Path == "" {
		errs = append(errs, errors.New("token_cache.path is required unless the cache is disabled"))
	}
	if c.Auth.AuthorityHost == "" {
		errs = append(errs, errors.New("auth.authority_host is required"))
	}
	if c.Directory.BaseURL == "" {
		errs = append(errs, errors.New("directory.base_url is required"))
	}
	if c.Resource.BaseURL == "" {
		errs = append(errs, errors.New("resource.base_url is required"))
	}
	if c.Resource.APIVersion == "" {
		errs = append(errs, errors.New("resource.api_version is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Provider returns the pinned provider kind, or "" for automatic
// selection.
func (c *Config) Provider() (token.Kind, error) {
	return token.ParseKind(c.Auth.Provider)
}

// AuthorityURL returns the sign-in authority for the configured
// tenant.
func (c *Config) AuthorityURL() string {
	return token.AuthorityURL(c.Auth.AuthorityHost, c.TenantID)
}

// ActivationDuration parses DefaultDuration.
func (c *Config) ActivationDuration() (time.Duration, error) {
	return access.ParseFlexibleDuration(c.DefaultDuration)
}

// APITimeout parses Timeout.
func (c *Config) APITimeout() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// ConsentTimeout parses Auth.ConsentTimeout.
func (c *Config) ConsentTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Auth.ConsentTimeout)
}

// RotationMargin parses Auth.RotationMargin.
func (c *Config) RotationMargin() (time.Duration, error) {
	return time.ParseDuration(c.Auth.RotationMargin)
}

// HasClientSecret reports whether a client secret is configured
// through the environment or a file.
func (c *Config) HasClientSecret() bool {
	return c.clientSecret != "" || c.ClientSecretFile != ""
}

// ClientSecret returns the configured client secret in protected
// memory. The caller closes the buffer.
func (c *Config) ClientSecret() (*secret.Buffer, error) {
	if c.clientSecret != "" {
		return secret.NewFromBytes([]byte(c.clientSecret))
	}
	if c.ClientSecretFile == "" {
		return nil, errors.New("config: no client secret configured")
	}
	buffer, err := secret.ReadFromPath(c.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("config: reading client secret: %w", err)
	}
	return buffer, nil
}

// Save writes the configuration as YAML with mode 0600. The client
// secret is never written.
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// YAML renders the configuration without the client secret.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: encoding: %w", err)
	}
	return data, nil
}
