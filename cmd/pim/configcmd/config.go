// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package configcmd implements "pim config": showing the effective
// configuration and writing a starting file.
package configcmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/config"
)

// Command returns the "config" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Summary: "Show or create the configuration",
		Description: `pim reads the file named by --config or PIM_CONFIG (YAML, or JSON
with comments for .json and .jsonc), then fills tenant, client, and
default duration from ARM_TENANT_ID, AZURE_CLIENT_ID, and
PIM_DEFAULT_DURATION. AZURE_CLIENT_SECRET is read but never written.`,
		Subcommands: []*cli.Command{
			showCommand(),
			initCommand(),
		},
	}
}

type showParams struct {
	cli.SessionParams
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print the effective configuration",
		Description: `Print the configuration after defaults, the file, the environment,
and --provider are applied. The client secret is never shown.`,
		Usage: "pim config show [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
				return err
			}
			cfg, err := cli.LoadConfig(params.SessionParams, cli.SessionEnvironment(params.Verbose))
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(cfg); done {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cli.Stdout.Write(data)
			return err
		},
	}
}

type initParams struct {
	Output   string `json:"output"    flag:"output,o"  desc:"file to write (default: pim/config.yaml under the user config directory)"`
	Tenant   string `json:"tenant"    flag:"tenant"    desc:"tenant ID"`
	ClientID string `json:"client_id" flag:"client-id" desc:"application (client) ID"`
	Provider string `json:"provider"  flag:"provider"  desc:"token provider to pin" default:"auto"`
	Force    bool   `json:"force"     flag:"force"     desc:"overwrite an existing file"`
}

func initCommand() *cli.Command {
	var params initParams

	return &cli.Command{
		Name:    "init",
		Summary: "Write a configuration file with defaults",
		Usage:   "pim config init [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("init", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Start a configuration for one tenant",
				Command:     "pim config init --tenant 00000000-0000-0000-0000-000000000000",
			},
		},
		Run: func(_ context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
				return err
			}
			path := params.Output
			if path == "" {
				configDir, err := os.UserConfigDir()
				if err != nil {
					return cli.Validation("--output is required: %v", err)
				}
				path = filepath.Join(configDir, "pim", "config.yaml")
			}
			if !params.Force {
				if _, err := os.Stat(path); err == nil {
					return cli.Validation("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("checking %s: %w", path, err)
				}
			}

			cfg := config.Default()
			if params.Tenant != "" {
				cfg.TenantID = params.Tenant
			}
			if params.ClientID != "" {
				cfg.ClientID = params.ClientID
			}
			cfg.Auth.Provider = params.Provider
			if err := cfg.Validate(); err != nil {
				return cli.Validation("invalid configuration:\n%w", err)
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "Wrote %s\nUse it with:\n  export PIM_CONFIG=%s\n", path, path)
			return nil
		},
	}
}
