// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache implements "pim cache": inspecting, clearing, and
// sealing the persistent token cache.
package cache

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
	"github.com/bureau-foundation/pim/lib/sealed"
)

// Command returns the "cache" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "cache",
		Summary: "Manage the token cache",
		Description: `Tokens are cached between invocations in a CBOR file. The file is
written with mode 0600 and, when token_cache.identity_file is set,
sealed to an age identity.`,
		Subcommands: []*cli.Command{
			statusCommand(),
			clearCommand(),
			keygenCommand(),
		},
	}
}

func loadConfig(params cli.SessionParams) (*config.Config, error) {
	return cli.LoadConfig(params, cli.SessionEnvironment(params.Verbose))
}

type statusParams struct {
	cli.SessionParams
	cli.JSONOutput
}

// statusView is the --json shape of "cache status".
type statusView struct {
	Path         string `json:"path"`
	Disabled     bool   `json:"disabled"`
	Present      bool   `json:"present"`
	Size         int64  `json:"size,omitempty"`
	IdentityFile string `json:"identity_file,omitempty"`
	Sealed       bool   `json:"sealed"`
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show where tokens are cached",
		Usage:   "pim cache status [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
				return err
			}
			cfg, err := loadConfig(params.SessionParams)
			if err != nil {
				return err
			}

			view := statusView{
				Path:         cfg.TokenCache.Path,
				Disabled:     cfg.TokenCache.Disabled,
				IdentityFile: cfg.TokenCache.IdentityFile,
				Sealed:       cfg.TokenCache.IdentityFile != "",
			}
			info, err := os.Stat(cfg.TokenCache.Path)
			switch {
			case err == nil:
				view.Present = true
				view.Size = info.Size()
			case !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("reading token cache: %w", err)
			}

			if done, err := params.EmitJSON(view); done {
				return err
			}
			state := "absent"
			if view.Present {
				state = fmt.Sprintf("present, %d bytes", view.Size)
			}
			if view.Disabled {
				state = "disabled"
			}
			sealing := "no"
			if view.Sealed {
				sealing = "yes (" + view.IdentityFile + ")"
			}
			tw := cli.NewTable()
			fmt.Fprintf(tw, "Path:\t%s\n", view.Path)
			fmt.Fprintf(tw, "State:\t%s\n", state)
			fmt.Fprintf(tw, "Sealed:\t%s\n", sealing)
			return tw.Flush()
		},
	}
}

type clearParams struct {
	cli.SessionParams
}

func clearCommand() *cli.Command {
	var params clearParams

	return &cli.Command{
		Name:    "clear",
		Summary: "Delete the token cache file",
		Description: `Delete the cache file without signing in. Use this when the file can
no longer be read, for example after its identity file was lost;
otherwise "pim logout" does the same through the broker.`,
		Usage: "pim cache clear [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("clear", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
				return err
			}
			cfg, err := loadConfig(params.SessionParams)
			if err != nil {
				return err
			}
			err = os.Remove(cfg.TokenCache.Path)
			switch {
			case err == nil:
				fmt.Fprintf(cli.Stdout, "Removed %s.\n", cfg.TokenCache.Path)
			case errors.Is(err, fs.ErrNotExist):
				fmt.Fprintf(cli.Stdout, "No token cache at %s.\n", cfg.TokenCache.Path)
			default:
				return fmt.Errorf("removing token cache: %w", err)
			}
			return nil
		},
	}
}

type keygenParams struct {
	cli.SessionParams
	Output string `json:"output" flag:"output,o" desc:"identity file to create (default: token_cache.identity_file, else identity.age beside the cache)"`
}

func keygenCommand() *cli.Command {
	var params keygenParams

	return &cli.Command{
		Name:    "keygen",
		Summary: "Create an age identity for sealing the cache",
		Description: `Generate an X25519 age identity and write it with mode 0600. Point
token_cache.identity_file at the file to seal cached tokens to it. An
existing file is never overwritten.`,
		Usage: "pim cache keygen [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("keygen", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Create the identity next to the cache",
				Command:     "pim cache keygen",
			},
		},
		Run: func(_ context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
				return err
			}
			path := params.Output
			if path == "" {
				cfg, err := loadConfig(params.SessionParams)
				if err != nil {
					return err
				}
				path = identityPath(cfg)
			}

			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()

			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
			}
			if err := sealed.WriteIdentityFile(path, keypair); err != nil {
				if errors.Is(err, fs.ErrExist) {
					return cli.Validation("identity file %s already exists", path)
				}
				return fmt.Errorf("writing identity file: %w", err)
			}

			fmt.Fprintf(cli.Stdout, "Wrote %s\n", path)
			fmt.Fprintf(cli.Stdout, "Public key: %s\n", keypair.PublicKey)
			fmt.Fprintf(cli.Stdout, "\nSeal the cache with:\n  token_cache:\n    identity_file: %s\n", path)
			return nil
		},
	}
}

func identityPath(cfg *config.Config) string {
	if cfg.TokenCache.IdentityFile != "" {
		return cfg.TokenCache.IdentityFile
	}
	return filepath.Join(filepath.Dir(cfg.TokenCache.Path), "identity.age")
}
