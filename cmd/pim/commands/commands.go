// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete pim command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/pim/cmd/pim/account"
	"github.com/bureau-foundation/pim/cmd/pim/activation"
	cachecmd "github.com/bureau-foundation/pim/cmd/pim/cache"
	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/cmd/pim/configcmd"
	"github.com/bureau-foundation/pim/cmd/pim/eligibility"
	"github.com/bureau-foundation/pim/cmd/pim/inventory"
	"github.com/bureau-foundation/pim/lib/version"
)

// Root builds and returns the pim command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "pim",
		Description: `pim: just-in-time privileged role access.

Activate, extend, and deactivate eligible roles in the directory and on
resource scopes, manage who is eligible, and inspect active grants and
role policies.`,
		Subcommands: []*cli.Command{
			activation.ActivateCommand(),
			activation.DeactivateCommand(),
			activation.ExtendCommand(),
			activation.StatusCommand(),
			inventory.EligibleCommand(),
			inventory.ActiveCommand(),
			inventory.RolesCommand(),
			inventory.PolicyCommand(),
			eligibility.AssignCommand(),
			eligibility.RemoveCommand(),
			account.LoginCommand(),
			account.LogoutCommand(),
			account.WhoAmICommand(),
			cachecmd.Command(),
			configcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					if err := cli.NoArguments(args); err != nil {
						return err
					}
					fmt.Fprintf(cli.Stdout, "pim %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "See which roles you can activate",
				Command:     "pim eligible",
			},
			{
				Description: "Activate a directory role for two hours",
				Command:     `pim activate "User Administrator" -d 2h -j "onboarding batch"`,
			},
			{
				Description: "Activate on a subscription and wait for approval",
				Command:     `pim activate Contributor --scope /subscriptions/0000-1111 -j "hotfix" --ticket INC-42 --wait`,
			},
			{
				Description: "Give someone standing eligibility until a date",
				Command:     `pim assign Reader -p 5f1c... --scope /subscriptions/0000-1111 --until 2026-12-31T00:00:00Z -j "audit"`,
			},
		},
	}
}
