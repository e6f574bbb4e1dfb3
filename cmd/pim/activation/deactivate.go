// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activation

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/pim"
)

type deactivateParams struct {
	cli.SessionParams
	cli.JSONOutput
	Scope     string `json:"scope"     flag:"scope,s"   desc:"scope path of the active grant" default:"/"`
	Principal string `json:"principal" flag:"principal" desc:"principal object ID (default: the signed-in identity)"`
}

// DeactivateCommand returns the "deactivate" command.
func DeactivateCommand() *cli.Command {
	var params deactivateParams

	return &cli.Command{
		Name:    "deactivate",
		Summary: "End an active role before it expires",
		Description: `Submit a SelfDeactivate request for an active grant. Authorities
refuse deactivation within the first few minutes of an activation;
that refusal is reported as a conflict.`,
		Usage: "pim deactivate <role> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("deactivate", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Drop a directory role",
				Command:     `pim deactivate "Global Reader"`,
			},
			{
				Description: "Drop a resource role on a resource group",
				Command:     "pim deactivate Owner --scope /subscriptions/0000-1111/resourceGroups/prod",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			role, err := cli.RoleArgument(args)
			if err != nil {
				return err
			}
			target, err := cli.ParseScope(params.Scope)
			if err != nil {
				return err
			}

			session, err := cli.Connect(ctx, params.SessionParams)
			if err != nil {
				return err
			}
			defer session.Close()

			request, err := session.PIM.Deactivate(ctx, pim.RoleRequest{
				Role:        role,
				Scope:       target,
				PrincipalID: params.Principal,
			})
			if err != nil {
				return err
			}
			return cli.PrintRequest(params.JSONOutput, request)
		},
	}
}
