// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eligibility

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/pim"
)

type removeParams struct {
	cli.SessionParams
	cli.JSONOutput
	Scope         string `json:"scope"         flag:"scope,s"         desc:"scope path of the eligibility" default:"/"`
	Principal     string `json:"principal"     flag:"principal,p"     desc:"object ID of the principal (required)"`
	Justification string `json:"justification" flag:"justification,j" desc:"reason for the removal"`
}

// RemoveCommand returns the "remove" command.
func RemoveCommand() *cli.Command {
	var params removeParams

	return &cli.Command{
		Name:    "remove",
		Summary: "Withdraw a principal's eligibility for a role",
		Usage:   "pim remove <role> --principal <object-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("remove", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Remove directory role eligibility",
				Command:     `pim remove "Security Reader" --principal 6f1e2c3d-0000-4000-8000-000000000001`,
			},
		},
		Run: func(ctx context.Context, args []string) error {
			role, err := cli.RoleArgument(args)
			if err != nil {
				return err
			}
			if params.Principal == "" {
				return cli.Validation("--principal is required")
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

			request, err := session.PIM.RemoveEligibility(ctx, pim.RemoveRequest{
				Role:          role,
				Scope:         target,
				PrincipalID:   params.Principal,
				Justification: params.Justification,
			})
			if err != nil {
				return err
			}
			return cli.PrintRequest(params.JSONOutput, request)
		},
	}
}
