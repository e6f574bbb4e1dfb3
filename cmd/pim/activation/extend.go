// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activation

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/pim"
)

type extendParams struct {
	cli.SessionParams
	cli.JSONOutput
	Scope         string `json:"scope"         flag:"scope,s"         desc:"scope path of the grant" default:"/"`
	Justification string `json:"justification" flag:"justification,j" desc:"reason for the extension"`
	Duration      string `json:"duration"      flag:"duration,d"      desc:"new length, ISO 8601 or Go form (default from config)"`
	Principal     string `json:"principal"     flag:"principal"       desc:"extend another principal's grant (AdminExtend)"`
}

// ExtendCommand returns the "extend" command.
func ExtendCommand() *cli.Command {
	var params extendParams

	return &cli.Command{
		Name:    "extend",
		Summary: "Extend a grant that is about to expire",
		Description: `Submit a SelfExtend request for the caller's own grant, or an
AdminExtend request when --principal names someone else.`,
		Usage: "pim extend <role> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("extend", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Extend a resource grant by four hours",
				Command:     "pim extend Contributor --scope /subscriptions/0000-1111 --duration PT4H -j 'migration overran'",
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
			duration, err := cli.ParseDuration(params.Duration)
			if err != nil {
				return err
			}

			session, err := cli.Connect(ctx, params.SessionParams)
			if err != nil {
				return err
			}
			defer session.Close()

			request, err := session.PIM.Extend(ctx, pim.ExtendRequest{
				Role:          role,
				Scope:         target,
				PrincipalID:   params.Principal,
				Justification: params.Justification,
				Duration:      duration,
			})
			if err != nil {
				return err
			}
			return cli.PrintRequest(params.JSONOutput, request)
		},
	}
}
