// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activation

import (
	"context"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/pim"
)

type activateParams struct {
	cli.SessionParams
	cli.JSONOutput
	cli.TicketParams
	Scope         string        `json:"scope"         flag:"scope,s"         desc:"scope path: / or /administrativeUnits/{id} for directory roles, /subscriptions/{id}[/resourceGroups/{name}] for resource roles" default:"/"`
	Justification string        `json:"justification" flag:"justification,j" desc:"reason for the activation"`
	Duration      string        `json:"duration"      flag:"duration,d"      desc:"activation length, ISO 8601 (PT2H) or Go form (90m) (default from config)"`
	Principal     string        `json:"principal"     flag:"principal"       desc:"principal object ID (default: the signed-in identity)"`
	Wait          bool          `json:"wait"          flag:"wait"            desc:"poll until the request is provisioned or fails"`
	WaitTimeout   time.Duration `json:"wait_timeout"  flag:"wait-timeout"    desc:"give up waiting after this long" default:"10m"`
}

// ActivateCommand returns the "activate" command.
func ActivateCommand() *cli.Command {
	var params activateParams

	return &cli.Command{
		Name:    "activate",
		Summary: "Activate an eligible role",
		Description: `Request time-bounded activation of a role the signed-in identity is
eligible for. The role is a display name or a role definition ID; the
display name is tried first.

The scope decides the authority: "/" and "/administrativeUnits/{id}"
are directory scopes, subscription paths are resource scopes.

Requests are submitted once. A rate-limited or rejected request fails
with the authority's reason and is never retried.`,
		Usage: "pim activate <role> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("activate", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Activate a directory role for two hours",
				Command:     `pim activate "Global Reader" --duration PT2H --justification "audit review"`,
			},
			{
				Description: "Activate a resource role on a subscription and wait for it",
				Command:     "pim activate Contributor --scope /subscriptions/0000-1111 --wait",
			},
			{
				Description: "Reference a change ticket",
				Command:     `pim activate "User Administrator" -j "onboarding" --ticket CHG-1042 --ticket-system ServiceNow`,
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

			request, err := session.PIM.Activate(ctx, pim.ActivateRequest{
				Role:          role,
				Scope:         target,
				PrincipalID:   params.Principal,
				Justification: params.Justification,
				Duration:      duration,
				Ticket:        params.Ticket(),
			})
			if err != nil {
				return err
			}
			if params.Wait {
				return waitAndPrint(ctx, session, params.JSONOutput, target, request, access.CollectionAssignment, params.WaitTimeout)
			}
			return cli.PrintRequest(params.JSONOutput, request)
		},
	}
}
