// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eligibility

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/pim"
)

type assignParams struct {
	cli.SessionParams
	cli.JSONOutput
	cli.TicketParams
	Scope         string `json:"scope"         flag:"scope,s"         desc:"scope path of the eligibility" default:"/"`
	Principal     string `json:"principal"     flag:"principal,p"     desc:"object ID of the principal to make eligible (required)"`
	Justification string `json:"justification" flag:"justification,j" desc:"reason for the assignment"`
	Duration      string `json:"duration"      flag:"duration,d"      desc:"eligibility ends this long after it starts (ISO 8601 or Go form)"`
	Until         string `json:"until"         flag:"until"           desc:"eligibility ends at this RFC 3339 time"`
	Start         string `json:"start"         flag:"start"           desc:"eligibility starts at this RFC 3339 time (default: now)"`
}

// AssignCommand returns the "assign" command.
func AssignCommand() *cli.Command {
	var params assignParams

	return &cli.Command{
		Name:    "assign",
		Summary: "Make a principal eligible for a role",
		Description: `Submit an AdminAssign eligibility request for another principal.
Without --duration or --until the eligibility never expires.`,
		Usage: "pim assign <role> --principal <object-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("assign", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Permanent eligibility for a directory role",
				Command:     `pim assign "Security Reader" --principal 6f1e2c3d-0000-4000-8000-000000000001`,
			},
			{
				Description: "Ninety days of Contributor eligibility on a subscription",
				Command:     "pim assign Contributor -s /subscriptions/0000-1111 -p 6f1e2c3d-0000-4000-8000-000000000001 --duration P90D",
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
			expiration, err := parseExpiration(params.Duration, params.Until)
			if err != nil {
				return err
			}
			start, err := cli.ParseTime("start", params.Start)
			if err != nil {
				return err
			}
			if err := (access.Schedule{StartTime: start, Expiration: expiration}).Validate(); err != nil {
				return cli.Validation("%w", err)
			}

			session, err := cli.Connect(ctx, params.SessionParams)
			if err != nil {
				return err
			}
			defer session.Close()

			request, err := session.PIM.AssignEligibility(ctx, pim.AssignRequest{
				Role:          role,
				Scope:         target,
				PrincipalID:   params.Principal,
				Justification: params.Justification,
				Expiration:    expiration,
				StartTime:     start,
				Ticket:        params.Ticket(),
			})
			if err != nil {
				return err
			}
			return cli.PrintRequest(params.JSONOutput, request)
		},
	}
}

// parseExpiration reads the mutually exclusive --duration and --until.
func parseExpiration(durationText, untilText string) (access.Expiration, error) {
	if durationText != "" && untilText != "" {
		return access.Expiration{}, cli.Validation("--duration and --until are mutually exclusive")
	}
	if durationText != "" {
		duration, err := cli.ParseDuration(durationText)
		if err != nil {
			return access.Expiration{}, err
		}
		return access.ExpireAfter(duration), nil
	}
	until, err := cli.ParseTime("until", untilText)
	if err != nil {
		return access.Expiration{}, err
	}
	if until != nil {
		return access.ExpireAt(*until), nil
	}
	return access.Never(), nil
}
