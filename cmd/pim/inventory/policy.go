// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
)

type policyParams struct {
	cli.SessionParams
	cli.JSONOutput
}

// policyView is the --json shape of the policy command.
type policyView struct {
	Role   access.RoleDefinition `json:"role"`
	Policy access.RolePolicy     `json:"policy"`
}

// PolicyCommand returns the "policy" command.
func PolicyCommand() *cli.Command {
	var params policyParams

	return &cli.Command{
		Name:    "policy",
		Summary: "Show the activation policy of a directory role",
		Description: `Read the role management policy assigned to a directory role: the
longest activation allowed and whether approval, multi-factor
authentication, a justification, or a ticket is required. The policy
is reported only; the authority enforces it when a request arrives.`,
		Usage: "pim policy <role> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("policy", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Check what activating Global Administrator requires",
				Command:     `pim policy "Global Administrator"`,
			},
		},
		Run: func(ctx context.Context, args []string) error {
			role, err := cli.RoleArgument(args)
			if err != nil {
				return err
			}

			session, err := cli.Connect(ctx, params.SessionParams)
			if err != nil {
				return err
			}
			defer session.Close()

			policy, definition, err := session.PIM.Policy(ctx, role)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(policyView{Role: definition, Policy: policy}); done {
				return err
			}

			maximum := "-"
			if policy.MaxActivationDuration > 0 {
				maximum = access.FormatISODuration(policy.MaxActivationDuration)
			}
			tw := cli.NewTable()
			fmt.Fprintf(tw, "Role:\t%s (%s)\n", definition.DisplayName, definition.ID)
			fmt.Fprintf(tw, "Policy:\t%s\n", policy.ID)
			fmt.Fprintf(tw, "Maximum activation:\t%s\n", maximum)
			fmt.Fprintf(tw, "Approval required:\t%s\n", yesNo(policy.RequiresApproval))
			fmt.Fprintf(tw, "MFA required:\t%s\n", yesNo(policy.RequiresMFA))
			fmt.Fprintf(tw, "Justification required:\t%s\n", yesNo(policy.RequiresJustification))
			fmt.Fprintf(tw, "Ticket required:\t%s\n", yesNo(policy.RequiresTicket))
			return tw.Flush()
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
