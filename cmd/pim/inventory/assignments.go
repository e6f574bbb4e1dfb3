// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/scope"
)

type listParams struct {
	cli.SessionParams
	cli.JSONOutput
	Scope     string `json:"scope"     flag:"scope,s"     desc:"scope path to list at" default:"/"`
	Principal string `json:"principal" flag:"principal,p" desc:"principal object ID (default: the signed-in identity)"`
}

type lister func(ctx context.Context, session *cli.Session, target scope.Scope, principalID string) ([]access.Assignment, error)

// EligibleCommand returns the "eligible" command.
func EligibleCommand() *cli.Command {
	return assignmentsCommand("eligible", "List roles you are eligible to activate",
		`List eligibility schedule instances at a scope. Activate one of
them with "pim activate <role>".`,
		func(ctx context.Context, session *cli.Session, target scope.Scope, principalID string) ([]access.Assignment, error) {
			return session.PIM.ListEligible(ctx, target, principalID)
		})
}

// ActiveCommand returns the "active" command.
func ActiveCommand() *cli.Command {
	return assignmentsCommand("active", "List active role grants",
		`List active assignment schedule instances at a scope: standing
assignments and current activations.`,
		func(ctx context.Context, session *cli.Session, target scope.Scope, principalID string) ([]access.Assignment, error) {
			return session.PIM.ListActive(ctx, target, principalID)
		})
}

func assignmentsCommand(name, summary, description string, list lister) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:        name,
		Summary:     summary,
		Description: description,
		Usage:       "pim " + name + " [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams(name, &params)
		},
		Examples: []cli.Example{
			{
				Description: "Directory roles",
				Command:     "pim " + name,
			},
			{
				Description: "Resource roles on a subscription, as JSON",
				Command:     "pim " + name + " --scope /subscriptions/0000-1111 --json",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
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

			assignments, err := list(ctx, session, target, params.Principal)
			if err != nil {
				return err
			}
			sort.SliceStable(assignments, func(i, j int) bool {
				if assignments[i].RoleName != assignments[j].RoleName {
					return assignments[i].RoleName < assignments[j].RoleName
				}
				return assignments[i].ScopePath < assignments[j].ScopePath
			})

			if done, err := params.EmitJSON(assignments); done {
				return err
			}
			if len(assignments) == 0 {
				fmt.Fprintf(cli.Stdout, "No %s roles at %s.\n", name, target)
				return nil
			}
			tw := cli.NewTable()
			fmt.Fprintf(tw, "ROLE\tSCOPE\tMEMBER\tSTART\tEND\n")
			for _, assignment := range assignments {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					roleLabel(assignment),
					assignment.ScopePath,
					valueOr(assignment.MemberType, "-"),
					cli.FormatTime(assignment.StartTime),
					endLabel(assignment),
				)
			}
			return tw.Flush()
		},
	}
}

func roleLabel(assignment access.Assignment) string {
	if assignment.RoleName != "" {
		return assignment.RoleName
	}
	return assignment.RoleDefinitionID
}

func endLabel(assignment access.Assignment) string {
	if assignment.EndTime == nil {
		return "permanent"
	}
	return cli.FormatTime(assignment.EndTime)
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
