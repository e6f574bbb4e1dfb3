// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
)

type rolesParams struct {
	cli.SessionParams
	cli.JSONOutput
	Scope   string `json:"scope"    flag:"scope,s" desc:"scope path whose roles to list" default:"/"`
	Filter  string `json:"filter"   flag:"filter"  desc:"only roles whose name contains this text (case-insensitive)"`
	Custom  bool   `json:"custom"   flag:"custom"  desc:"only custom roles"`
	ShowIDs bool   `json:"show_ids" flag:"ids"     desc:"show full definition IDs"`
}

// RolesCommand returns the "roles" command.
func RolesCommand() *cli.Command {
	var params rolesParams

	return &cli.Command{
		Name:    "roles",
		Summary: "List role definitions",
		Description: `List the role definitions an authority knows at a scope. Any of the
names or IDs shown can be passed to activate, assign, or policy.`,
		Usage: "pim roles [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("roles", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Directory roles mentioning administrators",
				Command:     "pim roles --filter admin",
			},
			{
				Description: "Custom roles on a subscription",
				Command:     "pim roles --scope /subscriptions/0000-1111 --custom",
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

			definitions, err := session.PIM.ListRoles(ctx, target)
			if err != nil {
				return err
			}
			definitions = filterRoles(definitions, params.Filter, params.Custom)

			if done, err := params.EmitJSON(definitions); done {
				return err
			}
			if len(definitions) == 0 {
				fmt.Fprintf(cli.Stdout, "No matching roles at %s.\n", target)
				return nil
			}
			tw := cli.NewTable()
			fmt.Fprintf(tw, "NAME\tID\tTYPE\n")
			for _, definition := range definitions {
				id := definition.Name
				if params.ShowIDs || id == "" {
					id = definition.ID
				}
				kind := "custom"
				if definition.BuiltIn {
					kind = "built-in"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", definition.DisplayName, id, kind)
			}
			return tw.Flush()
		},
	}
}

// filterRoles keeps definitions whose display name contains filter and,
// with customOnly, that are not built in. The result is sorted by name.
func filterRoles(definitions []access.RoleDefinition, filter string, customOnly bool) []access.RoleDefinition {
	needle := strings.ToLower(strings.TrimSpace(filter))
	kept := make([]access.RoleDefinition, 0, len(definitions))
	for _, definition := range definitions {
		if needle != "" && !strings.Contains(strings.ToLower(definition.DisplayName), needle) {
			continue
		}
		if customOnly && definition.BuiltIn {
			continue
		}
		kept = append(kept, definition)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].DisplayName < kept[j].DisplayName })
	return kept
}
