// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
)

type whoAmIParams struct {
	cli.SessionParams
	cli.JSONOutput
}

// whoAmIView is the --json shape of whoami.
type whoAmIView struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name,omitempty"`
	UserPrincipalName string `json:"user_principal_name,omitempty"`
	Tenant            string `json:"tenant"`
	Provider          string `json:"provider"`
}

// WhoAmICommand returns the "whoami" command.
func WhoAmICommand() *cli.Command {
	var params whoAmIParams

	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the signed-in principal",
		Description: `Print the principal requests are made as. This is the identity
self-activations apply to.`,
		Usage: "pim whoami [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("whoami", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
				return err
			}
			session, err := cli.Connect(ctx, params.SessionParams)
			if err != nil {
				return err
			}
			defer session.Close()

			principal, err := session.PIM.WhoAmI(ctx)
			if err != nil {
				return err
			}
			view := whoAmIView{
				ID:                principal.ID,
				DisplayName:       principal.DisplayName,
				UserPrincipalName: principal.UserPrincipalName,
				Tenant:            session.Config.TenantID,
				Provider:          string(session.Broker.ProviderKind()),
			}
			if done, err := params.EmitJSON(view); done {
				return err
			}

			tw := cli.NewTable()
			if view.UserPrincipalName != "" {
				fmt.Fprintf(tw, "User:\t%s\n", view.UserPrincipalName)
			}
			if view.DisplayName != "" {
				fmt.Fprintf(tw, "Name:\t%s\n", view.DisplayName)
			}
			fmt.Fprintf(tw, "Object ID:\t%s\n", view.ID)
			fmt.Fprintf(tw, "Tenant:\t%s\n", view.Tenant)
			fmt.Fprintf(tw, "Provider:\t%s\n", view.Provider)
			return tw.Flush()
		},
	}
}
