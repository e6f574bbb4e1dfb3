// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
)

type logoutParams struct {
	cli.SessionParams
}

// LogoutCommand returns the "logout" command.
func LogoutCommand() *cli.Command {
	var params logoutParams

	return &cli.Command{
		Name:    "logout",
		Summary: "Forget cached tokens",
		Description: `Remove every cached token for the configured tenant, client, and
provider. The next command signs in again.`,
		Usage: "pim logout [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("logout", &params)
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

			if err := session.PIM.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cli.Stdout, "Signed out.")
			return nil
		},
	}
}
