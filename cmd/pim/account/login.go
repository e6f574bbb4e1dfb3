// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/token"
)

type loginParams struct {
	cli.SessionParams
	cli.JSONOutput
	Authorities []string `json:"authorities" flag:"authority" desc:"authorities to sign in to: directory, resource" default:"directory,resource"`
}

// loginView is one row of login output.
type loginView struct {
	Authority string    `json:"authority"`
	Audience  string    `json:"audience"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginCommand returns the "login" command.
func LoginCommand() *cli.Command {
	var params loginParams

	return &cli.Command{
		Name:    "login",
		Summary: "Sign in and cache tokens",
		Description: `Acquire a token for each authority so later commands run without
prompting. Interactive providers open a browser or print a device code
here; app-only providers just verify their credentials.`,
		Usage: "pim login [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("login", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Sign in with the configured provider",
				Command:     "pim login",
			},
			{
				Description: "Sign in on a headless machine",
				Command:     "pim login --provider device-code",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.NoArguments(args); err != nil {
				return err
			}
			audiences, err := parseAuthorities(params.Authorities)
			if err != nil {
				return err
			}

			session, err := cli.Connect(ctx, params.SessionParams)
			if err != nil {
				return err
			}
			defer session.Close()

			expiries, err := session.PIM.Login(ctx, audiences...)
			if err != nil {
				return err
			}

			views := make([]loginView, 0, len(expiries))
			for _, audience := range audiences {
				expiry, ok := expiries[audience]
				if !ok {
					continue
				}
				views = append(views, loginView{
					Authority: authorityName(audience),
					Audience:  string(audience),
					ExpiresAt: expiry,
				})
			}
			if done, err := params.EmitJSON(views); done {
				return err
			}

			fmt.Fprintf(cli.Stdout, "Signed in with %s.\n", session.Broker.ProviderKind())
			tw := cli.NewTable()
			fmt.Fprintf(tw, "AUTHORITY\tEXPIRES\n")
			for _, view := range views {
				expiry := view.ExpiresAt
				fmt.Fprintf(tw, "%s\t%s\n", view.Authority, cli.FormatTime(&expiry))
			}
			return tw.Flush()
		},
	}
}

var authorityAudiences = map[string]token.Audience{
	"directory": token.AudienceGraph,
	"resource":  token.AudienceResourceManager,
}

// parseAuthorities maps authority names to token audiences, keeping
// the order given and dropping duplicates.
func parseAuthorities(names []string) ([]token.Audience, error) {
	var audiences []token.Audience
	seen := make(map[token.Audience]bool)
	for _, name := range names {
		audience, ok := authorityAudiences[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			known := make([]string, 0, len(authorityAudiences))
			for knownName := range authorityAudiences {
				known = append(known, knownName)
			}
			sort.Strings(known)
			return nil, cli.Validation("--authority: unknown authority %q (want one of %s)", name, strings.Join(known, ", "))
		}
		if seen[audience] {
			continue
		}
		seen[audience] = true
		audiences = append(audiences, audience)
	}
	if len(audiences) == 0 {
		return nil, cli.Validation("--authority: at least one authority is required")
	}
	return audiences, nil
}

func authorityName(audience token.Audience) string {
	for name, candidate := range authorityAudiences {
		if candidate == audience {
			return name
		}
	}
	return string(audience)
}
