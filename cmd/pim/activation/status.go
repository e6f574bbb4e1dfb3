// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activation

import (
	"context"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
)

type statusParams struct {
	cli.SessionParams
	cli.JSONOutput
	Scope       string        `json:"scope"        flag:"scope,s"      desc:"scope the request was filed at" default:"/"`
	Eligibility bool          `json:"eligibility"  flag:"eligibility"  desc:"the request is an eligibility change (assign or remove)"`
	Wait        bool          `json:"wait"         flag:"wait"         desc:"poll until the request reaches a final state"`
	WaitTimeout time.Duration `json:"wait_timeout" flag:"wait-timeout" desc:"give up waiting after this long" default:"10m"`
}

// StatusCommand returns the "status" command.
func StatusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show the state of a submitted request",
		Description: `Re-read a request by the ID printed when it was submitted. With
--wait, poll until it is provisioned, fails, or parks waiting for an
approver.`,
		Usage: "pim status <request-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Check a resource activation",
				Command:     "pim status 3f1c0a9e-4a6b-4e7d-9c55-0c2b2f7a1e10 --scope /subscriptions/0000-1111",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one request ID is required")
			}
			target, err := cli.ParseScope(params.Scope)
			if err != nil {
				return err
			}
			collection := access.CollectionAssignment
			if params.Eligibility {
				collection = access.CollectionEligibility
			}

			session, err := cli.Connect(ctx, params.SessionParams)
			if err != nil {
				return err
			}
			defer session.Close()

			request, err := session.PIM.Status(ctx, target, collection, args[0])
			if err != nil {
				return err
			}
			if params.Wait {
				return waitAndPrint(ctx, session, params.JSONOutput, target, request, collection, params.WaitTimeout)
			}
			return cli.PrintRequest(params.JSONOutput, request)
		},
	}
}
