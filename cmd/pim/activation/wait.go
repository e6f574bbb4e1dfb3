// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activation

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/scope"
)

// waitAndPrint polls a submitted request until it settles and prints
// the last state observed. A request parked for approval is printed
// and then reported as an error.
func waitAndPrint(ctx context.Context, session *cli.Session, output cli.JSONOutput, target scope.Scope, request *access.AccessRequest, collection access.Collection, timeout time.Duration) error {
	if request.Status.Terminal() || request.Status.Succeeded() {
		return cli.PrintRequest(output, request)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	latest, err := session.PIM.Wait(waitCtx, target, collection, request.ID)
	if latest == nil {
		latest = request
	}
	if printErr := cli.PrintRequest(output, latest); printErr != nil {
		return printErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return cli.Transient("request %s is still %s after %s", latest.ID, latest.Status, timeout)
	}
	if err != nil {
		return err
	}
	if !latest.Status.Succeeded() {
		return cli.Forbidden("request %s ended %s", latest.ID, latest.Status)
	}
	return nil
}
