// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pim

import (
	"context"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/scope"
)

// Wait polls a submitted request until it succeeds, reaches a terminal
// state, or parks waiting for an approver. A request in
// PendingApproval fails with *access.ApprovalRequiredError carrying the
// observed request. Poll failures are returned as they occur; nothing
// is retried.
func (facade *PIM) Wait(ctx context.Context, target scope.Scope, collection access.Collection, requestID string) (*access.AccessRequest, error) {
	for {
		request, err := facade.Status(ctx, target, collection, requestID)
		if err != nil {
			return nil, err
		}
		switch {
		case request.Status == access.StatusPendingApproval:
			return request, &access.ApprovalRequiredError{Request: request}
		case request.Status.Terminal(), request.Status.Succeeded():
			return request, nil
		}

		facade.logger.Debug("waiting for request", "request", requestID, "status", request.Status)
		select {
		case <-ctx.Done():
			return request, ctx.Err()
		case <-facade.clock.After(facade.pollInterval):
		}
	}
}
