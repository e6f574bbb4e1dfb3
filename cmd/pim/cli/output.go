// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/bureau-foundation/pim/lib/access"
)

// NewTable returns a tabwriter on Stdout in the layout every listing
// uses. The caller flushes it.
func NewTable() *tabwriter.Writer {
	return tabwriter.NewWriter(Stdout, 2, 0, 3, ' ', 0)
}

// PrintRequest writes a submitted request as JSON when --json is set,
// otherwise as a field list.
func PrintRequest(output JSONOutput, request *access.AccessRequest) error {
	if done, err := output.EmitJSON(request); done {
		return err
	}
	status := string(request.Status)
	if status == "" {
		status = "Unknown"
	}

	tw := NewTable()
	fmt.Fprintf(tw, "Request:\t%s\n", request.ID)
	fmt.Fprintf(tw, "Action:\t%s\n", request.Action)
	fmt.Fprintf(tw, "Status:\t%s\n", status)
	fmt.Fprintf(tw, "Authority:\t%s\n", request.Authority)
	fmt.Fprintf(tw, "Scope:\t%s\n", request.ScopePath)
	fmt.Fprintf(tw, "Role:\t%s\n", request.RoleDefinitionID)
	fmt.Fprintf(tw, "Principal:\t%s\n", request.PrincipalID)
	fmt.Fprintf(tw, "Starts:\t%s\n", FormatTime(request.Schedule.StartTime))
	fmt.Fprintf(tw, "Ends:\t%s\n", FormatExpiration(request.Schedule.Expiration))
	if request.Justification != "" {
		fmt.Fprintf(tw, "Justification:\t%s\n", request.Justification)
	}
	if !request.Ticket.Empty() {
		fmt.Fprintf(tw, "Ticket:\t%s %s\n", request.Ticket.System, request.Ticket.Number)
	}
	if request.ApprovalID != "" {
		fmt.Fprintf(tw, "Approval:\t%s\n", request.ApprovalID)
	}
	return tw.Flush()
}
