// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/scope"
)

// ParseScope reads a --scope value. "/" and "/administrativeUnits/{id}"
// select the directory authority; subscription paths select the
// resource authority.
func ParseScope(text string) (scope.Scope, error) {
	parsed, err := scope.ParseAny(text)
	if err != nil {
		return nil, Validation("--scope: %w", err)
	}
	return parsed, nil
}

// ParseDuration reads a --duration value. Empty returns zero, which
// selects the configured default.
func ParseDuration(text string) (time.Duration, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	duration, err := access.ParseFlexibleDuration(text)
	if err != nil {
		return 0, Validation("--duration: %w", err)
	}
	if duration <= 0 {
		return 0, Validation("--duration must be positive, got %s", text)
	}
	return duration, nil
}

// ParseTime reads an RFC 3339 timestamp. Empty returns nil.
func ParseTime(flag, text string) (*time.Time, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(text))
	if err != nil {
		return nil, Validation("--%s: expected RFC 3339 time like 2026-01-02T15:04:05Z: %w", flag, err)
	}
	return &parsed, nil
}

// TicketParams adds change-management ticket flags.
type TicketParams struct {
	TicketNumber string `json:"ticket_number,omitempty" flag:"ticket"        desc:"change ticket number"`
	TicketSystem string `json:"ticket_system,omitempty" flag:"ticket-system" desc:"system that issued the ticket"`
}

// Ticket returns the ticket, or nil when neither flag is set.
func (t TicketParams) Ticket() *access.Ticket {
	ticket := &access.Ticket{Number: t.TicketNumber, System: t.TicketSystem}
	if ticket.Empty() {
		return nil
	}
	return ticket
}

// RoleArgument takes the role from the single positional argument.
func RoleArgument(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", Validation("role is required (display name or definition ID)")
	case 1:
		if strings.TrimSpace(args[0]) == "" {
			return "", Validation("role is required (display name or definition ID)")
		}
		return args[0], nil
	}
	return "", Validation("unexpected argument: %s", args[1])
}

// NoArguments rejects positional arguments.
func NoArguments(args []string) error {
	if len(args) > 0 {
		return Validation("unexpected argument: %s", args[0])
	}
	return nil
}

// FormatTime renders t for tables, or "-" when nil.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// FormatExpiration renders a schedule's end for tables.
func FormatExpiration(expiration access.Expiration) string {
	switch expiration.Kind {
	case access.AfterDuration:
		return "after " + access.FormatISODuration(expiration.Duration)
	case access.AfterDateTime:
		return FormatTime(&expiration.EndTime)
	case access.NoExpiration:
		return "never"
	}
	return fmt.Sprint(expiration.Kind)
}
