// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import "testing"

func TestActionWireLower(t *testing.T) {
	tests := map[Action]string{
		ActionSelfActivate:   "selfActivate",
		ActionSelfDeactivate: "selfDeactivate",
		ActionAdminAssign:    "adminAssign",
		ActionAdminRemove:    "adminRemove",
		ActionAdminExtend:    "adminExtend",
		ActionAdminRenew:     "adminRenew",
		ActionSelfExtend:     "selfExtend",
		ActionSelfRenew:      "selfRenew",
	}
	for action, want := range tests {
		if got := action.WireLower(); got != want {
			t.Errorf("%s.WireLower() = %q, want %q", action, got, want)
		}
		parsed, err := ParseAction(want)
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", want, err)
		}
		if parsed != action {
			t.Errorf("ParseAction(%q) = %q, want %q", want, parsed, action)
		}
	}
	if _, err := ParseAction("selfDestruct"); err == nil {
		t.Error("ParseAction of an unknown action should fail")
	}
	if Action("Bogus").Valid() {
		t.Error("Bogus action should not be valid")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		text string
		want Status
	}{
		{"", StatusUnknown},
		{"Provisioned", StatusProvisioned},
		{"provisioned", StatusProvisioned},
		{"PendingApproval", StatusPendingApproval},
		{"PendingScheduleCreation", StatusPendingScheduleCreation},
		{"Revoked", StatusRevoked},
		{"PendingAdminDecision", StatusPending},
	}
	for _, test := range tests {
		if got := ParseStatus(test.text); got != test.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", test.text, got, test.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusGranted:                 true,
		StatusDenied:                  true,
		StatusFailed:                  true,
		StatusCanceled:                true,
		StatusRevoked:                 true,
		StatusExpired:                 true,
		StatusPending:                 false,
		StatusPendingApproval:         false,
		StatusPendingScheduleCreation: false,
		StatusProvisioned:             false,
		StatusScheduled:               false,
		StatusUnknown:                 false,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestTicketEmpty(t *testing.T) {
	var missing *Ticket
	if !missing.Empty() {
		t.Error("nil ticket should be empty")
	}
	if !(&Ticket{}).Empty() {
		t.Error("zero ticket should be empty")
	}
	if (&Ticket{Number: "INC-1"}).Empty() {
		t.Error("ticket with a number should not be empty")
	}
}
