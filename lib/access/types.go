// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/scope"
)

// Action is the kind of change an AccessRequest asks for. The string
// value is the resource authority's spelling; the directory authority
// uses the same words in lowerCamel (see WireLower).
type Action string

const (
	ActionAdminAssign    Action = "AdminAssign"
	ActionAdminRemove    Action = "AdminRemove"
	ActionAdminExtend    Action = "AdminExtend"
	ActionAdminRenew     Action = "AdminRenew"
	ActionSelfActivate   Action = "SelfActivate"
	ActionSelfDeactivate Action = "SelfDeactivate"
	ActionSelfExtend     Action = "SelfExtend"
	ActionSelfRenew      Action = "SelfRenew"
)

var allActions = []Action{
	ActionAdminAssign, ActionAdminRemove, ActionAdminExtend, ActionAdminRenew,
	ActionSelfActivate, ActionSelfDeactivate, ActionSelfExtend, ActionSelfRenew,
}

// ParseAction accepts either wire spelling, ignoring case.
func ParseAction(text string) (Action, error) {
	for _, action := range allActions {
		if strings.EqualFold(string(action), text) {
			return action, nil
		}
	}
	return "", fmt.Errorf("access: unknown action %q", text)
}

// Valid reports whether a is one of the eight defined actions.
func (a Action) Valid() bool {
	for _, action := range allActions {
		if a == action {
			return true
		}
	}
	return false
}

// WireLower returns the lowerCamel spelling ("selfActivate").
func (a Action) WireLower() string {
	if a == "" {
		return ""
	}
	return strings.ToLower(string(a[:1])) + string(a[1:])
}

// Removes reports whether the action ends a grant rather than creating
// or lengthening one. Removal requests carry no schedule.
func (a Action) Removes() bool {
	return a == ActionAdminRemove || a == ActionSelfDeactivate
}

// Status is the lifecycle state of a submitted request.
type Status string

const (
	// StatusUnknown means the authority accepted the submission but its
	// state has not been observed.
	StatusUnknown Status = ""

	StatusPending                 Status = "Pending"
	StatusPendingApproval         Status = "PendingApproval"
	StatusPendingScheduleCreation Status = "PendingScheduleCreation"
	StatusProvisioned             Status = "Provisioned"
	StatusGranted                 Status = "Granted"
	StatusDenied                  Status = "Denied"
	StatusFailed                  Status = "Failed"
	StatusCanceled                Status = "Canceled"
	StatusRevoked                 Status = "Revoked"
	StatusScheduled               Status = "Scheduled"
	StatusExpired                 Status = "Expired"
)

var allStatuses = []Status{
	StatusPending, StatusPendingApproval, StatusPendingScheduleCreation,
	StatusProvisioned, StatusGranted, StatusDenied, StatusFailed,
	StatusCanceled, StatusRevoked, StatusScheduled, StatusExpired,
}

// ParseStatus maps an authority status string onto Status. Empty text
// is StatusUnknown; any unrecognized value is StatusPending so a newly
// introduced server state never breaks decoding.
func ParseStatus(text string) Status {
	if text == "" {
		return StatusUnknown
	}
	for _, status := range allStatuses {
		if strings.EqualFold(string(status), text) {
			return status
		}
	}
	return StatusPending
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusGranted, StatusDenied, StatusFailed, StatusCanceled, StatusRevoked, StatusExpired:
		return true
	}
	return false
}

// Succeeded reports whether the request reached a state in which the
// requested change is (or will be, on schedule) in effect.
func (s Status) Succeeded() bool {
	switch s {
	case StatusProvisioned, StatusGranted, StatusScheduled:
		return true
	}
	return false
}

// Collection names the request collection an authority files a request
// under. Activation and deactivation use the assignment collection;
// eligibility changes use the eligibility collection.
type Collection string

const (
	CollectionAssignment  Collection = "roleAssignmentScheduleRequests"
	CollectionEligibility Collection = "roleEligibilityScheduleRequests"
)

// Ticket links a request to an external change-management record.
type Ticket struct {
	Number string `json:"number,omitempty"`
	System string `json:"system,omitempty"`
}

// Empty reports whether neither field is set.
func (t *Ticket) Empty() bool {
	return t == nil || (t.Number == "" && t.System == "")
}

// AccessRequest is one submission to an authority. The engine creates
// it with a fresh ID and StatusPending; after submission it is replaced
// by the authority's echo, never mutated in place.
type AccessRequest struct {
	ID               string      `json:"id"`
	Authority        scope.Kind  `json:"authority"`
	Collection       Collection  `json:"collection"`
	Action           Action      `json:"action"`
	PrincipalID      string      `json:"principal_id"`
	RoleDefinitionID string      `json:"role_definition_id"`
	Scope            scope.Scope `json:"-"`
	ScopePath        string      `json:"scope"`
	Justification    string      `json:"justification,omitempty"`
	Schedule         Schedule    `json:"schedule"`
	Ticket           *Ticket     `json:"ticket,omitempty"`
	Status           Status      `json:"status"`
	ApprovalID       string      `json:"approval_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
}

// RoleDefinition is a role as one authority knows it. Definitions are
// immutable once fetched.
type RoleDefinition struct {
	// ID is the identifier the authority expects in requests. For the
	// resource authority this is the full resource path of the
	// definition; for the directory authority it is the template GUID.
	ID string `json:"id"`

	// Name is the bare GUID of the definition.
	Name string `json:"name"`

	DisplayName string     `json:"display_name"`
	Description string     `json:"description,omitempty"`
	Authority   scope.Kind `json:"authority"`
	BuiltIn     bool       `json:"built_in"`
}

// Principal is the user or service principal on whose behalf requests
// are made.
type Principal struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name,omitempty"`
	UserPrincipalName string `json:"user_principal_name,omitempty"`
}

// AssignmentKind distinguishes standing eligibility from an active
// grant.
type AssignmentKind string

const (
	AssignmentEligible AssignmentKind = "Eligible"
	AssignmentActive   AssignmentKind = "Active"
)

// Assignment is one eligibility or active-assignment schedule instance
// as listed by an authority.
type Assignment struct {
	ID               string         `json:"id"`
	Kind             AssignmentKind `json:"kind"`
	Authority        scope.Kind     `json:"authority"`
	PrincipalID      string         `json:"principal_id"`
	RoleDefinitionID string         `json:"role_definition_id"`
	RoleName         string         `json:"role_name,omitempty"`
	ScopePath        string         `json:"scope"`
	MemberType       string         `json:"member_type,omitempty"`
	Status           string         `json:"status,omitempty"`
	StartTime        *time.Time     `json:"start_time,omitempty"`
	EndTime          *time.Time     `json:"end_time,omitempty"`
}

// RolePolicy is role management policy metadata for a directory role.
// It is read and reported, never enforced locally.
type RolePolicy struct {
	ID                    string        `json:"id"`
	RoleDefinitionID      string        `json:"role_definition_id"`
	MaxActivationDuration time.Duration `json:"max_activation_duration,omitempty"`
	RequiresApproval      bool          `json:"requires_approval"`
	RequiresMFA           bool          `json:"requires_mfa"`
	RequiresJustification bool          `json:"requires_justification"`
	RequiresTicket        bool          `json:"requires_ticket"`
}
