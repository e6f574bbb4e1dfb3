// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/scope"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeBackend records submissions and answers from a script.
type fakeBackend struct {
	authority   scope.Kind
	serverIDs   bool
	submitted   []AccessRequest
	respond     func(request *AccessRequest) (*AccessRequest, error)
	getRequests []string
}

func (backend *fakeBackend) Authority() scope.Kind { return backend.authority }

func (backend *fakeBackend) AssignsRequestIDServerSide() bool { return backend.serverIDs }

func (backend *fakeBackend) Submit(_ context.Context, request *AccessRequest) (*AccessRequest, error) {
	backend.submitted = append(backend.submitted, *request)
	if backend.respond != nil {
		return backend.respond(request)
	}
	echo := *request
	echo.Status = StatusProvisioned
	return &echo, nil
}

func (backend *fakeBackend) Get(_ context.Context, _ Collection, _ scope.Scope, requestID string) (*AccessRequest, error) {
	backend.getRequests = append(backend.getRequests, requestID)
	return &AccessRequest{ID: requestID, Status: StatusGranted}, nil
}

func newTestEngine() *Engine {
	counter := 0
	return NewEngine(EngineConfig{
		Clock: clock.Fake(epoch),
		NewID: func() string {
			counter++
			return fmt.Sprintf("request-%d", counter)
		},
	})
}

var subscription = scope.ForSubscription("S")

func TestActivateBuildsSelfActivate(t *testing.T) {
	backend := &fakeBackend{authority: scope.KindResource}
	engine := newTestEngine()

	result, err := engine.Activate(context.Background(), backend, ActivateParams{
		PrincipalID:      "principal-1",
		RoleDefinitionID: "/subscriptions/S/providers/Microsoft.Authorization/roleDefinitions/reader",
		Scope:            subscription,
		Justification:    "incident 42",
		Duration:         time.Hour,
		Ticket:           &Ticket{Number: "INC-42", System: "ServiceNow"},
	})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if result.Status != StatusProvisioned {
		t.Errorf("Status = %q, want %q", result.Status, StatusProvisioned)
	}

	if len(backend.submitted) != 1 {
		t.Fatalf("submitted %d requests, want 1", len(backend.submitted))
	}
	sent := backend.submitted[0]
	if sent.Action != ActionSelfActivate {
		t.Errorf("Action = %q, want %q", sent.Action, ActionSelfActivate)
	}
	if sent.Collection != CollectionAssignment {
		t.Errorf("Collection = %q, want %q", sent.Collection, CollectionAssignment)
	}
	if sent.Schedule.Expiration != ExpireAfter(time.Hour) {
		t.Errorf("Expiration = %+v, want AfterDuration 1h", sent.Schedule.Expiration)
	}
	if sent.ID != "request-1" {
		t.Errorf("ID = %q, want %q", sent.ID, "request-1")
	}
	if sent.Status != StatusPending {
		t.Errorf("submitted Status = %q, want %q", sent.Status, StatusPending)
	}
	if !sent.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", sent.CreatedAt, epoch)
	}
	if sent.ScopePath != "/subscriptions/S" {
		t.Errorf("ScopePath = %q, want %q", sent.ScopePath, "/subscriptions/S")
	}
	if sent.Authority != scope.KindResource {
		t.Errorf("Authority = %q, want %q", sent.Authority, scope.KindResource)
	}
}

func TestFreshIDPerCall(t *testing.T) {
	backend := &fakeBackend{authority: scope.KindResource}
	engine := NewEngine(EngineConfig{Clock: clock.Fake(epoch)})

	params := ActivateParams{
		PrincipalID:      "p",
		RoleDefinitionID: "r",
		Scope:            subscription,
		Duration:         time.Hour,
	}
	for range 3 {
		if _, err := engine.Activate(context.Background(), backend, params); err != nil {
			t.Fatalf("Activate: %v", err)
		}
	}
	seen := map[string]bool{}
	for _, request := range backend.submitted {
		if request.ID == "" || seen[request.ID] {
			t.Fatalf("request ID %q is empty or reused", request.ID)
		}
		seen[request.ID] = true
	}
}

func TestDeactivateCarriesNoSchedule(t *testing.T) {
	backend := &fakeBackend{authority: scope.KindDirectory}
	engine := newTestEngine()

	if _, err := engine.Deactivate(context.Background(), backend, "p", "role", scope.Tenant); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	sent := backend.submitted[0]
	if sent.Action != ActionSelfDeactivate {
		t.Errorf("Action = %q, want %q", sent.Action, ActionSelfDeactivate)
	}
	if sent.Schedule != (Schedule{}) {
		t.Errorf("Schedule = %+v, want empty", sent.Schedule)
	}
}

func TestEligibilityUsesEligibilityCollection(t *testing.T) {
	backend := &fakeBackend{authority: scope.KindDirectory}
	engine := newTestEngine()

	if _, err := engine.AssignEligibility(context.Background(), backend, AssignParams{
		PrincipalID:      "p",
		RoleDefinitionID: "role",
		Scope:            scope.Tenant,
		Schedule:         Schedule{Expiration: ExpireAfter(365 * 24 * time.Hour)},
	}); err != nil {
		t.Fatalf("AssignEligibility: %v", err)
	}
	if _, err := engine.RemoveEligibility(context.Background(), backend, RemoveParams{
		PrincipalID:      "p",
		RoleDefinitionID: "role",
		Scope:            scope.Tenant,
	}); err != nil {
		t.Fatalf("RemoveEligibility: %v", err)
	}

	assign, remove := backend.submitted[0], backend.submitted[1]
	if assign.Action != ActionAdminAssign || assign.Collection != CollectionEligibility {
		t.Errorf("assign = %s/%s, want AdminAssign/eligibility", assign.Action, assign.Collection)
	}
	if remove.Action != ActionAdminRemove || remove.Collection != CollectionEligibility {
		t.Errorf("remove = %s/%s, want AdminRemove/eligibility", remove.Action, remove.Collection)
	}
}

func TestExtendSelectsAction(t *testing.T) {
	backend := &fakeBackend{authority: scope.KindResource}
	engine := newTestEngine()

	params := ExtendParams{PrincipalID: "p", RoleDefinitionID: "r", Scope: subscription, Duration: time.Hour}
	if _, err := engine.Extend(context.Background(), backend, params); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	params.Admin = true
	if _, err := engine.Extend(context.Background(), backend, params); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if got := backend.submitted[0].Action; got != ActionSelfExtend {
		t.Errorf("first Action = %q, want %q", got, ActionSelfExtend)
	}
	if got := backend.submitted[1].Action; got != ActionAdminExtend {
		t.Errorf("second Action = %q, want %q", got, ActionAdminExtend)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		request AccessRequest
		want    string
	}{
		{
			name:    "unknown action",
			request: AccessRequest{Action: "Explode", PrincipalID: "p", RoleDefinitionID: "r", Scope: subscription},
			want:    "unknown action",
		},
		{
			name:    "missing role",
			request: AccessRequest{Action: ActionSelfActivate, PrincipalID: "p", Scope: subscription, Schedule: Schedule{Expiration: ExpireAfter(time.Hour)}},
			want:    "role definition ID",
		},
		{
			name:    "missing principal",
			request: AccessRequest{Action: ActionSelfActivate, RoleDefinitionID: "r", Scope: subscription, Schedule: Schedule{Expiration: ExpireAfter(time.Hour)}},
			want:    "principal ID",
		},
		{
			name:    "missing scope",
			request: AccessRequest{Action: ActionSelfActivate, PrincipalID: "p", RoleDefinitionID: "r", Schedule: Schedule{Expiration: ExpireAfter(time.Hour)}},
			want:    "scope is required",
		},
		{
			name:    "directory scope on resource authority",
			request: AccessRequest{Action: ActionSelfActivate, PrincipalID: "p", RoleDefinitionID: "r", Scope: scope.Tenant, Schedule: Schedule{Expiration: ExpireAfter(time.Hour)}},
			want:    "cannot be used",
		},
		{
			name:    "zero duration",
			request: AccessRequest{Action: ActionSelfActivate, PrincipalID: "p", RoleDefinitionID: "r", Scope: subscription, Schedule: Schedule{Expiration: ExpireAfter(0)}},
			want:    "positive duration",
		},
		{
			name:    "invalid resource scope",
			request: AccessRequest{Action: ActionSelfActivate, PrincipalID: "p", RoleDefinitionID: "r", Scope: scope.Resource{SubscriptionID: "S", Provider: "P"}, Schedule: Schedule{Expiration: ExpireAfter(time.Hour)}},
			want:    "provider",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			backend := &fakeBackend{authority: scope.KindResource}
			_, err := newTestEngine().Submit(context.Background(), backend, &test.request)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Fatalf("Submit error = %v, want containing %q", err, test.want)
			}
			if len(backend.submitted) != 0 {
				t.Errorf("invalid request reached the backend")
			}
		})
	}
}

func TestSubmitUndecodableEcho(t *testing.T) {
	backend := &fakeBackend{
		authority: scope.KindResource,
		respond:   func(*AccessRequest) (*AccessRequest, error) { return nil, nil },
	}
	result, err := newTestEngine().Activate(context.Background(), backend, ActivateParams{
		PrincipalID: "p", RoleDefinitionID: "r", Scope: subscription, Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if result.Status != StatusUnknown {
		t.Errorf("Status = %q, want StatusUnknown", result.Status)
	}
	if result.ID != "request-1" {
		t.Errorf("ID = %q, want the locally generated ID", result.ID)
	}
}

func TestSubmitServerAssignedID(t *testing.T) {
	backend := &fakeBackend{
		authority: scope.KindDirectory,
		serverIDs: true,
		respond: func(request *AccessRequest) (*AccessRequest, error) {
			return &AccessRequest{ID: "server-77", Status: StatusPendingApproval, ApprovalID: "approval-1"}, nil
		},
	}
	result, err := newTestEngine().Activate(context.Background(), backend, ActivateParams{
		PrincipalID: "p", RoleDefinitionID: "r", Scope: scope.Tenant, Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if result.ID != "server-77" {
		t.Errorf("ID = %q, want %q", result.ID, "server-77")
	}
	if result.Status != StatusPendingApproval || result.ApprovalID != "approval-1" {
		t.Errorf("result = %+v, want PendingApproval with approval-1", result)
	}
	if result.RoleDefinitionID != "r" {
		t.Errorf("RoleDefinitionID = %q, want submitted value kept", result.RoleDefinitionID)
	}
}

func TestSubmitDoesNotRetry(t *testing.T) {
	backend := &fakeBackend{
		authority: scope.KindResource,
		respond: func(*AccessRequest) (*AccessRequest, error) {
			return nil, &RateLimitError{RetryAfter: 30 * time.Second}
		},
	}
	_, err := newTestEngine().Activate(context.Background(), backend, ActivateParams{
		PrincipalID: "p", RoleDefinitionID: "r", Scope: subscription, Duration: time.Hour,
	})
	retryAfter, limited := IsRateLimited(err)
	if !limited || retryAfter != 30*time.Second {
		t.Fatalf("error = %v, want RateLimitError with 30s", err)
	}
	if len(backend.submitted) != 1 {
		t.Errorf("submitted %d times, want exactly 1", len(backend.submitted))
	}
}

func TestSubmitDoesNotModifyInput(t *testing.T) {
	backend := &fakeBackend{authority: scope.KindResource}
	request := &AccessRequest{
		Action: ActionSelfActivate, PrincipalID: "p", RoleDefinitionID: "r",
		Scope: subscription, Schedule: Schedule{Expiration: ExpireAfter(time.Hour)},
	}
	if _, err := newTestEngine().Submit(context.Background(), backend, request); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if request.ID != "" || request.Status != StatusUnknown {
		t.Errorf("input request was modified: %+v", request)
	}
}

func TestStatus(t *testing.T) {
	backend := &fakeBackend{authority: scope.KindResource}
	engine := newTestEngine()

	result, err := engine.Status(context.Background(), backend, CollectionAssignment, subscription, "abc")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if result.Status != StatusGranted {
		t.Errorf("Status = %q, want %q", result.Status, StatusGranted)
	}
	if len(backend.submitted) != 0 {
		t.Error("Status must not submit anything")
	}
	if _, err := engine.Status(context.Background(), backend, CollectionAssignment, subscription, ""); err == nil {
		t.Error("Status with an empty ID should fail")
	}
	if _, err := engine.Status(context.Background(), backend, CollectionAssignment, scope.Tenant, "abc"); err == nil {
		t.Error("Status with a mismatched scope should fail")
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &APIError{StatusCode: 404, Message: "gone"})
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see a wrapped 404 APIError")
	}
	if !IsNotFound(&RoleNotFoundError{Role: "Reader"}) {
		t.Error("IsNotFound should accept RoleNotFoundError")
	}
	if IsNotFound(&APIError{StatusCode: 500}) {
		t.Error("IsNotFound should reject a 500")
	}

	transport := &APIError{Method: "GET", Path: "/x", Err: errors.New("connection refused")}
	if !IsTransport(transport) {
		t.Error("IsTransport should accept status 0")
	}
	if !strings.Contains(transport.Error(), "connection refused") {
		t.Errorf("transport error text = %q", transport.Error())
	}
	if StatusCode(&PolicyViolationError{StatusCode: 400}) != 400 {
		t.Error("StatusCode should read PolicyViolationError")
	}
	if StatusCode(&RateLimitError{}) != 429 {
		t.Error("StatusCode of a RateLimitError should be 429")
	}
	if !IsApprovalRequired(&ApprovalRequiredError{Request: &AccessRequest{ID: "x"}}) {
		t.Error("IsApprovalRequired should accept ApprovalRequiredError")
	}
	if !IsPolicyViolation(fmt.Errorf("x: %w", &PolicyViolationError{})) {
		t.Error("IsPolicyViolation should see a wrapped error")
	}
	if !IsActivationRejected(&ActivationError{}) {
		t.Error("IsActivationRejected should accept ActivationError")
	}

	notFound := &RoleNotFoundError{Authority: scope.KindDirectory, Scope: "/", Role: "Global Admin", Suggestions: []string{"Global Administrator"}}
	if !strings.Contains(notFound.Error(), `"Global Administrator"`) {
		t.Errorf("RoleNotFoundError text = %q, want suggestion", notFound.Error())
	}
}
