// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/testutil"
)

const (
	definitionsPath = "/subscriptions/S1/providers/Microsoft.Authorization/roleDefinitions"
	eligiblePath    = "/subscriptions/S1/providers/Microsoft.Authorization/roleEligibilityScheduleInstances"
	activePath      = "/subscriptions/S1/providers/Microsoft.Authorization/roleAssignmentScheduleInstances"
	readerID        = "acdd72a7-3385-48ef-bd42-f606fba81ae7"
	contributorID   = "b24988ac-6180-42a0-ab88-20f7382dd24c"
)

const resourceDefinitions = `{"value": [
	{"id": "` + definitionsPath + `/` + readerID + `", "name": "` + readerID + `", "properties": {"roleName": "Reader", "type": "BuiltInRole"}},
	{"id": "` + definitionsPath + `/` + contributorID + `", "name": "` + contributorID + `", "properties": {"roleName": "Contributor", "type": "BuiltInRole"}},
	{"id": "` + definitionsPath + `/custom-1", "name": "custom-1", "properties": {"roleName": "Deploy Operator", "type": "CustomRole"}}
]}`

func setup(t *testing.T) (*testutil.Tenant, *bytes.Buffer) {
	t.Helper()
	tenant := testutil.NewTenant(t)
	configPath := tenant.WriteConfig(t, "")

	previousEnvironment := cli.SessionEnvironment
	cli.SessionEnvironment = func(bool) cli.Environment {
		return cli.Environment{
			Lookup: tenant.Lookup(configPath),
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		}
	}
	var output bytes.Buffer
	previousStdout := cli.Stdout
	cli.Stdout = &output
	t.Cleanup(func() {
		cli.SessionEnvironment = previousEnvironment
		cli.Stdout = previousStdout
	})
	return tenant, &output
}

func filterOf(t *testing.T, request testutil.Request) string {
	t.Helper()
	query, err := url.ParseQuery(request.Query)
	if err != nil {
		t.Fatalf("query %q: %v", request.Query, err)
	}
	return query.Get("$filter")
}

func TestEligibleNamesRolesFromDefinitions(t *testing.T) {
	tenant, output := setup(t)
	tenant.Reply("GET "+definitionsPath, 200, resourceDefinitions)
	tenant.Reply("GET "+eligiblePath, 200, `{"value": [{
		"id": "instance-1",
		"name": "instance-1",
		"properties": {
			"principalId": "u-self",
			"roleDefinitionId": "`+definitionsPath+`/`+contributorID+`",
			"scope": "/subscriptions/S1",
			"memberType": "Direct",
			"status": "Provisioned",
			"startDateTime": "2026-01-01T00:00:00Z"
		}
	}]}`)

	if err := EligibleCommand().Execute(context.Background(), []string{"--scope", "/subscriptions/S1", "--json"}); err != nil {
		t.Fatalf("eligible: %v", err)
	}

	var assignments []access.Assignment
	if err := json.Unmarshal(output.Bytes(), &assignments); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output.String())
	}
	if len(assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(assignments))
	}
	if assignments[0].RoleName != "Contributor" {
		t.Errorf("RoleName = %q, want Contributor", assignments[0].RoleName)
	}
	if assignments[0].EndTime != nil {
		t.Errorf("EndTime = %v, want nil for a permanent eligibility", assignments[0].EndTime)
	}

	requests := tenant.Requests("GET")
	var listing *testutil.Request
	for index := range requests {
		if requests[index].Path == eligiblePath {
			listing = &requests[index]
		}
	}
	if listing == nil {
		t.Fatalf("no eligibility listing in %+v", requests)
	}
	if got := filterOf(t, *listing); got != "asTarget()" {
		t.Errorf("$filter = %q, want asTarget()", got)
	}
}

func TestActiveTableForPrincipal(t *testing.T) {
	tenant, output := setup(t)
	tenant.Reply("GET "+activePath, 200, `{"value": [{
		"id": "instance-2",
		"name": "instance-2",
		"properties": {
			"principalId": "u-other",
			"roleDefinitionId": "`+definitionsPath+`/`+readerID+`",
			"scope": "/subscriptions/S1",
			"memberType": "Inherited",
			"startDateTime": "2026-01-01T00:00:00Z",
			"endDateTime": "2026-01-01T08:00:00Z",
			"expandedProperties": {"roleDefinition": {"displayName": "Reader"}}
		}
	}]}`)

	err := ActiveCommand().Execute(context.Background(), []string{"--scope", "/subscriptions/S1", "--principal", "u-other"})
	if err != nil {
		t.Fatalf("active: %v", err)
	}

	text := output.String()
	for _, want := range []string{"ROLE", "Reader", "/subscriptions/S1", "Inherited"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "permanent") {
		t.Errorf("bounded grant shown as permanent:\n%s", text)
	}

	requests := tenant.Requests("GET")
	if len(requests) != 1 {
		t.Fatalf("got %d GETs, want 1 (names came expanded)", len(requests))
	}
	if got := filterOf(t, requests[0]); got != "principalId eq 'u-other'" {
		t.Errorf("$filter = %q, want principalId eq 'u-other'", got)
	}
}

func TestActiveEmpty(t *testing.T) {
	tenant, output := setup(t)
	tenant.Reply("GET "+activePath, 200, `{"value": []}`)

	if err := ActiveCommand().Execute(context.Background(), []string{"--scope", "/subscriptions/S1"}); err != nil {
		t.Fatalf("active: %v", err)
	}
	if got := output.String(); !strings.Contains(got, "No active roles at /subscriptions/S1.") {
		t.Errorf("output = %q, want the empty message", got)
	}
}

func TestRolesFilter(t *testing.T) {
	tenant, output := setup(t)
	tenant.Reply("GET "+definitionsPath, 200, resourceDefinitions)

	if err := RolesCommand().Execute(context.Background(), []string{"--scope", "/subscriptions/S1", "--custom"}); err != nil {
		t.Fatalf("roles: %v", err)
	}
	text := output.String()
	if !strings.Contains(text, "Deploy Operator") || !strings.Contains(text, "custom") {
		t.Errorf("output missing the custom role:\n%s", text)
	}
	if strings.Contains(text, "Contributor") || strings.Contains(text, "Reader") {
		t.Errorf("built-in roles not filtered out:\n%s", text)
	}
}

func TestFilterRoles(t *testing.T) {
	definitions := []access.RoleDefinition{
		{DisplayName: "User Administrator", BuiltIn: true},
		{DisplayName: "Global Administrator", BuiltIn: true},
		{DisplayName: "Reports Reader", BuiltIn: true},
		{DisplayName: "Helpdesk Admin"},
	}

	tests := []struct {
		name       string
		filter     string
		customOnly bool
		want       []string
	}{
		{"all sorted", "", false, []string{"Global Administrator", "Helpdesk Admin", "Reports Reader", "User Administrator"}},
		{"case-insensitive", "ADMIN", false, []string{"Global Administrator", "Helpdesk Admin", "User Administrator"}},
		{"custom only", "admin", true, []string{"Helpdesk Admin"}},
		{"no match", "owner", false, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := filterRoles(definitions, test.filter, test.customOnly)
			if len(got) != len(test.want) {
				t.Fatalf("got %d roles, want %d: %+v", len(got), len(test.want), got)
			}
			for index := range got {
				if got[index].DisplayName != test.want[index] {
					t.Errorf("role %d = %q, want %q", index, got[index].DisplayName, test.want[index])
				}
			}
		})
	}
}

func TestPolicy(t *testing.T) {
	tenant, output := setup(t)
	tenant.Reply("GET /v1.0/roleManagement/directory/roleDefinitions", 200,
		`{"value": [{"id": "62e90394", "templateId": "62e90394", "displayName": "Global Administrator", "isBuiltIn": true}]}`)
	tenant.Reply("GET /v1.0/policies/roleManagementPolicyAssignments", 200, `{"value": [{"policyId": "policy-1", "policy": {"id": "policy-1", "rules": [
		{"@odata.type": "#microsoft.graph.unifiedRoleManagementPolicyExpirationRule", "id": "Expiration_EndUser_Assignment", "maximumDuration": "PT8H"},
		{"@odata.type": "#microsoft.graph.unifiedRoleManagementPolicyApprovalRule", "id": "Approval_EndUser_Assignment", "setting": {"isApprovalRequired": true}}
	]}}]}`)

	if err := PolicyCommand().Execute(context.Background(), []string{"Global Administrator"}); err != nil {
		t.Fatalf("policy: %v", err)
	}
	text := output.String()
	for _, want := range []string{"Global Administrator (62e90394)", "PT8H", "Approval required:"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Approval required:") && !strings.HasSuffix(strings.TrimSpace(line), "yes") {
			t.Errorf("approval line = %q, want yes", line)
		}
	}
}

func TestPolicyRequiresRole(t *testing.T) {
	setup(t)
	err := PolicyCommand().Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("policy without a role succeeded")
	}
	if cli.ExitCode(err) != cli.ExitValidation {
		t.Errorf("exit code = %d, want %d", cli.ExitCode(err), cli.ExitValidation)
	}
}
