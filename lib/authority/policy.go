// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/pim/lib/access"
)

// policyRule is one role management policy rule. Only the fields read
// by Policy are decoded; the rule kind comes from @odata.type.
type policyRule struct {
	ODataType       string   `json:"@odata.type"`
	ID              string   `json:"id"`
	MaximumDuration string   `json:"maximumDuration"`
	EnabledRules    []string `json:"enabledRules"`
	IsEnabled       bool     `json:"isEnabled"`
	Setting         *struct {
		IsApprovalRequired bool `json:"isApprovalRequired"`
	} `json:"setting"`
}

type policyAssignmentRecord struct {
	ID               string `json:"id"`
	PolicyID         string `json:"policyId"`
	RoleDefinitionID string `json:"roleDefinitionId"`
	Policy           *struct {
		ID    string       `json:"id"`
		Rules []policyRule `json:"rules"`
	} `json:"policy"`
}

// Policy reads the end-user activation rules of the tenant-wide policy
// assigned to a directory role. The result is informational: nothing
// in this module enforces it.
func (directory *Directory) Policy(ctx context.Context, roleDefinitionID string) (access.RolePolicy, error) {
	records, err := list[policyAssignmentRecord](ctx, directory.client, "/policies/roleManagementPolicyAssignments", url.Values{
		"$filter": {"scopeId eq '/' and scopeType eq 'DirectoryRole' and roleDefinitionId eq " + odataQuote(roleDefinitionID)},
		"$expand": {"policy($expand=rules)"},
	})
	if err != nil {
		return access.RolePolicy{}, err
	}
	if len(records) == 0 || records[0].Policy == nil {
		return access.RolePolicy{}, &access.APIError{
			StatusCode: http.StatusNotFound,
			Message:    "no role management policy is assigned to role " + roleDefinitionID,
			Method:     http.MethodGet,
			Path:       "/policies/roleManagementPolicyAssignments",
		}
	}

	record := records[0]
	policy := access.RolePolicy{ID: record.Policy.ID, RoleDefinitionID: roleDefinitionID}
	if policy.ID == "" {
		policy.ID = record.PolicyID
	}
	for _, rule := range record.Policy.Rules {
		applyRule(&policy, rule)
	}
	return policy, nil
}

// applyRule folds one end-user assignment rule into policy.
func applyRule(policy *access.RolePolicy, rule policyRule) {
	kind := rule.ODataType[strings.LastIndexByte(rule.ODataType, '.')+1:]
	switch {
	case kind == "unifiedRoleManagementPolicyExpirationRule" && rule.ID == "Expiration_EndUser_Assignment":
		if duration, err := access.ParseISODuration(rule.MaximumDuration); err == nil {
			policy.MaxActivationDuration = duration
		}
	case kind == "unifiedRoleManagementPolicyEnablementRule" && rule.ID == "Enablement_EndUser_Assignment":
		for _, enabled := range rule.EnabledRules {
			switch enabled {
			case "MultiFactorAuthentication":
				policy.RequiresMFA = true
			case "Justification":
				policy.RequiresJustification = true
			case "Ticketing":
				policy.RequiresTicket = true
			}
		}
	case kind == "unifiedRoleManagementPolicyApprovalRule" && rule.ID == "Approval_EndUser_Assignment":
		if rule.Setting != nil && rule.Setting.IsApprovalRequired {
			policy.RequiresApproval = true
		}
	case kind == "unifiedRoleManagementPolicyAuthenticationContextRule" && rule.ID == "AuthenticationContext_EndUser_Assignment":
		if rule.IsEnabled {
			policy.RequiresMFA = true
		}
	}
}
