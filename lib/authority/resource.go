// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/scope"
	"github.com/bureau-foundation/pim/lib/token"
)

const (
	// DefaultResourceBaseURL is the resource authority's API root.
	DefaultResourceBaseURL = "https://management.azure.com"

	// DefaultResourceAPIVersion is the authorization provider API
	// version sent with every resource authority call.
	DefaultResourceAPIVersion = "2022-04-01-preview"
)

const authorizationProvider = "/providers/Microsoft.Authorization"

// ResourceConfig configures a Resource client.
type ResourceConfig struct {
	// BaseURL defaults to DefaultResourceBaseURL.
	BaseURL string

	// APIVersion defaults to DefaultResourceAPIVersion.
	APIVersion string

	// Tokens supplies credentials for token.AudienceResourceManager.
	// Required.
	Tokens TokenSource

	HTTPClient *http.Client
	Timeout    time.Duration
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Resource is the resource authority. It implements access.Backend.
type Resource struct {
	client *client
}

// NewResource creates a Resource client.
func NewResource(config ResourceConfig) (*Resource, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultResourceBaseURL
	}
	apiVersion := config.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultResourceAPIVersion
	}
	client, err := newClient(clientOptions{
		name:       "resource",
		baseURL:    baseURL,
		audience:   token.AudienceResourceManager,
		fixed:      url.Values{"api-version": {apiVersion}},
		tokens:     config.Tokens,
		httpClient: config.HTTPClient,
		timeout:    config.Timeout,
		clock:      config.Clock,
		logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Resource{client: client}, nil
}

// Authority returns scope.KindResource.
func (*Resource) Authority() scope.Kind { return scope.KindResource }

// AssignsRequestIDServerSide returns false: the caller's ID names the
// request.
func (*Resource) AssignsRequestIDServerSide() bool { return false }

type resourceRequestProperties struct {
	RequestType      string        `json:"requestType"`
	PrincipalID      string        `json:"principalId"`
	RoleDefinitionID string        `json:"roleDefinitionId"`
	Justification    string        `json:"justification,omitempty"`
	ScheduleInfo     *wireSchedule `json:"scheduleInfo,omitempty"`
	TicketInfo       *wireTicket   `json:"ticketInfo,omitempty"`
}

type resourceRequestBody struct {
	Properties resourceRequestProperties `json:"properties"`
}

// resourceRequestRecord is a schedule request as returned.
type resourceRequestRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties struct {
		RequestType      string              `json:"requestType"`
		PrincipalID      string              `json:"principalId"`
		RoleDefinitionID string              `json:"roleDefinitionId"`
		Scope            string              `json:"scope"`
		Status           string              `json:"status"`
		ApprovalID       string              `json:"approvalId"`
		Justification    string              `json:"justification"`
		CreatedOn        *wireTime           `json:"createdOn"`
		ScheduleInfo     *wireScheduleRecord `json:"scheduleInfo"`
		TicketInfo       *wireTicket         `json:"ticketInfo"`
	} `json:"properties"`
}

func (record *resourceRequestRecord) request(collection access.Collection) *access.AccessRequest {
	properties := record.Properties
	id := record.Name
	if id == "" {
		id = lastSegment(record.ID)
	}
	request := &access.AccessRequest{
		ID:               id,
		Authority:        scope.KindResource,
		Collection:       collection,
		Action:           decodeAction(properties.RequestType),
		PrincipalID:      properties.PrincipalID,
		RoleDefinitionID: properties.RoleDefinitionID,
		ScopePath:        properties.Scope,
		Justification:    properties.Justification,
		Schedule:         decodeSchedule(properties.ScheduleInfo),
		Ticket:           decodeTicket(properties.TicketInfo),
		Status:           access.ParseStatus(properties.Status),
		ApprovalID:       properties.ApprovalID,
	}
	if created := properties.CreatedOn.pointer(); created != nil {
		request.CreatedAt = *created
	}
	if parsed, err := scope.Parse(properties.Scope); err == nil {
		request.Scope = parsed
	}
	return request
}

// Submit PUTs request under its caller-chosen ID. An accepted request
// whose echo cannot be decoded returns nil.
func (resource *Resource) Submit(ctx context.Context, request *access.AccessRequest) (*access.AccessRequest, error) {
	if request.ID == "" {
		return nil, fmt.Errorf("authority: resource requests need a caller-assigned ID")
	}
	target, err := resourceScope(request.Scope)
	if err != nil {
		return nil, err
	}

	body := resourceRequestBody{Properties: resourceRequestProperties{
		RequestType:      string(request.Action),
		PrincipalID:      request.PrincipalID,
		RoleDefinitionID: qualifyRoleDefinitionID(target, request.RoleDefinitionID),
		Justification:    request.Justification,
		ScheduleInfo:     encodeSchedule(request.Schedule, false),
		TicketInfo:       encodeTicket(request.Ticket),
	}}
	path := target.String() + authorizationProvider + "/" + string(request.Collection) + "/" + url.PathEscape(request.ID)
	response, err := resource.client.do(ctx, http.MethodPut, resource.client.url(path, nil), body, request.Action)
	if err != nil {
		return nil, err
	}

	var record resourceRequestRecord
	if err := json.Unmarshal(response, &record); err != nil || (record.Name == "" && record.ID == "") {
		resource.client.logger.Warn("undecodable request echo", "collection", request.Collection, "request_id", request.ID, "error", err)
		return nil, nil
	}
	return record.request(request.Collection), nil
}

// Get fetches a schedule request by ID at target.
func (resource *Resource) Get(ctx context.Context, collection access.Collection, target scope.Scope, requestID string) (*access.AccessRequest, error) {
	resourceTarget, err := resourceScope(target)
	if err != nil {
		return nil, err
	}
	var record resourceRequestRecord
	path := resourceTarget.String() + authorizationProvider + "/" + string(collection) + "/" + url.PathEscape(requestID)
	if err := resource.client.get(ctx, path, nil, &record); err != nil {
		return nil, err
	}
	return record.request(collection), nil
}

type resourceRoleRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties struct {
		RoleName    string `json:"roleName"`
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"properties"`
}

func (record resourceRoleRecord) definition() access.RoleDefinition {
	return access.RoleDefinition{
		ID:          record.ID,
		Name:        record.Name,
		DisplayName: record.Properties.RoleName,
		Description: record.Properties.Description,
		Authority:   scope.KindResource,
		BuiltIn:     record.Properties.Type == "BuiltInRole",
	}
}

// ListRoleDefinitions lists the roles assignable at target.
func (resource *Resource) ListRoleDefinitions(ctx context.Context, target scope.Scope) ([]access.RoleDefinition, error) {
	resourceTarget, err := resourceScope(target)
	if err != nil {
		return nil, err
	}
	records, err := list[resourceRoleRecord](ctx, resource.client, resourceTarget.String()+authorizationProvider+"/roleDefinitions", nil)
	if err != nil {
		return nil, err
	}
	definitions := make([]access.RoleDefinition, len(records))
	for index, record := range records {
		definitions[index] = record.definition()
	}
	return definitions, nil
}

// FindRoleByName looks a role up by exact role name at target. It
// returns nil and no error when nothing matches.
func (resource *Resource) FindRoleByName(ctx context.Context, target scope.Scope, roleName string) (*access.RoleDefinition, error) {
	resourceTarget, err := resourceScope(target)
	if err != nil {
		return nil, err
	}
	records, err := list[resourceRoleRecord](ctx, resource.client, resourceTarget.String()+authorizationProvider+"/roleDefinitions", url.Values{
		"$filter": {"roleName eq " + odataQuote(roleName)},
	})
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Properties.RoleName == roleName {
			definition := record.definition()
			return &definition, nil
		}
	}
	return nil, nil
}

// GetRoleDefinition fetches a role by bare GUID or full definition ID.
func (resource *Resource) GetRoleDefinition(ctx context.Context, target scope.Scope, id string) (access.RoleDefinition, error) {
	resourceTarget, err := resourceScope(target)
	if err != nil {
		return access.RoleDefinition{}, err
	}
	path := resourceTarget.String() + authorizationProvider + "/roleDefinitions/" + url.PathEscape(id)
	if isQualifiedRoleDefinitionID(id) {
		path = id
	}
	var record resourceRoleRecord
	if err := resource.client.get(ctx, path, nil, &record); err != nil {
		return access.RoleDefinition{}, err
	}
	return record.definition(), nil
}

type resourceInstanceRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties struct {
		PrincipalID        string    `json:"principalId"`
		RoleDefinitionID   string    `json:"roleDefinitionId"`
		Scope              string    `json:"scope"`
		MemberType         string    `json:"memberType"`
		Status             string    `json:"status"`
		StartDateTime      *wireTime `json:"startDateTime"`
		EndDateTime        *wireTime `json:"endDateTime"`
		ExpandedProperties *struct {
			RoleDefinition *struct {
				DisplayName string `json:"displayName"`
			} `json:"roleDefinition"`
		} `json:"expandedProperties"`
	} `json:"properties"`
}

func (record resourceInstanceRecord) assignment(kind access.AssignmentKind) access.Assignment {
	properties := record.Properties
	assignment := access.Assignment{
		ID:               record.Name,
		Kind:             kind,
		Authority:        scope.KindResource,
		PrincipalID:      properties.PrincipalID,
		RoleDefinitionID: properties.RoleDefinitionID,
		ScopePath:        properties.Scope,
		MemberType:       properties.MemberType,
		Status:           properties.Status,
		StartTime:        properties.StartDateTime.pointer(),
		EndTime:          properties.EndDateTime.pointer(),
	}
	if properties.ExpandedProperties != nil && properties.ExpandedProperties.RoleDefinition != nil {
		assignment.RoleName = properties.ExpandedProperties.RoleDefinition.DisplayName
	}
	return assignment
}

// ListEligible lists eligibility instances at target for principalID,
// or for the signed-in principal when principalID is empty.
func (resource *Resource) ListEligible(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error) {
	return resource.listInstances(ctx, target, "roleEligibilityScheduleInstances", principalID, access.AssignmentEligible)
}

// ListActive lists active assignment instances at target for
// principalID, or for the signed-in principal when principalID is
// empty.
func (resource *Resource) ListActive(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error) {
	return resource.listInstances(ctx, target, "roleAssignmentScheduleInstances", principalID, access.AssignmentActive)
}

func (resource *Resource) listInstances(ctx context.Context, target scope.Scope, collection, principalID string, kind access.AssignmentKind) ([]access.Assignment, error) {
	resourceTarget, err := resourceScope(target)
	if err != nil {
		return nil, err
	}
	filter := "asTarget()"
	if principalID != "" {
		filter = "principalId eq " + odataQuote(principalID)
	}
	records, err := list[resourceInstanceRecord](ctx, resource.client, resourceTarget.String()+authorizationProvider+"/"+collection, url.Values{
		"$filter": {filter},
	})
	if err != nil {
		return nil, err
	}
	assignments := make([]access.Assignment, len(records))
	for index, record := range records {
		assignments[index] = record.assignment(kind)
	}
	return assignments, nil
}

// resourceScope checks that target is a valid resource scope.
func resourceScope(target scope.Scope) (scope.Resource, error) {
	resourceTarget, ok := target.(scope.Resource)
	if !ok {
		if target == nil {
			return scope.Resource{}, fmt.Errorf("authority: resource authority requires a scope")
		}
		return scope.Resource{}, fmt.Errorf("authority: %s scope %s cannot be used with the resource authority", target.Kind(), target)
	}
	if err := resourceTarget.Validate(); err != nil {
		return scope.Resource{}, err
	}
	return resourceTarget, nil
}

func isQualifiedRoleDefinitionID(id string) bool {
	return strings.Contains(strings.ToLower(id), strings.ToLower(authorizationProvider)+"/roledefinitions/")
}

// qualifyRoleDefinitionID expands a bare definition GUID to the
// subscription-level definition ID the authority expects.
func qualifyRoleDefinitionID(target scope.Resource, id string) string {
	if isQualifiedRoleDefinitionID(id) {
		return id
	}
	return scope.ForSubscription(target.SubscriptionID).String() + authorizationProvider + "/roleDefinitions/" + id
}
