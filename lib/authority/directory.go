// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/scope"
	"github.com/bureau-foundation/pim/lib/token"
)

// DefaultDirectoryBaseURL is the directory authority's API root.
const DefaultDirectoryBaseURL = "https://graph.microsoft.com/v1.0"

const roleManagementPath = "/roleManagement/directory"

// DirectoryConfig configures a Directory client.
type DirectoryConfig struct {
	// BaseURL defaults to DefaultDirectoryBaseURL.
	BaseURL string

	// Tokens supplies credentials for token.AudienceGraph. Required.
	Tokens TokenSource

	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client

	// Timeout defaults to DefaultTimeout. Ignored with HTTPClient.
	Timeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Directory is the directory authority. It implements access.Backend.
type Directory struct {
	client *client
}

// NewDirectory creates a Directory client.
func NewDirectory(config DirectoryConfig) (*Directory, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultDirectoryBaseURL
	}
	client, err := newClient(clientOptions{
		name:       "directory",
		baseURL:    baseURL,
		audience:   token.AudienceGraph,
		tokens:     config.Tokens,
		httpClient: config.HTTPClient,
		timeout:    config.Timeout,
		clock:      config.Clock,
		logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Directory{client: client}, nil
}

// Authority returns scope.KindDirectory.
func (*Directory) Authority() scope.Kind { return scope.KindDirectory }

// AssignsRequestIDServerSide returns true: the directory authority
// names requests itself.
func (*Directory) AssignsRequestIDServerSide() bool { return true }

// directoryRequestBody is the POST body of a schedule request.
type directoryRequestBody struct {
	Action           string        `json:"action"`
	PrincipalID      string        `json:"principalId"`
	RoleDefinitionID string        `json:"roleDefinitionId"`
	DirectoryScopeID string        `json:"directoryScopeId"`
	Justification    string        `json:"justification,omitempty"`
	ScheduleInfo     *wireSchedule `json:"scheduleInfo,omitempty"`
	TicketInfo       *wireTicket   `json:"ticketInfo,omitempty"`
}

// directoryRequestRecord is a schedule request as returned.
type directoryRequestRecord struct {
	ID                string              `json:"id"`
	Status            string              `json:"status"`
	Action            string              `json:"action"`
	PrincipalID       string              `json:"principalId"`
	RoleDefinitionID  string              `json:"roleDefinitionId"`
	DirectoryScopeID  string              `json:"directoryScopeId"`
	Justification     string              `json:"justification"`
	ApprovalID        string              `json:"approvalId"`
	CreatedDateTime   *wireTime           `json:"createdDateTime"`
	CompletedDateTime *wireTime           `json:"completedDateTime"`
	ScheduleInfo      *wireScheduleRecord `json:"scheduleInfo"`
	TicketInfo        *wireTicket         `json:"ticketInfo"`
}

func (record *directoryRequestRecord) request(collection access.Collection) *access.AccessRequest {
	request := &access.AccessRequest{
		ID:               record.ID,
		Authority:        scope.KindDirectory,
		Collection:       collection,
		Action:           decodeAction(record.Action),
		PrincipalID:      record.PrincipalID,
		RoleDefinitionID: record.RoleDefinitionID,
		ScopePath:        record.DirectoryScopeID,
		Justification:    record.Justification,
		Schedule:         decodeSchedule(record.ScheduleInfo),
		Ticket:           decodeTicket(record.TicketInfo),
		Status:           access.ParseStatus(record.Status),
		ApprovalID:       record.ApprovalID,
		CompletedAt:      record.CompletedDateTime.pointer(),
	}
	if created := record.CreatedDateTime.pointer(); created != nil {
		request.CreatedAt = *created
	}
	if parsed, err := scope.ParseDirectory(record.DirectoryScopeID); err == nil {
		request.Scope = parsed
	}
	return request
}

// Submit POSTs request to its collection. The server assigns the ID.
// An accepted request whose echo cannot be decoded returns nil.
func (directory *Directory) Submit(ctx context.Context, request *access.AccessRequest) (*access.AccessRequest, error) {
	body := directoryRequestBody{
		Action:           request.Action.WireLower(),
		PrincipalID:      request.PrincipalID,
		RoleDefinitionID: request.RoleDefinitionID,
		DirectoryScopeID: request.Scope.String(),
		Justification:    request.Justification,
		ScheduleInfo:     encodeSchedule(request.Schedule, true),
		TicketInfo:       encodeTicket(request.Ticket),
	}
	target := directory.client.url(roleManagementPath+"/"+string(request.Collection), nil)
	response, err := directory.client.do(ctx, http.MethodPost, target, body, request.Action)
	if err != nil {
		return nil, err
	}

	var record directoryRequestRecord
	if err := json.Unmarshal(response, &record); err != nil || record.ID == "" {
		directory.client.logger.Warn("undecodable request echo", "collection", request.Collection, "error", err)
		return nil, nil
	}
	return record.request(request.Collection), nil
}

// Get fetches a schedule request by ID. The scope is not part of the
// directory authority's request path.
func (directory *Directory) Get(ctx context.Context, collection access.Collection, _ scope.Scope, requestID string) (*access.AccessRequest, error) {
	var record directoryRequestRecord
	path := roleManagementPath + "/" + string(collection) + "/" + url.PathEscape(requestID)
	if err := directory.client.get(ctx, path, nil, &record); err != nil {
		return nil, err
	}
	return record.request(collection), nil
}

// directoryRoleRecord is a unifiedRoleDefinition.
type directoryRoleRecord struct {
	ID          string `json:"id"`
	TemplateID  string `json:"templateId"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	IsBuiltIn   bool   `json:"isBuiltIn"`
}

func (record directoryRoleRecord) definition() access.RoleDefinition {
	id := record.TemplateID
	if id == "" {
		id = record.ID
	}
	return access.RoleDefinition{
		ID:          id,
		Name:        record.ID,
		DisplayName: record.DisplayName,
		Description: record.Description,
		Authority:   scope.KindDirectory,
		BuiltIn:     record.IsBuiltIn,
	}
}

// ListRoleDefinitions lists every directory role. Directory roles are
// tenant-wide, so the scope only has to be a directory scope.
func (directory *Directory) ListRoleDefinitions(ctx context.Context, target scope.Scope) ([]access.RoleDefinition, error) {
	if err := directory.checkScope(target); err != nil {
		return nil, err
	}
	records, err := list[directoryRoleRecord](ctx, directory.client, roleManagementPath+"/roleDefinitions", nil)
	if err != nil {
		return nil, err
	}
	definitions := make([]access.RoleDefinition, len(records))
	for index, record := range records {
		definitions[index] = record.definition()
	}
	return definitions, nil
}

// FindRoleByName looks a role up by exact display name. It returns nil
// and no error when nothing matches.
func (directory *Directory) FindRoleByName(ctx context.Context, target scope.Scope, displayName string) (*access.RoleDefinition, error) {
	if err := directory.checkScope(target); err != nil {
		return nil, err
	}
	records, err := list[directoryRoleRecord](ctx, directory.client, roleManagementPath+"/roleDefinitions", url.Values{
		"$filter": {"displayName eq " + odataQuote(displayName)},
	})
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.DisplayName == displayName {
			definition := record.definition()
			return &definition, nil
		}
	}
	return nil, nil
}

// GetRoleDefinition fetches a role by ID or template ID.
func (directory *Directory) GetRoleDefinition(ctx context.Context, target scope.Scope, id string) (access.RoleDefinition, error) {
	if err := directory.checkScope(target); err != nil {
		return access.RoleDefinition{}, err
	}
	var record directoryRoleRecord
	if err := directory.client.get(ctx, roleManagementPath+"/roleDefinitions/"+url.PathEscape(id), nil, &record); err != nil {
		return access.RoleDefinition{}, err
	}
	return record.definition(), nil
}

// directoryInstanceRecord is an eligibility or assignment schedule
// instance, with the role definition expanded.
type directoryInstanceRecord struct {
	ID               string    `json:"id"`
	PrincipalID      string    `json:"principalId"`
	RoleDefinitionID string    `json:"roleDefinitionId"`
	DirectoryScopeID string    `json:"directoryScopeId"`
	MemberType       string    `json:"memberType"`
	AssignmentType   string    `json:"assignmentType"`
	StartDateTime    *wireTime `json:"startDateTime"`
	EndDateTime      *wireTime `json:"endDateTime"`
	RoleDefinition   *struct {
		DisplayName string `json:"displayName"`
	} `json:"roleDefinition"`
}

func (record directoryInstanceRecord) assignment(kind access.AssignmentKind) access.Assignment {
	assignment := access.Assignment{
		ID:               record.ID,
		Kind:             kind,
		Authority:        scope.KindDirectory,
		PrincipalID:      record.PrincipalID,
		RoleDefinitionID: record.RoleDefinitionID,
		ScopePath:        record.DirectoryScopeID,
		MemberType:       record.MemberType,
		Status:           record.AssignmentType,
		StartTime:        record.StartDateTime.pointer(),
		EndTime:          record.EndDateTime.pointer(),
	}
	if record.RoleDefinition != nil {
		assignment.RoleName = record.RoleDefinition.DisplayName
	}
	return assignment
}

// ListEligible lists eligibility instances for principalID, or for the
// signed-in principal when principalID is empty.
func (directory *Directory) ListEligible(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error) {
	return directory.listInstances(ctx, target, "roleEligibilityScheduleInstances", principalID, access.AssignmentEligible)
}

// ListActive lists active assignment instances for principalID, or for
// the signed-in principal when principalID is empty.
func (directory *Directory) ListActive(ctx context.Context, target scope.Scope, principalID string) ([]access.Assignment, error) {
	return directory.listInstances(ctx, target, "roleAssignmentScheduleInstances", principalID, access.AssignmentActive)
}

func (directory *Directory) listInstances(ctx context.Context, target scope.Scope, collection, principalID string, kind access.AssignmentKind) ([]access.Assignment, error) {
	if err := directory.checkScope(target); err != nil {
		return nil, err
	}
	path := roleManagementPath + "/" + collection
	query := url.Values{"$expand": {"roleDefinition"}}
	if principalID == "" {
		path += "/filterByCurrentUser(on='principal')"
	} else {
		query.Set("$filter", "principalId eq "+odataQuote(principalID))
	}

	records, err := list[directoryInstanceRecord](ctx, directory.client, path, query)
	if err != nil {
		return nil, err
	}
	wanted := "/"
	if target != nil {
		wanted = target.String()
	}
	assignments := make([]access.Assignment, 0, len(records))
	for _, record := range records {
		if wanted != "/" && record.DirectoryScopeID != wanted {
			continue
		}
		assignments = append(assignments, record.assignment(kind))
	}
	return assignments, nil
}

// Me returns the signed-in principal.
func (directory *Directory) Me(ctx context.Context) (access.Principal, error) {
	var record struct {
		ID                string `json:"id"`
		DisplayName       string `json:"displayName"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := directory.client.get(ctx, "/me", url.Values{"$select": {"id,displayName,userPrincipalName"}}, &record); err != nil {
		return access.Principal{}, err
	}
	if record.ID == "" {
		return access.Principal{}, errors.New("authority: /me returned no id")
	}
	return access.Principal{ID: record.ID, DisplayName: record.DisplayName, UserPrincipalName: record.UserPrincipalName}, nil
}

func (directory *Directory) checkScope(target scope.Scope) error {
	if target == nil {
		return nil
	}
	if target.Kind() != scope.KindDirectory {
		return fmt.Errorf("authority: %s scope %s cannot be used with the directory authority", target.Kind(), target)
	}
	return nil
}
