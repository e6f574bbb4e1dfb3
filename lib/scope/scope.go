// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"fmt"
	"strings"
)

// Kind identifies which authority a scope belongs to.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindResource  Kind = "resource"
)

// Scope is either a Directory or a Resource.
type Scope interface {
	// String returns the canonical path form sent to the authority.
	String() string

	// Kind reports which authority understands this scope.
	Kind() Kind
}

// InvalidScopeError reports text that cannot be read as a scope.
type InvalidScopeError struct {
	Text   string
	Reason string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("scope: invalid scope %q: %s", e.Text, e.Reason)
}

// Resource is a position in the subscription hierarchy. The provider
// triple (Provider, ResourceType, ResourceName) is either fully set or
// fully empty.
type Resource struct {
	SubscriptionID string `json:"subscription_id"`
	ResourceGroup  string `json:"resource_group,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ResourceType   string `json:"resource_type,omitempty"`
	ResourceName   string `json:"resource_name,omitempty"`
}

// ForSubscription returns the scope of an entire subscription.
func ForSubscription(subscriptionID string) Resource {
	return Resource{SubscriptionID: subscriptionID}
}

// ForResourceGroup returns the scope of one resource group.
func ForResourceGroup(subscriptionID, resourceGroup string) Resource {
	return Resource{SubscriptionID: subscriptionID, ResourceGroup: resourceGroup}
}

// Kind returns KindResource.
func (Resource) Kind() Kind { return KindResource }

// String renders the canonical path. An incomplete provider triple is
// omitted.
func (r Resource) String() string {
	var builder strings.Builder
	builder.WriteString("/subscriptions/")
	builder.WriteString(r.SubscriptionID)
	if r.ResourceGroup != "" {
		builder.WriteString("/resourceGroups/")
		builder.WriteString(r.ResourceGroup)
	}
	if r.hasProvider() {
		builder.WriteString("/providers/")
		builder.WriteString(r.Provider)
		builder.WriteString("/")
		builder.WriteString(r.ResourceType)
		builder.WriteString("/")
		builder.WriteString(r.ResourceName)
	}
	return builder.String()
}

func (r Resource) hasProvider() bool {
	return r.Provider != "" && r.ResourceType != "" && r.ResourceName != ""
}

// Validate checks the structural invariants: a subscription is required,
// the provider triple is all-or-nothing, and no segment contains a
// path separator or surrounding whitespace. A valid Resource survives
// Parse(r.String()) unchanged.
func (r Resource) Validate() error {
	text := r.String()
	if r.SubscriptionID == "" {
		return &InvalidScopeError{Text: text, Reason: "subscription ID is required"}
	}
	setCount := 0
	for _, value := range []string{r.Provider, r.ResourceType, r.ResourceName} {
		if value != "" {
			setCount++
		}
	}
	if setCount != 0 && setCount != 3 {
		return &InvalidScopeError{Text: text, Reason: "provider, resource type, and resource name must be given together"}
	}
	for _, value := range []string{r.SubscriptionID, r.ResourceGroup, r.Provider, r.ResourceType, r.ResourceName} {
		if strings.Contains(value, "/") {
			return &InvalidScopeError{Text: text, Reason: fmt.Sprintf("segment %q contains '/'", value)}
		}
		if value != strings.TrimSpace(value) {
			return &InvalidScopeError{Text: text, Reason: fmt.Sprintf("segment %q has surrounding whitespace", value)}
		}
	}
	return nil
}

// Parse reads a resource scope path. Segment keywords match without
// regard to case; unrecognized segments are skipped, as is a providers
// segment without three following values. Parse fails only when no
// subscription is present.
func Parse(text string) (Resource, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(text), "/"), "/")

	var result Resource
	for index := 0; index < len(parts); {
		keyword := strings.ToLower(parts[index])
		switch {
		case keyword == "subscriptions" && index+1 < len(parts):
			result.SubscriptionID = parts[index+1]
			index += 2
		case keyword == "resourcegroups" && index+1 < len(parts):
			result.ResourceGroup = parts[index+1]
			index += 2
		case keyword == "providers" && index+3 < len(parts):
			result.Provider = parts[index+1]
			result.ResourceType = parts[index+2]
			result.ResourceName = parts[index+3]
			index += 4
		default:
			index++
		}
	}

	if result.SubscriptionID == "" {
		return Resource{}, &InvalidScopeError{Text: text, Reason: "missing /subscriptions/{id} segment"}
	}
	return result, nil
}
