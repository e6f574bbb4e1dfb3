// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import "strings"

// Directory is a directory-authority scope: the whole tenant when
// AdministrativeUnit is empty, otherwise one administrative unit.
type Directory struct {
	AdministrativeUnit string `json:"administrative_unit,omitempty"`
}

// Tenant is the tenant-wide directory scope "/".
var Tenant = Directory{}

// Kind returns KindDirectory.
func (Directory) Kind() Kind { return KindDirectory }

// String returns "/" or "/administrativeUnits/{id}".
func (d Directory) String() string {
	if d.AdministrativeUnit == "" {
		return "/"
	}
	return "/administrativeUnits/" + d.AdministrativeUnit
}

// ParseDirectory reads a directory scope. The empty string and "/" both
// mean the tenant.
func ParseDirectory(text string) (Directory, error) {
	trimmed := strings.Trim(strings.TrimSpace(text), "/")
	if trimmed == "" {
		return Tenant, nil
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 2 && strings.EqualFold(parts[0], "administrativeUnits") && parts[1] != "" {
		return Directory{AdministrativeUnit: parts[1]}, nil
	}
	return Directory{}, &InvalidScopeError{Text: text, Reason: "expected \"/\" or \"/administrativeUnits/{id}\""}
}

// ParseAny reads either form: paths starting with administrativeUnits
// (or the bare root) are directory scopes, everything else is parsed as
// a resource scope.
func ParseAny(text string) (Scope, error) {
	trimmed := strings.Trim(strings.TrimSpace(text), "/")
	if trimmed == "" || strings.HasPrefix(strings.ToLower(trimmed), "administrativeunits/") {
		directory, err := ParseDirectory(text)
		if err != nil {
			return nil, err
		}
		return directory, nil
	}
	resource, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return resource, nil
}
