// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scope models where a role grant applies.
//
// The directory authority uses a flat scope: the whole tenant ("/") or
// one administrative unit ("/administrativeUnits/{id}"). The resource
// authority uses a hierarchy rooted at a subscription:
//
//	/subscriptions/{sub}
//	/subscriptions/{sub}/resourceGroups/{rg}
//	/subscriptions/{sub}/resourceGroups/{rg}/providers/{ns}/{type}/{name}
//
// [Resource] values render and parse that canonical form. For every
// valid Resource r, Parse(r.String()) returns r.
package scope
