// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity information carried in an access token.
type Claims struct {
	ObjectID          string
	UserPrincipalName string
	Name              string
	TenantID          string
	ExpiresAt         time.Time
}

// ParseClaims reads claims from an access token without verifying its
// signature. The token came from the identity platform over TLS and is
// only inspected to learn who this process is; the authorities verify
// it on every call.
func ParseClaims(accessToken string) (Claims, error) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("token: parsing access token claims: %w", err)
	}

	claims := Claims{
		ObjectID:          stringClaim(mapClaims, "oid"),
		UserPrincipalName: stringClaim(mapClaims, "upn", "preferred_username", "unique_name"),
		Name:              stringClaim(mapClaims, "name", "app_displayname"),
		TenantID:          stringClaim(mapClaims, "tid"),
	}
	if expiry, err := mapClaims.GetExpirationTime(); err == nil && expiry != nil {
		claims.ExpiresAt = expiry.Time
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if value, ok := claims[name].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// expiryFromClaims reads the exp claim.
func expiryFromClaims(accessToken string) (time.Time, bool) {
	claims, err := ParseClaims(accessToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}
