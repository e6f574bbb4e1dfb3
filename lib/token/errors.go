// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"errors"
	"fmt"
)

// AuthenticationError reports that a provider could not obtain a token.
type AuthenticationError struct {
	Provider Kind

	// Code is the identity platform's error code (for example
	// "invalid_client"), when one was returned.
	Code string

	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (err *AuthenticationError) Error() string {
	message := fmt.Sprintf("token: %s authentication failed", err.Provider)
	if err.Code != "" {
		message += " (" + err.Code + ")"
	}
	if err.Message != "" {
		message += ": " + err.Message
	}
	if err.Err != nil {
		message += ": " + err.Err.Error()
	}
	return message
}

func (err *AuthenticationError) Unwrap() error { return err.Err }

// MFARequiredError reports that the identity platform demands a
// stronger (multi-factor) sign-in. It is an AuthenticationError:
// errors.As with *AuthenticationError matches it.
type MFARequiredError struct {
	AuthenticationError

	// Claims is the claims challenge to pass to an interactive sign-in.
	Claims string
}

func (err *MFARequiredError) Error() string {
	return "token: multi-factor authentication required: " + err.AuthenticationError.Error()
}

func (err *MFARequiredError) Unwrap() error { return &err.AuthenticationError }

// IsAuthentication reports whether err is an AuthenticationError or an
// MFARequiredError.
func IsAuthentication(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}

// IsMFARequired reports whether err is an MFARequiredError.
func IsMFARequired(err error) bool {
	var mfaError *MFARequiredError
	return errors.As(err, &mfaError)
}
