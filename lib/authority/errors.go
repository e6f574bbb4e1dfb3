// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/token"
)

// DefaultRetryAfter is reported when a 429 carries no usable
// Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// wireError is the error body shared by both authorities.
type wireError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseError maps a non-2xx response into the access error taxonomy.
func (client *client) parseError(statusCode int, header http.Header, body []byte, method, path string, action access.Action) error {
	var decoded wireError
	code, message := "", strings.TrimSpace(string(body))
	if json.Unmarshal(body, &decoded) == nil && (decoded.Error.Code != "" || decoded.Error.Message != "") {
		code, message = decoded.Error.Code, decoded.Error.Message
	}

	if statusCode == http.StatusTooManyRequests {
		return &access.RateLimitError{RetryAfter: client.retryAfter(header), Message: message}
	}

	if statusCode >= 400 && statusCode < 500 {
		challenge := header.Get("WWW-Authenticate")
		if isStepUpChallenge(statusCode, challenge, code, message) {
			if code == "" {
				code = "insufficient_claims"
			}
			return &token.MFARequiredError{
				AuthenticationError: token.AuthenticationError{
					Provider: client.tokens.ProviderKind(),
					Code:     code,
					Message:  message,
				},
				Claims: challengeClaims(challenge),
			}
		}

		if action != "" && statusCode != http.StatusUnauthorized {
			if isPolicyViolation(code, message) {
				return &access.PolicyViolationError{Action: action, StatusCode: statusCode, Code: code, Message: message}
			}
			return &access.ActivationError{Action: action, StatusCode: statusCode, Code: code, Message: message}
		}
	}

	return &access.APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Body:       string(body),
		Method:     method,
		Path:       path,
	}
}

// retryAfter reads Retry-After as seconds or an HTTP date.
func (client *client) retryAfter(header http.Header) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return DefaultRetryAfter
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := when.Sub(client.clock.Now()); delay > 0 {
			return delay
		}
		return 0
	}
	return DefaultRetryAfter
}

// isStepUpChallenge recognizes a demand for stronger authentication: a
// claims challenge in WWW-Authenticate, or an authentication-context
// or MFA rule named in the error.
func isStepUpChallenge(statusCode int, challenge, code, message string) bool {
	if (statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden) &&
		strings.Contains(strings.ToLower(challenge), "insufficient_claims") {
		return true
	}
	lowerCode := strings.ToLower(code)
	if strings.Contains(lowerCode, "acrs") || lowerCode == "mfarule" {
		return true
	}
	lowerMessage := strings.ToLower(message)
	return strings.Contains(lowerMessage, "mfarule") || strings.Contains(lowerMessage, "multifactorauthentication")
}

// isPolicyViolation recognizes rejections that name a role management
// policy rule, as opposed to a state precondition.
func isPolicyViolation(code, message string) bool {
	lowerCode := strings.ToLower(code)
	if strings.Contains(lowerCode, "policy") || strings.HasSuffix(lowerCode, "rule") {
		return true
	}
	lowerMessage := strings.ToLower(message)
	return strings.Contains(lowerMessage, "policy rules failed") ||
		strings.Contains(lowerMessage, "justificationrule") ||
		strings.Contains(lowerMessage, "expirationrule") ||
		strings.Contains(lowerMessage, "ticketingrule")
}

// challengeClaims extracts and decodes the claims parameter of a
// WWW-Authenticate challenge. Undecodable values are returned as sent.
func challengeClaims(challenge string) string {
	index := strings.Index(strings.ToLower(challenge), "claims=\"")
	if index < 0 {
		return ""
	}
	rest := challenge[index+len("claims=\""):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	raw := rest[:end]
	for _, encoding := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if decoded, err := encoding.DecodeString(raw); err == nil {
			return string(decoded)
		}
	}
	return raw
}
