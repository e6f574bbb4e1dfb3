// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tenant identifiers written by WriteConfig.
const (
	TenantID     = "tenant-1"
	ClientID     = "app-1"
	ClientSecret = "app-secret"
)

// Request is one authority call the Tenant received.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// Tenant is a fake identity platform and authority pair.
type Tenant struct {
	// Server serves every endpoint. The directory authority lives
	// under /v1.0; other paths belong to the resource authority.
	Server *httptest.Server

	// ObjectID, UserPrincipalName, and Name are the claims of issued
	// tokens.
	ObjectID          string
	UserPrincipalName string
	Name              string

	t   *testing.T
	mux *http.ServeMux

	mu       sync.Mutex
	requests []Request
	issued   int
}

// NewTenant starts a Tenant that is closed when the test ends.
func NewTenant(t *testing.T) *Tenant {
	t.Helper()
	tenant := &Tenant{
		ObjectID:          "u-self",
		UserPrincipalName: "ada@example.com",
		Name:              "Ada",
		t:                 t,
		mux:               http.NewServeMux(),
	}
	tenant.mux.HandleFunc("POST /{tenant}/oauth2/v2.0/token", tenant.issueToken)
	tenant.Server = httptest.NewServer(http.HandlerFunc(tenant.serve))
	t.Cleanup(tenant.Server.Close)
	return tenant
}

// DirectoryURL is the directory authority base URL.
func (tenant *Tenant) DirectoryURL() string { return tenant.Server.URL + "/v1.0" }

// Handle registers handler for an http.ServeMux pattern such as
// "GET /v1.0/me".
func (tenant *Tenant) Handle(pattern string, handler func(http.ResponseWriter, *http.Request, map[string]any)) {
	tenant.mux.HandleFunc(pattern, func(writer http.ResponseWriter, request *http.Request) {
		handler(writer, request, bodyFrom(request.Context()))
	})
}

// Reply registers a fixed JSON response for pattern.
func (tenant *Tenant) Reply(pattern string, status int, body string) {
	tenant.Handle(pattern, func(writer http.ResponseWriter, _ *http.Request, _ map[string]any) {
		WriteJSON(writer, status, body)
	})
}

// Requests returns the recorded authority calls with method, or all
// of them when method is empty.
func (tenant *Tenant) Requests(method string) []Request {
	tenant.mu.Lock()
	defer tenant.mu.Unlock()
	var matched []Request
	for _, request := range tenant.requests {
		if method == "" || request.Method == method {
			matched = append(matched, request)
		}
	}
	return matched
}

// TokensIssued counts successful token grants.
func (tenant *Tenant) TokensIssued() int {
	tenant.mu.Lock()
	defer tenant.mu.Unlock()
	return tenant.issued
}

// WriteConfig writes a YAML configuration for the Tenant into a
// temporary directory and returns its path. extra is appended verbatim.
func (tenant *Tenant) WriteConfig(t *testing.T, extra string) string {
	t.Helper()
	content := fmt.Sprintf(`tenant_id: %s
client_id: %s
auth:
  provider: client-credentials
  authority_host: %s
token_cache:
  disabled: true
directory:
  base_url: %s
resource:
  base_url: %s
%s`, TenantID, ClientID, tenant.Server.URL, tenant.DirectoryURL(), tenant.Server.URL, extra)

	path := filepath.Join(t.TempDir(), "pim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// Lookup returns an environment lookup that names configPath in
// PIM_CONFIG and supplies the client secret.
func (tenant *Tenant) Lookup(configPath string) func(string) (string, bool) {
	environment := map[string]string{
		"PIM_CONFIG":          configPath,
		"AZURE_CLIENT_SECRET": ClientSecret,
	}
	return func(name string) (string, bool) {
		value, ok := environment[name]
		return value, ok
	}
}

// WriteJSON writes body with status and a JSON content type.
func WriteJSON(writer http.ResponseWriter, status int, body string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	io.WriteString(writer, body)
}

func (tenant *Tenant) serve(writer http.ResponseWriter, request *http.Request) {
	if strings.HasSuffix(request.URL.Path, "/oauth2/v2.0/token") {
		tenant.mux.ServeHTTP(writer, request)
		return
	}

	entry := Request{Method: request.Method, Path: request.URL.Path, Query: request.URL.RawQuery}
	if data, _ := io.ReadAll(request.Body); len(data) > 0 {
		if err := json.Unmarshal(data, &entry.Body); err != nil {
			tenant.t.Errorf("%s %s body is not JSON: %s", request.Method, request.URL.Path, data)
		}
	}
	if !strings.HasPrefix(request.Header.Get("Authorization"), "Bearer ") {
		tenant.t.Errorf("%s %s carried no bearer token", request.Method, request.URL.Path)
	}
	tenant.mu.Lock()
	tenant.requests = append(tenant.requests, entry)
	tenant.mu.Unlock()

	tenant.mux.ServeHTTP(writer, request.WithContext(withBody(request.Context(), entry.Body)))
}

func (tenant *Tenant) issueToken(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		WriteJSON(writer, http.StatusBadRequest, `{"error": "invalid_request"}`)
		return
	}
	if request.PostForm.Get("client_id") != ClientID || request.PostForm.Get("client_secret") != ClientSecret {
		WriteJSON(writer, http.StatusUnauthorized, `{"error": "invalid_client", "error_description": "bad client credentials"}`)
		return
	}

	scope := request.PostForm.Get("scope")
	claims := jwt.MapClaims{
		"aud":  strings.TrimSuffix(scope, "/.default"),
		"tid":  request.PathValue("tenant"),
		"oid":  tenant.ObjectID,
		"upn":  tenant.UserPrincipalName,
		"name": tenant.Name,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("tenant-signing-key"))
	if err != nil {
		tenant.t.Errorf("signing token: %v", err)
		WriteJSON(writer, http.StatusInternalServerError, `{}`)
		return
	}

	tenant.mu.Lock()
	tenant.issued++
	tenant.mu.Unlock()

	response, _ := json.Marshal(map[string]any{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
	WriteJSON(writer, http.StatusOK, string(response))
}
