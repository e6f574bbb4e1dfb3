// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
	"github.com/bureau-foundation/pim/lib/clock"
	"github.com/bureau-foundation/pim/lib/netutil"
	"github.com/bureau-foundation/pim/lib/token"
)

// DefaultTimeout bounds every API call when no HTTP client is supplied.
const DefaultTimeout = 30 * time.Second

// maxPages caps how many continuation links one listing follows.
const maxPages = 50

// TokenSource supplies bearer credentials per audience. *token.Broker
// implements it.
type TokenSource interface {
	AuthorizationHeader(ctx context.Context, audience token.Audience) (string, error)
	ProviderKind() token.Kind
}

// client is the request path shared by both authorities.
type client struct {
	name       string
	baseURL    string
	audience   token.Audience
	fixed      url.Values
	tokens     TokenSource
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// clientOptions carries the settings common to both configs.
type clientOptions struct {
	name       string
	baseURL    string
	audience   token.Audience
	fixed      url.Values
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
	clock      clock.Clock
	logger     *slog.Logger
}

func newClient(options clientOptions) (*client, error) {
	if options.tokens == nil {
		return nil, fmt.Errorf("authority: %s client requires a token source", options.name)
	}
	baseURL := strings.TrimRight(options.baseURL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("authority: invalid %s base URL %q", options.name, options.baseURL)
	}

	httpClient := options.httpClient
	if httpClient == nil {
		timeout := options.timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	clk := options.clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		name:       options.name,
		baseURL:    baseURL,
		audience:   options.audience,
		fixed:      options.fixed,
		tokens:     options.tokens,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger.With("component", "authority", "authority", options.name),
	}, nil
}

// url joins path to the base URL and adds the fixed query parameters
// (the resource authority's api-version) to query.
func (client *client) url(path string, query url.Values) string {
	merged := url.Values{}
	for key, values := range client.fixed {
		merged[key] = values
	}
	for key, values := range query {
		merged[key] = values
	}
	target := client.baseURL + path
	if encoded := merged.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}

// do sends one request and returns the bounded response body. Non-2xx
// responses are mapped by parseError; action, when set, marks the call
// as a submission so 4xx rejections become typed request errors.
func (client *client) do(ctx context.Context, method, target string, requestBody any, action access.Action) ([]byte, error) {
	response, err := client.doRaw(ctx, method, target, requestBody)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, &access.APIError{Method: method, Path: requestPath(target), Err: fmt.Errorf("reading response body: %w", err)}
	}

	client.logger.Debug("authority response",
		"method", method,
		"path", requestPath(target),
		"status", response.StatusCode,
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, client.parseError(response.StatusCode, response.Header, body, method, requestPath(target), action)
	}
	return body, nil
}

// doRaw authenticates and sends a request. Transport failures come back
// as APIError with status 0.
func (client *client) doRaw(ctx context.Context, method, target string, requestBody any) (*http.Response, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("authority: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("authority: creating request: %w", err)
	}

	authorization, err := client.tokens.AuthorizationHeader(ctx, client.audience)
	if err != nil {
		return nil, fmt.Errorf("authority: %s authentication: %w", client.name, err)
	}
	request.Header.Set("Authorization", authorization)
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, &access.APIError{Method: method, Path: requestPath(target), Err: err}
	}
	return response, nil
}

// get decodes a GET response into result.
func (client *client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := client.do(ctx, http.MethodGet, client.url(path, query), nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("authority: decoding %s response: %w", path, err)
	}
	return nil
}

// listEnvelope is the collection shape of both authorities. The
// directory authority names its continuation "@odata.nextLink", the
// resource authority "nextLink".
type listEnvelope[T any] struct {
	Value         []T    `json:"value"`
	ODataNextLink string `json:"@odata.nextLink"`
	NextLink      string `json:"nextLink"`
}

// list collects every page of a collection, following continuation
// links that stay on the authority's host.
func list[T any](ctx context.Context, client *client, path string, query url.Values) ([]T, error) {
	var items []T
	target := client.url(path, query)
	for page := 0; target != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("authority: %s listing exceeded %d pages", path, maxPages)
		}
		body, err := client.do(ctx, http.MethodGet, target, nil, "")
		if err != nil {
			return nil, err
		}
		var envelope listEnvelope[T]
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("authority: decoding %s listing: %w", path, err)
		}
		items = append(items, envelope.Value...)

		next := envelope.ODataNextLink
		if next == "" {
			next = envelope.NextLink
		}
		if next != "" && !client.sameOrigin(next) {
			return nil, fmt.Errorf("authority: refusing continuation link to another host: %s", next)
		}
		target = next
	}
	return items, nil
}

func (client *client) sameOrigin(link string) bool {
	base, err := url.Parse(client.baseURL)
	if err != nil {
		return false
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	return parsed.Scheme == base.Scheme && parsed.Host == base.Host
}

func requestPath(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	return parsed.Path
}

// odataQuote escapes a value for a single-quoted OData string literal.
func odataQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
