// Package azure is a hand-written client for an Azure Resource Manager style
// control plane: token acquisition, cursor pagination and the long-running
// operation protocol.
package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultLoginURL is the identity endpoint used for the client-credentials
	// exchange. {tenant} is substituted with the tenant ID.
	DefaultLoginURL = "https://login.microsoftonline.com"

	// ManagementScope is the permission scope requested for resource-manager calls.
	ManagementScope = "https://management.azure.com/.default"
)

// Credentials is the client-credentials triple used to mint tokens.
// It is held in memory only and must never be logged.
type Credentials struct {
	ClientID     string
	TenantID     string
	ClientSecret string
}

// TokenResponse is the raw response of the identity endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenProvider performs client-credentials exchanges against the identity
// endpoint. Tokens are not cached; every call is a fresh exchange.
type TokenProvider struct {
	creds      Credentials
	loginURL   string
	httpClient *http.Client
}

// TokenOption configures a TokenProvider.
type TokenOption func(*TokenProvider)

// WithLoginURL sets a custom identity endpoint base URL (useful for testing
// with a mock server).
func WithLoginURL(u string) TokenOption {
	return func(p *TokenProvider) {
		p.loginURL = strings.TrimSuffix(u, "/")
	}
}

// WithTokenHTTPClient sets a custom HTTP client.
func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(p *TokenProvider) {
		p.httpClient = c
	}
}

// NewTokenProvider creates a TokenProvider for the given credentials.
func NewTokenProvider(creds Credentials, opts ...TokenOption) *TokenProvider {
	p := &TokenProvider{
		creds:      creds,
		loginURL:   DefaultLoginURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Token performs the client-credentials exchange for the given scope and
// returns the raw token response.
func (p *TokenProvider) Token(ctx context.Context, scope string) (*TokenResponse, error) {
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", p.loginURL, p.creds.TenantID)

	form := url.Values{}
	form.Set("client_id", p.creds.ClientID)
	form.Set("scope", scope)
	form.Set("client_secret", p.creds.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp.StatusCode, body)
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	return &token, nil
}

// AuthHeader obtains a token for the scope and returns a ready-to-use header
// set carrying the bearer authorization. Each call performs a fresh exchange.
func AuthHeader(ctx context.Context, tp *TokenProvider, scope string) (http.Header, error) {
	token, err := tp.Token(ctx, scope)
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token.AccessToken)
	return h, nil
}
