package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultManagementURL is the resource-manager endpoint.
const DefaultManagementURL = "https://management.azure.com"

// API versions pinned to the provider contract.
const (
	apiVersionSubscriptions  = "2020-01-01"
	apiVersionLocations      = "2020-01-01"
	apiVersionVMSizes        = "2021-07-01"
	apiVersionResourceGroups = "2021-04-01"
)

// AccountClient exposes read and provisioning operations of the control plane
// for one credential set. Every operation mints a fresh token.
type AccountClient struct {
	tokens        *TokenProvider
	managementURL string
	httpClient    *http.Client
}

// AccountOption configures an AccountClient.
type AccountOption func(*AccountClient)

// WithManagementURL sets a custom resource-manager base URL (useful for
// testing with a mock server).
func WithManagementURL(u string) AccountOption {
	return func(c *AccountClient) {
		c.managementURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) AccountOption {
	return func(c *AccountClient) {
		c.httpClient = client
	}
}

// NewAccountClient creates a client around an existing token provider.
func NewAccountClient(tokens *TokenProvider, opts ...AccountOption) *AccountClient {
	c := &AccountClient{
		tokens:        tokens,
		managementURL: DefaultManagementURL,
		httpClient:    http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListSubscriptions returns every subscription visible to the credentials,
// walking all pages.
func (c *AccountClient) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	header, err := AuthHeader(ctx, c.tokens, ManagementScope)
	if err != nil {
		return nil, err
	}

	seed := fmt.Sprintf("%s/subscriptions?api-version=%s", c.managementURL, apiVersionSubscriptions)
	return CollectPages(ctx, c.httpClient, seed, header, decodeAs[Subscription], nil)
}

// ListLocations returns the locations available to a subscription.
func (c *AccountClient) ListLocations(ctx context.Context, subscriptionID string) ([]Location, error) {
	header, err := AuthHeader(ctx, c.tokens, ManagementScope)
	if err != nil {
		return nil, err
	}

	seed := fmt.Sprintf("%s/subscriptions/%s/locations?api-version=%s",
		c.managementURL, url.PathEscape(subscriptionID), apiVersionLocations)
	return CollectPages(ctx, c.httpClient, seed, header, decodeAs[Location], nil)
}

// ListVMSizes returns the VM sizes offered in a location. minCores below zero
// disables the core filter.
func (c *AccountClient) ListVMSizes(ctx context.Context, subscriptionID, location string, minCores int) ([]VMSize, error) {
	header, err := AuthHeader(ctx, c.tokens, ManagementScope)
	if err != nil {
		return nil, err
	}

	var filter FilterFunc[VMSize]
	if minCores > 0 {
		filter = func(s VMSize) bool { return s.NumberOfCores >= minCores }
	}

	seed := fmt.Sprintf("%s/subscriptions/%s/providers/Microsoft.Compute/locations/%s/vmSizes?api-version=%s",
		c.managementURL, url.PathEscape(subscriptionID), url.PathEscape(location), apiVersionVMSizes)
	return CollectPages(ctx, c.httpClient, seed, header, decodeAs[VMSize], filter)
}

// CreateResourceGroup provisions a resource group and waits for the operation
// to reach a terminal state.
func (c *AccountClient) CreateResourceGroup(ctx context.Context, subscriptionID, name, location string) (*OperationResult, error) {
	header, err := AuthHeader(ctx, c.tokens, ManagementScope)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(ResourceGroup{Location: location})
	if err != nil {
		return nil, err
	}

	u := c.resourceGroupURL(subscriptionID, name)
	return PutAsync(ctx, c.httpClient, u, body, header, func(resp *http.Response, _ []byte) bool {
		// A plain 200/201 with no async signaling means the group already
		// exists in its final shape.
		return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated
	})
}

// DeleteResourceGroup tears down a resource group and waits for completion.
func (c *AccountClient) DeleteResourceGroup(ctx context.Context, subscriptionID, name string) (*OperationResult, error) {
	header, err := AuthHeader(ctx, c.tokens, ManagementScope)
	if err != nil {
		return nil, err
	}

	u := c.resourceGroupURL(subscriptionID, name)
	return DeleteAsync(ctx, c.httpClient, u, header, func(resp *http.Response, _ []byte) bool {
		return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
	})
}

func (c *AccountClient) resourceGroupURL(subscriptionID, name string) string {
	return fmt.Sprintf("%s/subscriptions/%s/resourcegroups/%s?api-version=%s",
		c.managementURL, url.PathEscape(subscriptionID), url.PathEscape(name), apiVersionResourceGroups)
}

// decodeAs is the standard page-item extractor: plain JSON decoding into T.
func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
