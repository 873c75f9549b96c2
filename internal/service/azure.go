package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openvis/cloudgate/internal/azure"
)

// AzureType is the service-type tag of the default Azure descriptor.
const AzureType = "azureDefault"

// Preset-type tags contributed by the Azure descriptor.
const presetTypeVM = "vm"

// ErrMissingArgument is returned by proxy operations when a required argument
// is absent from both the call arguments and the stored credentials.
var ErrMissingArgument = errors.New("service: missing operation argument")

// AzureConfig carries the endpoint overrides handed to every AccountClient
// built from stored credentials. Zero values select the real endpoints.
type AzureConfig struct {
	LoginURL      string
	ManagementURL string
	HTTPClient    *http.Client
}

// NewAzureDescriptor builds the azureDefault descriptor: credential fields,
// the vm preset schema and the proxy-operation table. Each operation
// constructs a throwaway AccountClient from the row's stored credentials.
func NewAzureDescriptor(cfg AzureConfig) Descriptor {
	return Descriptor{
		CredentialFields: []Field{
			{Name: "clientId", Type: "text", Label: "Client ID"},
			{Name: "tenantId", Type: "text", Label: "Tenant ID"},
			{Name: "clientSecret", Type: "password", Label: "Client Secret"},
			{Name: "subscriptionId", Type: "text", Label: "Subscription ID"},
		},
		PresetTypes: map[string]PresetType{
			presetTypeVM: {
				Fields: []Field{
					{Name: "subscriptionId", Type: "text", Label: "Subscription ID"},
					{Name: "location", Type: "text", Label: "Location"},
					{Name: "vm_size", Type: "text", Label: "VM Size"},
				},
				Description: "Virtual machine placement: subscription, location and size.",
				HelpHTML:    "<p>Pick a subscription, then a location offered to it, then a size offered in that location.</p>",
			},
		},
		ProxyOps: map[string]ProxyFunc{
			"subscription-list":     cfg.subscriptionList,
			"location-list":         cfg.locationList,
			"vm-size-list":          cfg.vmSizeList,
			"resource-group-create": cfg.resourceGroupCreate,
			"resource-group-delete": cfg.resourceGroupDelete,
		},
		HelpHTML: "<ol><li>Register an app in your directory</li><li>Grant it Reader on the subscription</li><li>Paste its client ID, tenant ID and secret here</li></ol>",
	}
}

// accountClient builds a client for the stored credential blob.
func (cfg AzureConfig) accountClient(creds map[string]string) *azure.AccountClient {
	tokenOpts := []azure.TokenOption{}
	if cfg.LoginURL != "" {
		tokenOpts = append(tokenOpts, azure.WithLoginURL(cfg.LoginURL))
	}
	if cfg.HTTPClient != nil {
		tokenOpts = append(tokenOpts, azure.WithTokenHTTPClient(cfg.HTTPClient))
	}

	tp := azure.NewTokenProvider(azure.Credentials{
		ClientID:     creds["clientId"],
		TenantID:     creds["tenantId"],
		ClientSecret: creds["clientSecret"],
	}, tokenOpts...)

	accountOpts := []azure.AccountOption{}
	if cfg.ManagementURL != "" {
		accountOpts = append(accountOpts, azure.WithManagementURL(cfg.ManagementURL))
	}
	if cfg.HTTPClient != nil {
		accountOpts = append(accountOpts, azure.WithHTTPClient(cfg.HTTPClient))
	}

	return azure.NewAccountClient(tp, accountOpts...)
}

func (cfg AzureConfig) subscriptionList(ctx context.Context, creds map[string]string, _ map[string]any) (any, error) {
	return cfg.accountClient(creds).ListSubscriptions(ctx)
}

func (cfg AzureConfig) locationList(ctx context.Context, creds map[string]string, args map[string]any) (any, error) {
	sub, err := stringArg(args, creds, "subscriptionId")
	if err != nil {
		return nil, err
	}
	return cfg.accountClient(creds).ListLocations(ctx, sub)
}

func (cfg AzureConfig) vmSizeList(ctx context.Context, creds map[string]string, args map[string]any) (any, error) {
	sub, err := stringArg(args, creds, "subscriptionId")
	if err != nil {
		return nil, err
	}
	location, err := stringArg(args, nil, "location")
	if err != nil {
		return nil, err
	}

	minCores := 0
	if v, ok := args["minCores"].(float64); ok {
		minCores = int(v)
	}

	return cfg.accountClient(creds).ListVMSizes(ctx, sub, location, minCores)
}

func (cfg AzureConfig) resourceGroupCreate(ctx context.Context, creds map[string]string, args map[string]any) (any, error) {
	sub, err := stringArg(args, creds, "subscriptionId")
	if err != nil {
		return nil, err
	}
	name, err := stringArg(args, nil, "name")
	if err != nil {
		return nil, err
	}
	location, err := stringArg(args, nil, "location")
	if err != nil {
		return nil, err
	}

	return cfg.accountClient(creds).CreateResourceGroup(ctx, sub, name, location)
}

func (cfg AzureConfig) resourceGroupDelete(ctx context.Context, creds map[string]string, args map[string]any) (any, error) {
	sub, err := stringArg(args, creds, "subscriptionId")
	if err != nil {
		return nil, err
	}
	name, err := stringArg(args, nil, "name")
	if err != nil {
		return nil, err
	}

	return cfg.accountClient(creds).DeleteResourceGroup(ctx, sub, name)
}

// stringArg reads a required string argument, falling back to the stored
// credentials when fallback is non-nil.
func stringArg(args map[string]any, fallback map[string]string, key string) (string, error) {
	if v, ok := args[key].(string); ok && v != "" {
		return v, nil
	}
	if fallback != nil {
		if v := fallback[key]; v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
}
