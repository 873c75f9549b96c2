package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/openvis/cloudgate/internal/azure"
	"github.com/openvis/cloudgate/internal/testutil/mockarm"
)

func azureFixture(t *testing.T) (*mockarm.Server, Descriptor, map[string]string) {
	t.Helper()

	srv := mockarm.New()
	t.Cleanup(srv.Close)

	desc := NewAzureDescriptor(AzureConfig{
		LoginURL:      srv.URL(),
		ManagementURL: srv.URL(),
		HTTPClient:    http.DefaultClient,
	})

	creds := map[string]string{
		"clientId":       "mock-client",
		"tenantId":       "tenant-1",
		"clientSecret":   "mock-secret",
		"subscriptionId": "sub-1",
	}
	return srv, desc, creds
}

// TestAzureDescriptorShape verifies the declared schemas and operations.
func TestAzureDescriptorShape(t *testing.T) {
	t.Parallel()

	_, desc, _ := azureFixture(t)

	want := []string{"clientId", "tenantId", "clientSecret", "subscriptionId"}
	names := FieldNames(desc.CredentialFields)
	if len(names) != len(want) {
		t.Fatalf("expected %d credential fields, got %v", len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("field %d: expected %q, got %q", i, name, names[i])
		}
	}

	vm, ok := desc.PresetTypes["vm"]
	if !ok {
		t.Fatalf("expected the vm preset type")
	}
	vmFields := FieldNames(vm.Fields)
	if len(vmFields) != 3 || vmFields[2] != "vm_size" {
		t.Errorf("unexpected vm preset fields: %v", vmFields)
	}

	for _, op := range []string{"subscription-list", "location-list", "vm-size-list", "resource-group-create", "resource-group-delete"} {
		if _, ok := desc.ProxyOps[op]; !ok {
			t.Errorf("missing proxy operation %q", op)
		}
	}
}

// TestSubscriptionListOp verifies the end-to-end path: stored credentials to
// token exchange to the paged listing.
func TestSubscriptionListOp(t *testing.T) {
	t.Parallel()

	srv, desc, creds := azureFixture(t)
	srv.AddSubscription("sub-1", "Subscription One")
	srv.AddSubscription("sub-2", "Subscription Two")

	result, err := desc.ProxyOps["subscription-list"](context.Background(), creds, nil)
	if err != nil {
		t.Fatalf("operation failed: %v", err)
	}

	subs, ok := result.([]azure.Subscription)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if len(subs) != 2 {
		t.Errorf("expected 2 subscriptions, got %d", len(subs))
	}
}

// TestLocationListOpCredentialFallback verifies the subscription argument
// falls back to the stored credentials when absent from the call.
func TestLocationListOpCredentialFallback(t *testing.T) {
	t.Parallel()

	srv, desc, creds := azureFixture(t)
	srv.AddLocation("sub-1", "westeurope", "West Europe")

	result, err := desc.ProxyOps["location-list"](context.Background(), creds, map[string]any{})
	if err != nil {
		t.Fatalf("operation failed: %v", err)
	}
	locations := result.([]azure.Location)
	if len(locations) != 1 || locations[0].Name != "westeurope" {
		t.Errorf("unexpected locations: %+v", locations)
	}

	// An explicit argument overrides the stored subscription.
	srv.AddLocation("sub-other", "eastus", "East US")
	result, err = desc.ProxyOps["location-list"](context.Background(), creds,
		map[string]any{"subscriptionId": "sub-other"})
	if err != nil {
		t.Fatalf("operation failed: %v", err)
	}
	locations = result.([]azure.Location)
	if len(locations) != 1 || locations[0].Name != "eastus" {
		t.Errorf("expected the explicit subscription's locations, got %+v", locations)
	}
}

// TestVMSizeListOpMinCores verifies the minCores argument reaches the filter.
func TestVMSizeListOpMinCores(t *testing.T) {
	t.Parallel()

	srv, desc, creds := azureFixture(t)
	srv.AddVMSize("sub-1", "westeurope", "Standard_B1s", 1, 1024)
	srv.AddVMSize("sub-1", "westeurope", "Standard_D4s_v3", 4, 16384)

	result, err := desc.ProxyOps["vm-size-list"](context.Background(), creds,
		map[string]any{"location": "westeurope", "minCores": float64(2)})
	if err != nil {
		t.Fatalf("operation failed: %v", err)
	}
	sizes := result.([]azure.VMSize)
	if len(sizes) != 1 || sizes[0].Name != "Standard_D4s_v3" {
		t.Errorf("unexpected sizes: %+v", sizes)
	}
}

// TestVMSizeListOpMissingLocation verifies the required-argument error.
func TestVMSizeListOpMissingLocation(t *testing.T) {
	t.Parallel()

	_, desc, creds := azureFixture(t)

	_, err := desc.ProxyOps["vm-size-list"](context.Background(), creds, map[string]any{})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

// TestResourceGroupOps verifies provisioning operations drive the async
// protocol through the descriptor.
func TestResourceGroupOps(t *testing.T) {
	t.Parallel()

	srv, desc, creds := azureFixture(t)
	srv.SetOperationScript("InProgress", azure.StateSucceeded)

	result, err := desc.ProxyOps["resource-group-create"](context.Background(), creds,
		map[string]any{"name": "rg-1", "location": "westeurope"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if op, ok := result.(*azure.OperationResult); !ok || op.Cancelled {
		t.Errorf("unexpected result: %+v", result)
	}

	if _, err := desc.ProxyOps["resource-group-delete"](context.Background(), creds,
		map[string]any{"name": "rg-1"}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Missing name argument is rejected before any provider call.
	_, err = desc.ProxyOps["resource-group-create"](context.Background(), creds,
		map[string]any{"location": "westeurope"})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}
