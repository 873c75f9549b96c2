package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

// TestGetServiceByIDNotFound verifies the missing-row error.
func TestGetServiceByIDNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	_, err := s.GetServiceByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestUpdateServiceWithCorrectHash verifies a clean read-modify-write cycle.
func TestUpdateServiceWithCorrectHash(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	svc, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to load service: %v", err)
	}

	patch := &CloudServicePatch{
		Name: "Azure Production",
		CredentialValues: map[string]string{
			"clientId":     "client-1",
			"tenantId":     "tenant-1",
			"clientSecret": "hunter2",
		},
		OriginalHash: svc.Hash,
	}
	if err := s.UpdateServiceWithConsistencyCheck(ctx, 1, patch); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	updated, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if updated.Name != "Azure Production" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.CredentialValues["clientSecret"] != "hunter2" {
		t.Errorf("expected stored secret, got %q", updated.CredentialValues["clientSecret"])
	}
	if updated.Hash == svc.Hash {
		t.Errorf("expected the hash to change after the update")
	}
}

// TestUpdateServiceStaleHash verifies a concurrent change is rejected and the
// row is left untouched.
func TestUpdateServiceStaleHash(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	svc, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to load service: %v", err)
	}

	// First writer wins.
	first := &CloudServicePatch{Name: "first writer", OriginalHash: svc.Hash}
	if err := s.UpdateServiceWithConsistencyCheck(ctx, 1, first); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Second writer still holds the old hash.
	second := &CloudServicePatch{Name: "second writer", OriginalHash: svc.Hash}
	err = s.UpdateServiceWithConsistencyCheck(ctx, 1, second)
	if !errors.Is(err, ErrChanged) {
		t.Fatalf("expected ErrChanged, got %v", err)
	}

	reloaded, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if reloaded.Name != "first writer" {
		t.Errorf("stale write should not change the row, got name %q", reloaded.Name)
	}
}

// TestUpdateServicePresentEmptyField verifies that a declared field sent as
// empty string is rejected, while an absent field keeps its stored value.
func TestUpdateServicePresentEmptyField(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	svc, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to load service: %v", err)
	}

	seed := &CloudServicePatch{
		CredentialValues: map[string]string{
			"clientId":     "client-1",
			"tenantId":     "tenant-1",
			"clientSecret": "hunter2",
		},
		OriginalHash: svc.Hash,
	}
	if err := s.UpdateServiceWithConsistencyCheck(ctx, 1, seed); err != nil {
		t.Fatalf("seed update failed: %v", err)
	}

	svc, err = s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}

	// Present but empty: reject, naming the field.
	bad := &CloudServicePatch{
		CredentialValues: map[string]string{"clientSecret": ""},
		OriginalHash:     svc.Hash,
	}
	err = s.UpdateServiceWithConsistencyCheck(ctx, 1, bad)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "clientSecret" {
		t.Errorf("expected the error to name clientSecret, got %q", verr.Field)
	}

	// Absent field: stored value survives a partial update.
	partial := &CloudServicePatch{
		CredentialValues: map[string]string{"clientId": "client-2"},
		OriginalHash:     svc.Hash,
	}
	if err := s.UpdateServiceWithConsistencyCheck(ctx, 1, partial); err != nil {
		t.Fatalf("partial update failed: %v", err)
	}

	reloaded, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if reloaded.CredentialValues["clientId"] != "client-2" {
		t.Errorf("expected updated clientId, got %q", reloaded.CredentialValues["clientId"])
	}
	if reloaded.CredentialValues["clientSecret"] != "hunter2" {
		t.Errorf("absent field should keep stored value, got %q", reloaded.CredentialValues["clientSecret"])
	}
}

// TestUpdateServiceDropsUnknownKeys verifies keys outside the declared schema
// are silently discarded.
func TestUpdateServiceDropsUnknownKeys(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	svc, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to load service: %v", err)
	}

	patch := &CloudServicePatch{
		CredentialValues: map[string]string{
			"clientId": "client-1",
			"tenantId": "tenant-1",
			"bogus":    "should vanish",
		},
		OriginalHash: svc.Hash,
	}
	if err := s.UpdateServiceWithConsistencyCheck(ctx, 1, patch); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	reloaded, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if _, ok := reloaded.CredentialValues["bogus"]; ok {
		t.Errorf("undeclared key should not be persisted")
	}
}

// TestUpdateServiceNotFound verifies the update path maps missing rows.
func TestUpdateServiceNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	err := s.UpdateServiceWithConsistencyCheck(context.Background(), 999,
		&CloudServicePatch{OriginalHash: "whatever"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestCredentialsEncryptedAtRest verifies the raw column never carries the
// plaintext secret.
func TestCredentialsEncryptedAtRest(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	svc, err := s.GetServiceByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to load service: %v", err)
	}

	patch := &CloudServicePatch{
		CredentialValues: map[string]string{"clientSecret": "super-secret-value"},
		OriginalHash:     svc.Hash,
	}
	if err := s.UpdateServiceWithConsistencyCheck(ctx, 1, patch); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	var blob []byte
	if err := s.db.QueryRowContext(ctx,
		"SELECT credential_values FROM cloud_services WHERE id = 1").Scan(&blob); err != nil {
		t.Fatalf("failed to read raw column: %v", err)
	}
	if len(blob) == 0 {
		t.Fatalf("expected an encrypted blob, got empty column")
	}
	if bytes.Contains(blob, []byte("super-secret-value")) {
		t.Errorf("plaintext secret leaked into the stored blob")
	}

	creds, err := s.ServiceCredentials(ctx, 1)
	if err != nil {
		t.Fatalf("failed to load credentials: %v", err)
	}
	if creds["clientSecret"] != "super-secret-value" {
		t.Errorf("expected decrypted secret, got %q", creds["clientSecret"])
	}
}

// TestListServicesPage verifies paging, counts and search filtering.
func TestListServicesPage(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO cloud_services (name, service_type, credential_values) VALUES (?, 'azureDefault', '')",
			fmt.Sprintf("extra-%d", i)); err != nil {
			t.Fatalf("failed to insert row: %v", err)
		}
	}

	services, total, filtered, err := s.ListServicesPage(ctx, ListQuery{Offset: 0, Limit: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 6 || filtered != 6 {
		t.Errorf("expected counts 6/6, got %d/%d", total, filtered)
	}
	if len(services) != 3 {
		t.Errorf("expected a page of 3, got %d", len(services))
	}

	services, total, filtered, err = s.ListServicesPage(ctx, ListQuery{Search: "extra"})
	if err != nil {
		t.Fatalf("search list failed: %v", err)
	}
	if total != 6 {
		t.Errorf("expected total 6, got %d", total)
	}
	if filtered != 5 || len(services) != 5 {
		t.Errorf("expected 5 filtered rows, got filtered=%d len=%d", filtered, len(services))
	}
}
