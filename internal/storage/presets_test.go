package storage

import (
	"context"
	"errors"
	"testing"
)

// validPreset returns a preset passing the azureLocationSize schema.
func validPreset() *Preset {
	return &Preset{
		Service:     1,
		Name:        "west-small",
		Description: "small VMs in west europe",
		PresetType:  "azureLocationSize",
		SpecificationValues: map[string]string{
			"subscriptionId": "sub-1",
			"location":       "westeurope",
			"vm_size":        "Standard_B2s",
		},
	}
}

// TestCreatePreset verifies the happy path and the round-trip of values.
func TestCreatePreset(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.CreatePreset(ctx, validPreset())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id <= SentinelPresetID {
		t.Errorf("expected an id after the sentinel, got %d", id)
	}

	preset, err := s.GetPresetByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to reload preset: %v", err)
	}
	if preset.SpecificationValues["vm_size"] != "Standard_B2s" {
		t.Errorf("expected stored vm_size, got %q", preset.SpecificationValues["vm_size"])
	}
	if preset.Hash == "" {
		t.Errorf("expected a consistency hash")
	}
}

// TestCreatePresetMissingDeclaredField verifies that dropping one declared
// field is rejected with the field named.
func TestCreatePresetMissingDeclaredField(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	preset := validPreset()
	delete(preset.SpecificationValues, "vm_size")

	_, err := s.CreatePreset(context.Background(), preset)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "vm_size" {
		t.Errorf("expected the error to name vm_size, got %q", verr.Field)
	}
}

// TestCreatePresetDropsUndeclaredKeys verifies the stored values are exactly
// the declared schema even when extra keys are sent.
func TestCreatePresetDropsUndeclaredKeys(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	preset := validPreset()
	preset.SpecificationValues["color"] = "purple"

	id, err := s.CreatePreset(ctx, preset)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := s.GetPresetByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to reload preset: %v", err)
	}
	if _, ok := stored.SpecificationValues["color"]; ok {
		t.Errorf("undeclared key should not be persisted")
	}
	if len(stored.SpecificationValues) != 3 {
		t.Errorf("expected exactly the 3 declared fields, got %v", stored.SpecificationValues)
	}
}

// TestCreatePresetUnknownType verifies an undeclared preset type is rejected.
func TestCreatePresetUnknownType(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	preset := validPreset()
	preset.PresetType = "no-such-type"

	_, err := s.CreatePreset(context.Background(), preset)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "preset_type" {
		t.Errorf("expected the error to name preset_type, got %q", verr.Field)
	}
}

// TestCreatePresetMissingService verifies creation under an absent service.
func TestCreatePresetMissingService(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	preset := validPreset()
	preset.Service = 999

	_, err := s.CreatePreset(context.Background(), preset)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestCreatePresetEmptyName verifies the name check.
func TestCreatePresetEmptyName(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	preset := validPreset()
	preset.Name = ""

	_, err := s.CreatePreset(context.Background(), preset)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "name" {
		t.Errorf("expected the error to name the name field, got %q", verr.Field)
	}
}

// TestCreatePresetEmptyDescription verifies the description check.
func TestCreatePresetEmptyDescription(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	preset := validPreset()
	preset.Description = ""

	_, err := s.CreatePreset(context.Background(), preset)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "description" {
		t.Errorf("expected the error to name the description field, got %q", verr.Field)
	}
}

// TestUpdatePreset verifies a consistency-checked partial update.
func TestUpdatePreset(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.CreatePreset(ctx, validPreset())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	preset, err := s.GetPresetByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to load preset: %v", err)
	}

	desc := "bigger machines"
	patch := &PresetPatch{
		Description:         &desc,
		SpecificationValues: map[string]string{"vm_size": "Standard_D4s_v3"},
		OriginalHash:        preset.Hash,
	}
	if err := s.UpdatePresetWithConsistencyCheck(ctx, id, patch); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	updated, err := s.GetPresetByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to reload preset: %v", err)
	}
	if updated.Description != "bigger machines" {
		t.Errorf("expected updated description, got %q", updated.Description)
	}
	if updated.SpecificationValues["vm_size"] != "Standard_D4s_v3" {
		t.Errorf("expected updated vm_size, got %q", updated.SpecificationValues["vm_size"])
	}
	if updated.SpecificationValues["location"] != "westeurope" {
		t.Errorf("absent field should keep stored value, got %q", updated.SpecificationValues["location"])
	}
}

// TestUpdatePresetStaleHash verifies a stale originalHash is rejected.
func TestUpdatePresetStaleHash(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.CreatePreset(ctx, validPreset())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = s.UpdatePresetWithConsistencyCheck(ctx, id, &PresetPatch{
		Name:         "renamed",
		OriginalHash: "stale",
	})
	if !errors.Is(err, ErrChanged) {
		t.Errorf("expected ErrChanged, got %v", err)
	}
}

// TestUpdatePresetEmptyDeclaredField verifies present-but-empty rejection.
func TestUpdatePresetEmptyDeclaredField(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.CreatePreset(ctx, validPreset())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	preset, err := s.GetPresetByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to load preset: %v", err)
	}

	err = s.UpdatePresetWithConsistencyCheck(ctx, id, &PresetPatch{
		SpecificationValues: map[string]string{"location": ""},
		OriginalHash:        preset.Hash,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "location" {
		t.Errorf("expected the error to name location, got %q", verr.Field)
	}
}

// TestSentinelPresetProtected verifies the local preset can be neither
// modified nor deleted.
func TestSentinelPresetProtected(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	err := s.UpdatePresetWithConsistencyCheck(ctx, SentinelPresetID, &PresetPatch{
		Name:         "hijacked",
		OriginalHash: "any",
	})
	if !errors.Is(err, ErrSentinelPreset) {
		t.Errorf("expected ErrSentinelPreset on update, got %v", err)
	}

	if err := s.RemovePreset(ctx, SentinelPresetID); !errors.Is(err, ErrSentinelPreset) {
		t.Errorf("expected ErrSentinelPreset on delete, got %v", err)
	}

	if _, err := s.GetPresetByID(ctx, SentinelPresetID); err != nil {
		t.Errorf("sentinel preset should survive, got %v", err)
	}
}

// TestRemovePreset verifies deletion and the missing-row error.
func TestRemovePreset(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.CreatePreset(ctx, validPreset())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.RemovePreset(ctx, id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := s.GetPresetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}

	if err := s.RemovePreset(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for double removal, got %v", err)
	}
}

// TestListPresetsPage verifies per-service scoping, paging and search.
func TestListPresetsPage(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	names := []string{"alpha", "beta", "gamma"}
	for _, name := range names {
		p := validPreset()
		p.Name = name
		if _, err := s.CreatePreset(ctx, p); err != nil {
			t.Fatalf("create %q failed: %v", name, err)
		}
	}

	// Sentinel plus three created presets under service 1.
	presets, total, filtered, err := s.ListPresetsPage(ctx, 1, ListQuery{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 4 || filtered != 4 || len(presets) != 4 {
		t.Errorf("expected 4/4/4, got total=%d filtered=%d len=%d", total, filtered, len(presets))
	}

	presets, total, filtered, err = s.ListPresetsPage(ctx, 1, ListQuery{Search: "beta"})
	if err != nil {
		t.Fatalf("search list failed: %v", err)
	}
	if total != 4 || filtered != 1 || len(presets) != 1 {
		t.Errorf("expected 4/1/1, got total=%d filtered=%d len=%d", total, filtered, len(presets))
	}
	if presets[0].Name != "beta" {
		t.Errorf("expected beta, got %q", presets[0].Name)
	}

	// Another service sees none of them.
	_, _, _, err = s.ListPresetsPage(ctx, 2, ListQuery{})
	if err != nil {
		t.Fatalf("list for other service failed: %v", err)
	}
}
