package service

import (
	"context"
	"testing"
)

func registryFixture() *Registry {
	return NewRegistry(map[string]Descriptor{
		"alpha": {
			CredentialFields: []Field{
				{Name: "user", Type: "text", Label: "User"},
				{Name: "secret", Type: "password", Label: "Secret"},
			},
			PresetTypes: map[string]PresetType{
				"basic": {Description: "basic preset"},
			},
			ProxyOps: map[string]ProxyFunc{
				"echo": func(_ context.Context, _ map[string]string, args map[string]any) (any, error) {
					return args, nil
				},
			},
		},
	})
}

// TestRegistryLookup verifies registered descriptors resolve by tag.
func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	r := registryFixture()

	fields := r.CredentialFields("alpha")
	if len(fields) != 2 || fields[0].Name != "user" {
		t.Errorf("unexpected credential fields: %+v", fields)
	}

	if _, ok := r.PresetTypes("alpha")["basic"]; !ok {
		t.Errorf("expected the basic preset type")
	}

	op, ok := r.ProxyOp("alpha", "echo")
	if !ok || op == nil {
		t.Fatalf("expected the echo operation")
	}
	result, err := op(context.Background(), nil, map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("op failed: %v", err)
	}
	if m, ok := result.(map[string]any); !ok || m["k"] != "v" {
		t.Errorf("unexpected op result: %v", result)
	}
}

// TestRegistryUnknownTag verifies the degenerate descriptor for unrecognized
// service types: empty schemas, no operations, no error.
func TestRegistryUnknownTag(t *testing.T) {
	t.Parallel()

	r := registryFixture()

	desc := r.Descriptor("nope")
	if len(desc.CredentialFields) != 0 || len(desc.PresetTypes) != 0 || len(desc.ProxyOps) != 0 {
		t.Errorf("expected the degenerate descriptor, got %+v", desc)
	}

	if fields := r.CredentialFields("nope"); len(fields) != 0 {
		t.Errorf("expected no credential fields, got %+v", fields)
	}

	if _, ok := r.ProxyOp("nope", "echo"); ok {
		t.Errorf("unknown tag must not resolve operations")
	}
	if _, ok := r.ProxyOp("alpha", "nope"); ok {
		t.Errorf("unknown operation must not resolve")
	}
}

// TestRegistryCopiesInput verifies later mutation of the argument map does
// not leak into the registry.
func TestRegistryCopiesInput(t *testing.T) {
	t.Parallel()

	types := map[string]Descriptor{
		"alpha": {CredentialFields: []Field{{Name: "user"}}},
	}
	r := NewRegistry(types)

	types["beta"] = Descriptor{}
	delete(types, "alpha")

	if len(r.CredentialFields("alpha")) != 1 {
		t.Errorf("registry lost a descriptor after input mutation")
	}
	if len(r.Descriptor("beta").CredentialFields) != 0 {
		t.Errorf("registry gained a descriptor after input mutation")
	}
	if tags := r.Tags(); len(tags) != 1 || tags[0] != "alpha" {
		t.Errorf("unexpected tags: %v", tags)
	}
}

// TestFieldNames verifies the schema flattening helper.
func TestFieldNames(t *testing.T) {
	t.Parallel()

	names := FieldNames([]Field{{Name: "a"}, {Name: "b"}})
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names: %v", names)
	}

	if names := FieldNames(nil); len(names) != 0 {
		t.Errorf("expected empty names, got %v", names)
	}
}
