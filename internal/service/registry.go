// Package service defines the service-type registry: per-type credential
// schemas, preset schemas and proxy-operation tables. The registry is built
// once at startup and injected; there is no package-level mutable table.
package service

import "context"

// Field describes one credential or preset input as rendered by a form.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// PresetType describes one preset schema offered by a service type.
type PresetType struct {
	Fields      []Field `json:"fields"`
	Description string  `json:"description"`
	HelpHTML    string  `json:"helpHTML"`
}

// ProxyFunc is a named server-side operation invoked with a service's stored
// credentials and caller-supplied arguments.
type ProxyFunc func(ctx context.Context, creds map[string]string, args map[string]any) (any, error)

// Descriptor bundles the three capabilities of one service type. The zero
// value is the degenerate "unknown service" descriptor: no fields, no preset
// types, no operations.
type Descriptor struct {
	CredentialFields []Field
	PresetTypes      map[string]PresetType
	ProxyOps         map[string]ProxyFunc
	HelpHTML         string
}

// Registry maps service-type tags to descriptors. Immutable after NewRegistry.
type Registry struct {
	types map[string]Descriptor
}

// NewRegistry builds a registry from the given descriptors. The map is copied;
// later changes to the argument do not leak in.
func NewRegistry(types map[string]Descriptor) *Registry {
	copied := make(map[string]Descriptor, len(types))
	for tag, desc := range types {
		copied[tag] = desc
	}
	return &Registry{types: copied}
}

// Descriptor returns the descriptor registered for tag. Unrecognized tags get
// the degenerate descriptor rather than an error, so rows with a stale
// service_type still round-trip through generic code paths.
func (r *Registry) Descriptor(tag string) Descriptor {
	return r.types[tag]
}

// CredentialFields returns the credential schema for tag.
func (r *Registry) CredentialFields(tag string) []Field {
	return r.types[tag].CredentialFields
}

// PresetTypes returns the preset schemas for tag.
func (r *Registry) PresetTypes(tag string) map[string]PresetType {
	return r.types[tag].PresetTypes
}

// ProxyOp looks up a named proxy operation for tag. The second return is
// false when either the tag or the operation is unknown.
func (r *Registry) ProxyOp(tag, name string) (ProxyFunc, bool) {
	op, ok := r.types[tag].ProxyOps[name]
	return op, ok
}

// Tags returns the registered service-type tags.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.types))
	for tag := range r.types {
		tags = append(tags, tag)
	}
	return tags
}

// FieldNames flattens a field list into its declared names.
func FieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
