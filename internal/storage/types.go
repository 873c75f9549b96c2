package storage

import "time"

// CloudService is one configured provider account. CredentialValues keys are
// exactly the field names declared by the registry descriptor for ServiceType.
type CloudService struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Created          time.Time         `json:"created"`
	ServiceType      string            `json:"service_type"`
	CredentialValues map[string]string `json:"credential_values"`

	// Hash is the consistency hash computed on read; clients echo it back as
	// originalHash on writes.
	Hash string `json:"hash,omitempty"`
}

// Preset is a named field-value bundle owned by a cloud service. The keys of
// SpecificationValues are declared by the owning service type's preset
// descriptor for PresetType.
type Preset struct {
	ID                  int64             `json:"id"`
	Service             int64             `json:"service"`
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	PresetType          string            `json:"preset_type"`
	SpecificationValues map[string]string `json:"specification_values"`

	Hash string `json:"hash,omitempty"`
}

// CloudServicePatch is the consistency-checked update payload for a service.
// Nil maps / empty strings mean "leave untouched".
type CloudServicePatch struct {
	Name             string            `json:"name"`
	CredentialValues map[string]string `json:"credential_values"`
	OriginalHash     string            `json:"originalHash"`
}

// PresetPatch is the consistency-checked update payload for a preset.
type PresetPatch struct {
	Name                string            `json:"name"`
	Description         *string           `json:"description"`
	SpecificationValues map[string]string `json:"specification_values"`
	OriginalHash        string            `json:"originalHash"`
}

// AdminToken is one bcrypt-hashed bearer token for the admin API.
type AdminToken struct {
	ID        int64
	TokenHash string
	Name      string
	CreatedAt time.Time
}

// ListQuery is the paged-listing request shape used by the -table endpoints.
type ListQuery struct {
	Offset int
	Limit  int
	Search string
}
