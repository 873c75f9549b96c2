package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ServiceHash computes the consistency hash of a cloud service over its
// whitelisted column set. Deterministic: maps serialize with sorted keys.
func ServiceHash(s *CloudService) string {
	return digest(struct {
		ID               int64             `json:"id"`
		Name             string            `json:"name"`
		ServiceType      string            `json:"service_type"`
		CredentialValues map[string]string `json:"credential_values"`
	}{s.ID, s.Name, s.ServiceType, s.CredentialValues})
}

// PresetHash computes the consistency hash of a preset over its whitelisted
// column set.
func PresetHash(p *Preset) string {
	return digest(struct {
		ID                  int64             `json:"id"`
		Service             int64             `json:"service"`
		Name                string            `json:"name"`
		Description         string            `json:"description"`
		PresetType          string            `json:"preset_type"`
		SpecificationValues map[string]string `json:"specification_values"`
	}{p.ID, p.Service, p.Name, p.Description, p.PresetType, p.SpecificationValues})
}

func digest(v any) string {
	// Marshal cannot fail on these shapes.
	data, _ := json.Marshal(v) //nolint:errcheck
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
