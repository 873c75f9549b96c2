package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openvis/cloudgate/internal/service"
)

// GetPresetByID returns a preset row plus its consistency hash.
// Returns ErrNotFound if the row doesn't exist.
func (s *SQLiteStorage) GetPresetByID(ctx context.Context, id int64) (*Preset, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, service, name, description, preset_type, specification_values FROM presets WHERE id = ?", id)
	return scanPreset(row)
}

// ListPresetsPage returns one page of presets owned by a service plus total
// and filtered counts, for the presets-table endpoint.
func (s *SQLiteStorage) ListPresetsPage(ctx context.Context, serviceID int64, q ListQuery) ([]*Preset, int, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM presets WHERE service = ?", serviceID).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count presets: %w", err)
	}

	filtered := total
	where := " WHERE service = ?"
	args := []any{serviceID}
	if q.Search != "" {
		where += " AND (name LIKE ? OR description LIKE ?)"
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM presets"+where, args...).Scan(&filtered); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to count filtered presets: %w", err)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, service, name, description, preset_type, specification_values FROM presets"+where+" ORDER BY id ASC LIMIT ? OFFSET ?",
		append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to query presets: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	presets := make([]*Preset, 0)
	for rows.Next() {
		preset, err := scanPresetRow(rows)
		if err != nil {
			return nil, 0, 0, err
		}
		presets = append(presets, preset)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("error iterating presets: %w", err)
	}

	return presets, total, filtered, nil
}

// CreatePreset validates a preset against the owning service's descriptor and
// inserts it, returning the new id.
//
// Validation: non-empty name and description, the owning service must exist,
// preset_type must be declared by the service's type, and every declared field
// must be present and non-empty. Undeclared keys are dropped before
// persistence.
func (s *SQLiteStorage) CreatePreset(ctx context.Context, preset *Preset) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if preset.Name == "" {
		return 0, &ValidationError{Field: "name", Msg: "name cannot be empty"}
	}
	if preset.Description == "" {
		return 0, &ValidationError{Field: "description", Msg: "description cannot be empty"}
	}

	var serviceType string
	err = tx.QueryRowContext(ctx,
		"SELECT service_type FROM cloud_services WHERE id = ?", preset.Service).Scan(&serviceType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to load owning service: %w", err)
	}

	presetType, ok := s.registry.PresetTypes(serviceType)[preset.PresetType]
	if !ok {
		return 0, &ValidationError{Field: "preset_type", Msg: fmt.Sprintf("unknown preset type %q", preset.PresetType)}
	}

	values, err := requireDeclaredFields(presetType.Fields, preset.SpecificationValues)
	if err != nil {
		return 0, err
	}

	spec, err := json.Marshal(values)
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO presets (service, name, description, preset_type, specification_values) VALUES (?, ?, ?, ?, ?)",
		preset.Service, preset.Name, preset.Description, preset.PresetType, string(spec))
	if err != nil {
		return 0, fmt.Errorf("failed to insert preset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

// UpdatePresetWithConsistencyCheck applies a patch to a preset inside one
// transaction, with the same reload/hash-check/descriptor-validation shape as
// the service update. The sentinel local preset is immutable.
func (s *SQLiteStorage) UpdatePresetWithConsistencyCheck(ctx context.Context, id int64, patch *PresetPatch) error {
	if id == SentinelPresetID {
		return ErrSentinelPreset
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		"SELECT id, service, name, description, preset_type, specification_values FROM presets WHERE id = ?", id)
	preset, err := scanPreset(row)
	if err != nil {
		return err
	}

	if PresetHash(preset) != patch.OriginalHash {
		return ErrChanged
	}

	if patch.Name != "" {
		preset.Name = patch.Name
	}
	if patch.Description != nil {
		preset.Description = *patch.Description
	}

	var serviceType string
	err = tx.QueryRowContext(ctx,
		"SELECT service_type FROM cloud_services WHERE id = ?", preset.Service).Scan(&serviceType)
	if err != nil {
		return fmt.Errorf("failed to load owning service: %w", err)
	}

	presetType, ok := s.registry.PresetTypes(serviceType)[preset.PresetType]
	if ok {
		for _, field := range presetType.Fields {
			value, present := patch.SpecificationValues[field.Name]
			if !present {
				continue
			}
			if value == "" {
				return &ValidationError{Field: field.Name, Msg: "value cannot be empty"}
			}
			if preset.SpecificationValues == nil {
				preset.SpecificationValues = make(map[string]string)
			}
			preset.SpecificationValues[field.Name] = value
		}
	}

	spec, err := json.Marshal(preset.SpecificationValues)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE presets SET name = ?, description = ?, specification_values = ? WHERE id = ?",
		preset.Name, preset.Description, string(spec), preset.ID); err != nil {
		return fmt.Errorf("failed to update preset: %w", err)
	}

	return tx.Commit()
}

// RemovePreset deletes a preset. The sentinel local preset is protected
// unconditionally, independent of caller permissions.
func (s *SQLiteStorage) RemovePreset(ctx context.Context, id int64) error {
	if id == SentinelPresetID {
		return ErrSentinelPreset
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM presets WHERE id = ?", id).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check preset existence: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}

	return tx.Commit()
}

// requireDeclaredFields keeps exactly the declared field names from values,
// rejecting when a declared field is missing or empty.
func requireDeclaredFields(fields []service.Field, values map[string]string) (map[string]string, error) {
	kept := make(map[string]string, len(fields))
	for _, field := range fields {
		value := values[field.Name]
		if value == "" {
			return nil, &ValidationError{Field: field.Name, Msg: "value must be present and non-empty"}
		}
		kept[field.Name] = value
	}
	return kept, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(row *sql.Row) (*Preset, error) {
	preset, err := scanPresetFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return preset, nil
}

func scanPresetRow(rows *sql.Rows) (*Preset, error) {
	return scanPresetFrom(rows)
}

func scanPresetFrom(scanner rowScanner) (*Preset, error) {
	var preset Preset
	var spec string

	if err := scanner.Scan(&preset.ID, &preset.Service, &preset.Name, &preset.Description, &preset.PresetType, &spec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan preset row: %w", err)
	}

	preset.SpecificationValues = make(map[string]string)
	if spec != "" {
		if err := json.Unmarshal([]byte(spec), &preset.SpecificationValues); err != nil {
			return nil, fmt.Errorf("failed to decode specification values: %w", err)
		}
	}

	preset.Hash = PresetHash(&preset)
	return &preset, nil
}
