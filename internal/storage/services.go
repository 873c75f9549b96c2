package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetServiceByID returns a service row with decrypted credentials and its
// consistency hash. Returns ErrNotFound if the row doesn't exist.
func (s *SQLiteStorage) GetServiceByID(ctx context.Context, id int64) (*CloudService, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, created, service_type, credential_values FROM cloud_services WHERE id = ?", id)
	return s.scanService(row)
}

// ListServicesPage returns one page of service rows plus the total and
// filtered row counts, for the -table endpoint. Credentials are not decrypted
// on the listing path.
func (s *SQLiteStorage) ListServicesPage(ctx context.Context, q ListQuery) ([]*CloudService, int, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cloud_services").Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count services: %w", err)
	}

	filtered := total
	where := ""
	args := []any{}
	if q.Search != "" {
		where = " WHERE name LIKE ?"
		args = append(args, "%"+q.Search+"%")
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cloud_services"+where, args...).Scan(&filtered); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to count filtered services: %w", err)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created, service_type FROM cloud_services"+where+" ORDER BY id ASC LIMIT ? OFFSET ?",
		append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	services := make([]*CloudService, 0)
	for rows.Next() {
		var svc CloudService
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Created, &svc.ServiceType); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to scan service row: %w", err)
		}
		services = append(services, &svc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("error iterating services: %w", err)
	}

	return services, total, filtered, nil
}

// UpdateServiceWithConsistencyCheck applies a patch to a service row inside
// one transaction: reload, compare the consistency hash, validate the patch
// against the registry descriptor for the row's service_type, merge only the
// declared fields and persist.
//
// Returns ErrChanged on a stale originalHash; the row is left untouched.
func (s *SQLiteStorage) UpdateServiceWithConsistencyCheck(ctx context.Context, id int64, patch *CloudServicePatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		"SELECT id, name, created, service_type, credential_values FROM cloud_services WHERE id = ?", id)
	svc, err := s.scanService(row)
	if err != nil {
		return err
	}

	if ServiceHash(svc) != patch.OriginalHash {
		return ErrChanged
	}

	if patch.Name != "" {
		svc.Name = patch.Name
	}

	// Merge only the field names the descriptor declares. Unknown keys are
	// never merged in; declared keys absent from the patch keep their stored
	// value.
	fields := s.registry.CredentialFields(svc.ServiceType)
	for _, field := range fields {
		value, present := patch.CredentialValues[field.Name]
		if !present {
			continue
		}
		if value == "" {
			return &ValidationError{Field: field.Name, Msg: "value cannot be empty"}
		}
		if svc.CredentialValues == nil {
			svc.CredentialValues = make(map[string]string)
		}
		svc.CredentialValues[field.Name] = value
	}

	encrypted, err := s.encryptValues(svc.CredentialValues)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE cloud_services SET name = ?, credential_values = ? WHERE id = ?",
		svc.Name, encrypted, svc.ID); err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}

	return tx.Commit()
}

// ServiceCredentials returns the decrypted credential map of a service, for
// proxy-operation invocation.
func (s *SQLiteStorage) ServiceCredentials(ctx context.Context, id int64) (map[string]string, error) {
	svc, err := s.GetServiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.CredentialValues, nil
}

// scanService decodes one service row, decrypting the credential blob and
// computing the consistency hash.
func (s *SQLiteStorage) scanService(row *sql.Row) (*CloudService, error) {
	var svc CloudService
	var blob []byte

	err := row.Scan(&svc.ID, &svc.Name, &svc.Created, &svc.ServiceType, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan service row: %w", err)
	}

	svc.CredentialValues, err = s.decryptValues(blob)
	if err != nil {
		return nil, err
	}

	svc.Hash = ServiceHash(&svc)
	return &svc, nil
}

// encryptValues serializes and encrypts an opaque value map. An empty map
// stores as an empty blob.
func (s *SQLiteStorage) encryptValues(values map[string]string) ([]byte, error) {
	if len(values) == 0 {
		return []byte{}, nil
	}
	plain, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return EncryptBlob(plain, s.encryptionKey)
}

// decryptValues reverses encryptValues.
func (s *SQLiteStorage) decryptValues(blob []byte) (map[string]string, error) {
	if len(blob) == 0 {
		return map[string]string{}, nil
	}
	plain, err := DecryptBlob(blob, s.encryptionKey)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("failed to decode credential values: %w", err)
	}
	return values, nil
}
