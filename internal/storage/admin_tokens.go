package storage

import (
	"context"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// CreateAdminToken stores a bcrypt hash of the given token and returns the
// new row id. The plaintext token is never persisted.
func (s *SQLiteStorage) CreateAdminToken(ctx context.Context, name, token string) (int64, error) {
	hash, err := HashToken(token)
	if err != nil {
		return 0, fmt.Errorf("failed to hash token: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO admin_tokens (token_hash, name) VALUES (?, ?)", hash, name)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code()&0xFF) == sqlite3.SQLITE_CONSTRAINT {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to create admin token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}

	return id, nil
}

// ListAdminTokens returns all admin tokens, newest first.
func (s *SQLiteStorage) ListAdminTokens(ctx context.Context) ([]*AdminToken, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, token_hash, name, created_at FROM admin_tokens ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query admin tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	tokens := make([]*AdminToken, 0)
	for rows.Next() {
		var t AdminToken
		if err := rows.Scan(&t.ID, &t.TokenHash, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin token row: %w", err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin tokens: %w", err)
	}

	return tokens, nil
}

// DeleteAdminToken removes a token by id. Returns ErrNotFound if absent.
func (s *SQLiteStorage) DeleteAdminToken(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM admin_tokens WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete admin token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// VerifyAdminToken checks a presented plaintext token against every stored
// bcrypt hash. The admin token table is expected to stay small, so the linear
// scan is acceptable.
func (s *SQLiteStorage) VerifyAdminToken(ctx context.Context, token string) (*AdminToken, error) {
	tokens, err := s.ListAdminTokens(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range tokens {
		if VerifyToken(token, t.TokenHash) == nil {
			return t, nil
		}
	}

	return nil, ErrNotFound
}

// CountAdminTokens returns the number of stored admin tokens. Used to decide
// whether the bootstrap token is still accepted.
func (s *SQLiteStorage) CountAdminTokens(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_tokens").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admin tokens: %w", err)
	}
	return count, nil
}
