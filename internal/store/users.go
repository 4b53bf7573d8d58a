package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ensureUser returns the id of the user row for clientID, creating it if
// needed. The unique constraint on client_id guarantees one row per client.
func ensureUser(ctx context.Context, q dbtx, clientID string) (int64, error) {
	_, err := q.ExecContext(ctx,
		"INSERT INTO users (client_id) VALUES (?) ON CONFLICT(client_id) DO NOTHING",
		clientID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	var id int64
	if err := q.QueryRowContext(ctx, "SELECT id FROM users WHERE client_id = ?", clientID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}

	return id, nil
}

// Cooldown returns when the client's cooldown expires. ok is false if the
// client has never submitted a request.
func (s *Store) Cooldown(ctx context.Context, clientID string) (expiresAt time.Time, ok bool, err error) {
	var ms int64
	err = s.db.QueryRowContext(ctx,
		"SELECT cooldown_expires_at FROM users WHERE client_id = ?", clientID,
	).Scan(&ms)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read cooldown: %w", err)
	}

	return time.UnixMilli(ms), true, nil
}

// SetCooldown sets the client's cooldown expiry, creating the user row on
// first use.
func (s *Store) SetCooldown(ctx context.Context, clientID string, expiresAt time.Time) error {
	query := `
		INSERT INTO users (client_id, cooldown_expires_at)
		VALUES (?, ?)
		ON CONFLICT(client_id) DO UPDATE SET cooldown_expires_at = excluded.cooldown_expires_at
	`

	if _, err := s.db.ExecContext(ctx, query, clientID, expiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to set cooldown: %w", err)
	}

	return nil
}

// CountUsers returns the number of distinct clients seen
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
