package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Property names a column of the properties singleton row
type Property string

const (
	PropAccessToken           Property = "access_token"
	PropRefreshToken          Property = "refresh_token"
	PropTokenType             Property = "token_type"
	PropTokenExpiry           Property = "token_expiry"
	PropDefaultPlaylistActive Property = "default_playlist_active"
	PropNowPlayingHistoryID   Property = "now_playing_history_id"
)

// Each property maps to a fixed statement; column names never come from callers.
var propertyReads = map[Property]string{
	PropAccessToken:           "SELECT access_token FROM properties WHERE id = 1",
	PropRefreshToken:          "SELECT refresh_token FROM properties WHERE id = 1",
	PropTokenType:             "SELECT token_type FROM properties WHERE id = 1",
	PropTokenExpiry:           "SELECT token_expiry FROM properties WHERE id = 1",
	PropDefaultPlaylistActive: "SELECT default_playlist_active FROM properties WHERE id = 1",
	PropNowPlayingHistoryID:   "SELECT now_playing_history_id FROM properties WHERE id = 1",
}

var propertyWrites = map[Property]string{
	PropAccessToken:           "UPDATE properties SET access_token = ? WHERE id = 1",
	PropRefreshToken:          "UPDATE properties SET refresh_token = ? WHERE id = 1",
	PropTokenType:             "UPDATE properties SET token_type = ? WHERE id = 1",
	PropTokenExpiry:           "UPDATE properties SET token_expiry = ? WHERE id = 1",
	PropDefaultPlaylistActive: "UPDATE properties SET default_playlist_active = ? WHERE id = 1",
	PropNowPlayingHistoryID:   "UPDATE properties SET now_playing_history_id = ? WHERE id = 1",
}

// Credential is the persisted OAuth token of the account that owns the device
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

func getProperty(ctx context.Context, q dbtx, p Property, dest any) error {
	query, ok := propertyReads[p]
	if !ok {
		return fmt.Errorf("unknown property %q", p)
	}
	if err := q.QueryRowContext(ctx, query).Scan(dest); err != nil {
		return fmt.Errorf("failed to read property %s: %w", p, err)
	}
	return nil
}

func setProperty(ctx context.Context, e dbtx, p Property, value any) error {
	query, ok := propertyWrites[p]
	if !ok {
		return fmt.Errorf("unknown property %q", p)
	}
	if _, err := e.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("failed to write property %s: %w", p, err)
	}
	return nil
}

// Credential returns the stored OAuth credential. The zero value means
// no account has been authorized yet.
func (s *Store) Credential(ctx context.Context) (Credential, error) {
	var (
		cred   Credential
		expiry int64
	)

	query := `
		SELECT access_token, refresh_token, token_type, token_expiry
		FROM properties
		WHERE id = 1
	`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.TokenType,
		&expiry,
	)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read credential: %w", err)
	}

	if expiry > 0 {
		cred.Expiry = time.Unix(expiry, 0)
	}

	return cred, nil
}

// SaveCredential stores all token fields in one transaction. An empty
// refresh token keeps the previously stored one, since refresh responses
// may omit it.
func (s *Store) SaveCredential(ctx context.Context, cred Credential) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var expiry int64
		if !cred.Expiry.IsZero() {
			expiry = cred.Expiry.Unix()
		}

		if err := setProperty(ctx, tx, PropAccessToken, cred.AccessToken); err != nil {
			return err
		}
		if cred.RefreshToken != "" {
			if err := setProperty(ctx, tx, PropRefreshToken, cred.RefreshToken); err != nil {
				return err
			}
		}
		if err := setProperty(ctx, tx, PropTokenType, cred.TokenType); err != nil {
			return err
		}
		return setProperty(ctx, tx, PropTokenExpiry, expiry)
	})
}

// DefaultPlaylistActive reports whether the fallback playlist owns the device
func (s *Store) DefaultPlaylistActive(ctx context.Context) (bool, error) {
	var active bool
	if err := getProperty(ctx, s.db, PropDefaultPlaylistActive, &active); err != nil {
		return false, err
	}
	return active, nil
}

// ActivateDefaultPlaylist marks the fallback playlist as active and clears
// the now-playing request in one transaction.
func (s *Store) ActivateDefaultPlaylist(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := setProperty(ctx, tx, PropDefaultPlaylistActive, true); err != nil {
			return err
		}
		return setProperty(ctx, tx, PropNowPlayingHistoryID, int64(0))
	})
}

// NowPlaying returns the history record of the request currently on the
// device, or nil if the default playlist is playing.
func (s *Store) NowPlaying(ctx context.Context) (*HistoryRecord, error) {
	var id int64
	if err := getProperty(ctx, s.db, PropNowPlayingHistoryID, &id); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}

	rec, err := s.historyByID(ctx, s.db, id)
	if err == ErrNotFound {
		// Pruned by cleanup while still referenced
		return nil, nil
	}
	return rec, err
}
