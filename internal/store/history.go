package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryRecord is the audit log entry written alongside every request
type HistoryRecord struct {
	ID           int64
	UserID       int64
	QueueEntryID int64
	TrackID      string
	TrackName    string
	Artist       string
	Message      string
	RequestedAt  time.Time
	PlayedAt     time.Time // zero until the request reaches the device
}

const historyColumns = `
	id, user_id, queue_entry_id, track_id, track_name, artist, message, requested_at, COALESCE(played_at, 0)
`

func (s *Store) historyByID(ctx context.Context, q dbtx, id int64) (*HistoryRecord, error) {
	row := q.QueryRowContext(ctx, "SELECT "+historyColumns+" FROM song_history WHERE id = ?", id)

	rec, err := scanHistory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history record: %w", err)
	}

	return rec, nil
}

// History returns history records, most recent first.
// A limit of 0 returns all of them.
func (s *Store) History(ctx context.Context, limit int) ([]HistoryRecord, error) {
	query := "SELECT " + historyColumns + " FROM song_history ORDER BY id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}

// CleanupHistory removes played history records older than maxAge.
// Records for requests that never played are kept.
func (s *Store) CleanupHistory(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).Unix()

	query := `
		DELETE FROM song_history
		WHERE played_at IS NOT NULL
		AND requested_at < ?
		AND id != (SELECT now_playing_history_id FROM properties WHERE id = 1)
	`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup history: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

func scanHistory(row rowScanner) (*HistoryRecord, error) {
	var (
		rec         HistoryRecord
		requestedAt int64
		playedAt    int64
	)

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.QueueEntryID,
		&rec.TrackID,
		&rec.TrackName,
		&rec.Artist,
		&rec.Message,
		&requestedAt,
		&playedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.RequestedAt = time.Unix(requestedAt, 0)
	if playedAt > 0 {
		rec.PlayedAt = time.Unix(playedAt, 0)
	}

	return &rec, nil
}
