package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QueueEntry is a pending song request. Entries are played in id order.
type QueueEntry struct {
	ID         int64
	UserID     int64
	ClientID   string
	TrackID    string
	TrackURI   string
	TrackName  string
	Artist     string
	Duration   time.Duration
	Message    string
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
}

// NewEntry describes a request to append to the queue
type NewEntry struct {
	ClientID  string
	TrackID   string
	TrackURI  string
	TrackName string
	Artist    string
	Duration  time.Duration
	Message   string
}

// EnqueueResult reports what Enqueue changed
type EnqueueResult struct {
	Entry     QueueEntry
	HistoryID int64

	// Transitioned is true if the default playlist was active and this
	// request flipped the system into draining the queue.
	Transitioned bool
}

// DeadLetter is a request removed from the queue after repeated playback failures
type DeadLetter struct {
	ID           int64
	QueueEntryID int64
	ClientID     string
	TrackID      string
	TrackName    string
	Artist       string
	Reason       string
	Attempts     int
	FailedAt     time.Time
}

const queueColumns = `
	q.id, q.user_id, u.client_id, q.track_id, q.track_uri, q.track_name, q.artist,
	q.duration_ms, q.message, q.attempts, COALESCE(q.last_error, ''), q.enqueued_at
`

// Enqueue appends a request and its history record, and leaves the default
// playlist state if it was active, all in one transaction.
func (s *Store) Enqueue(ctx context.Context, e NewEntry) (*EnqueueResult, error) {
	var res EnqueueResult

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, e.ClientID)
		if err != nil {
			return err
		}

		now := s.now()

		result, err := tx.ExecContext(ctx, `
			INSERT INTO song_queue (user_id, track_id, track_uri, track_name, artist, duration_ms, message, enqueued_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			userID,
			e.TrackID,
			e.TrackURI,
			e.TrackName,
			e.Artist,
			e.Duration.Milliseconds(),
			e.Message,
			now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert queue entry: %w", err)
		}

		entryID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get insert id: %w", err)
		}

		result, err = tx.ExecContext(ctx, `
			INSERT INTO song_history (user_id, queue_entry_id, track_id, track_name, artist, message, requested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			userID,
			entryID,
			e.TrackID,
			e.TrackName,
			e.Artist,
			e.Message,
			now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert history record: %w", err)
		}

		historyID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get insert id: %w", err)
		}

		var active bool
		if err := getProperty(ctx, tx, PropDefaultPlaylistActive, &active); err != nil {
			return err
		}
		if active {
			if err := setProperty(ctx, tx, PropDefaultPlaylistActive, false); err != nil {
				return err
			}
		}

		res = EnqueueResult{
			Entry: QueueEntry{
				ID:         entryID,
				UserID:     userID,
				ClientID:   e.ClientID,
				TrackID:    e.TrackID,
				TrackURI:   e.TrackURI,
				TrackName:  e.TrackName,
				Artist:     e.Artist,
				Duration:   time.Duration(e.Duration.Milliseconds()) * time.Millisecond,
				Message:    e.Message,
				EnqueuedAt: time.Unix(now.Unix(), 0),
			},
			HistoryID:    historyID,
			Transitioned: active,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// Head returns the oldest queued request, or nil if the queue is empty
func (s *Store) Head(ctx context.Context) (*QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM song_queue q
		JOIN users u ON u.id = q.user_id
		ORDER BY q.id ASC
		LIMIT 1
	`

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue head: %w", err)
	}

	return entry, nil
}

// List returns all queued requests in playback order
func (s *Store) List(ctx context.Context) ([]QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM song_queue q
		JOIN users u ON u.id = q.user_id
		ORDER BY q.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	entries := []QueueEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue: %w", err)
	}

	return entries, nil
}

// Count returns the number of queued requests
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM song_queue").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return count, nil
}

// MarkPlaying removes a request from the queue once it is on the device,
// stamps its history record and records it as now playing.
func (s *Store) MarkPlaying(ctx context.Context, id int64) (*HistoryRecord, error) {
	var rec *HistoryRecord

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM song_queue WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to dequeue entry: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("queue entry %d: %w", id, ErrNotFound)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE song_history SET played_at = ? WHERE queue_entry_id = ?",
			s.now().Unix(), id,
		)
		if err != nil {
			return fmt.Errorf("failed to stamp history: %w", err)
		}

		var historyID int64
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM song_history WHERE queue_entry_id = ? ORDER BY id DESC LIMIT 1", id,
		).Scan(&historyID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to find history record: %w", err)
		}

		if err := setProperty(ctx, tx, PropNowPlayingHistoryID, historyID); err != nil {
			return err
		}
		if err := setProperty(ctx, tx, PropDefaultPlaylistActive, false); err != nil {
			return err
		}

		if historyID != 0 {
			rec, err = s.historyByID(ctx, tx, historyID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// RecordFailure counts a failed playback attempt. Once attempts reach
// maxAttempts the entry moves to dead letters and deadLettered is true.
func (s *Store) RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (deadLettered bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE song_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?",
			reason, id,
		)
		if err != nil {
			return fmt.Errorf("failed to record failure: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("queue entry %d: %w", id, ErrNotFound)
		}

		entry, err := scanEntry(tx.QueryRowContext(ctx, `
			SELECT `+queueColumns+`
			FROM song_queue q
			JOIN users u ON u.id = q.user_id
			WHERE q.id = ?
		`, id))
		if err != nil {
			return fmt.Errorf("failed to read queue entry: %w", err)
		}

		if maxAttempts <= 0 || entry.Attempts < maxAttempts {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO dead_letters (queue_entry_id, client_id, track_id, track_name, artist, reason, attempts, failed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			entry.ID,
			entry.ClientID,
			entry.TrackID,
			entry.TrackName,
			entry.Artist,
			reason,
			entry.Attempts,
			s.now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert dead letter: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM song_queue WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to remove dead letter from queue: %w", err)
		}

		deadLettered = true
		return nil
	})

	return deadLettered, err
}

// DeadLetters returns the most recent dead letters first.
// A limit of 0 returns all of them.
func (s *Store) DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	query := `
		SELECT id, queue_entry_id, client_id, track_id, track_name, artist, reason, attempts, failed_at
		FROM dead_letters
		ORDER BY id DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead letters: %w", err)
	}
	defer rows.Close()

	letters := []DeadLetter{}
	for rows.Next() {
		var (
			d        DeadLetter
			failedAt int64
		)
		err := rows.Scan(
			&d.ID,
			&d.QueueEntryID,
			&d.ClientID,
			&d.TrackID,
			&d.TrackName,
			&d.Artist,
			&d.Reason,
			&d.Attempts,
			&failedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		d.FailedAt = time.Unix(failedAt, 0)
		letters = append(letters, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead letters: %w", err)
	}

	return letters, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*QueueEntry, error) {
	var (
		e          QueueEntry
		durationMs int64
		enqueuedAt int64
	)

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.ClientID,
		&e.TrackID,
		&e.TrackURI,
		&e.TrackName,
		&e.Artist,
		&durationMs,
		&e.Message,
		&e.Attempts,
		&e.LastError,
		&enqueuedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Duration = time.Duration(durationMs) * time.Millisecond
	e.EnqueuedAt = time.Unix(enqueuedAt, 0)

	return &e, nil
}
