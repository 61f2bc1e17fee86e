package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is a persisted detection session.
type Session struct {
	ID             string
	Source         string
	WindowSize     int
	Threshold      float64
	CountMode      string
	Samples        int
	InvalidSamples int
	Events         int
	Episodes       int
	StartedAt      time.Time
	EndedAt        *time.Time // nil while the session is running
}

// SessionCounts are the final counters written by Finish.
type SessionCounts struct {
	Samples        int
	InvalidSamples int
	Events         int
	Episodes       int
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, source, window_size, threshold, count_mode, samples, invalid_samples, events, episodes, started_at, ended_at`

// Create inserts a new running session. StartedAt defaults to now.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.WindowSize, s.Threshold, s.CountMode,
		s.Samples, s.InvalidSamples, s.Events, s.Episodes, s.StartedAt, s.EndedAt,
	)
	return err
}

// Finish records the final counters and end time of a session.
func (r *SessionRepository) Finish(id string, counts SessionCounts, endedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET samples = ?, invalid_samples = ?, events = ?, episodes = ?, ended_at = ?
		 WHERE id = ?`,
		counts.Samples, counts.InvalidSamples, counts.Events, counts.Episodes, endedAt, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var endedAt sql.NullTime

	err := row.Scan(&s.ID, &s.Source, &s.WindowSize, &s.Threshold, &s.CountMode,
		&s.Samples, &s.InvalidSamples, &s.Events, &s.Episodes, &s.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves all sessions, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its detections.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
