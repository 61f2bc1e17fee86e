package store

import (
	"database/sql"
	"time"
)

// Detection is a single triggered result recorded during a session.
type Detection struct {
	ID           int64
	SessionID    string
	Seq          int
	Sample       float64
	StdDev       float64
	EpisodeStart bool
	DetectedAt   time.Time
}

// DetectionRepository stores the detections of sessions.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// Create inserts a detection and sets its ID. DetectedAt defaults to now.
func (r *DetectionRepository) Create(d *Detection) error {
	if d.DetectedAt.IsZero() {
		d.DetectedAt = time.Now()
	}

	episodeStart := 0
	if d.EpisodeStart {
		episodeStart = 1
	}

	result, err := r.db.Exec(
		`INSERT INTO detections (session_id, seq, sample, std_dev, episode_start, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.SessionID, d.Seq, d.Sample, d.StdDev, episodeStart, d.DetectedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// ListBySession retrieves the detections of a session in ingestion order.
func (r *DetectionRepository) ListBySession(sessionID string) ([]Detection, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, sample, std_dev, episode_start, detected_at
		 FROM detections
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []Detection
	for rows.Next() {
		var d Detection
		var episodeStart int
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Seq, &d.Sample, &d.StdDev, &episodeStart, &d.DetectedAt); err != nil {
			return nil, err
		}
		d.EpisodeStart = episodeStart != 0
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}
