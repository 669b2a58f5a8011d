package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Calibration is one stored calibration run.
type Calibration struct {
	ID                 string    `json:"id"`
	Samples            int       `json:"samples"`
	MinDistance        float64   `json:"min_distance"`
	MaxDistance        float64   `json:"max_distance"`
	AvgDistance        float64   `json:"avg_distance"`
	MedianDistance     float64   `json:"median_distance"`
	SuggestedThreshold float64   `json:"suggested_threshold"`
	Applied            bool      `json:"applied"`
	CreatedAt          time.Time `json:"created_at"`
}

// CalibrationRepository stores calibration runs.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Create inserts a calibration run.
func (r *CalibrationRepository) Create(c *Calibration) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO calibrations (id, samples, min_distance, max_distance, avg_distance, median_distance, suggested_threshold, applied, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Samples, c.MinDistance, c.MaxDistance, c.AvgDistance, c.MedianDistance,
		c.SuggestedThreshold, c.Applied, c.CreatedAt,
	)
	return err
}

// Latest returns the most recent calibration run.
func (r *CalibrationRepository) Latest() (*Calibration, error) {
	c := &Calibration{}
	err := r.db.QueryRow(
		`SELECT id, samples, min_distance, max_distance, avg_distance, median_distance, suggested_threshold, applied, created_at
		 FROM calibrations ORDER BY created_at DESC LIMIT 1`,
	).Scan(&c.ID, &c.Samples, &c.MinDistance, &c.MaxDistance, &c.AvgDistance, &c.MedianDistance,
		&c.SuggestedThreshold, &c.Applied, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// MarkApplied records that a run's suggestion was written to the config.
func (r *CalibrationRepository) MarkApplied(id string) error {
	result, err := r.db.Exec(`UPDATE calibrations SET applied = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
