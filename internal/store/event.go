package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Event is one logged detection event.
type Event struct {
	ID            string    `json:"id"`
	Event         string    `json:"event"`
	Region        string    `json:"region,omitempty"`
	Stage         string    `json:"stage,omitempty"`
	DistanceCM    *float64  `json:"distance_cm"`
	ContactPoints int       `json:"contact_points"`
	Notified      bool      `json:"notified"`
	CreatedAt     time.Time `json:"created_at"`
}

// EventFilter narrows List results.
type EventFilter struct {
	Region string
	Since  time.Time
	Limit  int
}

// EventRepository stores detection events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts an event, assigning an ID and timestamp when unset.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var dist sql.NullFloat64
	if e.DistanceCM != nil {
		dist = sql.NullFloat64{Float64: *e.DistanceCM, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO detection_events (id, event, region, stage, distance_cm, contact_points, notified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Event, e.Region, e.Stage, dist, e.ContactPoints, e.Notified, e.CreatedAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, event, region, stage, distance_cm, contact_points, notified, created_at
		 FROM detection_events WHERE id = ?`,
		id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns events newest first.
func (r *EventRepository) List(f EventFilter) ([]*Event, error) {
	query := `SELECT id, event, region, stage, distance_cm, contact_points, notified, created_at
		 FROM detection_events WHERE 1 = 1`
	var args []any

	if f.Region != "" {
		query += ` AND region = ?`
		args = append(args, f.Region)
	}
	if !f.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.Since)
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountByRegion returns the number of events per region.
func (r *EventRepository) CountByRegion() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT region, COUNT(*) FROM detection_events GROUP BY region`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var region string
		var n int
		if err := rows.Scan(&region, &n); err != nil {
			return nil, err
		}
		counts[region] = n
	}
	return counts, rows.Err()
}

// Delete removes an event by its ID.
func (r *EventRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM detection_events WHERE id = ?`, id)
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

// DeleteBefore removes events older than t and returns how many were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM detection_events WHERE created_at < ?`, t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	e := &Event{}
	var dist sql.NullFloat64
	if err := s.Scan(&e.ID, &e.Event, &e.Region, &e.Stage, &dist, &e.ContactPoints, &e.Notified, &e.CreatedAt); err != nil {
		return nil, err
	}
	if dist.Valid {
		d := dist.Float64
		e.DistanceCM = &d
	}
	return e, nil
}
