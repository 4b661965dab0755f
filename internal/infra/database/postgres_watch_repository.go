package database

import (
	"context"
	"database/sql"
	"fmt"

	"ttbtrackr/internal/domain/tracking"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrWatchNotFound = fmt.Errorf("watch entry not found")
var ErrDuplicateWatch = fmt.Errorf("watch entry for this subscriber/course/semester/activity already exists")

type PostgresWatchRepository struct {
	db *sql.DB
}

func NewPostgresWatchRepository(db *sql.DB) *PostgresWatchRepository {
	return &PostgresWatchRepository{db: db}
}

func (r *PostgresWatchRepository) Add(ctx context.Context, e *tracking.Entry) error {
	// ON CONFLICT DO NOTHING keeps the insert idempotent under concurrent
	// duplicate track requests; zero rows back means the tuple already exists.
	query := `INSERT INTO watch_entries (subscriber_id, course_code, semester, activity)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (subscriber_id, course_code, semester, activity) DO NOTHING
               RETURNING id`

	err := r.db.QueryRowContext(ctx, query, e.SubscriberID, e.CourseCode, e.Semester, e.Activity).Scan(&e.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrDuplicateWatch
		}
		return fmt.Errorf("error adding watch entry: %w", err)
	}
	return nil
}

func (r *PostgresWatchRepository) Remove(ctx context.Context, e *tracking.Entry) error {
	query := `DELETE FROM watch_entries
               WHERE subscriber_id = $1 AND course_code = $2 AND semester = $3 AND activity = $4`
	res, err := r.db.ExecContext(ctx, query, e.SubscriberID, e.CourseCode, e.Semester, e.Activity)
	if err != nil {
		return fmt.Errorf("error removing watch entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking removed watch entry: %w", err)
	}
	if affected == 0 {
		return ErrWatchNotFound
	}
	return nil
}

func (r *PostgresWatchRepository) IsTracking(ctx context.Context, e *tracking.Entry) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM watch_entries
               WHERE subscriber_id = $1 AND course_code = $2 AND semester = $3 AND activity = $4)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, e.SubscriberID, e.CourseCode, e.Semester, e.Activity).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking watch entry: %w", err)
	}
	return exists, nil
}

func (r *PostgresWatchRepository) ListPairs(ctx context.Context) ([]tracking.Pair, error) {
	query := `SELECT DISTINCT course_code, semester FROM watch_entries ORDER BY course_code, semester`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing tracked pairs: %w", err)
	}
	defer rows.Close()

	pairs := make([]tracking.Pair, 0)
	for rows.Next() {
		var p tracking.Pair
		if err := rows.Scan(&p.CourseCode, &p.Semester); err != nil {
			return nil, fmt.Errorf("error scanning tracked pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked pairs: %w", err)
	}
	return pairs, nil
}

func (r *PostgresWatchRepository) ListByPair(ctx context.Context, p tracking.Pair) ([]*tracking.Entry, error) {
	query := `SELECT id, subscriber_id, course_code, semester, activity
               FROM watch_entries WHERE course_code = $1 AND semester = $2 ORDER BY id`
	return r.listEntries(ctx, query, p.CourseCode, p.Semester)
}

func (r *PostgresWatchRepository) ListBySubscriber(ctx context.Context, subscriberID int64) ([]*tracking.Entry, error) {
	query := `SELECT id, subscriber_id, course_code, semester, activity
               FROM watch_entries WHERE subscriber_id = $1 ORDER BY id`
	return r.listEntries(ctx, query, subscriberID)
}

func (r *PostgresWatchRepository) CountBySubscriber(ctx context.Context, subscriberID int64) (int, error) {
	query := `SELECT COUNT(*) FROM watch_entries WHERE subscriber_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, subscriberID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting watch entries: %w", err)
	}
	return count, nil
}

func (r *PostgresWatchRepository) RemoveBySubscriber(ctx context.Context, subscriberID int64) error {
	query := `DELETE FROM watch_entries WHERE subscriber_id = $1`
	if _, err := r.db.ExecContext(ctx, query, subscriberID); err != nil {
		return fmt.Errorf("error removing subscriber watch entries: %w", err)
	}
	return nil
}

func (r *PostgresWatchRepository) listEntries(ctx context.Context, query string, args ...interface{}) ([]*tracking.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing watch entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*tracking.Entry, 0)
	for rows.Next() {
		e := &tracking.Entry{}
		if err := rows.Scan(&e.ID, &e.SubscriberID, &e.CourseCode, &e.Semester, &e.Activity); err != nil {
			return nil, fmt.Errorf("error scanning watch entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watch entries: %w", err)
	}
	return entries, nil
}
