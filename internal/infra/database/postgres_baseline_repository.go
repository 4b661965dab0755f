package database

import (
	"context"
	"database/sql"
	"fmt"

	"ttbtrackr/internal/domain/tracking"

	"github.com/lib/pq" // For pq.Array and driver registration
)

type PostgresBaselineRepository struct {
	db *sql.DB
}

func NewPostgresBaselineRepository(db *sql.DB) *PostgresBaselineRepository {
	return &PostgresBaselineRepository{db: db}
}

// Get returns the known section codes for (pair, activityType). The seed
// marker row distinguishes "baseline seeded with zero sections" from
// "baseline never observed".
func (r *PostgresBaselineRepository) Get(ctx context.Context, p tracking.Pair, activityType string) ([]string, bool, error) {
	var seeded bool
	query := `SELECT EXISTS (SELECT 1 FROM section_baseline_seeds
               WHERE course_code = $1 AND semester = $2 AND activity_type = $3)`
	if err := r.db.QueryRowContext(ctx, query, p.CourseCode, p.Semester, activityType).Scan(&seeded); err != nil {
		return nil, false, fmt.Errorf("error checking baseline seed: %w", err)
	}
	if !seeded {
		return nil, false, nil
	}

	query = `SELECT section_code FROM section_baseline_sections
               WHERE course_code = $1 AND semester = $2 AND activity_type = $3 ORDER BY section_code`
	rows, err := r.db.QueryContext(ctx, query, p.CourseCode, p.Semester, activityType)
	if err != nil {
		return nil, false, fmt.Errorf("error reading baseline sections: %w", err)
	}
	defer rows.Close()

	sections := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, false, fmt.Errorf("error scanning baseline section: %w", err)
		}
		sections = append(sections, code)
	}
	if err = rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating baseline sections: %w", err)
	}
	return sections, true, nil
}

// Seed records the first observation of (pair, activityType). Concurrent
// seeds of the same baseline collapse into one thanks to the conflict guards.
func (r *PostgresBaselineRepository) Seed(ctx context.Context, p tracking.Pair, activityType string, sections []string) error {
	query := `INSERT INTO section_baseline_seeds (course_code, semester, activity_type)
               VALUES ($1, $2, $3)
               ON CONFLICT (course_code, semester, activity_type) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, p.CourseCode, p.Semester, activityType); err != nil {
		return fmt.Errorf("error seeding baseline: %w", err)
	}
	return r.Union(ctx, p, activityType, sections)
}

// Union adds section codes to the baseline. The insert is conditional per
// code, so the set only grows and partial application under cancellation is
// still consistent.
func (r *PostgresBaselineRepository) Union(ctx context.Context, p tracking.Pair, activityType string, sections []string) error {
	if len(sections) == 0 {
		return nil
	}
	query := `INSERT INTO section_baseline_sections (course_code, semester, activity_type, section_code)
               SELECT $1, $2, $3, unnest($4::text[])
               ON CONFLICT (course_code, semester, activity_type, section_code) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, p.CourseCode, p.Semester, activityType, pq.Array(sections)); err != nil {
		return fmt.Errorf("error unioning baseline sections: %w", err)
	}
	return nil
}

// PruneOrphans removes baselines that no sentinel watch references anymore.
// A baseline with live watchers is never touched, so no notification history
// is lost for subscribers that join later.
func (r *PostgresBaselineRepository) PruneOrphans(ctx context.Context) (int64, error) {
	query := `DELETE FROM section_baseline_seeds s
               WHERE NOT EXISTS (
                   SELECT 1 FROM watch_entries w
                   WHERE w.course_code = s.course_code
                     AND w.semester = s.semester
                     AND w.activity = 'New' || s.activity_type
               )`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("error pruning orphan baseline seeds: %w", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting pruned baseline seeds: %w", err)
	}

	query = `DELETE FROM section_baseline_sections s
               WHERE NOT EXISTS (
                   SELECT 1 FROM section_baseline_seeds b
                   WHERE b.course_code = s.course_code
                     AND b.semester = s.semester
                     AND b.activity_type = s.activity_type
               )`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return pruned, fmt.Errorf("error pruning orphan baseline sections: %w", err)
	}
	return pruned, nil
}
