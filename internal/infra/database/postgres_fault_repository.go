package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresFaultRepository stores failed confirmation attempts keyed by phone
// number, deliberately outside the subscribers table: deleting and recreating
// a profile does not clear a number's attempt history or lockout.
type PostgresFaultRepository struct {
	db *sql.DB
}

func NewPostgresFaultRepository(db *sql.DB) *PostgresFaultRepository {
	return &PostgresFaultRepository{db: db}
}

func (r *PostgresFaultRepository) Increment(ctx context.Context, number string) (int, error) {
	// Atomic upsert-and-increment; the returned total drives the caller's
	// threshold checks without a read-modify-write race.
	query := `INSERT INTO phone_faults (phone_number, failed_attempts)
               VALUES ($1, 1)
               ON CONFLICT (phone_number) DO UPDATE
               SET failed_attempts = phone_faults.failed_attempts + 1, updated_at = NOW()
               RETURNING failed_attempts`
	var attempts int
	if err := r.db.QueryRowContext(ctx, query, number).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("error incrementing phone faults: %w", err)
	}
	return attempts, nil
}

func (r *PostgresFaultRepository) Reset(ctx context.Context, number string) error {
	query := `UPDATE phone_faults SET failed_attempts = 0, updated_at = NOW() WHERE phone_number = $1`
	if _, err := r.db.ExecContext(ctx, query, number); err != nil {
		return fmt.Errorf("error resetting phone faults: %w", err)
	}
	return nil
}

func (r *PostgresFaultRepository) Lock(ctx context.Context, number string) error {
	query := `INSERT INTO phone_faults (phone_number, failed_attempts, locked)
               VALUES ($1, 0, TRUE)
               ON CONFLICT (phone_number) DO UPDATE SET locked = TRUE, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, number); err != nil {
		return fmt.Errorf("error locking phone number: %w", err)
	}
	return nil
}

func (r *PostgresFaultRepository) Unlock(ctx context.Context, number string) error {
	query := `UPDATE phone_faults SET locked = FALSE, failed_attempts = 0, updated_at = NOW() WHERE phone_number = $1`
	if _, err := r.db.ExecContext(ctx, query, number); err != nil {
		return fmt.Errorf("error unlocking phone number: %w", err)
	}
	return nil
}

func (r *PostgresFaultRepository) IsLocked(ctx context.Context, number string) (bool, error) {
	query := `SELECT locked FROM phone_faults WHERE phone_number = $1`
	var locked bool
	err := r.db.QueryRowContext(ctx, query, number).Scan(&locked)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error checking phone lock: %w", err)
	}
	return locked, nil
}
