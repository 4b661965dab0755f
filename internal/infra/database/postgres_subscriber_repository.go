package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ttbtrackr/internal/domain/subscriber"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrSubscriberNotFound = fmt.Errorf("subscriber not found")
var ErrDuplicateSubscriber = fmt.Errorf("subscriber with this ID already exists")

type PostgresSubscriberRepository struct {
	db *sql.DB
}

func NewPostgresSubscriberRepository(db *sql.DB) *PostgresSubscriberRepository {
	return &PostgresSubscriberRepository{db: db}
}

func (r *PostgresSubscriberRepository) Create(ctx context.Context, p *subscriber.Profile) error {
	query := `INSERT INTO subscribers (id, phone_number, sms_enabled, call_enabled, phone_confirmed, pending_code, social_handle, social_enabled)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at, updated_at`

	var phoneNumber, pendingCode, socialHandle sql.NullString
	var smsEnabled, callEnabled, confirmed, socialEnabled bool
	if p.Phone != nil {
		phoneNumber = sql.NullString{String: p.Phone.Number, Valid: true}
		if p.Phone.PendingCode != "" {
			pendingCode = sql.NullString{String: p.Phone.PendingCode, Valid: true}
		}
		smsEnabled, callEnabled, confirmed = p.Phone.SMSEnabled, p.Phone.CallEnabled, p.Phone.Confirmed
	}
	if p.Social != nil {
		socialHandle = sql.NullString{String: p.Social.Handle, Valid: true}
		socialEnabled = p.Social.Enabled
	}

	err := r.db.QueryRowContext(ctx, query, p.ID, phoneNumber, smsEnabled, callEnabled, confirmed, pendingCode, socialHandle, socialEnabled).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "subscribers_pkey") {
			return ErrDuplicateSubscriber
		}
		return fmt.Errorf("error creating subscriber: %w", err)
	}

	// New subscribers start on the default plan.
	plan := subscriber.DefaultPlan()
	query = `INSERT INTO subscriber_plans (subscriber_id, max_tracked_activities, sms_allowed, call_allowed)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (subscriber_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, p.ID, plan.MaxTrackedActivities, plan.SMSAllowed, plan.CallAllowed); err != nil {
		return fmt.Errorf("error creating subscriber plan: %w", err)
	}
	return nil
}

func (r *PostgresSubscriberRepository) Get(ctx context.Context, id int64) (*subscriber.Profile, error) {
	query := `SELECT id, phone_number, sms_enabled, call_enabled, phone_confirmed, pending_code, social_handle, social_enabled, created_at, updated_at
               FROM subscribers WHERE id = $1`

	p := &subscriber.Profile{}
	var phoneNumber, pendingCode, socialHandle sql.NullString
	var smsEnabled, callEnabled, confirmed, socialEnabled bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &phoneNumber, &smsEnabled, &callEnabled, &confirmed, &pendingCode,
		&socialHandle, &socialEnabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber: %w", err)
	}

	if phoneNumber.Valid {
		p.Phone = &subscriber.PhoneChannel{
			Number:      phoneNumber.String,
			SMSEnabled:  smsEnabled,
			CallEnabled: callEnabled,
			Confirmed:   confirmed,
			PendingCode: pendingCode.String,
		}
	}
	if socialHandle.Valid {
		p.Social = &subscriber.SocialChannel{Handle: socialHandle.String, Enabled: socialEnabled}
	}
	return p, nil
}

func (r *PostgresSubscriberRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting subscriber: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted subscriber: %w", err)
	}
	if affected == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

// Each setter is one UPDATE statement: callers owning different sub-fields of
// a profile cannot overwrite each other's writes.

func (r *PostgresSubscriberRepository) SetPhoneNumber(ctx context.Context, id int64, number string) error {
	// A new number always restarts verification.
	query := `UPDATE subscribers
               SET phone_number = $1, phone_confirmed = FALSE, pending_code = NULL, updated_at = NOW()
               WHERE id = $2`
	return r.exec(ctx, query, number, id)
}

func (r *PostgresSubscriberRepository) SetPendingCode(ctx context.Context, id int64, code string) error {
	query := `UPDATE subscribers SET pending_code = $1, updated_at = NOW() WHERE id = $2`
	if code == "" {
		return r.exec(ctx, `UPDATE subscribers SET pending_code = NULL, updated_at = NOW() WHERE id = $1`, id)
	}
	return r.exec(ctx, query, code, id)
}

func (r *PostgresSubscriberRepository) SetPhoneConfirmed(ctx context.Context, id int64, confirmed bool) error {
	query := `UPDATE subscribers SET phone_confirmed = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, confirmed, id)
}

func (r *PostgresSubscriberRepository) SetSMSEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE subscribers SET sms_enabled = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, enabled, id)
}

func (r *PostgresSubscriberRepository) SetCallEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE subscribers SET call_enabled = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, enabled, id)
}

func (r *PostgresSubscriberRepository) DisablePhoneChannel(ctx context.Context, id int64) error {
	query := `UPDATE subscribers
               SET sms_enabled = FALSE, call_enabled = FALSE, phone_confirmed = FALSE, pending_code = NULL, updated_at = NOW()
               WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *PostgresSubscriberRepository) SetSocial(ctx context.Context, id int64, handle string, enabled bool) error {
	query := `UPDATE subscribers SET social_handle = $1, social_enabled = $2, updated_at = NOW() WHERE id = $3`
	return r.exec(ctx, query, handle, enabled, id)
}

func (r *PostgresSubscriberRepository) SetSocialEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE subscribers SET social_enabled = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, enabled, id)
}

func (r *PostgresSubscriberRepository) GetPlan(ctx context.Context, id int64) (subscriber.Plan, error) {
	query := `SELECT max_tracked_activities, sms_allowed, call_allowed
               FROM subscriber_plans WHERE subscriber_id = $1`
	var plan subscriber.Plan
	err := r.db.QueryRowContext(ctx, query, id).Scan(&plan.MaxTrackedActivities, &plan.SMSAllowed, &plan.CallAllowed)
	if err != nil {
		if err == sql.ErrNoRows {
			// Subscribers from before plans existed fall back to the default.
			return subscriber.DefaultPlan(), nil
		}
		return subscriber.Plan{}, fmt.Errorf("error getting subscriber plan: %w", err)
	}
	return plan, nil
}

func (r *PostgresSubscriberRepository) SetPlan(ctx context.Context, id int64, plan subscriber.Plan) error {
	query := `INSERT INTO subscriber_plans (subscriber_id, max_tracked_activities, sms_allowed, call_allowed)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (subscriber_id) DO UPDATE
               SET max_tracked_activities = EXCLUDED.max_tracked_activities,
                   sms_allowed = EXCLUDED.sms_allowed,
                   call_allowed = EXCLUDED.call_allowed`
	if _, err := r.db.ExecContext(ctx, query, id, plan.MaxTrackedActivities, plan.SMSAllowed, plan.CallAllowed); err != nil {
		return fmt.Errorf("error setting subscriber plan: %w", err)
	}
	return nil
}

func (r *PostgresSubscriberRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating subscriber: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking subscriber update: %w", err)
	}
	if affected == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
