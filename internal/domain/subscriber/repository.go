package subscriber

import "context"

// Repository defines the operations for subscriber profiles and plans.
// Field setters are targeted single-statement updates so that components
// owning different sub-fields of a profile (notification routing vs.
// verification) never race each other with lost updates.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id int64) (*Profile, error)
	Delete(ctx context.Context, id int64) error

	SetPhoneNumber(ctx context.Context, id int64, number string) error
	SetPendingCode(ctx context.Context, id int64, code string) error
	SetPhoneConfirmed(ctx context.Context, id int64, confirmed bool) error
	SetSMSEnabled(ctx context.Context, id int64, enabled bool) error
	SetCallEnabled(ctx context.Context, id int64, enabled bool) error
	// DisablePhoneChannel turns off SMS, calls and the confirmed flag in a
	// single statement. Used on verification lockout.
	DisablePhoneChannel(ctx context.Context, id int64) error

	SetSocial(ctx context.Context, id int64, handle string, enabled bool) error
	SetSocialEnabled(ctx context.Context, id int64, enabled bool) error

	GetPlan(ctx context.Context, id int64) (Plan, error)
	SetPlan(ctx context.Context, id int64, plan Plan) error
}

// FaultRepository tracks failed confirmation attempts per phone number, in a
// store separate from profiles so a subscriber cannot reset a lockout by
// deleting and recreating their profile.
type FaultRepository interface {
	// Increment adds one failed attempt and returns the new total.
	Increment(ctx context.Context, number string) (int, error)
	Reset(ctx context.Context, number string) error
	Lock(ctx context.Context, number string) error
	Unlock(ctx context.Context, number string) error
	IsLocked(ctx context.Context, number string) (bool, error)
}
