package subscriber

import "time"

// PhoneChannel holds the phone-based contact settings of a profile. SMS and
// voice sends are only eligible once Confirmed is true; PendingCode is the
// outstanding confirmation code, empty when none is pending.
type PhoneChannel struct {
	Number      string
	SMSEnabled  bool
	CallEnabled bool
	Confirmed   bool
	PendingCode string
}

// SocialChannel is an external social-media handle the tracker can DM.
type SocialChannel struct {
	Handle  string
	Enabled bool
}

// Profile is a subscriber's contact profile. The ID doubles as the chat ID of
// the direct-message channel. Phone and Social are nil when never configured.
type Profile struct {
	ID        int64
	Phone     *PhoneChannel
	Social    *SocialChannel
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan is the per-subscriber capability record. Limits are enforced at watch
// creation time; channel-class permissions at dispatch time.
type Plan struct {
	MaxTrackedActivities int
	SMSAllowed           bool
	CallAllowed          bool
}

// DefaultPlan is assigned when a subscriber first appears.
func DefaultPlan() Plan {
	return Plan{MaxTrackedActivities: 5, SMSAllowed: true, CallAllowed: false}
}
