package notify

import "context"

// Kind identifies one outbound contact medium.
type Kind string

const (
	KindDirectMessage Kind = "DIRECT_MESSAGE"
	KindSMS           Kind = "SMS"
	KindVoiceCall     Kind = "VOICE_CALL"
	KindSocialMessage Kind = "SOCIAL_MESSAGE"
)

// Channel is a single outbound contact medium. Send is fire-and-forget from
// the caller's perspective: the error return exists for logging, not for
// retry logic. The destination format depends on the kind (chat ID for
// direct messages, E.164 number for phone channels, handle for social).
type Channel interface {
	Kind() Kind
	Send(ctx context.Context, destination, text string) error
}
