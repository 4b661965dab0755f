package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ttbtrackr/internal/domain/subscriber"
	"ttbtrackr/internal/domain/tracking"
	idb "ttbtrackr/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for profile management
var ErrInvalidPhoneNumber = fmt.Errorf("invalid phone number")
var ErrPhoneNotConfirmed = fmt.Errorf("phone number must be confirmed before enabling this channel")
var ErrNoProfile = fmt.Errorf("subscriber has no profile")

var phoneDigitsPattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// ProfileService manages subscriber contact profiles: phone numbers, social
// handles and per-channel opt-in flags. Verification itself is the
// VerificationService's job; this service only enforces its outcome (the
// confirmed flag) when channels are toggled on.
type ProfileService struct {
	subscriberRepo subscriber.Repository
	watchRepo      tracking.Repository
	logger         *logrus.Logger
}

func NewProfileService(sr subscriber.Repository, wr tracking.Repository, logger *logrus.Logger) *ProfileService {
	return &ProfileService{subscriberRepo: sr, watchRepo: wr, logger: logger}
}

// GetProfile returns the subscriber's profile.
func (s *ProfileService) GetProfile(ctx context.Context, subscriberID int64) (*subscriber.Profile, error) {
	profile, err := s.subscriberRepo.Get(ctx, subscriberID)
	if err != nil {
		if err == idb.ErrSubscriberNotFound {
			return nil, ErrNoProfile
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// SetPhoneNumber stores a sanitized phone number on the profile. The number
// starts unconfirmed; SMS and voice stay dark until verification succeeds.
func (s *ProfileService) SetPhoneNumber(ctx context.Context, subscriberID int64, rawNumber string) error {
	number, ok := sanitizePhoneNumber(rawNumber)
	if !ok {
		return ErrInvalidPhoneNumber
	}
	if err := s.ensureProfile(ctx, subscriberID); err != nil {
		return err
	}
	if err := s.subscriberRepo.SetPhoneNumber(ctx, subscriberID, number); err != nil {
		return fmt.Errorf("failed to set phone number: %w", err)
	}
	s.logger.Infof("Subscriber %d updated their phone number (unconfirmed).", subscriberID)
	return nil
}

// SetSocialHandle stores a social handle, enabled immediately: social DMs
// need no verification step.
func (s *ProfileService) SetSocialHandle(ctx context.Context, subscriberID int64, handle string) error {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return fmt.Errorf("social handle must not be empty")
	}
	if err := s.ensureProfile(ctx, subscriberID); err != nil {
		return err
	}
	if err := s.subscriberRepo.SetSocial(ctx, subscriberID, handle, true); err != nil {
		return fmt.Errorf("failed to set social handle: %w", err)
	}
	return nil
}

// SetSMSEnabled toggles SMS notifications. Enabling requires a confirmed
// number.
func (s *ProfileService) SetSMSEnabled(ctx context.Context, subscriberID int64, enabled bool) error {
	if enabled {
		if err := s.requireConfirmedPhone(ctx, subscriberID); err != nil {
			return err
		}
	}
	if err := s.subscriberRepo.SetSMSEnabled(ctx, subscriberID, enabled); err != nil {
		return fmt.Errorf("failed to toggle SMS: %w", err)
	}
	return nil
}

// SetCallEnabled toggles voice-call notifications. Enabling requires a
// confirmed number.
func (s *ProfileService) SetCallEnabled(ctx context.Context, subscriberID int64, enabled bool) error {
	if enabled {
		if err := s.requireConfirmedPhone(ctx, subscriberID); err != nil {
			return err
		}
	}
	if err := s.subscriberRepo.SetCallEnabled(ctx, subscriberID, enabled); err != nil {
		return fmt.Errorf("failed to toggle calls: %w", err)
	}
	return nil
}

// SetSocialEnabled toggles social DMs on an existing handle.
func (s *ProfileService) SetSocialEnabled(ctx context.Context, subscriberID int64, enabled bool) error {
	profile, err := s.GetProfile(ctx, subscriberID)
	if err != nil {
		return err
	}
	if profile.Social == nil {
		return fmt.Errorf("no social handle on profile")
	}
	if err := s.subscriberRepo.SetSocialEnabled(ctx, subscriberID, enabled); err != nil {
		return fmt.Errorf("failed to toggle social: %w", err)
	}
	return nil
}

// DeleteProfile removes the profile and all the subscriber's watches. Fault
// records are keyed by phone number and deliberately survive.
func (s *ProfileService) DeleteProfile(ctx context.Context, subscriberID int64) error {
	if err := s.watchRepo.RemoveBySubscriber(ctx, subscriberID); err != nil {
		return fmt.Errorf("failed to remove subscriber watches: %w", err)
	}
	if err := s.subscriberRepo.Delete(ctx, subscriberID); err != nil {
		if err == idb.ErrSubscriberNotFound {
			return ErrNoProfile
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	s.logger.Infof("Subscriber %d deleted their profile.", subscriberID)
	return nil
}

func (s *ProfileService) requireConfirmedPhone(ctx context.Context, subscriberID int64) error {
	profile, err := s.GetProfile(ctx, subscriberID)
	if err != nil {
		return err
	}
	if profile.Phone == nil || profile.Phone.Number == "" {
		return ErrNoPhoneNumber
	}
	if !profile.Phone.Confirmed {
		return ErrPhoneNotConfirmed
	}
	return nil
}

func (s *ProfileService) ensureProfile(ctx context.Context, subscriberID int64) error {
	_, err := s.subscriberRepo.Get(ctx, subscriberID)
	if err == nil {
		return nil
	}
	if err != idb.ErrSubscriberNotFound {
		return fmt.Errorf("failed to check profile: %w", err)
	}
	if err := s.subscriberRepo.Create(ctx, &subscriber.Profile{ID: subscriberID}); err != nil && err != idb.ErrDuplicateSubscriber {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// sanitizePhoneNumber normalizes to E.164. Ten-digit numbers get the North
// American country code; anything else must already carry its own.
func sanitizePhoneNumber(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if !phoneDigitsPattern.MatchString(cleaned) {
		return "", false
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned, true
	}
	if len(cleaned) == 10 {
		return "+1" + cleaned, true
	}
	return "+" + cleaned, true
}
