package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"ttbtrackr/internal/domain/subscriber"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the verification flow
var ErrNoPhoneNumber = fmt.Errorf("subscriber has no phone number on their profile")
var ErrNoPendingCode = fmt.Errorf("no confirmation code is pending for this number")
var ErrVerificationLockout = fmt.Errorf("phone number is locked out; contact support to reset")

// VerificationOutcome is the caller-visible result of a code submission.
type VerificationOutcome string

const (
	OutcomeConfirmed VerificationOutcome = "CONFIRMED"
	// OutcomeInvalid: wrong code, the pending code still stands.
	OutcomeInvalid VerificationOutcome = "INVALID"
	// OutcomeResent: wrong code, but a fresh code was issued automatically.
	OutcomeResent VerificationOutcome = "RESENT"
	// OutcomeLockedOut: the number is disabled until manual intervention.
	OutcomeLockedOut VerificationOutcome = "LOCKED_OUT"
)

const (
	codeLength = 6
	// Every resendThreshold-th failure issues a fresh code instead of a bare
	// rejection; every lockoutThreshold-th failure locks the number for good.
	resendThreshold  = 3
	lockoutThreshold = 6
)

// SMSSender is the out-of-band transport confirmation codes go out on.
type SMSSender interface {
	SendSMS(ctx context.Context, number, text string) error
}

// VerificationService guards the phone-based channels: a number must prove
// ownership with a short numeric code before SMS or voice notifications are
// enabled for it. Failed attempts are counted in a number-keyed side store,
// so recreating the profile does not reset the counter.
type VerificationService struct {
	subscriberRepo subscriber.Repository
	faultRepo      subscriber.FaultRepository
	sms            SMSSender
	logger         *logrus.Logger
}

func NewVerificationService(
	sr subscriber.Repository,
	fr subscriber.FaultRepository,
	sms SMSSender,
	logger *logrus.Logger,
) *VerificationService {
	return &VerificationService{subscriberRepo: sr, faultRepo: fr, sms: sms, logger: logger}
}

// RequestCode generates a fresh confirmation code, stores it as pending and
// sends it to the subscriber's phone number.
func (s *VerificationService) RequestCode(ctx context.Context, subscriberID int64) error {
	phone, err := s.phoneFor(ctx, subscriberID)
	if err != nil {
		return err
	}
	if err := s.ensureNotLocked(ctx, phone.Number); err != nil {
		return err
	}
	return s.issueCode(ctx, subscriberID, phone.Number)
}

// SubmitCode checks a submitted code against the pending one. A match
// confirms the number and clears the failure counter. On a mismatch the
// counter (shared with ResendCode) advances: every 6th failure is a hard
// lockout, every other 3rd failure re-issues a fresh code.
func (s *VerificationService) SubmitCode(ctx context.Context, subscriberID int64, code string) (VerificationOutcome, error) {
	phone, err := s.phoneFor(ctx, subscriberID)
	if err != nil {
		return "", err
	}
	if err := s.ensureNotLocked(ctx, phone.Number); err != nil {
		return OutcomeLockedOut, err
	}
	if phone.PendingCode == "" {
		return "", ErrNoPendingCode
	}

	if code == phone.PendingCode {
		if err := s.subscriberRepo.SetPhoneConfirmed(ctx, subscriberID, true); err != nil {
			return "", fmt.Errorf("failed to mark phone confirmed: %w", err)
		}
		if err := s.subscriberRepo.SetPendingCode(ctx, subscriberID, ""); err != nil {
			return "", fmt.Errorf("failed to clear pending code: %w", err)
		}
		if err := s.faultRepo.Reset(ctx, phone.Number); err != nil {
			s.logger.Warnf("Could not reset fault counter for confirmed number: %v", err)
		}
		s.logger.Infof("Subscriber %d confirmed their phone number.", subscriberID)
		return OutcomeConfirmed, nil
	}

	return s.recordFailure(ctx, subscriberID, phone.Number, false)
}

// ResendCode issues a fresh code on request. It counts against the same
// failure counter as a mismatched submission, so it cannot be used to probe
// without consequence.
func (s *VerificationService) ResendCode(ctx context.Context, subscriberID int64) (VerificationOutcome, error) {
	phone, err := s.phoneFor(ctx, subscriberID)
	if err != nil {
		return "", err
	}
	if err := s.ensureNotLocked(ctx, phone.Number); err != nil {
		return OutcomeLockedOut, err
	}
	return s.recordFailure(ctx, subscriberID, phone.Number, true)
}

// UnlockNumber is the manual operator reset for a locked-out number.
func (s *VerificationService) UnlockNumber(ctx context.Context, number string) error {
	if err := s.faultRepo.Unlock(ctx, number); err != nil {
		return fmt.Errorf("failed to unlock number: %w", err)
	}
	s.logger.Infof("Phone number manually unlocked.")
	return nil
}

// recordFailure advances the shared failure counter and applies the modulo
// thresholds. alwaysResend distinguishes an explicit resend request (fresh
// code unless locked out) from a mismatched submission (fresh code only at
// the resend threshold).
func (s *VerificationService) recordFailure(ctx context.Context, subscriberID int64, number string, alwaysResend bool) (VerificationOutcome, error) {
	attempts, err := s.faultRepo.Increment(ctx, number)
	if err != nil {
		return "", fmt.Errorf("failed to record failed attempt: %w", err)
	}

	if attempts%lockoutThreshold == 0 {
		if err := s.faultRepo.Lock(ctx, number); err != nil {
			return "", fmt.Errorf("failed to lock number: %w", err)
		}
		if err := s.subscriberRepo.DisablePhoneChannel(ctx, subscriberID); err != nil {
			s.logger.Errorf("Failed to disable phone channel after lockout for subscriber %d: %v", subscriberID, err)
		}
		s.logger.Warnf("Subscriber %d locked out after %d failed attempts.", subscriberID, attempts)
		return OutcomeLockedOut, nil
	}

	if alwaysResend || attempts%resendThreshold == 0 {
		if err := s.issueCode(ctx, subscriberID, number); err != nil {
			return "", err
		}
		return OutcomeResent, nil
	}

	return OutcomeInvalid, nil
}

func (s *VerificationService) issueCode(ctx context.Context, subscriberID int64, number string) error {
	code, err := generateCode(codeLength)
	if err != nil {
		return fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	if err := s.subscriberRepo.SetPendingCode(ctx, subscriberID, code); err != nil {
		return fmt.Errorf("failed to store pending code: %w", err)
	}

	text := fmt.Sprintf("Your confirmation code is %s. Submit it to confirm your phone number and activate SMS or phone call notifications. If you didn't request this message, you can safely ignore it.", code)
	if err := s.sms.SendSMS(ctx, number, text); err != nil {
		return fmt.Errorf("failed to send confirmation code: %w", err)
	}
	s.logger.Infof("Confirmation code sent to subscriber %d.", subscriberID)
	return nil
}

func (s *VerificationService) phoneFor(ctx context.Context, subscriberID int64) (*subscriber.PhoneChannel, error) {
	profile, err := s.subscriberRepo.Get(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriber %d: %w", subscriberID, err)
	}
	if profile.Phone == nil || profile.Phone.Number == "" {
		return nil, ErrNoPhoneNumber
	}
	return profile.Phone, nil
}

func (s *VerificationService) ensureNotLocked(ctx context.Context, number string) error {
	locked, err := s.faultRepo.IsLocked(ctx, number)
	if err != nil {
		return fmt.Errorf("failed to check lockout state: %w", err)
	}
	if locked {
		return ErrVerificationLockout
	}
	return nil
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
