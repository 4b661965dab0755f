package app

import (
	"context"
	"strconv"

	"ttbtrackr/internal/domain/notify"
	"ttbtrackr/internal/domain/subscriber"
	idb "ttbtrackr/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// NotificationRouter fans a message out across a subscriber's channels.
type NotificationRouter interface {
	Dispatch(ctx context.Context, subscriberID int64, message string) error
}

// Notifier implements NotificationRouter. Each eligible channel gets exactly
// one send attempt; a channel failure is logged and the remaining channels
// are still attempted. The delivery guarantee is "at least one attempt", not
// "delivery confirmed".
type Notifier struct {
	subscriberRepo subscriber.Repository
	channels       map[notify.Kind]notify.Channel
	logger         *logrus.Logger
}

func NewNotifier(sr subscriber.Repository, channels []notify.Channel, logger *logrus.Logger) *Notifier {
	byKind := make(map[notify.Kind]notify.Channel, len(channels))
	for _, ch := range channels {
		byKind[ch.Kind()] = ch
	}
	return &Notifier{subscriberRepo: sr, channels: byKind, logger: logger}
}

// Dispatch sends message to every channel the subscriber has enabled, gated
// by verification state and the subscriber's plan. The direct-message channel
// needs no profile at all: the subscriber ID is the chat ID.
func (n *Notifier) Dispatch(ctx context.Context, subscriberID int64, message string) error {
	n.send(ctx, notify.KindDirectMessage, strconv.FormatInt(subscriberID, 10), message, subscriberID)

	profile, err := n.subscriberRepo.Get(ctx, subscriberID)
	if err != nil {
		if err == idb.ErrSubscriberNotFound {
			n.logger.Debugf("Subscriber %d has no profile; direct message only.", subscriberID)
			return nil
		}
		n.logger.Errorf("Failed to load profile for subscriber %d: %v", subscriberID, err)
		return err
	}

	plan, err := n.subscriberRepo.GetPlan(ctx, subscriberID)
	if err != nil {
		n.logger.Errorf("Failed to load plan for subscriber %d, using defaults: %v", subscriberID, err)
		plan = subscriber.DefaultPlan()
	}

	if phone := profile.Phone; phone != nil && phone.Confirmed {
		if phone.SMSEnabled && plan.SMSAllowed {
			n.send(ctx, notify.KindSMS, phone.Number, message, subscriberID)
		}
		if phone.CallEnabled && plan.CallAllowed {
			n.send(ctx, notify.KindVoiceCall, phone.Number, message, subscriberID)
		}
	}

	if social := profile.Social; social != nil && social.Enabled {
		n.send(ctx, notify.KindSocialMessage, social.Handle, message, subscriberID)
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, kind notify.Kind, destination, message string, subscriberID int64) {
	ch, ok := n.channels[kind]
	if !ok {
		// Channel class not wired in this deployment (e.g. no Twilio creds).
		n.logger.Debugf("Channel %s not configured; skipping for subscriber %d.", kind, subscriberID)
		return
	}
	if err := ch.Send(ctx, destination, message); err != nil {
		n.logger.WithFields(logrus.Fields{
			"subscriber": subscriberID,
			"channel":    kind,
		}).Warnf("Channel delivery failed: %v", err)
		return
	}
	n.logger.WithFields(logrus.Fields{
		"subscriber": subscriberID,
		"channel":    kind,
	}).Debug("Notification sent.")
}
