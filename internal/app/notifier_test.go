package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ttbtrackr/internal/domain/notify"
	"ttbtrackr/internal/domain/subscriber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelSend struct {
	Destination string
	Message     string
}

type fakeChannel struct {
	mu    sync.Mutex
	kind  notify.Kind
	sends []channelSend
	fail  error
}

func (c *fakeChannel) Kind() notify.Kind { return c.kind }

func (c *fakeChannel) Send(_ context.Context, destination, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sends = append(c.sends, channelSend{Destination: destination, Message: message})
	return nil
}

type notifierFixture struct {
	subscriberRepo *fakeSubscriberRepo
	dm             *fakeChannel
	sms            *fakeChannel
	voice          *fakeChannel
	social         *fakeChannel
	notifier       *Notifier
}

func newNotifierFixture() *notifierFixture {
	f := &notifierFixture{
		subscriberRepo: newFakeSubscriberRepo(),
		dm:             &fakeChannel{kind: notify.KindDirectMessage},
		sms:            &fakeChannel{kind: notify.KindSMS},
		voice:          &fakeChannel{kind: notify.KindVoiceCall},
		social:         &fakeChannel{kind: notify.KindSocialMessage},
	}
	f.notifier = NewNotifier(
		f.subscriberRepo,
		[]notify.Channel{f.dm, f.sms, f.voice, f.social},
		newTestLogger(),
	)
	return f
}

func (f *notifierFixture) createSubscriber(t *testing.T, id int64, mutate func(*fakeSubscriberRepo)) {
	t.Helper()
	require.NoError(t, f.subscriberRepo.Create(context.Background(), &subscriber.Profile{ID: id}))
	if mutate != nil {
		mutate(f.subscriberRepo)
	}
}

func TestNotifierDirectMessageNeedsNoProfile(t *testing.T) {
	f := newNotifierFixture()

	require.NoError(t, f.notifier.Dispatch(context.Background(), 12345, "hello"))

	require.Len(t, f.dm.sends, 1)
	assert.Equal(t, channelSend{Destination: "12345", Message: "hello"}, f.dm.sends[0])
	assert.Empty(t, f.sms.sends)
	assert.Empty(t, f.voice.sends)
	assert.Empty(t, f.social.sends)
}

func TestNotifierPhoneChannelsRequireConfirmation(t *testing.T) {
	f := newNotifierFixture()
	ctx := context.Background()
	f.createSubscriber(t, 10, func(r *fakeSubscriberRepo) {
		require.NoError(t, r.SetPhoneNumber(ctx, 10, "+14165550010"))
		require.NoError(t, r.SetSMSEnabled(ctx, 10, true))
	})

	// Enabled but unconfirmed: SMS must stay silent.
	require.NoError(t, f.notifier.Dispatch(ctx, 10, "seat open"))
	assert.Len(t, f.dm.sends, 1)
	assert.Empty(t, f.sms.sends)

	require.NoError(t, f.subscriberRepo.SetPhoneConfirmed(ctx, 10, true))
	require.NoError(t, f.notifier.Dispatch(ctx, 10, "seat open"))
	require.Len(t, f.sms.sends, 1)
	assert.Equal(t, "+14165550010", f.sms.sends[0].Destination)
}

func TestNotifierPlanGatesVoiceCalls(t *testing.T) {
	f := newNotifierFixture()
	ctx := context.Background()
	f.createSubscriber(t, 11, func(r *fakeSubscriberRepo) {
		require.NoError(t, r.SetPhoneNumber(ctx, 11, "+14165550011"))
		require.NoError(t, r.SetPhoneConfirmed(ctx, 11, true))
		require.NoError(t, r.SetCallEnabled(ctx, 11, true))
	})

	// The default plan does not include voice calls.
	require.NoError(t, f.notifier.Dispatch(ctx, 11, "seat open"))
	assert.Empty(t, f.voice.sends)

	require.NoError(t, f.subscriberRepo.SetPlan(ctx, 11, subscriber.Plan{
		MaxTrackedActivities: 10, SMSAllowed: true, CallAllowed: true,
	}))
	require.NoError(t, f.notifier.Dispatch(ctx, 11, "seat open"))
	require.Len(t, f.voice.sends, 1)
	assert.Equal(t, "+14165550011", f.voice.sends[0].Destination)
}

func TestNotifierSocialChannel(t *testing.T) {
	f := newNotifierFixture()
	ctx := context.Background()
	f.createSubscriber(t, 12, func(r *fakeSubscriberRepo) {
		require.NoError(t, r.SetSocial(ctx, 12, "some_student", true))
	})

	require.NoError(t, f.notifier.Dispatch(ctx, 12, "seat open"))
	require.Len(t, f.social.sends, 1)
	assert.Equal(t, "some_student", f.social.sends[0].Destination)

	require.NoError(t, f.subscriberRepo.SetSocialEnabled(ctx, 12, false))
	require.NoError(t, f.notifier.Dispatch(ctx, 12, "seat open"))
	assert.Len(t, f.social.sends, 1)
}

func TestNotifierChannelFailureDoesNotStopFanOut(t *testing.T) {
	f := newNotifierFixture()
	ctx := context.Background()
	f.createSubscriber(t, 13, func(r *fakeSubscriberRepo) {
		require.NoError(t, r.SetPhoneNumber(ctx, 13, "+14165550013"))
		require.NoError(t, r.SetPhoneConfirmed(ctx, 13, true))
		require.NoError(t, r.SetSMSEnabled(ctx, 13, true))
		require.NoError(t, r.SetSocial(ctx, 13, "some_student", true))
	})
	f.sms.fail = errors.New("twilio 500")

	// One attempt per channel, failures contained.
	require.NoError(t, f.notifier.Dispatch(ctx, 13, "seat open"))
	assert.Len(t, f.dm.sends, 1)
	assert.Empty(t, f.sms.sends)
	assert.Len(t, f.social.sends, 1)
}

func TestNotifierUnwiredChannelIsSkipped(t *testing.T) {
	repo := newFakeSubscriberRepo()
	dm := &fakeChannel{kind: notify.KindDirectMessage}
	// Deployment without Twilio: only the direct-message channel exists.
	notifier := NewNotifier(repo, []notify.Channel{dm}, newTestLogger())

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &subscriber.Profile{ID: 14}))
	require.NoError(t, repo.SetPhoneNumber(ctx, 14, "+14165550014"))
	require.NoError(t, repo.SetPhoneConfirmed(ctx, 14, true))
	require.NoError(t, repo.SetSMSEnabled(ctx, 14, true))

	require.NoError(t, notifier.Dispatch(ctx, 14, "seat open"))
	assert.Len(t, dm.sends, 1)
}
