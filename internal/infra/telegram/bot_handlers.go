package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ttbtrackr/internal/app"
	"ttbtrackr/internal/domain/timetable"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBotHandlers wires the chat commands to the application services.
// The handlers only split arguments and translate service errors into chat
// replies; all validation and business rules live in the services.
func RegisterBotHandlers(
	ctx context.Context,
	b *telebot.Bot,
	trackingService *app.TrackingService,
	profileService *app.ProfileService,
	verificationService *app.VerificationService,
	adminChatID int64,
	baseLogger *logrus.Entry,
) {
	b.Handle("/start", func(c telebot.Context) error {
		return c.Send("Hi! I watch university course enrollment for you.\n\nUse /track <course> <semester> <activity> to start tracking, and /help for the full command list.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		var help strings.Builder
		help.WriteString("Available commands:\n\n")
		help.WriteString("`/track <course> <semester> <activity>` - Track a section (e.g. /track CSC148H5 S LEC0101). Use NewLEC/NewTUT/NewPRA to watch for new sections.\n")
		help.WriteString("`/untrack <course> <semester> <activity>` - Stop tracking.\n")
		help.WriteString("`/list` - Show everything you are tracking.\n")
		help.WriteString("`/setphone <number>` - Add a phone number for SMS/call alerts.\n")
		help.WriteString("`/verify` - Request a confirmation code for your number.\n")
		help.WriteString("`/confirm <code>` - Submit the confirmation code.\n")
		help.WriteString("`/resend` - Request a fresh confirmation code.\n")
		help.WriteString("`/sms on|off`, `/calls on|off` - Toggle phone alerts.\n")
		help.WriteString("`/social <handle>` - Add a social handle for DM alerts.\n")
		help.WriteString("`/deleteprofile` - Delete your profile and all tracked courses.\n")
		return c.Send(help.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/track", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/track", "sender_id": c.Sender().ID})
		args := c.Args()
		if len(args) != 3 {
			return c.Send("Usage: /track <course_code> <semester F|S|Y> <activity>")
		}
		err := trackingService.Track(ctx, c.Sender().ID, args[0], args[1], args[2])
		switch {
		case err == nil:
			return c.Send(fmt.Sprintf("Now tracking %s %s. You'll hear from me the moment something opens up!", strings.ToUpper(args[0]), strings.ToUpper(args[2])))
		case errors.Is(err, app.ErrInvalidCourse):
			return c.Send("Invalid course code/activity/semester combination. Please try again.")
		case errors.Is(err, timetable.ErrActivityNotFound):
			return c.Send(fmt.Sprintf("That activity doesn't exist for this course right now. To be notified when a new section of that type is added, track New%s instead.", strings.ToUpper(args[2][:3])))
		case errors.Is(err, timetable.ErrCourseNotFound):
			return c.Send("Invalid course code or semester. Please try again.")
		case errors.Is(err, app.ErrAlreadyTracking):
			return c.Send("You are already tracking this course/activity combination.")
		case errors.Is(err, app.ErrTrackingLimitReached):
			return c.Send("You've reached the tracked-course limit for your plan.")
		default:
			logCtx.WithError(err).Error("Track command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
	})

	b.Handle("/untrack", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/untrack", "sender_id": c.Sender().ID})
		args := c.Args()
		if len(args) != 3 {
			return c.Send("Usage: /untrack <course_code> <semester F|S|Y> <activity>")
		}
		err := trackingService.Untrack(ctx, c.Sender().ID, args[0], args[1], args[2])
		switch {
		case err == nil:
			return c.Send("Successfully removed the course from being tracked!")
		case errors.Is(err, app.ErrNotTracking):
			return c.Send("You aren't tracking this course!")
		default:
			logCtx.WithError(err).Error("Untrack command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
	})

	b.Handle("/list", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/list", "sender_id": c.Sender().ID})
		tracked, err := trackingService.ListTracked(ctx, c.Sender().ID)
		if err != nil {
			logCtx.WithError(err).Error("List command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
		if len(tracked) == 0 {
			return c.Send("You aren't tracking any courses yet. Use /track to get started.")
		}
		var out strings.Builder
		out.WriteString("Here are all the courses you're tracking:\n")
		for _, t := range tracked {
			out.WriteString(fmt.Sprintf("\n%s %s (%s)", t.Entry.CourseCode, t.Entry.Activity, t.Entry.Semester))
			if t.CourseName != "" {
				out.WriteString(" - " + t.CourseName)
			}
		}
		return c.Send(out.String())
	})

	b.Handle("/setphone", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /setphone <number>")
		}
		err := profileService.SetPhoneNumber(ctx, c.Sender().ID, args[0])
		if errors.Is(err, app.ErrInvalidPhoneNumber) {
			return c.Send("Invalid phone number. Please try again.")
		}
		if err != nil {
			baseLogger.WithError(err).Error("Setphone command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
		return c.Send("Phone number saved. Use /verify to confirm it and activate SMS or call notifications.")
	})

	b.Handle("/verify", func(c telebot.Context) error {
		if verificationService == nil {
			return c.Send("Phone notifications are not available on this deployment.")
		}
		err := verificationService.RequestCode(ctx, c.Sender().ID)
		switch {
		case err == nil:
			return c.Send("A confirmation code is on its way to your phone. Submit it with /confirm <code>.")
		case errors.Is(err, app.ErrNoPhoneNumber):
			return c.Send("Add a phone number first with /setphone.")
		case errors.Is(err, app.ErrVerificationLockout):
			return c.Send("This number is locked. Please contact support.")
		default:
			baseLogger.WithError(err).Error("Verify command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
	})

	b.Handle("/confirm", func(c telebot.Context) error {
		if verificationService == nil {
			return c.Send("Phone notifications are not available on this deployment.")
		}
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /confirm <code>")
		}
		outcome, err := verificationService.SubmitCode(ctx, c.Sender().ID, args[0])
		switch {
		case errors.Is(err, app.ErrVerificationLockout):
			return c.Send("This number is locked. Please contact support.")
		case errors.Is(err, app.ErrNoPendingCode):
			return c.Send("No code is pending. Use /verify to request one.")
		case errors.Is(err, app.ErrNoPhoneNumber):
			return c.Send("Add a phone number first with /setphone.")
		case err != nil:
			baseLogger.WithError(err).Error("Confirm command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
		switch outcome {
		case app.OutcomeConfirmed:
			return c.Send("Your number is confirmed! Enable alerts with /sms on or /calls on.")
		case app.OutcomeResent:
			return c.Send("That code didn't match. A fresh code has been sent to your phone.")
		case app.OutcomeLockedOut:
			return c.Send("Too many failed attempts. This number is locked; please contact support.")
		default:
			return c.Send("That code didn't match. Please try again.")
		}
	})

	b.Handle("/resend", func(c telebot.Context) error {
		if verificationService == nil {
			return c.Send("Phone notifications are not available on this deployment.")
		}
		outcome, err := verificationService.ResendCode(ctx, c.Sender().ID)
		switch {
		case errors.Is(err, app.ErrVerificationLockout):
			return c.Send("This number is locked. Please contact support.")
		case errors.Is(err, app.ErrNoPhoneNumber):
			return c.Send("Add a phone number first with /setphone.")
		case err != nil:
			baseLogger.WithError(err).Error("Resend command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
		if outcome == app.OutcomeLockedOut {
			return c.Send("Too many attempts. This number is locked; please contact support.")
		}
		return c.Send("A fresh code is on its way.")
	})

	b.Handle("/sms", func(c telebot.Context) error {
		return handleChannelToggle(ctx, c, c.Args(), "sms", profileService, baseLogger)
	})

	b.Handle("/calls", func(c telebot.Context) error {
		return handleChannelToggle(ctx, c, c.Args(), "calls", profileService, baseLogger)
	})

	b.Handle("/social", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /social <handle>")
		}
		if err := profileService.SetSocialHandle(ctx, c.Sender().ID, args[0]); err != nil {
			baseLogger.WithError(err).Error("Social command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
		return c.Send("Social handle saved and enabled.")
	})

	b.Handle("/deleteprofile", func(c telebot.Context) error {
		err := profileService.DeleteProfile(ctx, c.Sender().ID)
		if errors.Is(err, app.ErrNoProfile) {
			return c.Send("You don't have a profile to delete!")
		}
		if err != nil {
			baseLogger.WithError(err).Error("Deleteprofile command failed")
			return c.Send("Something went wrong. Please try again later.")
		}
		return c.Send("Your profile has been deleted. We're sad to see you go.")
	})

	// Admin commands
	b.Handle("/forceadd", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 4 {
			return c.Send("Usage: /forceadd <subscriber_id> <course_code> <semester> <activity>")
		}
		subscriberID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: subscriber ID must be a number.")
		}
		err = trackingService.ForceTrack(ctx, c.Sender().ID, subscriberID, args[1], args[2], args[3])
		if errors.Is(err, app.ErrNotAuthorized) {
			return c.Send("You are not authorized to run this command.")
		}
		if err != nil {
			baseLogger.WithError(err).Error("Forceadd command failed")
			return c.Send("Something went wrong.")
		}
		return c.Send("Watch entry added.")
	})

	b.Handle("/forceremove", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 4 {
			return c.Send("Usage: /forceremove <subscriber_id> <course_code> <semester> <activity>")
		}
		subscriberID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: subscriber ID must be a number.")
		}
		err = trackingService.ForceUntrack(ctx, c.Sender().ID, subscriberID, args[1], args[2], args[3])
		if errors.Is(err, app.ErrNotAuthorized) {
			return c.Send("You are not authorized to run this command.")
		}
		if err != nil {
			baseLogger.WithError(err).Error("Forceremove command failed")
			return c.Send("Something went wrong.")
		}
		return c.Send("Watch entry removed.")
	})

	b.Handle("/unlock", func(c telebot.Context) error {
		if verificationService == nil {
			return c.Send("Phone notifications are not available on this deployment.")
		}
		if c.Sender().ID != adminChatID {
			return c.Send("You are not authorized to run this command.")
		}
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /unlock <phone_number>")
		}
		if err := verificationService.UnlockNumber(ctx, args[0]); err != nil {
			baseLogger.WithError(err).Error("Unlock command failed")
			return c.Send("Something went wrong.")
		}
		return c.Send("Number unlocked.")
	})
}

func handleChannelToggle(
	ctx context.Context,
	c telebot.Context,
	args []string,
	channel string,
	profileService *app.ProfileService,
	baseLogger *logrus.Entry,
) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return c.Send(fmt.Sprintf("Usage: /%s on|off", channel))
	}
	enabled := args[0] == "on"

	var err error
	if channel == "sms" {
		err = profileService.SetSMSEnabled(ctx, c.Sender().ID, enabled)
	} else {
		err = profileService.SetCallEnabled(ctx, c.Sender().ID, enabled)
	}
	switch {
	case err == nil:
		return c.Send(fmt.Sprintf("%s notifications turned %s.", strings.ToUpper(channel), args[0]))
	case errors.Is(err, app.ErrPhoneNotConfirmed):
		return c.Send("Confirm your phone number first with /verify and /confirm.")
	case errors.Is(err, app.ErrNoPhoneNumber):
		return c.Send("Add a phone number first with /setphone.")
	default:
		baseLogger.WithError(err).Errorf("Toggle %s failed", channel)
		return c.Send("Something went wrong. Please try again later.")
	}
}
