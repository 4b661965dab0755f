package diag

import (
	"context"
	"fmt"
	"time"

	"ttbtrackr/internal/domain/tracking"
	"ttbtrackr/internal/infra/telegram"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const reportTimeout = 5 * time.Second

// TelegramReporter forwards structured failure reports to the operator chat
// and mirrors every report to the log. Delivery is best-effort: a report that
// cannot reach the chat is logged and dropped, never propagated, so the
// reconciliation loop cannot stall on the sink.
type TelegramReporter struct {
	sender      telegram.Sender
	adminChatID int64
	logger      *logrus.Logger
}

func NewTelegramReporter(sender telegram.Sender, adminChatID int64, logger *logrus.Logger) *TelegramReporter {
	return &TelegramReporter{sender: sender, adminChatID: adminChatID, logger: logger}
}

func (r *TelegramReporter) LookupFailure(ctx context.Context, p tracking.Pair, lookupErr error) {
	reportID := uuid.NewString()
	r.logger.WithFields(logrus.Fields{
		"report_id": reportID,
		"course":    p.CourseCode,
		"semester":  p.Semester,
	}).Warnf("Timetable lookup failed: %v", lookupErr)

	text := fmt.Sprintf("Lookup failure [%s]\nCourse: %s\nSemester: %s\nError: %v",
		reportID, p.CourseCode, p.Semester, lookupErr)
	r.deliver(ctx, reportID, text)
}

func (r *TelegramReporter) EntryFailure(ctx context.Context, e *tracking.Entry, entryErr error) {
	reportID := uuid.NewString()
	r.logger.WithFields(logrus.Fields{
		"report_id":  reportID,
		"subscriber": e.SubscriberID,
		"course":     e.CourseCode,
		"semester":   e.Semester,
		"activity":   e.Activity,
	}).Errorf("Watch entry processing failed: %v", entryErr)

	text := fmt.Sprintf("Watch entry failure [%s]\nSubscriber: %d\nCourse: %s %s\nSemester: %s\nError: %v",
		reportID, e.SubscriberID, e.CourseCode, e.Activity, e.Semester, entryErr)
	r.deliver(ctx, reportID, text)
}

func (r *TelegramReporter) deliver(ctx context.Context, reportID, text string) {
	if r.adminChatID == 0 {
		return
	}
	done := make(chan error, 1)
	go func() { done <- r.sender.SendMessage(r.adminChatID, text) }()

	select {
	case err := <-done:
		if err != nil {
			r.logger.WithField("report_id", reportID).Warnf("Could not deliver diagnostic report: %v", err)
		}
	case <-time.After(reportTimeout):
		r.logger.WithField("report_id", reportID).Warn("Diagnostic report delivery timed out.")
	case <-ctx.Done():
	}
}
