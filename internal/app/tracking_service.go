package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ttbtrackr/internal/domain/subscriber"
	"ttbtrackr/internal/domain/timetable"
	"ttbtrackr/internal/domain/tracking"
	idb "ttbtrackr/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the tracking surface
var ErrInvalidCourse = fmt.Errorf("invalid course code, activity or semester")
var ErrAlreadyTracking = fmt.Errorf("this course/activity combination is already being tracked")
var ErrNotTracking = fmt.Errorf("this course/activity combination is not being tracked")
var ErrTrackingLimitReached = fmt.Errorf("tracked-activity limit for this plan reached")
var ErrNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// TrackedCourse is a watch entry with its resolved course name, for listing.
type TrackedCourse struct {
	Entry      *tracking.Entry
	CourseName string
}

// TrackingService owns the watch-entry lifecycle on the request side: create
// on "track", destroy on "untrack". The reconciliation loop retires entries
// on trigger independently.
type TrackingService struct {
	watchRepo      tracking.Repository
	subscriberRepo subscriber.Repository
	client         timetable.Client
	adminChatID    int64
	logger         *logrus.Logger
}

func NewTrackingService(
	wr tracking.Repository,
	sr subscriber.Repository,
	client timetable.Client,
	adminChatID int64,
	logger *logrus.Logger,
) *TrackingService {
	return &TrackingService{
		watchRepo:      wr,
		subscriberRepo: sr,
		client:         client,
		adminChatID:    adminChatID,
		logger:         logger,
	}
}

// Track validates and registers a new watch. A concrete activity must exist
// in the course snapshot (timetable.ErrActivityNotFound otherwise, so the
// caller can offer a sentinel watch instead); a sentinel watch is accepted
// even when the course currently has zero sections of that type. Duplicate
// tuples are rejected idempotently. Plan limits apply here, not at
// notification time.
func (s *TrackingService) Track(ctx context.Context, subscriberID int64, courseCode, semester, activity string) error {
	courseCode = strings.ToUpper(courseCode)
	semester = strings.ToUpper(semester)
	activity = normalizeActivity(activity)

	if !tracking.ValidCourseCode(courseCode) || !tracking.ValidActivity(activity) || !tracking.ValidSemester(semester) {
		return ErrInvalidCourse
	}

	if err := s.ensureSubscriber(ctx, subscriberID); err != nil {
		return err
	}

	plan, err := s.subscriberRepo.GetPlan(ctx, subscriberID)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}
	count, err := s.watchRepo.CountBySubscriber(ctx, subscriberID)
	if err != nil {
		return fmt.Errorf("failed to count tracked activities: %w", err)
	}
	if count >= plan.MaxTrackedActivities {
		return ErrTrackingLimitReached
	}

	entry := &tracking.Entry{
		SubscriberID: subscriberID,
		CourseCode:   courseCode,
		Semester:     semester,
		Activity:     activity,
	}

	snapshot, err := s.client.Lookup(ctx, courseCode, semester)
	if err != nil {
		return err // ErrCourseNotFound class, surfaced to the caller
	}
	if !entry.IsSentinel() {
		if _, ok := snapshot.Section(activity); !ok {
			return timetable.ErrActivityNotFound
		}
	}

	if err := s.watchRepo.Add(ctx, entry); err != nil {
		if err == idb.ErrDuplicateWatch {
			return ErrAlreadyTracking
		}
		return fmt.Errorf("failed to add watch entry: %w", err)
	}
	s.logger.Infof("Subscriber %d now tracking %s %s (%s).", subscriberID, courseCode, activity, semester)
	return nil
}

// Untrack removes an existing watch.
func (s *TrackingService) Untrack(ctx context.Context, subscriberID int64, courseCode, semester, activity string) error {
	entry := &tracking.Entry{
		SubscriberID: subscriberID,
		CourseCode:   strings.ToUpper(courseCode),
		Semester:     strings.ToUpper(semester),
		Activity:     normalizeActivity(activity),
	}
	if err := s.watchRepo.Remove(ctx, entry); err != nil {
		if err == idb.ErrWatchNotFound {
			return ErrNotTracking
		}
		return fmt.Errorf("failed to remove watch entry: %w", err)
	}
	s.logger.Infof("Subscriber %d stopped tracking %s %s (%s).", subscriberID, entry.CourseCode, entry.Activity, entry.Semester)
	return nil
}

// ListTracked returns the subscriber's watches with course names resolved
// best-effort; a failed name lookup leaves the name empty rather than failing
// the listing.
func (s *TrackingService) ListTracked(ctx context.Context, subscriberID int64) ([]*TrackedCourse, error) {
	entries, err := s.watchRepo.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch entries: %w", err)
	}

	names := make(map[tracking.Pair]string)
	tracked := make([]*TrackedCourse, 0, len(entries))
	for _, entry := range entries {
		pair := entry.Pair()
		name, ok := names[pair]
		if !ok {
			if snapshot, err := s.client.Lookup(ctx, pair.CourseCode, pair.Semester); err == nil {
				name = snapshot.Name
			}
			names[pair] = name
		}
		tracked = append(tracked, &TrackedCourse{Entry: entry, CourseName: name})
	}
	return tracked, nil
}

// ForceTrack registers a watch without remote validation. Admin only.
func (s *TrackingService) ForceTrack(ctx context.Context, performingChatID, subscriberID int64, courseCode, semester, activity string) error {
	if performingChatID != s.adminChatID {
		return ErrNotAuthorized
	}
	if err := s.ensureSubscriber(ctx, subscriberID); err != nil {
		return err
	}
	entry := &tracking.Entry{
		SubscriberID: subscriberID,
		CourseCode:   strings.ToUpper(courseCode),
		Semester:     strings.ToUpper(semester),
		Activity:     normalizeActivity(activity),
	}
	if err := s.watchRepo.Add(ctx, entry); err != nil {
		if err == idb.ErrDuplicateWatch {
			return ErrAlreadyTracking
		}
		return fmt.Errorf("failed to force-add watch entry: %w", err)
	}
	return nil
}

// ForceUntrack removes a watch on behalf of a subscriber. Admin only.
func (s *TrackingService) ForceUntrack(ctx context.Context, performingChatID, subscriberID int64, courseCode, semester, activity string) error {
	if performingChatID != s.adminChatID {
		return ErrNotAuthorized
	}
	return s.Untrack(ctx, subscriberID, courseCode, semester, activity)
}

// ensureSubscriber lazily creates a bare profile (and default plan) the first
// time a chat starts tracking anything.
func (s *TrackingService) ensureSubscriber(ctx context.Context, subscriberID int64) error {
	_, err := s.subscriberRepo.Get(ctx, subscriberID)
	if err == nil {
		return nil
	}
	if err != idb.ErrSubscriberNotFound {
		return fmt.Errorf("failed to check subscriber: %w", err)
	}
	createErr := s.subscriberRepo.Create(ctx, &subscriber.Profile{ID: subscriberID})
	if createErr != nil && !errors.Is(createErr, idb.ErrDuplicateSubscriber) {
		return fmt.Errorf("failed to create subscriber: %w", createErr)
	}
	return nil
}

// normalizeActivity uppercases a section code but preserves the "New" prefix
// casing of sentinel watches.
func normalizeActivity(activity string) string {
	upper := strings.ToUpper(activity)
	if strings.HasPrefix(upper, "NEW") && len(upper) == 6 {
		return "New" + upper[3:]
	}
	return upper
}
