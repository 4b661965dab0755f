package app

import (
	"context"
	"fmt"
	"strings"

	"ttbtrackr/internal/domain/diag"
	"ttbtrackr/internal/domain/timetable"
	"ttbtrackr/internal/domain/tracking"

	"github.com/sirupsen/logrus"
)

// ReconcilerService runs the periodic reconciliation pass: one timetable
// lookup per tracked (course, semester) pair, a diff of the snapshot against
// each watch entry, and a notification plus store mutation on every trigger.
// Notifications always happen before the triggering entry is removed, so a
// crash between the two re-notifies rather than silently dropping a watch.
type ReconcilerService struct {
	watchRepo    tracking.Repository
	baselineRepo tracking.BaselineRepository
	client       timetable.Client
	router       NotificationRouter
	reporter     diag.Reporter
	logger       *logrus.Logger

	// enforceControls gates seat-free triggers on the enrollment-controls
	// flag; the upstream data for that flag has been unreliable, so it is
	// deployment-configurable.
	enforceControls bool
}

func NewReconcilerService(
	wr tracking.Repository,
	br tracking.BaselineRepository,
	client timetable.Client,
	router NotificationRouter,
	reporter diag.Reporter,
	enforceControls bool,
	logger *logrus.Logger,
) *ReconcilerService {
	return &ReconcilerService{
		watchRepo:       wr,
		baselineRepo:    br,
		client:          client,
		router:          router,
		reporter:        reporter,
		enforceControls: enforceControls,
		logger:          logger,
	}
}

// RunCycle performs one full reconciliation pass. Only a failure to read the
// tracked-pair set aborts the cycle; everything below that is contained per
// pair or per entry and the rest of the cycle proceeds.
func (s *ReconcilerService) RunCycle(ctx context.Context) error {
	pairs, err := s.watchRepo.ListPairs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tracked pairs: %w", err)
	}
	if len(pairs) == 0 {
		s.logger.Debug("No tracked pairs; nothing to reconcile.")
		return nil
	}
	s.logger.Debugf("Reconciling %d tracked course pairs.", len(pairs))

	for _, pair := range pairs {
		if ctx.Err() != nil {
			s.logger.Info("Cycle cancelled; remaining pairs left for the next tick.")
			return nil
		}
		s.processPair(ctx, pair)
	}
	return nil
}

// processPair resolves one course snapshot and evaluates every entry bound to
// the pair against it. A lookup failure skips the pair without mutating any
// state: the next cycle simply retries.
func (s *ReconcilerService) processPair(ctx context.Context, pair tracking.Pair) {
	snapshot, err := s.client.Lookup(ctx, pair.CourseCode, pair.Semester)
	if err != nil {
		s.reporter.LookupFailure(ctx, pair, err)
		return
	}

	entries, err := s.watchRepo.ListByPair(ctx, pair)
	if err != nil {
		s.reporter.LookupFailure(ctx, pair, fmt.Errorf("failed to list entries: %w", err))
		return
	}

	// Sentinel rows for the same activity type share one logical watch: the
	// diff against the baseline is computed once and every current
	// subscriber of that type is notified from it. Interleaving per-row
	// unions here would hide new sections from all but the first row.
	sentinelsByType := make(map[string][]*tracking.Entry)
	for _, entry := range entries {
		if entry.IsSentinel() {
			sentinelsByType[entry.SentinelType()] = append(sentinelsByType[entry.SentinelType()], entry)
			continue
		}
		if err := s.processConcreteEntry(ctx, entry, snapshot); err != nil {
			s.reporter.EntryFailure(ctx, entry, err)
		}
	}

	for activityType, watchers := range sentinelsByType {
		if err := s.processSentinelWatch(ctx, pair, activityType, watchers, snapshot); err != nil {
			s.reporter.EntryFailure(ctx, watchers[0], err)
		}
	}
}

// processConcreteEntry fires the seat-free trigger for a watch on a concrete
// section: notify the entry's subscriber, then retire the entry. An entry
// whose section is missing from the snapshot is treated as a transient
// condition and skipped.
func (s *ReconcilerService) processConcreteEntry(ctx context.Context, entry *tracking.Entry, snapshot *timetable.Course) error {
	section, ok := snapshot.Section(entry.Activity)
	if !ok {
		s.logger.Debugf("Section %s missing from %s snapshot; skipping this cycle.", entry.Activity, entry.Pair())
		return nil
	}
	if !section.SeatsFree(s.enforceControls) {
		return nil
	}

	message := fmt.Sprintf("Your course %s %s has a spot open! Act fast!", entry.CourseCode, entry.Activity)
	if err := s.router.Dispatch(ctx, entry.SubscriberID, message); err != nil {
		// Leave the entry in place: removal without a dispatch attempt would
		// break the notify-before-retire ordering.
		return fmt.Errorf("dispatch failed for seat-free trigger: %w", err)
	}

	if err := s.watchRepo.Remove(ctx, entry); err != nil {
		return fmt.Errorf("failed to retire triggered entry: %w", err)
	}
	s.logger.Infof("Seat-free trigger fired for subscriber %d on %s %s.", entry.SubscriberID, entry.CourseCode, entry.Activity)
	return nil
}

// processSentinelWatch handles the new-section watch for one activity type of
// a pair. The first observation seeds the baseline and never triggers. After
// that, sections in the snapshot but not the baseline are the trigger
// payload; each current watcher is notified and unsubscribed individually,
// and the payload is unioned into the baseline afterwards, so the baseline
// only ever grows.
func (s *ReconcilerService) processSentinelWatch(
	ctx context.Context,
	pair tracking.Pair,
	activityType string,
	watchers []*tracking.Entry,
	snapshot *timetable.Course,
) error {
	current := snapshot.SectionCodesOfType(activityType)

	baseline, found, err := s.baselineRepo.Get(ctx, pair, activityType)
	if err != nil {
		return fmt.Errorf("failed to read baseline: %w", err)
	}
	if !found {
		if err := s.baselineRepo.Seed(ctx, pair, activityType, current); err != nil {
			return fmt.Errorf("failed to seed baseline: %w", err)
		}
		s.logger.Infof("Seeded %s baseline for %s with %d sections.", activityType, pair, len(current))
		return nil
	}

	known := make(map[string]struct{}, len(baseline))
	for _, code := range baseline {
		known[code] = struct{}{}
	}
	newSections := make([]string, 0)
	for _, code := range current {
		if _, ok := known[code]; !ok {
			newSections = append(newSections, code)
		}
	}
	if len(newSections) == 0 {
		return nil
	}

	message := fmt.Sprintf("New %s section(s) just added to %s: %s. Act fast!",
		activityType, snapshot.Code, strings.Join(newSections, ", "))

	// Notify, then unsubscribe, per watcher: a failure for one subscriber
	// must not cost the others their notification.
	for _, watcher := range watchers {
		if err := s.router.Dispatch(ctx, watcher.SubscriberID, message); err != nil {
			s.reporter.EntryFailure(ctx, watcher, fmt.Errorf("dispatch failed for new-section trigger: %w", err))
			continue
		}
		if err := s.watchRepo.Remove(ctx, watcher); err != nil {
			s.reporter.EntryFailure(ctx, watcher, fmt.Errorf("failed to unsubscribe notified watcher: %w", err))
		}
	}

	// Union regardless of dispatch outcomes: a section observed once must
	// never trigger again, even if it transiently vanishes from the API.
	if err := s.baselineRepo.Union(ctx, pair, activityType, newSections); err != nil {
		return fmt.Errorf("failed to union baseline: %w", err)
	}
	s.logger.Infof("New-section trigger fired for %s %s: %v.", pair, activityType, newSections)
	return nil
}
