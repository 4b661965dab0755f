package diag

import (
	"context"

	"ttbtrackr/internal/domain/tracking"
)

// Reporter receives structured failure reports for operator visibility.
// Implementations must never block the reconciliation loop on sink
// availability; a report that cannot be delivered is logged and dropped.
type Reporter interface {
	// LookupFailure reports a failed timetable lookup for a course pair.
	LookupFailure(ctx context.Context, p tracking.Pair, lookupErr error)
	// EntryFailure reports a failure while processing a single watch entry.
	EntryFailure(ctx context.Context, e *tracking.Entry, entryErr error)
}
