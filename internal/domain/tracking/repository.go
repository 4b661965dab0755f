package tracking

import "context"

// Repository defines the operations for persisting and retrieving watch
// entries. Every call is atomic; Add must reject duplicates of the full
// (subscriber, course, semester, activity) tuple.
type Repository interface {
	Add(ctx context.Context, e *Entry) error
	Remove(ctx context.Context, e *Entry) error
	IsTracking(ctx context.Context, e *Entry) (bool, error)
	ListPairs(ctx context.Context) ([]Pair, error)
	ListByPair(ctx context.Context, p Pair) ([]*Entry, error)
	ListBySubscriber(ctx context.Context, subscriberID int64) ([]*Entry, error)
	CountBySubscriber(ctx context.Context, subscriberID int64) (int, error)
	RemoveBySubscriber(ctx context.Context, subscriberID int64) error
}

// BaselineRepository persists the per (pair, activity type) set of known
// section codes used to detect newly created sections. The set is monotonic:
// Union only ever adds codes, and implementations must use a conditional
// add-to-set write rather than read-modify-write so concurrent unions cannot
// lose elements. An empty seeded baseline is distinct from an absent one.
type BaselineRepository interface {
	Get(ctx context.Context, p Pair, activityType string) (sections []string, found bool, err error)
	Seed(ctx context.Context, p Pair, activityType string, sections []string) error
	Union(ctx context.Context, p Pair, activityType string, sections []string) error
	PruneOrphans(ctx context.Context) (int64, error)
}
