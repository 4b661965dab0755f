package timetable

import (
	"context"
	"fmt"
)

// ErrCourseNotFound covers every way a lookup can fail to produce a course
// snapshot: transport errors, malformed payloads and genuinely unknown
// course/semester combinations. The upstream API does not reliably
// distinguish them, so callers get one error class.
var ErrCourseNotFound = fmt.Errorf("course not found in timetable")

// ErrActivityNotFound is returned by validation paths when a course resolved
// fine but a specific named activity is absent from its snapshot.
var ErrActivityNotFound = fmt.Errorf("activity not found in course")

// Client defines an interface for querying the external timetable service.
// Implementations do not retry or cache.
type Client interface {
	Lookup(ctx context.Context, courseCode, semester string) (*Course, error)
}
