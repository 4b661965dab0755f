package tracking

import "strings"

// Pair is the unit of external timetable lookup: all watches on the same
// course and semester are resolved with a single API query.
type Pair struct {
	CourseCode string
	Semester   string
}

func (p Pair) String() string {
	return p.CourseCode + "/" + p.Semester
}

// Entry is a single watch record. Activity is either a concrete section code
// (e.g. "LEC0101") or a sentinel of the form "New<TYPE>" (e.g. "NewLEC"),
// meaning "notify me when any new section of that type appears".
// The full (SubscriberID, CourseCode, Semester, Activity) tuple is unique.
type Entry struct {
	ID           int64
	SubscriberID int64
	CourseCode   string
	Semester     string
	Activity     string
}

const sentinelPrefix = "New"

// IsSentinel reports whether the entry is a persistent new-section watch
// rather than a watch on a concrete section.
func (e *Entry) IsSentinel() bool {
	return strings.HasPrefix(e.Activity, sentinelPrefix)
}

// SentinelType returns the activity type a sentinel entry watches ("LEC",
// "TUT" or "PRA"). Empty for concrete entries.
func (e *Entry) SentinelType() string {
	if !e.IsSentinel() {
		return ""
	}
	return strings.TrimPrefix(e.Activity, sentinelPrefix)
}

func (e *Entry) Pair() Pair {
	return Pair{CourseCode: e.CourseCode, Semester: e.Semester}
}
