package tracking

import "regexp"

// Syntax checks done locally before touching the timetable API, to keep
// obviously bad input off the wire.
var (
	courseCodePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}[HY][135]$`)
	activityPattern   = regexp.MustCompile(`^(LEC|TUT|PRA)[0-9]{4}$`)
	sentinelPattern   = regexp.MustCompile(`^New(LEC|TUT|PRA)$`)
)

// ValidCourseCode reports whether s has the shape of a course code,
// e.g. "CSC148H5".
func ValidCourseCode(s string) bool {
	return courseCodePattern.MatchString(s)
}

// ValidActivity reports whether s is a concrete section code ("LEC0101") or a
// new-section sentinel ("NewLEC").
func ValidActivity(s string) bool {
	return activityPattern.MatchString(s) || sentinelPattern.MatchString(s)
}

// ValidSemester reports whether s is one of the supported session codes:
// F (fall), S (winter) or Y (full year).
func ValidSemester(s string) bool {
	return s == "F" || s == "S" || s == "Y"
}
