package timetable

// Section is one activity of a course as reported by the timetable service.
type Section struct {
	Code               string // e.g. "LEC0101"
	Type               string // "LEC", "TUT" or "PRA"
	CurrentEnrollment  int
	MaxEnrollment      int
	EnrollmentControls bool // true when enrollment is administratively closed
}

// SeatsFree reports whether the section can currently be enrolled in. When
// enforceControls is false the enrollment-controls flag is ignored; the
// upstream service has historically been inconsistent about it, so callers
// choose.
func (s Section) SeatsFree(enforceControls bool) bool {
	if s.CurrentEnrollment >= s.MaxEnrollment {
		return false
	}
	if enforceControls && s.EnrollmentControls {
		return false
	}
	return true
}

// Course is the snapshot of a single course returned by a lookup.
type Course struct {
	Name     string
	Code     string
	Semester string
	Sections []Section
}

// Section returns the section with the given code, if present.
func (c *Course) Section(code string) (Section, bool) {
	for _, s := range c.Sections {
		if s.Code == code {
			return s, true
		}
	}
	return Section{}, false
}

// SectionCodesOfType returns the codes of all sections of the given activity
// type, e.g. all "LEC" sections.
func (c *Course) SectionCodesOfType(activityType string) []string {
	codes := make([]string, 0)
	for _, s := range c.Sections {
		if s.Type == activityType {
			codes = append(codes, s.Code)
		}
	}
	return codes
}
