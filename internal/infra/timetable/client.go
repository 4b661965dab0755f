package timetable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "ttbtrackr/internal/domain/timetable"
)

const defaultRequestTimeout = 15 * time.Second

// HTTPClient queries the timetable service with one POST per
// (course, semester) lookup. It holds no state beyond the fixed request
// scaffold; retries and caching are the caller's problem.
type HTTPClient struct {
	endpoint   string
	sessions   []string
	divisions  []string
	httpClient *http.Client
}

func NewHTTPClient(endpoint string, sessions, divisions []string) *HTTPClient {
	return &HTTPClient{
		endpoint:   endpoint,
		sessions:   sessions,
		divisions:  divisions,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Request/response shapes of the getPageableCourses endpoint. Only the fields
// the tracker reads are declared; the payload carries far more.

type courseCodeAndTitleProps struct {
	CourseCode              string `json:"courseCode"`
	CourseTitle             string `json:"courseTitle"`
	CourseSectionCode       string `json:"courseSectionCode"`
	SearchCourseDescription bool   `json:"searchCourseDescription"`
}

type pageableCoursesRequest struct {
	CourseCodeAndTitleProps courseCodeAndTitleProps `json:"courseCodeAndTitleProps"`
	DepartmentProps         []string                `json:"departmentProps"`
	Campuses                []string                `json:"campuses"`
	Sessions                []string                `json:"sessions"`
	RequirementProps        []string                `json:"requirementProps"`
	Instructor              string                  `json:"instructor"`
	CourseLevels            []string                `json:"courseLevels"`
	DeliveryModes           []string                `json:"deliveryModes"`
	DayPreferences          []string                `json:"dayPreferences"`
	TimePreferences         []string                `json:"timePreferences"`
	Divisions               []string                `json:"divisions"`
	CreditWeights           []string                `json:"creditWeights"`
	Page                    int                     `json:"page"`
	PageSize                int                     `json:"pageSize"`
	Direction               string                  `json:"direction"`
}

type pageableCoursesResponse struct {
	Payload struct {
		PageableCourse struct {
			Courses []struct {
				Name     string `json:"name"`
				Code     string `json:"code"`
				Sections []struct {
					Name              string `json:"name"`
					Type              string `json:"type"`
					CurrentEnrolment  int    `json:"currentEnrolment"`
					MaxEnrolment      int    `json:"maxEnrolment"`
					EnrolmentControls bool   `json:"hasEnrolmentControls"`
				} `json:"sections"`
			} `json:"courses"`
		} `json:"pageableCourse"`
	} `json:"payload"`
}

// Lookup fetches the snapshot of one course. Transport errors, bad status
// codes, unparseable payloads and empty result sets all fold into
// domain.ErrCourseNotFound; the upstream API does not let us tell them apart
// reliably, and callers treat them the same either way.
func (c *HTTPClient) Lookup(ctx context.Context, courseCode, semester string) (*domain.Course, error) {
	reqBody := pageableCoursesRequest{
		CourseCodeAndTitleProps: courseCodeAndTitleProps{
			CourseCode:        courseCode,
			CourseSectionCode: semester,
		},
		DepartmentProps:  []string{},
		Campuses:         []string{},
		Sessions:         c.sessions,
		RequirementProps: []string{},
		CourseLevels:     []string{},
		DeliveryModes:    []string{},
		DayPreferences:   []string{},
		TimePreferences:  []string{},
		Divisions:        c.divisions,
		CreditWeights:    []string{},
		Page:             1,
		PageSize:         20,
		Direction:        "asc",
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error encoding lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("error building lookup request: %w", err)
	}
	setStaticHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s/%s: %v", domain.ErrCourseNotFound, courseCode, semester, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: lookup %s/%s: unexpected status %d", domain.ErrCourseNotFound, courseCode, semester, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s/%s: reading body: %v", domain.ErrCourseNotFound, courseCode, semester, err)
	}

	var parsed pageableCoursesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: lookup %s/%s: malformed payload: %v", domain.ErrCourseNotFound, courseCode, semester, err)
	}

	courses := parsed.Payload.PageableCourse.Courses
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: lookup %s/%s: empty result set", domain.ErrCourseNotFound, courseCode, semester)
	}

	// Callers query one specific course; the first match is the course.
	raw := courses[0]
	course := &domain.Course{
		Name:     raw.Name,
		Code:     courseCode,
		Semester: semester,
		Sections: make([]domain.Section, 0, len(raw.Sections)),
	}
	for _, s := range raw.Sections {
		course.Sections = append(course.Sections, domain.Section{
			Code:               s.Name,
			Type:               s.Type,
			CurrentEnrollment:  s.CurrentEnrolment,
			MaxEnrollment:      s.MaxEnrolment,
			EnrollmentControls: s.EnrolmentControls,
		})
	}
	return course, nil
}

// The upstream service rejects requests without a browser-looking header set.
func setStaticHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://ttb.utoronto.ca")
	req.Header.Set("Referer", "https://ttb.utoronto.ca/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36")
}
