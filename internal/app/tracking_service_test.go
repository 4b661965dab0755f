package app

import (
	"context"
	"testing"

	"ttbtrackr/internal/domain/timetable"
	"ttbtrackr/internal/domain/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminChatID = int64(999)

type trackingFixture struct {
	watchRepo      *fakeWatchRepo
	subscriberRepo *fakeSubscriberRepo
	client         *fakeTimetableClient
	service        *TrackingService
}

func newTrackingFixture() *trackingFixture {
	f := &trackingFixture{
		watchRepo:      newFakeWatchRepo(),
		subscriberRepo: newFakeSubscriberRepo(),
		client:         newFakeTimetableClient(),
	}
	f.service = NewTrackingService(f.watchRepo, f.subscriberRepo, f.client, testAdminChatID, newTestLogger())
	f.client.setCourse(&timetable.Course{
		Name: "Introduction to Computer Science", Code: "CSC148H5", Semester: "S",
		Sections: []timetable.Section{
			{Code: "LEC0101", Type: "LEC", CurrentEnrollment: 30, MaxEnrollment: 30},
			{Code: "TUT0101", Type: "TUT", CurrentEnrollment: 15, MaxEnrollment: 15},
		},
	})
	return f
}

func TestTrackCreatesWatchAndProfile(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Track(ctx, 100, "csc148h5", "s", "lec0101"))

	// Input is normalized before storage.
	tracked, err := f.watchRepo.IsTracking(ctx, &tracking.Entry{
		SubscriberID: 100, CourseCode: "CSC148H5", Semester: "S", Activity: "LEC0101",
	})
	require.NoError(t, err)
	assert.True(t, tracked)

	// A bare profile is created lazily on first use.
	_, err = f.subscriberRepo.Get(ctx, 100)
	assert.NoError(t, err)
}

func TestTrackRejectsMalformedInput(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	cases := []struct {
		name                           string
		courseCode, semester, activity string
	}{
		{"bad course code", "CS148H5", "S", "LEC0101"},
		{"bad suffix digit", "CSC148H2", "S", "LEC0101"},
		{"bad semester", "CSC148H5", "W", "LEC0101"},
		{"bad activity type", "CSC148H5", "S", "LAB0101"},
		{"short section number", "CSC148H5", "S", "LEC101"},
		{"bad sentinel", "CSC148H5", "S", "NewLAB"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.service.Track(ctx, 1, tc.courseCode, tc.semester, tc.activity)
			assert.ErrorIs(t, err, ErrInvalidCourse)
		})
	}
}

func TestTrackDuplicateIsRejected(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Track(ctx, 100, "CSC148H5", "S", "LEC0101"))
	err := f.service.Track(ctx, 100, "CSC148H5", "S", "LEC0101")
	assert.ErrorIs(t, err, ErrAlreadyTracking)

	// Same tuple for a different subscriber is a distinct watch.
	assert.NoError(t, f.service.Track(ctx, 200, "CSC148H5", "S", "LEC0101"))
}

func TestTrackEnforcesPlanLimit(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	sections := make([]timetable.Section, 0, 6)
	for _, code := range []string{"LEC0101", "LEC0201", "LEC0301", "LEC0401", "LEC0501", "LEC0601"} {
		sections = append(sections, timetable.Section{Code: code, Type: "LEC", CurrentEnrollment: 1, MaxEnrollment: 1})
	}
	f.client.setCourse(&timetable.Course{
		Name: "Calculus", Code: "MAT135H1", Semester: "F", Sections: sections,
	})

	for _, code := range []string{"LEC0101", "LEC0201", "LEC0301", "LEC0401", "LEC0501"} {
		require.NoError(t, f.service.Track(ctx, 100, "MAT135H1", "F", code))
	}
	err := f.service.Track(ctx, 100, "MAT135H1", "F", "LEC0601")
	assert.ErrorIs(t, err, ErrTrackingLimitReached)
}

func TestTrackUnknownCourse(t *testing.T) {
	f := newTrackingFixture()

	err := f.service.Track(context.Background(), 100, "ZZZ999H1", "F", "LEC0101")
	assert.ErrorIs(t, err, timetable.ErrCourseNotFound)
}

func TestTrackAbsentConcreteActivity(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	err := f.service.Track(ctx, 100, "CSC148H5", "S", "LEC0901")
	assert.ErrorIs(t, err, timetable.ErrActivityNotFound)

	// The sentinel form is the supported way to wait for that section.
	assert.NoError(t, f.service.Track(ctx, 100, "CSC148H5", "S", "NewLEC"))
}

func TestTrackSentinelWithZeroSectionsOfType(t *testing.T) {
	f := newTrackingFixture()

	// CSC148H5 has no PRA sections at all; the sentinel is still accepted.
	err := f.service.Track(context.Background(), 100, "CSC148H5", "S", "newpra")
	require.NoError(t, err)

	tracked, err := f.watchRepo.IsTracking(context.Background(), &tracking.Entry{
		SubscriberID: 100, CourseCode: "CSC148H5", Semester: "S", Activity: "NewPRA",
	})
	require.NoError(t, err)
	assert.True(t, tracked)
}

func TestUntrack(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Track(ctx, 100, "CSC148H5", "S", "LEC0101"))
	require.NoError(t, f.service.Untrack(ctx, 100, "csc148h5", "s", "lec0101"))

	err := f.service.Untrack(ctx, 100, "CSC148H5", "S", "LEC0101")
	assert.ErrorIs(t, err, ErrNotTracking)
}

func TestListTrackedResolvesNames(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Track(ctx, 100, "CSC148H5", "S", "LEC0101"))
	require.NoError(t, f.service.Track(ctx, 100, "CSC148H5", "S", "TUT0101"))

	tracked, err := f.service.ListTracked(ctx, 100)
	require.NoError(t, err)
	require.Len(t, tracked, 2)
	for _, tc := range tracked {
		assert.Equal(t, "Introduction to Computer Science", tc.CourseName)
	}
}

func TestListTrackedToleratesLookupFailure(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Track(ctx, 100, "CSC148H5", "S", "LEC0101"))
	f.client.setError("CSC148H5", "S", assert.AnError)

	tracked, err := f.service.ListTracked(ctx, 100)
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Empty(t, tracked[0].CourseName)
}

func TestForceTrackRequiresAdmin(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	err := f.service.ForceTrack(ctx, 123, 100, "CSC148H5", "S", "LEC0101")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// The admin path skips remote validation entirely: no course lookup.
	require.NoError(t, f.service.ForceTrack(ctx, testAdminChatID, 100, "XYZ999H1", "F", "LEC0101"))
	assert.Zero(t, f.client.lookupCount("XYZ999H1", "F"))

	err = f.service.ForceUntrack(ctx, 123, 100, "XYZ999H1", "F", "LEC0101")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.NoError(t, f.service.ForceUntrack(ctx, testAdminChatID, 100, "XYZ999H1", "F", "LEC0101"))
}
