package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"ttbtrackr/internal/domain/subscriber"
	"ttbtrackr/internal/domain/timetable"
	"ttbtrackr/internal/domain/tracking"
	idb "ttbtrackr/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// --- tracking.Repository fake ---

type fakeWatchRepo struct {
	mu      sync.Mutex
	entries []*tracking.Entry
	nextID  int64

	listPairsErr error
}

func newFakeWatchRepo() *fakeWatchRepo {
	return &fakeWatchRepo{}
}

func (r *fakeWatchRepo) Add(_ context.Context, e *tracking.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if sameTuple(existing, e) {
			return idb.ErrDuplicateWatch
		}
	}
	r.nextID++
	e.ID = r.nextID
	copied := *e
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeWatchRepo) Remove(_ context.Context, e *tracking.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.entries {
		if sameTuple(existing, e) {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return idb.ErrWatchNotFound
}

func (r *fakeWatchRepo) IsTracking(_ context.Context, e *tracking.Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if sameTuple(existing, e) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeWatchRepo) ListPairs(_ context.Context) ([]tracking.Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listPairsErr != nil {
		return nil, r.listPairsErr
	}
	seen := make(map[tracking.Pair]bool)
	pairs := make([]tracking.Pair, 0)
	for _, e := range r.entries {
		if !seen[e.Pair()] {
			seen[e.Pair()] = true
			pairs = append(pairs, e.Pair())
		}
	}
	return pairs, nil
}

func (r *fakeWatchRepo) ListByPair(_ context.Context, p tracking.Pair) ([]*tracking.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*tracking.Entry, 0)
	for _, e := range r.entries {
		if e.Pair() == p {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeWatchRepo) ListBySubscriber(_ context.Context, subscriberID int64) ([]*tracking.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*tracking.Entry, 0)
	for _, e := range r.entries {
		if e.SubscriberID == subscriberID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeWatchRepo) CountBySubscriber(ctx context.Context, subscriberID int64) (int, error) {
	entries, _ := r.ListBySubscriber(ctx, subscriberID)
	return len(entries), nil
}

func (r *fakeWatchRepo) RemoveBySubscriber(_ context.Context, subscriberID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.SubscriberID != subscriberID {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func sameTuple(a, b *tracking.Entry) bool {
	return a.SubscriberID == b.SubscriberID &&
		a.CourseCode == b.CourseCode &&
		a.Semester == b.Semester &&
		a.Activity == b.Activity
}

// --- tracking.BaselineRepository fake ---

type fakeBaselineRepo struct {
	mu       sync.Mutex
	seeded   map[string]bool
	sections map[string]map[string]bool
}

func newFakeBaselineRepo() *fakeBaselineRepo {
	return &fakeBaselineRepo{
		seeded:   make(map[string]bool),
		sections: make(map[string]map[string]bool),
	}
}

func baselineKey(p tracking.Pair, activityType string) string {
	return p.CourseCode + "/" + p.Semester + "/" + activityType
}

func (r *fakeBaselineRepo) Get(_ context.Context, p tracking.Pair, activityType string) ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := baselineKey(p, activityType)
	if !r.seeded[key] {
		return nil, false, nil
	}
	out := make([]string, 0, len(r.sections[key]))
	for code := range r.sections[key] {
		out = append(out, code)
	}
	return out, true, nil
}

func (r *fakeBaselineRepo) Seed(_ context.Context, p tracking.Pair, activityType string, sections []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := baselineKey(p, activityType)
	r.seeded[key] = true
	if r.sections[key] == nil {
		r.sections[key] = make(map[string]bool)
	}
	for _, code := range sections {
		r.sections[key][code] = true
	}
	return nil
}

func (r *fakeBaselineRepo) Union(_ context.Context, p tracking.Pair, activityType string, sections []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := baselineKey(p, activityType)
	if r.sections[key] == nil {
		r.sections[key] = make(map[string]bool)
	}
	for _, code := range sections {
		r.sections[key][code] = true
	}
	return nil
}

func (r *fakeBaselineRepo) PruneOrphans(context.Context) (int64, error) {
	return 0, nil
}

// --- timetable.Client fake ---

type fakeTimetableClient struct {
	mu      sync.Mutex
	courses map[string]*timetable.Course
	errs    map[string]error
	lookups []string
}

func newFakeTimetableClient() *fakeTimetableClient {
	return &fakeTimetableClient{
		courses: make(map[string]*timetable.Course),
		errs:    make(map[string]error),
	}
}

func lookupKey(courseCode, semester string) string {
	return courseCode + "/" + semester
}

func (c *fakeTimetableClient) setCourse(course *timetable.Course) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courses[lookupKey(course.Code, course.Semester)] = course
}

func (c *fakeTimetableClient) setError(courseCode, semester string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[lookupKey(courseCode, semester)] = err
}

func (c *fakeTimetableClient) Lookup(_ context.Context, courseCode, semester string) (*timetable.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := lookupKey(courseCode, semester)
	c.lookups = append(c.lookups, key)
	if err, ok := c.errs[key]; ok {
		return nil, err
	}
	course, ok := c.courses[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", timetable.ErrCourseNotFound, key)
	}
	return course, nil
}

func (c *fakeTimetableClient) lookupCount(courseCode, semester string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, key := range c.lookups {
		if key == lookupKey(courseCode, semester) {
			count++
		}
	}
	return count
}

// --- NotificationRouter fake ---

type dispatchRecord struct {
	SubscriberID int64
	Message      string
}

type fakeRouter struct {
	mu         sync.Mutex
	dispatches []dispatchRecord
	failFor    map[int64]error
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{failFor: make(map[int64]error)}
}

func (r *fakeRouter) Dispatch(_ context.Context, subscriberID int64, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[subscriberID]; ok {
		return err
	}
	r.dispatches = append(r.dispatches, dispatchRecord{SubscriberID: subscriberID, Message: message})
	return nil
}

func (r *fakeRouter) dispatchesFor(subscriberID int64) []dispatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dispatchRecord, 0)
	for _, d := range r.dispatches {
		if d.SubscriberID == subscriberID {
			out = append(out, d)
		}
	}
	return out
}

// --- diag.Reporter fake ---

type fakeReporter struct {
	mu             sync.Mutex
	lookupFailures []tracking.Pair
	entryFailures  []*tracking.Entry
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{}
}

func (r *fakeReporter) LookupFailure(_ context.Context, p tracking.Pair, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupFailures = append(r.lookupFailures, p)
}

func (r *fakeReporter) EntryFailure(_ context.Context, e *tracking.Entry, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryFailures = append(r.entryFailures, e)
}

// --- subscriber.Repository fake ---

type fakeSubscriberRepo struct {
	mu       sync.Mutex
	profiles map[int64]*subscriber.Profile
	plans    map[int64]subscriber.Plan
}

func newFakeSubscriberRepo() *fakeSubscriberRepo {
	return &fakeSubscriberRepo{
		profiles: make(map[int64]*subscriber.Profile),
		plans:    make(map[int64]subscriber.Plan),
	}
}

func (r *fakeSubscriberRepo) Create(_ context.Context, p *subscriber.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[p.ID]; exists {
		return idb.ErrDuplicateSubscriber
	}
	copied := *p
	r.profiles[p.ID] = &copied
	r.plans[p.ID] = subscriber.DefaultPlan()
	return nil
}

func (r *fakeSubscriberRepo) Get(_ context.Context, id int64) (*subscriber.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, idb.ErrSubscriberNotFound
	}
	copied := *p
	if p.Phone != nil {
		phone := *p.Phone
		copied.Phone = &phone
	}
	if p.Social != nil {
		social := *p.Social
		copied.Social = &social
	}
	return &copied, nil
}

func (r *fakeSubscriberRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return idb.ErrSubscriberNotFound
	}
	delete(r.profiles, id)
	delete(r.plans, id)
	return nil
}

func (r *fakeSubscriberRepo) phone(id int64) *subscriber.PhoneChannel {
	p, ok := r.profiles[id]
	if !ok {
		return nil
	}
	if p.Phone == nil {
		p.Phone = &subscriber.PhoneChannel{}
	}
	return p.Phone
}

func (r *fakeSubscriberRepo) SetPhoneNumber(_ context.Context, id int64, number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return idb.ErrSubscriberNotFound
	}
	phone := r.phone(id)
	phone.Number = number
	phone.Confirmed = false
	phone.PendingCode = ""
	return nil
}

func (r *fakeSubscriberRepo) SetPendingCode(_ context.Context, id int64, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return idb.ErrSubscriberNotFound
	}
	r.phone(id).PendingCode = code
	return nil
}

func (r *fakeSubscriberRepo) SetPhoneConfirmed(_ context.Context, id int64, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return idb.ErrSubscriberNotFound
	}
	r.phone(id).Confirmed = confirmed
	return nil
}

func (r *fakeSubscriberRepo) SetSMSEnabled(_ context.Context, id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return idb.ErrSubscriberNotFound
	}
	r.phone(id).SMSEnabled = enabled
	return nil
}

func (r *fakeSubscriberRepo) SetCallEnabled(_ context.Context, id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return idb.ErrSubscriberNotFound
	}
	r.phone(id).CallEnabled = enabled
	return nil
}

func (r *fakeSubscriberRepo) DisablePhoneChannel(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return idb.ErrSubscriberNotFound
	}
	phone := r.phone(id)
	phone.SMSEnabled = false
	phone.CallEnabled = false
	phone.Confirmed = false
	phone.PendingCode = ""
	return nil
}

func (r *fakeSubscriberRepo) SetSocial(_ context.Context, id int64, handle string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return idb.ErrSubscriberNotFound
	}
	p.Social = &subscriber.SocialChannel{Handle: handle, Enabled: enabled}
	return nil
}

func (r *fakeSubscriberRepo) SetSocialEnabled(_ context.Context, id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return idb.ErrSubscriberNotFound
	}
	if p.Social == nil {
		p.Social = &subscriber.SocialChannel{}
	}
	p.Social.Enabled = enabled
	return nil
}

func (r *fakeSubscriberRepo) GetPlan(_ context.Context, id int64) (subscriber.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[id]
	if !ok {
		return subscriber.DefaultPlan(), nil
	}
	return plan, nil
}

func (r *fakeSubscriberRepo) SetPlan(_ context.Context, id int64, plan subscriber.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[id] = plan
	return nil
}

// --- subscriber.FaultRepository fake ---

type fakeFaultRepo struct {
	mu       sync.Mutex
	attempts map[string]int
	locked   map[string]bool
}

func newFakeFaultRepo() *fakeFaultRepo {
	return &fakeFaultRepo{
		attempts: make(map[string]int),
		locked:   make(map[string]bool),
	}
}

func (r *fakeFaultRepo) Increment(_ context.Context, number string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[number]++
	return r.attempts[number], nil
}

func (r *fakeFaultRepo) Reset(_ context.Context, number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[number] = 0
	return nil
}

func (r *fakeFaultRepo) Lock(_ context.Context, number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked[number] = true
	return nil
}

func (r *fakeFaultRepo) Unlock(_ context.Context, number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked[number] = false
	r.attempts[number] = 0
	return nil
}

func (r *fakeFaultRepo) IsLocked(_ context.Context, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked[number], nil
}

// --- SMSSender fake ---

type smsRecord struct {
	Number string
	Text   string
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []smsRecord
	fail error
}

func newFakeSMSSender() *fakeSMSSender {
	return &fakeSMSSender{}
}

func (s *fakeSMSSender) SendSMS(_ context.Context, number, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, smsRecord{Number: number, Text: text})
	return nil
}
