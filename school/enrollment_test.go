package school_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/school"
)

// fakeStore is a minimal in-memory school.TxStore for service tests.
type fakeStore struct {
	students    map[school.StudentID]school.Student
	classrooms  map[school.ClassroomID]school.Classroom
	enrollments []school.Enrollment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		students:   make(map[school.StudentID]school.Student),
		classrooms: make(map[school.ClassroomID]school.Classroom),
	}
}

func (f *fakeStore) GetStudent(_ context.Context, id school.StudentID) (*school.Student, error) {
	st, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (f *fakeStore) GetClassroom(_ context.Context, id school.ClassroomID) (*school.Classroom, error) {
	c, ok := f.classrooms[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) SaveEnrollment(_ context.Context, e school.Enrollment) error {
	f.enrollments = append(f.enrollments, e)
	return nil
}

func (f *fakeStore) SetClassroomCount(_ context.Context, id school.ClassroomID, count int) error {
	c := f.classrooms[id]
	c.CurrentStudents = count
	f.classrooms[id] = c
	return nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(school.Store) error) error {
	return fn(f)
}

func seedStore(capacity, current int) *fakeStore {
	store := newFakeStore()
	store.students["student-1"] = school.Student{ID: "student-1", FirstName: "Ana", LastName: "Quispe", Status: "active"}
	store.classrooms["room-a"] = school.Classroom{
		ID: "room-a", Name: "3 years A", Capacity: capacity, CurrentStudents: current, Status: "active",
	}
	return store
}

// =============================================================================
// ENROLLMENT TESTS
// =============================================================================

func TestEnroll_IncrementsClassroomCount(t *testing.T) {
	store := seedStore(20, 5)
	svc := school.NewService(store)

	enrollment, err := svc.Enroll(context.Background(), "student-1", "room-a")
	require.NoError(t, err)

	assert.Equal(t, school.StudentID("student-1"), enrollment.StudentID)
	assert.Equal(t, "active", enrollment.Status)
	assert.Equal(t, 6, store.classrooms["room-a"].CurrentStudents)
	assert.Len(t, store.enrollments, 1)
}

func TestEnroll_RejectsFullClassroom(t *testing.T) {
	store := seedStore(20, 20)
	svc := school.NewService(store)

	_, err := svc.Enroll(context.Background(), "student-1", "room-a")
	require.ErrorIs(t, err, school.ErrClassroomFull)

	var full *school.ClassroomFullError
	require.ErrorAs(t, err, &full)
	assert.Equal(t, 20, full.Capacity)

	// Nothing was written.
	assert.Empty(t, store.enrollments)
	assert.Equal(t, 20, store.classrooms["room-a"].CurrentStudents)
}

func TestEnroll_UnknownStudentOrClassroom(t *testing.T) {
	store := seedStore(20, 0)
	svc := school.NewService(store)

	_, err := svc.Enroll(context.Background(), "ghost", "room-a")
	assert.ErrorIs(t, err, school.ErrNotFound)

	_, err = svc.Enroll(context.Background(), "student-1", "no-room")
	assert.ErrorIs(t, err, school.ErrNotFound)
}

func TestEnroll_LastSeat(t *testing.T) {
	store := seedStore(10, 9)
	svc := school.NewService(store)

	_, err := svc.Enroll(context.Background(), "student-1", "room-a")
	require.NoError(t, err)
	assert.Equal(t, 10, store.classrooms["room-a"].CurrentStudents)

	// The room is now full.
	_, err = svc.Enroll(context.Background(), "student-1", "room-a")
	assert.ErrorIs(t, err, school.ErrClassroomFull)
}

// =============================================================================
// PROJECTION TESTS
// =============================================================================

func TestAge(t *testing.T) {
	asOf := billing.NewDate(2026, time.August, 31)

	cases := []struct {
		name  string
		birth billing.Date
		want  int
	}{
		{"birthday already passed", billing.NewDate(2022, time.March, 10), 4},
		{"birthday today", billing.NewDate(2022, time.August, 31), 4},
		{"birthday later this year", billing.NewDate(2022, time.December, 1), 3},
		{"zero birth date", billing.Date{}, 0},
		{"born after asOf", billing.NewDate(2027, time.January, 1), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, school.Age(tc.birth, asOf))
		})
	}
}

func TestOccupancy(t *testing.T) {
	assert.Equal(t, 50, school.Occupancy(school.Classroom{Capacity: 20, CurrentStudents: 10}))
	assert.Equal(t, 33, school.Occupancy(school.Classroom{Capacity: 3, CurrentStudents: 1}))
	assert.Equal(t, 100, school.Occupancy(school.Classroom{Capacity: 15, CurrentStudents: 15}))
	assert.Equal(t, 0, school.Occupancy(school.Classroom{Capacity: 0, CurrentStudents: 5}))
}
