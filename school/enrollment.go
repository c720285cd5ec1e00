/*
enrollment.go - Enrollment service and capacity checks

PURPOSE:
  Enrolling a student is the one school operation with a business rule:
  the classroom must have room. The check and the count increment run in
  the same transaction so two concurrent enrollments cannot oversubscribe
  a classroom.
*/
package school

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store handles persistence of registry records. Lookups return nil when
// the record does not exist.
type Store interface {
	GetStudent(ctx context.Context, id StudentID) (*Student, error)
	GetClassroom(ctx context.Context, id ClassroomID) (*Classroom, error)
	SaveEnrollment(ctx context.Context, e Enrollment) error

	// SetClassroomCount overwrites the classroom's current student count.
	SetClassroomCount(ctx context.Context, id ClassroomID, count int) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Service exposes enrollment over a transactional store.
type Service struct {
	store TxStore
	now   func() time.Time
}

func NewService(store TxStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Enroll places a student in a classroom, incrementing the classroom count.
// Fails with ErrNotFound if either record is missing and with
// ErrClassroomFull when the classroom is at capacity. Check and increment
// commit as one unit.
func (s *Service) Enroll(ctx context.Context, studentID StudentID, classroomID ClassroomID) (*Enrollment, error) {
	enrollment := Enrollment{
		ID:          EnrollmentID(uuid.NewString()),
		StudentID:   studentID,
		ClassroomID: classroomID,
		EnrolledAt:  s.now().UTC(),
		Status:      "active",
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		student, err := tx.GetStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return ErrNotFound
		}

		classroom, err := tx.GetClassroom(ctx, classroomID)
		if err != nil {
			return err
		}
		if classroom == nil {
			return ErrNotFound
		}
		if classroom.CurrentStudents >= classroom.Capacity {
			return &ClassroomFullError{ClassroomID: classroomID, Capacity: classroom.Capacity}
		}

		if err := tx.SaveEnrollment(ctx, enrollment); err != nil {
			return err
		}
		return tx.SetClassroomCount(ctx, classroomID, classroom.CurrentStudents+1)
	})
	if err != nil {
		return nil, err
	}

	return &enrollment, nil
}
