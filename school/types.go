/*
Package school provides the student registry and enrollment rules.

PURPOSE:
  Students with their guardian, emergency and medical information,
  classrooms with capacity, school years, and the enrollment operation
  that guards classroom capacity. Ages and occupancy percentages are
  computed projections, never stored.

SEE ALSO:
  - enrollment.go: Enrollment service and capacity checks
  - billing: Shares the Date type and the plan engine for tuition
*/
package school

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/school-office/billing"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type ClassroomID string
type SchoolYearID string
type EnrollmentID string

// =============================================================================
// RECORDS
// =============================================================================

// SchoolYear is an academic year. The label is unique system-wide.
type SchoolYear struct {
	ID        SchoolYearID
	Year      string
	StartDate billing.Date
	EndDate   billing.Date
	Status    string
}

// Classroom holds a capacity and a live count of enrolled students.
type Classroom struct {
	ID              ClassroomID
	Name            string
	AgeRange        string
	Capacity        int
	CurrentStudents int
	Status          string
}

// Guardian is a parent block on the student record.
type Guardian struct {
	Names      string
	DNI        string
	BirthDate  string
	Phone      string
	Email      string
	Occupation string
}

// EmergencyContact is who to call when the guardians are unreachable.
type EmergencyContact struct {
	Name         string
	Relationship string
	Phone        string
	Address      string
}

// MedicalInfo is the student's health block.
type MedicalInfo struct {
	BloodType            string
	Height               float64
	Weight               float64
	Allergies            string
	Medications          string
	Conditions           string
	ActivityRestrictions string
	VaccinesUpToDate     bool
	Observations         string
}

// Student is the full registry record. DNI is unique. Students are never
// deleted; their status flips to inactive instead.
type Student struct {
	ID          StudentID
	LastName    string
	FirstName   string
	DNI         string
	BirthDate   billing.Date
	Gender      string
	Nationality string

	Address string
	Phone   string
	Email   string
	Photo   string

	Father    Guardian
	Mother    Guardian
	Emergency EmergencyContact
	Medical   MedicalInfo

	Status         string
	EnrollmentDate time.Time
}

// Enrollment places a student in a classroom.
type Enrollment struct {
	ID          EnrollmentID
	StudentID   StudentID
	ClassroomID ClassroomID
	EnrolledAt  time.Time
	Status      string
}

// =============================================================================
// PROJECTIONS
// =============================================================================

// Age returns whole years from birth to asOf, subtracting one when the
// birthday has not yet occurred in asOf's year. Zero for a missing date.
func Age(birth, asOf billing.Date) int {
	if birth.IsZero() {
		return 0
	}
	age := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() ||
		(asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Occupancy returns the classroom's fill percentage, rounded down.
func Occupancy(c Classroom) int {
	if c.Capacity <= 0 {
		return 0
	}
	return c.CurrentStudents * 100 / c.Capacity
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a referenced student, classroom, or
	// school year does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClassroomFull is returned when enrolling into a classroom whose
	// current count has reached its capacity.
	ErrClassroomFull = errors.New("classroom at capacity")

	// ErrDuplicateDNI is returned when a student's DNI is already
	// registered.
	ErrDuplicateDNI = errors.New("duplicate student DNI")
)

// ClassroomFullError reports the capacity that was hit.
type ClassroomFullError struct {
	ClassroomID ClassroomID
	Capacity    int
}

func (e *ClassroomFullError) Error() string {
	return fmt.Sprintf("classroom %s is full (capacity %d)", e.ClassroomID, e.Capacity)
}

func (e *ClassroomFullError) Unwrap() error { return ErrClassroomFull }
