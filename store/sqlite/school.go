/*
school.go - SQLite persistence for school years, classrooms, students, enrollments

Implements school.TxStore plus the registry lookups the API uses directly.
The student row carries the full registry record (guardians, emergency
contact, medical block) flattened into columns.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/school"
)

// SchoolStore is the registry view of the database.
type SchoolStore struct {
	db *DB
	q  querier
}

// School returns the registry store view.
func (d *DB) School() *SchoolStore {
	return &SchoolStore{db: d, q: d.db}
}

// WithTx runs fn against a transactional view of the registry store.
func (s *SchoolStore) WithTx(ctx context.Context, fn func(school.Store) error) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&SchoolStore{db: s.db, q: tx})
	})
}

// =============================================================================
// SCHOOL YEARS
// =============================================================================

// SaveSchoolYear inserts or updates an academic year. The year label is
// unique; a collision surfaces as an error rather than a silent overwrite.
func (s *SchoolStore) SaveSchoolYear(ctx context.Context, y school.SchoolYear) error {
	query := `
		INSERT INTO school_years (id, year, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			year = excluded.year,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status
	`
	_, err := s.q.ExecContext(ctx, query,
		y.ID, y.Year, y.StartDate.String(), y.EndDate.String(), y.Status)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("school year %s already exists", y.Year)
	}
	return err
}

// GetSchoolYear returns an academic year, or nil if it does not exist.
func (s *SchoolStore) GetSchoolYear(ctx context.Context, id school.SchoolYearID) (*school.SchoolYear, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, year, start_date, end_date, status FROM school_years WHERE id = ?", id)

	var (
		y          school.SchoolYear
		start, end string
	)
	if err := row.Scan(&y.ID, &y.Year, &start, &end, &y.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	y.StartDate, _ = billing.ParseDate(start)
	y.EndDate, _ = billing.ParseDate(end)
	return &y, nil
}

// ListSchoolYears returns all academic years, newest label first.
func (s *SchoolStore) ListSchoolYears(ctx context.Context) ([]school.SchoolYear, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, year, start_date, end_date, status FROM school_years ORDER BY year DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []school.SchoolYear
	for rows.Next() {
		var (
			y          school.SchoolYear
			start, end string
		)
		if err := rows.Scan(&y.ID, &y.Year, &start, &end, &y.Status); err != nil {
			return nil, err
		}
		y.StartDate, _ = billing.ParseDate(start)
		y.EndDate, _ = billing.ParseDate(end)
		years = append(years, y)
	}
	return years, rows.Err()
}

// =============================================================================
// CLASSROOMS
// =============================================================================

// SaveClassroom inserts or updates a classroom.
func (s *SchoolStore) SaveClassroom(ctx context.Context, c school.Classroom) error {
	query := `
		INSERT INTO classrooms (id, name, age_range, capacity, current_students, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age_range = excluded.age_range,
			capacity = excluded.capacity,
			current_students = excluded.current_students,
			status = excluded.status
	`
	_, err := s.q.ExecContext(ctx, query,
		c.ID, c.Name, c.AgeRange, c.Capacity, c.CurrentStudents, c.Status)
	return err
}

// GetClassroom retrieves a classroom by ID, or nil if absent.
func (s *SchoolStore) GetClassroom(ctx context.Context, id school.ClassroomID) (*school.Classroom, error) {
	var c school.Classroom
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, age_range, capacity, current_students, status FROM classrooms WHERE id = ?",
		id,
	).Scan(&c.ID, &c.Name, &c.AgeRange, &c.Capacity, &c.CurrentStudents, &c.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClassrooms returns all classrooms ordered by name.
func (s *SchoolStore) ListClassrooms(ctx context.Context) ([]school.Classroom, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, name, age_range, capacity, current_students, status FROM classrooms ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classrooms []school.Classroom
	for rows.Next() {
		var c school.Classroom
		if err := rows.Scan(&c.ID, &c.Name, &c.AgeRange, &c.Capacity, &c.CurrentStudents, &c.Status); err != nil {
			return nil, err
		}
		classrooms = append(classrooms, c)
	}
	return classrooms, rows.Err()
}

// SetClassroomCount writes the enrolled-student count. Called inside the
// enrollment transaction only.
func (s *SchoolStore) SetClassroomCount(ctx context.Context, id school.ClassroomID, count int) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE classrooms SET current_students = ? WHERE id = ?", count, id)
	return err
}

// =============================================================================
// STUDENTS
// =============================================================================

const studentColumns = `
	id, last_name, first_name, dni, birth_date, gender, nationality,
	address, phone, email, photo,
	father_names, father_dni, father_birth_date, father_phone, father_email, father_occupation,
	mother_names, mother_dni, mother_birth_date, mother_phone, mother_email, mother_occupation,
	emergency_contact, emergency_relationship, emergency_phone, emergency_address,
	blood_type, height, weight, allergies, medications, medical_conditions,
	activity_restrictions, vaccines_up_to_date, medical_observations,
	status, enrollment_date`

// SaveStudent inserts or updates a student record. A DNI collision with a
// different student returns school.ErrDuplicateDNI.
func (s *SchoolStore) SaveStudent(ctx context.Context, st school.Student) error {
	query := `
		INSERT INTO students (` + studentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?,
		        ?, ?, ?,
		        ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_name = excluded.last_name,
			first_name = excluded.first_name,
			dni = excluded.dni,
			birth_date = excluded.birth_date,
			gender = excluded.gender,
			nationality = excluded.nationality,
			address = excluded.address,
			phone = excluded.phone,
			email = excluded.email,
			photo = excluded.photo,
			father_names = excluded.father_names,
			father_dni = excluded.father_dni,
			father_birth_date = excluded.father_birth_date,
			father_phone = excluded.father_phone,
			father_email = excluded.father_email,
			father_occupation = excluded.father_occupation,
			mother_names = excluded.mother_names,
			mother_dni = excluded.mother_dni,
			mother_birth_date = excluded.mother_birth_date,
			mother_phone = excluded.mother_phone,
			mother_email = excluded.mother_email,
			mother_occupation = excluded.mother_occupation,
			emergency_contact = excluded.emergency_contact,
			emergency_relationship = excluded.emergency_relationship,
			emergency_phone = excluded.emergency_phone,
			emergency_address = excluded.emergency_address,
			blood_type = excluded.blood_type,
			height = excluded.height,
			weight = excluded.weight,
			allergies = excluded.allergies,
			medications = excluded.medications,
			medical_conditions = excluded.medical_conditions,
			activity_restrictions = excluded.activity_restrictions,
			vaccines_up_to_date = excluded.vaccines_up_to_date,
			medical_observations = excluded.medical_observations,
			status = excluded.status,
			enrollment_date = excluded.enrollment_date
	`
	_, err := s.q.ExecContext(ctx, query,
		st.ID, st.LastName, st.FirstName, st.DNI, st.BirthDate.String(), st.Gender, nullString(st.Nationality),
		nullString(st.Address), nullString(st.Phone), nullString(st.Email), nullString(st.Photo),
		nullString(st.Father.Names), nullString(st.Father.DNI), nullString(st.Father.BirthDate),
		nullString(st.Father.Phone), nullString(st.Father.Email), nullString(st.Father.Occupation),
		nullString(st.Mother.Names), nullString(st.Mother.DNI), nullString(st.Mother.BirthDate),
		nullString(st.Mother.Phone), nullString(st.Mother.Email), nullString(st.Mother.Occupation),
		nullString(st.Emergency.Name), nullString(st.Emergency.Relationship),
		nullString(st.Emergency.Phone), nullString(st.Emergency.Address),
		nullString(st.Medical.BloodType), st.Medical.Height, st.Medical.Weight,
		nullString(st.Medical.Allergies), nullString(st.Medical.Medications),
		nullString(st.Medical.Conditions), nullString(st.Medical.ActivityRestrictions),
		st.Medical.VaccinesUpToDate, nullString(st.Medical.Observations),
		st.Status, st.EnrollmentDate.Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: dni %s", school.ErrDuplicateDNI, st.DNI)
	}
	return err
}

// GetStudent retrieves a student by ID, or nil if absent.
func (s *SchoolStore) GetStudent(ctx context.Context, id school.StudentID) (*school.Student, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = ?", id)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ListStudents returns students ordered by last name then first name.
// activeOnly drops inactive records.
func (s *SchoolStore) ListStudents(ctx context.Context, activeOnly bool) ([]school.Student, error) {
	query := "SELECT " + studentColumns + " FROM students"
	if activeOnly {
		query += " WHERE status = 'active'"
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []school.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *st)
	}
	return students, rows.Err()
}

// CountStudentsByStatus counts students in the given status.
func (s *SchoolStore) CountStudentsByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM students WHERE status = ?", status).Scan(&count)
	return count, err
}

func scanStudent(row rowScanner) (*school.Student, error) {
	var (
		st               school.Student
		birth, enrolled  string
		nationality      sql.NullString
		address, phone   sql.NullString
		email, photo     sql.NullString
		fNames, fDNI     sql.NullString
		fBirth, fPhone   sql.NullString
		fEmail, fOcc     sql.NullString
		mNames, mDNI     sql.NullString
		mBirth, mPhone   sql.NullString
		mEmail, mOcc     sql.NullString
		eName, eRel      sql.NullString
		ePhone, eAddr    sql.NullString
		blood            sql.NullString
		height, weight   sql.NullFloat64
		allergies, meds  sql.NullString
		conditions, rest sql.NullString
		observations     sql.NullString
	)
	err := row.Scan(
		&st.ID, &st.LastName, &st.FirstName, &st.DNI, &birth, &st.Gender, &nationality,
		&address, &phone, &email, &photo,
		&fNames, &fDNI, &fBirth, &fPhone, &fEmail, &fOcc,
		&mNames, &mDNI, &mBirth, &mPhone, &mEmail, &mOcc,
		&eName, &eRel, &ePhone, &eAddr,
		&blood, &height, &weight, &allergies, &meds, &conditions,
		&rest, &st.Medical.VaccinesUpToDate, &observations,
		&st.Status, &enrolled)
	if err != nil {
		return nil, err
	}
	st.BirthDate, _ = billing.ParseDate(birth)
	st.EnrollmentDate, _ = time.Parse(time.RFC3339, enrolled)
	st.Nationality = nationality.String
	st.Address = address.String
	st.Phone = phone.String
	st.Email = email.String
	st.Photo = photo.String
	st.Father = school.Guardian{
		Names: fNames.String, DNI: fDNI.String, BirthDate: fBirth.String,
		Phone: fPhone.String, Email: fEmail.String, Occupation: fOcc.String,
	}
	st.Mother = school.Guardian{
		Names: mNames.String, DNI: mDNI.String, BirthDate: mBirth.String,
		Phone: mPhone.String, Email: mEmail.String, Occupation: mOcc.String,
	}
	st.Emergency = school.EmergencyContact{
		Name: eName.String, Relationship: eRel.String,
		Phone: ePhone.String, Address: eAddr.String,
	}
	st.Medical.BloodType = blood.String
	st.Medical.Height = height.Float64
	st.Medical.Weight = weight.Float64
	st.Medical.Allergies = allergies.String
	st.Medical.Medications = meds.String
	st.Medical.Conditions = conditions.String
	st.Medical.ActivityRestrictions = rest.String
	st.Medical.Observations = observations.String
	return &st, nil
}

// =============================================================================
// ENROLLMENTS
// =============================================================================

// SaveEnrollment inserts an enrollment row.
func (s *SchoolStore) SaveEnrollment(ctx context.Context, e school.Enrollment) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO enrollments (id, student_id, classroom_id, enrolled_at, status) VALUES (?, ?, ?, ?, ?)",
		e.ID, e.StudentID, e.ClassroomID, e.EnrolledAt.Format(time.RFC3339), e.Status)
	return err
}

// ListEnrollments returns enrollments, optionally filtered to a classroom.
// Pass an empty classroom ID for all.
func (s *SchoolStore) ListEnrollments(ctx context.Context, classroomID school.ClassroomID) ([]school.Enrollment, error) {
	query := "SELECT id, student_id, classroom_id, enrolled_at, status FROM enrollments"
	var args []any
	if classroomID != "" {
		query += " WHERE classroom_id = ?"
		args = append(args, classroomID)
	}
	query += " ORDER BY enrolled_at ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []school.Enrollment
	for rows.Next() {
		var (
			e        school.Enrollment
			enrolled string
		)
		if err := rows.Scan(&e.ID, &e.StudentID, &e.ClassroomID, &enrolled, &e.Status); err != nil {
			return nil, err
		}
		e.EnrolledAt, _ = time.Parse(time.RFC3339, enrolled)
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}
