/*
handlers.go - HTTP API handlers for the school back office

PURPOSE:
  Exposes the registry, billing, and inventory engines via REST. Handles
  HTTP request/response, JSON serialization, validation, and delegates to
  domain logic.

ENDPOINTS (registry half; billing and inventory live in their own files):
  POST   /api/login                       Authenticate, get JWT
  GET    /api/health                      Liveness probe

  GET    /api/school-years                List academic years
  POST   /api/school-years                Create academic year
  PUT    /api/school-years/{id}           Edit academic year
  GET    /api/classrooms                  List classrooms with occupancy
  POST   /api/classrooms                  Create classroom
  PUT    /api/classrooms/{id}             Edit classroom
  GET    /api/students                    List students (?active=true)
  POST   /api/students                    Register student
  GET    /api/students/{id}               Get student with computed age
  PUT    /api/students/{id}               Edit registry record
  DELETE /api/students/{id}               Deactivate (never deletes the row)
  POST   /api/enrollments                 Enroll student into classroom
  GET    /api/enrollments                 List enrollments (?classroom_id=)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or bad token
  - 404: Resource not found
  - 409: Conflict (capacity, duplicate DNI, already-paid installment)
  - 500: Storage and other internal errors

SEE ALSO:
  - billing_handlers.go: Concepts, plans, installments, payments
  - inventory_handlers.go: Supplies, materials, assets
  - reports.go: Dashboard and projections
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/inventory"
	"github.com/warp/school-office/school"
	"github.com/warp/school-office/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	School    *sqlite.SchoolStore
	Billing   *sqlite.BillingStore
	Inventory *sqlite.InventoryStore
	Users     *sqlite.UserStore

	Enrollments *school.Service
	Plans       *billing.Service
	Stock       *inventory.Service

	secret   []byte
	validate *validator.Validate
}

// NewHandler wires the handler over the database views and domain services.
func NewHandler(db *sqlite.DB, secret []byte) *Handler {
	schoolStore := db.School()
	billingStore := db.Billing()
	inventoryStore := db.Inventory()
	return &Handler{
		School:      schoolStore,
		Billing:     billingStore,
		Inventory:   inventoryStore,
		Users:       db.Users(),
		Enrollments: school.NewService(schoolStore),
		Plans:       billing.NewService(billingStore, nil),
		Stock:       inventory.NewService(inventoryStore),
		secret:      secret,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCHOOL YEAR HANDLERS
// =============================================================================

// ListSchoolYears returns all academic years.
func (h *Handler) ListSchoolYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.School.ListSchoolYears(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list school years", err)
		return
	}

	dtos := make([]SchoolYearDTO, len(years))
	for i, y := range years {
		dtos[i] = SchoolYearDTO{
			ID:        string(y.ID),
			Year:      y.Year,
			StartDate: y.StartDate.String(),
			EndDate:   y.EndDate.String(),
			Status:    y.Status,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSchoolYear creates an academic year.
func (h *Handler) CreateSchoolYear(w http.ResponseWriter, r *http.Request) {
	var req CreateSchoolYearRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	year := school.SchoolYear{
		ID:        school.SchoolYearID(uuid.NewString()),
		Year:      req.Year,
		StartDate: start,
		EndDate:   end,
		Status:    "active",
	}
	if err := h.School.SaveSchoolYear(r.Context(), year); err != nil {
		writeError(w, http.StatusConflict, "Failed to create school year", err)
		return
	}

	writeJSON(w, http.StatusCreated, SchoolYearDTO{
		ID:        string(year.ID),
		Year:      year.Year,
		StartDate: year.StartDate.String(),
		EndDate:   year.EndDate.String(),
		Status:    year.Status,
	})
}

// UpdateSchoolYear edits an academic year's label, dates, or status.
func (h *Handler) UpdateSchoolYear(w http.ResponseWriter, r *http.Request) {
	id := school.SchoolYearID(chi.URLParam(r, "id"))
	existing, err := h.School.GetSchoolYear(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get school year", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "School year not found", nil)
		return
	}

	var req UpdateSchoolYearRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	existing.Year = req.Year
	existing.StartDate = start
	existing.EndDate = end
	if req.Status != "" {
		existing.Status = req.Status
	}
	if err := h.School.SaveSchoolYear(r.Context(), *existing); err != nil {
		writeError(w, http.StatusConflict, "Failed to update school year", err)
		return
	}

	writeJSON(w, http.StatusOK, SchoolYearDTO{
		ID:        string(existing.ID),
		Year:      existing.Year,
		StartDate: existing.StartDate.String(),
		EndDate:   existing.EndDate.String(),
		Status:    existing.Status,
	})
}

// =============================================================================
// CLASSROOM HANDLERS
// =============================================================================

// ListClassrooms returns all classrooms with their occupancy percentage.
func (h *Handler) ListClassrooms(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.School.ListClassrooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list classrooms", err)
		return
	}

	dtos := make([]ClassroomDTO, len(classrooms))
	for i, c := range classrooms {
		dtos[i] = toClassroomDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClassroom creates a classroom.
func (h *Handler) CreateClassroom(w http.ResponseWriter, r *http.Request) {
	var req CreateClassroomRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c := school.Classroom{
		ID:       school.ClassroomID(uuid.NewString()),
		Name:     req.Name,
		AgeRange: req.AgeRange,
		Capacity: req.Capacity,
		Status:   "active",
	}
	if err := h.School.SaveClassroom(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create classroom", err)
		return
	}

	writeJSON(w, http.StatusCreated, toClassroomDTO(c))
}

// UpdateClassroom edits a classroom's name, age range, or capacity. The
// current student count is never set from the outside; enrollments own it.
func (h *Handler) UpdateClassroom(w http.ResponseWriter, r *http.Request) {
	id := school.ClassroomID(chi.URLParam(r, "id"))
	existing, err := h.School.GetClassroom(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get classroom", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Classroom not found", nil)
		return
	}

	var req CreateClassroomRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	existing.Name = req.Name
	existing.AgeRange = req.AgeRange
	existing.Capacity = req.Capacity
	if err := h.School.SaveClassroom(r.Context(), *existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update classroom", err)
		return
	}
	writeJSON(w, http.StatusOK, toClassroomDTO(*existing))
}

func toClassroomDTO(c school.Classroom) ClassroomDTO {
	return ClassroomDTO{
		ID:              string(c.ID),
		Name:            c.Name,
		AgeRange:        c.AgeRange,
		Capacity:        c.Capacity,
		CurrentStudents: c.CurrentStudents,
		Occupancy:       school.Occupancy(c),
		Status:          c.Status,
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns students; ?active=true filters to active records.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	students, err := h.School.ListStudents(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	today := billing.Today()
	dtos := make([]StudentDTO, len(students))
	for i, st := range students {
		dtos[i] = toStudentDTO(st, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student with the computed age.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := school.StudentID(chi.URLParam(r, "id"))
	st, err := h.School.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*st, billing.Today()))
}

// CreateStudent registers a new student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	birth, err := billing.ParseDate(req.BirthDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid birth_date format (use YYYY-MM-DD)", err)
		return
	}

	st := studentFromRequest(req, birth)
	st.ID = school.StudentID(uuid.NewString())
	st.Status = "active"
	st.EnrollmentDate = time.Now().UTC()

	if err := h.School.SaveStudent(r.Context(), st); err != nil {
		if errors.Is(err, school.ErrDuplicateDNI) {
			writeError(w, http.StatusConflict, "A student with that DNI is already registered", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register student", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentDTO(st, billing.Today()))
}

// UpdateStudent edits a student's registry record. Identity fields can
// change (a typo'd DNI gets corrected); status and the original enrollment
// date are kept.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := school.StudentID(chi.URLParam(r, "id"))
	existing, err := h.School.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	var req CreateStudentRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	birth, err := billing.ParseDate(req.BirthDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid birth_date format (use YYYY-MM-DD)", err)
		return
	}

	updated := studentFromRequest(req, birth)
	updated.ID = existing.ID
	updated.Status = existing.Status
	updated.EnrollmentDate = existing.EnrollmentDate

	if err := h.School.SaveStudent(r.Context(), updated); err != nil {
		if errors.Is(err, school.ErrDuplicateDNI) {
			writeError(w, http.StatusConflict, "A student with that DNI is already registered", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(updated, billing.Today()))
}

// DeactivateStudent flips the student's status to inactive. Rows are never
// deleted; history (payments, enrollments) must stay resolvable.
func (h *Handler) DeactivateStudent(w http.ResponseWriter, r *http.Request) {
	id := school.StudentID(chi.URLParam(r, "id"))
	st, err := h.School.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	st.Status = "inactive"
	if err := h.School.SaveStudent(r.Context(), *st); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to deactivate student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*st, billing.Today()))
}

func studentFromRequest(req CreateStudentRequest, birth billing.Date) school.Student {
	return school.Student{
		LastName:    req.LastName,
		FirstName:   req.FirstName,
		DNI:         req.DNI,
		BirthDate:   birth,
		Gender:      req.Gender,
		Nationality: req.Nationality,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		Photo:       req.Photo,
		Father: school.Guardian{
			Names: req.Father.Names, DNI: req.Father.DNI, BirthDate: req.Father.BirthDate,
			Phone: req.Father.Phone, Email: req.Father.Email, Occupation: req.Father.Occupation,
		},
		Mother: school.Guardian{
			Names: req.Mother.Names, DNI: req.Mother.DNI, BirthDate: req.Mother.BirthDate,
			Phone: req.Mother.Phone, Email: req.Mother.Email, Occupation: req.Mother.Occupation,
		},
		Emergency: school.EmergencyContact{
			Name: req.Emergency.Name, Relationship: req.Emergency.Relationship,
			Phone: req.Emergency.Phone, Address: req.Emergency.Address,
		},
		Medical: school.MedicalInfo{
			BloodType:            req.Medical.BloodType,
			Height:               req.Medical.Height,
			Weight:               req.Medical.Weight,
			Allergies:            req.Medical.Allergies,
			Medications:          req.Medical.Medications,
			Conditions:           req.Medical.Conditions,
			ActivityRestrictions: req.Medical.ActivityRestrictions,
			VaccinesUpToDate:     req.Medical.VaccinesUpToDate,
			Observations:         req.Medical.Observations,
		},
	}
}

func toStudentDTO(st school.Student, today billing.Date) StudentDTO {
	return StudentDTO{
		ID:          string(st.ID),
		LastName:    st.LastName,
		FirstName:   st.FirstName,
		DNI:         st.DNI,
		BirthDate:   st.BirthDate.String(),
		Age:         school.Age(st.BirthDate, today),
		Gender:      st.Gender,
		Nationality: st.Nationality,
		Address:     st.Address,
		Phone:       st.Phone,
		Email:       st.Email,
		Photo:       st.Photo,
		Father: GuardianDTO{
			Names: st.Father.Names, DNI: st.Father.DNI, BirthDate: st.Father.BirthDate,
			Phone: st.Father.Phone, Email: st.Father.Email, Occupation: st.Father.Occupation,
		},
		Mother: GuardianDTO{
			Names: st.Mother.Names, DNI: st.Mother.DNI, BirthDate: st.Mother.BirthDate,
			Phone: st.Mother.Phone, Email: st.Mother.Email, Occupation: st.Mother.Occupation,
		},
		Emergency: EmergencyContactDTO{
			Name: st.Emergency.Name, Relationship: st.Emergency.Relationship,
			Phone: st.Emergency.Phone, Address: st.Emergency.Address,
		},
		Medical: MedicalInfoDTO{
			BloodType:            st.Medical.BloodType,
			Height:               st.Medical.Height,
			Weight:               st.Medical.Weight,
			Allergies:            st.Medical.Allergies,
			Medications:          st.Medical.Medications,
			Conditions:           st.Medical.Conditions,
			ActivityRestrictions: st.Medical.ActivityRestrictions,
			VaccinesUpToDate:     st.Medical.VaccinesUpToDate,
			Observations:         st.Medical.Observations,
		},
		Status:         st.Status,
		EnrollmentDate: st.EnrollmentDate.Format(time.RFC3339),
	}
}

// =============================================================================
// ENROLLMENT HANDLERS
// =============================================================================

// Enroll places a student in a classroom, guarding capacity.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	enrollment, err := h.Enrollments.Enroll(r.Context(),
		school.StudentID(req.StudentID), school.ClassroomID(req.ClassroomID))
	if err != nil {
		switch {
		case errors.Is(err, school.ErrClassroomFull):
			writeError(w, http.StatusConflict, "Classroom is at capacity", err)
		case errors.Is(err, school.ErrNotFound):
			writeError(w, http.StatusNotFound, "Student or classroom not found", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to enroll student", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toEnrollmentDTO(*enrollment))
}

// ListEnrollments returns enrollments, optionally filtered by classroom.
func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	classroomID := school.ClassroomID(r.URL.Query().Get("classroom_id"))
	enrollments, err := h.School.ListEnrollments(r.Context(), classroomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list enrollments", err)
		return
	}

	dtos := make([]EnrollmentDTO, len(enrollments))
	for i, e := range enrollments {
		dtos[i] = toEnrollmentDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toEnrollmentDTO(e school.Enrollment) EnrollmentDTO {
	return EnrollmentDTO{
		ID:          string(e.ID),
		StudentID:   string(e.StudentID),
		ClassroomID: string(e.ClassroomID),
		EnrolledAt:  e.EnrolledAt.Format(time.RFC3339),
		Status:      e.Status,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// decodeValid decodes the body and runs struct validation.
func (h *Handler) decodeValid(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
