/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the external contract. Dates cross the wire as YYYY-MM-DD strings and
  money as decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the validator after decoding and before touching domain logic.

SEE ALSO:
  - handlers.go, billing_handlers.go, inventory_handlers.go: Users of these types
*/
package api

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	FullName  string `json:"full_name,omitempty"`
}

// =============================================================================
// SCHOOL YEARS + CLASSROOMS
// =============================================================================

type SchoolYearDTO struct {
	ID        string `json:"id"`
	Year      string `json:"year"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

type CreateSchoolYearRequest struct {
	Year      string `json:"year" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type UpdateSchoolYearRequest struct {
	Year      string `json:"year" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=active closed"`
}

type ClassroomDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AgeRange        string `json:"age_range"`
	Capacity        int    `json:"capacity"`
	CurrentStudents int    `json:"current_students"`
	Occupancy       int    `json:"occupancy_percent"`
	Status          string `json:"status"`
}

type CreateClassroomRequest struct {
	Name     string `json:"name" validate:"required"`
	AgeRange string `json:"age_range" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

// =============================================================================
// STUDENTS + ENROLLMENTS
// =============================================================================

type GuardianDTO struct {
	Names      string `json:"names,omitempty"`
	DNI        string `json:"dni,omitempty"`
	BirthDate  string `json:"birth_date,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Occupation string `json:"occupation,omitempty"`
}

type EmergencyContactDTO struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

type MedicalInfoDTO struct {
	BloodType            string  `json:"blood_type,omitempty"`
	Height               float64 `json:"height,omitempty"`
	Weight               float64 `json:"weight,omitempty"`
	Allergies            string  `json:"allergies,omitempty"`
	Medications          string  `json:"medications,omitempty"`
	Conditions           string  `json:"conditions,omitempty"`
	ActivityRestrictions string  `json:"activity_restrictions,omitempty"`
	VaccinesUpToDate     bool    `json:"vaccines_up_to_date"`
	Observations         string  `json:"observations,omitempty"`
}

type StudentDTO struct {
	ID          string `json:"id"`
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	DNI         string `json:"dni"`
	BirthDate   string `json:"birth_date"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Nationality string `json:"nationality,omitempty"`

	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Photo   string `json:"photo,omitempty"`

	Father    GuardianDTO         `json:"father"`
	Mother    GuardianDTO         `json:"mother"`
	Emergency EmergencyContactDTO `json:"emergency_contact"`
	Medical   MedicalInfoDTO      `json:"medical_info"`

	Status         string `json:"status"`
	EnrollmentDate string `json:"enrollment_date"`
}

type CreateStudentRequest struct {
	LastName    string `json:"last_name" validate:"required"`
	FirstName   string `json:"first_name" validate:"required"`
	DNI         string `json:"dni" validate:"required"`
	BirthDate   string `json:"birth_date" validate:"required"`
	Gender      string `json:"gender" validate:"required"`
	Nationality string `json:"nationality"`

	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Photo   string `json:"photo"`

	Father    GuardianDTO         `json:"father"`
	Mother    GuardianDTO         `json:"mother"`
	Emergency EmergencyContactDTO `json:"emergency_contact"`
	Medical   MedicalInfoDTO      `json:"medical_info"`
}

type EnrollmentDTO struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	ClassroomID string `json:"classroom_id"`
	EnrolledAt  string `json:"enrolled_at"`
	Status      string `json:"status"`
}

type EnrollRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
}

// =============================================================================
// BILLING
// =============================================================================

type ConceptDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	Frequency   string `json:"frequency,omitempty"`
	Status      string `json:"status"`
}

type CreateConceptRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Amount      string `json:"amount" validate:"required"`
	Frequency   string `json:"frequency"`
}

type PlanDTO struct {
	ID               string `json:"id"`
	StudentID        string `json:"student_id"`
	ConceptID        string `json:"concept_id"`
	TotalAmount      string `json:"total_amount"`
	Installments     int    `json:"installments"`
	PaidInstallments int    `json:"paid_installments"`
	StartDate        string `json:"start_date"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

type CreatePlanRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	ConceptID    string `json:"concept_id" validate:"required"`
	Installments int    `json:"installments" validate:"required,gt=0"`
	StartDate    string `json:"start_date" validate:"required"`
}

type InstallmentDTO struct {
	ID          string  `json:"id"`
	PlanID      string  `json:"plan_id"`
	Number      int     `json:"number"`
	DueDate     string  `json:"due_date"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	PaymentDate *string `json:"payment_date,omitempty"`
	PaymentID   *string `json:"payment_id,omitempty"`
}

type PayInstallmentRequest struct {
	// PaymentDate defaults to today when omitted.
	PaymentDate string `json:"payment_date"`
}

type PaymentDTO struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id"`
	StudentName   string `json:"student_name,omitempty"`
	ConceptID     string `json:"concept_id"`
	ConceptName   string `json:"concept_name,omitempty"`
	Amount        string `json:"amount"`
	PaymentDate   string `json:"payment_date"`
	DueDate       string `json:"due_date"`
	Status        string `json:"status"`
	ReceiptNumber string `json:"receipt_number"`
}

type CreatePaymentRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	ConceptID   string `json:"concept_id" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	PaymentDate string `json:"payment_date"`
	DueDate     string `json:"due_date"`
}

type OverdueDTO struct {
	InstallmentID string `json:"installment_id"`
	PlanID        string `json:"plan_id"`
	StudentID     string `json:"student_id"`
	StudentName   string `json:"student_name,omitempty"`
	ConceptID     string `json:"concept_id"`
	Number        int    `json:"number"`
	DueDate       string `json:"due_date"`
	Amount        string `json:"amount"`
	DaysOverdue   int    `json:"days_overdue"`
}

// =============================================================================
// INVENTORY
// =============================================================================

type RequirementDTO struct {
	ID             string `json:"id"`
	ClassroomID    string `json:"classroom_id"`
	Material       string `json:"material"`
	QuantityNeeded int    `json:"quantity_needed"`
	Specifications string `json:"specifications,omitempty"`
}

type CreateRequirementRequest struct {
	ClassroomID    string `json:"classroom_id" validate:"required"`
	Material       string `json:"material" validate:"required"`
	QuantityNeeded int    `json:"quantity_needed" validate:"required,gt=0"`
	Specifications string `json:"specifications"`
}

type DeliveryDTO struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id"`
	RequirementID string `json:"requirement_id"`
	Quantity      int    `json:"quantity"`
	DeliveredOn   string `json:"delivered_on,omitempty"`
	Observations  string `json:"observations,omitempty"`
}

type CreateDeliveryRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	DeliveredOn  string `json:"delivered_on"`
	Observations string `json:"observations"`
}

type MaterialDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Stock       int    `json:"stock"`
	MinStock    int    `json:"min_stock"`
	Unit        string `json:"unit"`
	Location    string `json:"location,omitempty"`
	Supplier    string `json:"supplier,omitempty"`
	LowStock    bool   `json:"low_stock"`
}

type CreateMaterialRequest struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Description string `json:"description"`
	Stock       int    `json:"stock" validate:"gte=0"`
	MinStock    int    `json:"min_stock" validate:"gte=0"`
	Unit        string `json:"unit"`
	Location    string `json:"location"`
	Supplier    string `json:"supplier"`
}

type MovementDTO struct {
	ID          string `json:"id"`
	MaterialID  string `json:"material_id"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
	Observation string `json:"observation,omitempty"`
	Responsible string `json:"responsible,omitempty"`
	MovedOn     string `json:"moved_on"`
	StockAfter  int    `json:"stock_after,omitempty"`
}

type CreateMovementRequest struct {
	Type        string `json:"type" validate:"required,oneof=entry exit"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"required"`
	Observation string `json:"observation"`
	Responsible string `json:"responsible"`
	MovedOn     string `json:"moved_on"`
}

type AssetDTO struct {
	ID              string `json:"id"`
	PatrimonialCode string `json:"patrimonial_code,omitempty"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Description     string `json:"description,omitempty"`
	Brand           string `json:"brand,omitempty"`
	Model           string `json:"model,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty"`
	Condition       string `json:"condition"`
	Location        string `json:"location,omitempty"`
	ClassroomID     string `json:"classroom_id,omitempty"`
	AcquiredOn      string `json:"acquired_on,omitempty"`
	AcquisitionCost string `json:"acquisition_cost,omitempty"`
	Supplier        string `json:"supplier,omitempty"`
	Observations    string `json:"observations,omitempty"`
}

type CreateAssetRequest struct {
	PatrimonialCode string `json:"patrimonial_code"`
	Name            string `json:"name" validate:"required"`
	Category        string `json:"category" validate:"required"`
	Description     string `json:"description"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serial_number"`
	Condition       string `json:"condition"`
	Location        string `json:"location"`
	ClassroomID     string `json:"classroom_id"`
	AcquiredOn      string `json:"acquired_on"`
	AcquisitionCost string `json:"acquisition_cost"`
	Supplier        string `json:"supplier"`
	Observations    string `json:"observations"`
}

type MaintenanceDTO struct {
	ID          string `json:"id"`
	AssetID     string `json:"asset_id"`
	Type        string `json:"type"`
	PerformedOn string `json:"performed_on"`
	Description string `json:"description"`
	Cost        string `json:"cost,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Observation string `json:"observation,omitempty"`
}

type CreateMaintenanceRequest struct {
	Type        string `json:"type" validate:"required"`
	PerformedOn string `json:"performed_on" validate:"required"`
	Description string `json:"description" validate:"required"`
	Cost        string `json:"cost"`
	Provider    string `json:"provider"`
	Observation string `json:"observation"`
}

// =============================================================================
// REPORTS
// =============================================================================

type ConceptTotalDTO struct {
	ConceptID   string `json:"concept_id"`
	ConceptName string `json:"concept_name"`
	Payments    int    `json:"payments"`
	Total       string `json:"total"`
}

type PaymentReportDTO struct {
	TotalsByConcept     []ConceptTotalDTO `json:"totals_by_concept"`
	PaidInstallments    int               `json:"paid_installments"`
	PendingInstallments int               `json:"pending_installments"`
}

type DashboardDTO struct {
	ActiveStudents      int            `json:"active_students"`
	ActivePlans         int            `json:"active_plans"`
	CollectedThisMonth  string         `json:"collected_this_month"`
	OverdueInstallments int            `json:"overdue_installments"`
	LowStockMaterials   int            `json:"low_stock_materials"`
	Classrooms          []ClassroomDTO `json:"classrooms"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
