/*
billing_handlers.go - Concepts, plans, installments, payments

ENDPOINTS:
  GET    /api/concepts                        List charge concepts
  POST   /api/concepts                        Create charge concept
  GET    /api/plans                           List plans with paid counts
  POST   /api/plans                           Create plan + installment schedule
  GET    /api/plans/{id}/installments         List a plan's installments
  POST   /api/installments/{id}/pay           Settle one installment
  GET    /api/payments                        Receipt ledger with names
  POST   /api/payments                        Record a standalone payment

SEE ALSO:
  - billing/service.go: The operations these endpoints expose
  - handlers.go: Handler struct and helpers
*/
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/school-office/billing"
)

// =============================================================================
// CONCEPT HANDLERS
// =============================================================================

// ListConcepts returns all charge concepts.
func (h *Handler) ListConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.Billing.ListConcepts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list concepts", err)
		return
	}

	dtos := make([]ConceptDTO, len(concepts))
	for i, c := range concepts {
		dtos[i] = toConceptDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateConcept creates a charge concept. Editing a concept later never
// rewrites existing plans; their amounts were frozen at creation.
func (h *Handler) CreateConcept(w http.ResponseWriter, r *http.Request) {
	var req CreateConceptRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	c := billing.Concept{
		ID:          billing.ConceptID(uuid.NewString()),
		Name:        req.Name,
		Description: req.Description,
		Amount:      amount,
		Frequency:   req.Frequency,
		Status:      "active",
	}
	if err := h.Billing.SaveConcept(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create concept", err)
		return
	}

	writeJSON(w, http.StatusCreated, toConceptDTO(c))
}

func toConceptDTO(c billing.Concept) ConceptDTO {
	return ConceptDTO{
		ID:          string(c.ID),
		Name:        c.Name,
		Description: c.Description,
		Amount:      c.Amount.String(),
		Frequency:   c.Frequency,
		Status:      c.Status,
	}
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// ListPlans returns all plans with their paid-installment counts.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Plans.Plans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toPlanDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePlan creates a plan and its full installment schedule atomically.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}

	plan, installments, err := h.Plans.CreatePlan(r.Context(),
		billing.StudentID(req.StudentID), billing.ConceptID(req.ConceptID),
		req.Installments, start)
	if err != nil {
		writeBillingError(w, "Failed to create plan", err)
		return
	}

	resp := struct {
		Plan         PlanDTO          `json:"plan"`
		Installments []InstallmentDTO `json:"installments"`
	}{
		Plan: toPlanDTO(billing.PlanSummary{Plan: *plan}),
	}
	resp.Installments = make([]InstallmentDTO, len(installments))
	for i, ins := range installments {
		resp.Installments[i] = toInstallmentDTO(ins)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListPlanInstallments returns a plan's installments ordered by number.
func (h *Handler) ListPlanInstallments(w http.ResponseWriter, r *http.Request) {
	planID := billing.PlanID(chi.URLParam(r, "id"))
	installments, err := h.Plans.PlanInstallments(r.Context(), planID)
	if err != nil {
		writeBillingError(w, "Failed to list installments", err)
		return
	}

	dtos := make([]InstallmentDTO, len(installments))
	for i, ins := range installments {
		dtos[i] = toInstallmentDTO(ins)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PayInstallment settles one pending installment and returns the receipt.
func (h *Handler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	id := billing.InstallmentID(chi.URLParam(r, "id"))

	var req PayInstallmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	paymentDate := billing.Today()
	if req.PaymentDate != "" {
		d, err := billing.ParseDate(req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment_date format (use YYYY-MM-DD)", err)
			return
		}
		paymentDate = d
	}

	payment, err := h.Plans.PayInstallment(r.Context(), id, paymentDate)
	if err != nil {
		writeBillingError(w, "Failed to pay installment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// ListPayments returns the general receipt ledger with student and concept
// names, most recent first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	details, err := h.Billing.ListPaymentDetails(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(details))
	for i, d := range details {
		dto := toPaymentDTO(d.Payment)
		dto.StudentName = d.StudentName
		dto.ConceptName = d.ConceptName
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayment records a standalone payment outside any plan.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	paymentDate := billing.Today()
	if req.PaymentDate != "" {
		d, err := billing.ParseDate(req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment_date format (use YYYY-MM-DD)", err)
			return
		}
		paymentDate = d
	}
	var dueDate billing.Date
	if req.DueDate != "" {
		d, err := billing.ParseDate(req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid due_date format (use YYYY-MM-DD)", err)
			return
		}
		dueDate = d
	}

	payment, err := h.Plans.RecordPayment(r.Context(),
		billing.StudentID(req.StudentID), billing.ConceptID(req.ConceptID),
		amount, paymentDate, dueDate)
	if err != nil {
		writeBillingError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// =============================================================================
// DTO MAPPING + ERROR TRANSLATION
// =============================================================================

func toPlanDTO(s billing.PlanSummary) PlanDTO {
	return PlanDTO{
		ID:               string(s.Plan.ID),
		StudentID:        string(s.Plan.StudentID),
		ConceptID:        string(s.Plan.ConceptID),
		TotalAmount:      s.Plan.TotalAmount.String(),
		Installments:     s.Plan.Installments,
		PaidInstallments: s.PaidInstallments,
		StartDate:        s.Plan.StartDate.String(),
		Status:           s.Plan.Status,
		CreatedAt:        s.Plan.CreatedAt.Format(time.RFC3339),
	}
}

func toInstallmentDTO(ins billing.Installment) InstallmentDTO {
	dto := InstallmentDTO{
		ID:      string(ins.ID),
		PlanID:  string(ins.PlanID),
		Number:  ins.Number,
		DueDate: ins.DueDate.String(),
		Amount:  ins.Amount.String(),
		Status:  string(ins.Status),
	}
	if ins.PaymentDate != nil {
		dto.PaymentDate = strPtr(ins.PaymentDate.String())
	}
	if ins.PaymentID != nil {
		dto.PaymentID = strPtr(string(*ins.PaymentID))
	}
	return dto
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            string(p.ID),
		StudentID:     string(p.StudentID),
		ConceptID:     string(p.ConceptID),
		Amount:        p.Amount.String(),
		PaymentDate:   p.PaymentDate.String(),
		DueDate:       p.DueDate.String(),
		Status:        p.Status,
		ReceiptNumber: p.ReceiptNumber,
	}
}

// writeBillingError maps the engine's error kinds to HTTP statuses.
func writeBillingError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, billing.ErrAlreadySettled):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, billing.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func strPtr(s string) *string {
	return &s
}
