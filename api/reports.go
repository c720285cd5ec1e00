/*
reports.go - Dashboard and projection endpoints

ENDPOINTS:
  GET /api/reports/dashboard    Headline counts for the landing page
  GET /api/reports/payments     Totals by concept, paid vs pending installments
  GET /api/reports/overdue      Overdue installments (?as_of=YYYY-MM-DD)
  GET /api/reports/low-stock    Materials at or under their minimum

All report endpoints are read-only projections; nothing here mutates state.
The overdue report in particular never flips installment status.

SEE ALSO:
  - billing/service.go: Overdue projection semantics
*/
package api

import (
	"net/http"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/school"
)

// Dashboard returns the headline figures for the back-office landing page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activeStudents, err := h.School.CountStudentsByStatus(ctx, "active")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count students", err)
		return
	}
	activePlans, err := h.Billing.CountPlansByStatus(ctx, "active")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count plans", err)
		return
	}

	today := billing.Today()
	monthStart := today.MonthStart(0)
	monthEnd := today.MonthEnd()
	collected, err := h.Billing.SumPaymentsBetween(ctx, monthStart, monthEnd)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to total payments", err)
		return
	}

	overdue, err := h.Plans.Overdue(ctx, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute overdue installments", err)
		return
	}

	lowStock, err := h.Stock.LowStock(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list low-stock materials", err)
		return
	}

	classrooms, err := h.School.ListClassrooms(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list classrooms", err)
		return
	}
	classroomDTOs := make([]ClassroomDTO, len(classrooms))
	for i, c := range classrooms {
		classroomDTOs[i] = toClassroomDTO(c)
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		ActiveStudents:      activeStudents,
		ActivePlans:         activePlans,
		CollectedThisMonth:  collected,
		OverdueInstallments: len(overdue),
		LowStockMaterials:   len(lowStock),
		Classrooms:          classroomDTOs,
	})
}

// PaymentReport returns collection totals per concept and the settled vs
// pending installment split.
func (h *Handler) PaymentReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := h.Billing.TotalsByConcept(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to total payments by concept", err)
		return
	}
	paid, err := h.Billing.CountInstallmentsByStatus(ctx, billing.InstallmentPaid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count installments", err)
		return
	}
	pending, err := h.Billing.CountInstallmentsByStatus(ctx, billing.InstallmentPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count installments", err)
		return
	}

	dtos := make([]ConceptTotalDTO, len(totals))
	for i, t := range totals {
		dtos[i] = ConceptTotalDTO{
			ConceptID:   string(t.ConceptID),
			ConceptName: t.ConceptName,
			Payments:    t.Payments,
			Total:       t.Total,
		}
	}
	writeJSON(w, http.StatusOK, PaymentReportDTO{
		TotalsByConcept:     dtos,
		PaidInstallments:    paid,
		PendingInstallments: pending,
	})
}

// OverdueReport returns pending installments due before as_of (default today)
// with their calendar-day overdue counts and student names.
func (h *Handler) OverdueReport(w http.ResponseWriter, r *http.Request) {
	asOf := billing.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := billing.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
		asOf = d
	}

	overdue, err := h.Plans.Overdue(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute overdue installments", err)
		return
	}

	// Resolve student names once per student, not per installment.
	names := make(map[school.StudentID]string)
	dtos := make([]OverdueDTO, len(overdue))
	for i, o := range overdue {
		studentID := school.StudentID(o.StudentID)
		name, seen := names[studentID]
		if !seen && studentID != "" {
			st, err := h.School.GetStudent(r.Context(), studentID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to resolve student", err)
				return
			}
			if st != nil {
				name = st.LastName + ", " + st.FirstName
			}
			names[studentID] = name
		}
		dtos[i] = OverdueDTO{
			InstallmentID: string(o.Installment.ID),
			PlanID:        string(o.Installment.PlanID),
			StudentID:     string(o.StudentID),
			StudentName:   name,
			ConceptID:     string(o.ConceptID),
			Number:        o.Installment.Number,
			DueDate:       o.Installment.DueDate.String(),
			Amount:        o.Installment.Amount.String(),
			DaysOverdue:   o.DaysOverdue,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LowStockReport returns materials at or under their minimum stock.
func (h *Handler) LowStockReport(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Stock.LowStock(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list low-stock materials", err)
		return
	}

	dtos := make([]MaterialDTO, len(materials))
	for i, m := range materials {
		dtos[i] = toMaterialDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}
