/*
Package billing provides the tuition billing engine.

PURPOSE:
  This package contains the types and operations for installment payment
  plans: deterministic monthly schedule generation, atomic plan creation,
  and reconciliation of a payment against exactly one installment.

KEY CONCEPTS IN THIS FILE (types.go):
  - Concept: A named recurring charge with a fixed monthly amount
  - Plan: A student's commitment to pay a concept in N monthly installments
  - Installment: One scheduled, dated, amount-bearing obligation in a plan
  - Payment: A uniquely numbered receipt record in the general ledger

DESIGN PRINCIPLES:
  1. Frozen snapshots: plan and installment amounts are copied from the
     concept at creation time and never recomputed
  2. Precision: decimal.Decimal for all currency values
  3. One-way status: installments go pending -> paid exactly once
  4. Type Safety: distinct ID types prevent mixing identifiers

SEE ALSO:
  - schedule.go: Due-date schedule generation
  - service.go: Plan creation and installment reconciliation
  - store.go: Persistence interfaces
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ConceptID string
type StudentID string
type PlanID string
type InstallmentID string
type PaymentID string

// =============================================================================
// CONCEPT - Named recurring charge
// =============================================================================

// Concept is a recurring charge definition. The frequency label is
// informational only; schedules are always monthly.
type Concept struct {
	ID          ConceptID
	Name        string
	Description string
	Amount      decimal.Decimal
	Frequency   string
	Status      string
}

// =============================================================================
// PLAN + INSTALLMENTS
// =============================================================================

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
)

// Plan links one student to one concept. TotalAmount is computed once at
// creation (concept amount x installment count) and never recomputed, even
// if the concept's amount later changes.
type Plan struct {
	ID           PlanID
	StudentID    StudentID
	ConceptID    ConceptID
	TotalAmount  decimal.Decimal
	Installments int
	StartDate    Date
	Status       string
	CreatedAt    time.Time
}

// Installment is one obligation within a plan. Numbers are 1-based and
// contiguous within the plan. PaymentDate and PaymentID are set only when
// the installment is settled.
type Installment struct {
	ID          InstallmentID
	PlanID      PlanID
	Number      int
	DueDate     Date
	Amount      decimal.Decimal
	Status      InstallmentStatus
	PaymentDate *Date
	PaymentID   *PaymentID
}

// ScheduleEntry is one row of a generated due-date schedule, before any
// installment record exists.
type ScheduleEntry struct {
	Number  int
	DueDate Date
	Amount  decimal.Decimal
}

// =============================================================================
// PAYMENT - General receipt record
// =============================================================================

const PaymentSettled = "paid"

// Payment is a receipt record in the general payments ledger. Plan-originated
// and standalone payments share this shape; reporting consumers do not
// distinguish them.
type Payment struct {
	ID            PaymentID
	StudentID     StudentID
	ConceptID     ConceptID
	Amount        decimal.Decimal
	PaymentDate   Date
	DueDate       Date
	Status        string
	ReceiptNumber string
	CreatedAt     time.Time
}

// =============================================================================
// QUERY PROJECTIONS - Computed at read time, never stored
// =============================================================================

// PlanSummary is a plan with its paid-installment count.
type PlanSummary struct {
	Plan             Plan
	PaidInstallments int
}

// OverdueInstallment is a pending installment whose due date lies strictly
// before the as-of date of the query.
type OverdueInstallment struct {
	Installment Installment
	StudentID   StudentID
	ConceptID   ConceptID
	DaysOverdue int
}
