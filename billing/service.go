/*
service.go - Plan creation and installment reconciliation

PURPOSE:
  The two mutating operations of the billing engine, each a single atomic
  unit against the store, plus the read-only projections used by reporting.

OPERATIONS:
  CreatePlan:     concept lookup -> schedule -> plan + installments, atomic
  PayInstallment: guard -> payment insert -> conditional settle, atomic
  Plans / PlanInstallments / Overdue: read-only projections

CONCURRENCY:
  Each operation runs to completion within one request; there are no
  background tasks. Two concurrent PayInstallment calls on the same
  installment cannot both succeed: the settle is a conditional write on
  status = pending inside the same transaction as the payment insert.
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes the billing engine over a transactional store.
type Service struct {
	store    TxStore
	receipts ReceiptAllocator
	now      func() time.Time
}

// NewService creates a billing service. A nil allocator selects the default
// random allocator.
func NewService(store TxStore, receipts ReceiptAllocator) *Service {
	if receipts == nil {
		receipts = NewReceiptAllocator()
	}
	return &Service{store: store, receipts: receipts, now: time.Now}
}

// =============================================================================
// PLAN CREATION
// =============================================================================

// CreatePlan creates a plan and its full installment set in one transaction.
// No partial plan is ever visible: if any installment insert fails, the
// plan insert is rolled back too.
//
// The installment count is accepted as given; there is no upper cap and no
// check that the start date is in the future.
func (s *Service) CreatePlan(ctx context.Context, studentID StudentID, conceptID ConceptID, count int, start Date) (*Plan, []Installment, error) {
	concept, err := s.store.GetConcept(ctx, conceptID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: looking up concept: %v", ErrStorageFailure, err)
	}
	if concept == nil {
		return nil, nil, &NotFoundError{Kind: "concept", ID: string(conceptID)}
	}

	schedule, err := GenerateSchedule(concept.Amount, count, start)
	if err != nil {
		return nil, nil, err
	}

	plan := Plan{
		ID:           PlanID(uuid.NewString()),
		StudentID:    studentID,
		ConceptID:    conceptID,
		TotalAmount:  concept.Amount.Mul(decimal.NewFromInt(int64(count))),
		Installments: count,
		StartDate:    start,
		Status:       "active",
		CreatedAt:    s.now().UTC(),
	}

	installments := make([]Installment, len(schedule))
	for i, entry := range schedule {
		installments[i] = Installment{
			ID:      InstallmentID(uuid.NewString()),
			PlanID:  plan.ID,
			Number:  entry.Number,
			DueDate: entry.DueDate,
			Amount:  entry.Amount,
			Status:  InstallmentPending,
		}
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SavePlan(ctx, plan); err != nil {
			return err
		}
		for _, ins := range installments {
			if err := tx.SaveInstallment(ctx, ins); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: creating plan: %v", ErrStorageFailure, err)
	}

	return &plan, installments, nil
}

// =============================================================================
// INSTALLMENT RECONCILIATION
// =============================================================================

// PayInstallment settles one pending installment: it creates exactly one
// Payment carrying the installment's amount, the plan's student and concept,
// the given payment date and the installment's original due date, then marks
// the installment paid and links the two. Either both writes commit or
// neither does.
func (s *Service) PayInstallment(ctx context.Context, id InstallmentID, paymentDate Date) (*Payment, error) {
	var payment *Payment

	err := s.store.WithTx(ctx, func(tx Store) error {
		ins, err := tx.GetInstallment(ctx, id)
		if err != nil {
			return err
		}
		if ins == nil {
			return &NotFoundError{Kind: "installment", ID: string(id)}
		}
		if ins.Status == InstallmentPaid {
			settled := &AlreadySettledError{InstallmentID: id}
			if ins.PaymentID != nil {
				settled.PaymentID = *ins.PaymentID
			}
			return settled
		}

		plan, err := tx.GetPlan(ctx, ins.PlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return &NotFoundError{Kind: "plan", ID: string(ins.PlanID)}
		}

		p := Payment{
			ID:            PaymentID(uuid.NewString()),
			StudentID:     plan.StudentID,
			ConceptID:     plan.ConceptID,
			Amount:        ins.Amount,
			PaymentDate:   paymentDate,
			DueDate:       ins.DueDate,
			Status:        PaymentSettled,
			ReceiptNumber: s.receipts.Allocate(paymentDate),
			CreatedAt:     s.now().UTC(),
		}
		if err := tx.SavePayment(ctx, p); err != nil {
			return err
		}
		if err := tx.SettleInstallment(ctx, id, paymentDate, p.ID); err != nil {
			return err
		}

		payment = &p
		return nil
	})
	if err != nil {
		if IsClientError(err) || IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: paying installment: %v", ErrStorageFailure, err)
	}

	return payment, nil
}

// RecordPayment registers a standalone payment outside any plan: a direct
// charge settled at the counter. The receipt number is allocated the same
// way as for installment payments.
func (s *Service) RecordPayment(ctx context.Context, studentID StudentID, conceptID ConceptID, amount decimal.Decimal, paymentDate, dueDate Date) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, amount)
	}
	if paymentDate.IsZero() {
		return nil, fmt.Errorf("%w: payment date is required", ErrInvalidInput)
	}

	concept, err := s.store.GetConcept(ctx, conceptID)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up concept: %v", ErrStorageFailure, err)
	}
	if concept == nil {
		return nil, &NotFoundError{Kind: "concept", ID: string(conceptID)}
	}

	if dueDate.IsZero() {
		dueDate = paymentDate
	}
	p := Payment{
		ID:            PaymentID(uuid.NewString()),
		StudentID:     studentID,
		ConceptID:     conceptID,
		Amount:        amount,
		PaymentDate:   paymentDate,
		DueDate:       dueDate,
		Status:        PaymentSettled,
		ReceiptNumber: s.receipts.Allocate(paymentDate),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.SavePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: recording payment: %v", ErrStorageFailure, err)
	}
	return &p, nil
}

// =============================================================================
// QUERY PROJECTIONS
// =============================================================================

// Plans returns all plans with their paid-installment counts.
func (s *Service) Plans(ctx context.Context) ([]PlanSummary, error) {
	return s.store.ListPlans(ctx)
}

// PlanInstallments returns a plan's installments ordered by number.
// Fails with NotFound if the plan does not exist.
func (s *Service) PlanInstallments(ctx context.Context, planID PlanID) ([]Installment, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, &NotFoundError{Kind: "plan", ID: string(planID)}
	}
	return s.store.ListInstallments(ctx, planID)
}

// Overdue reports pending installments due strictly before asOf, with the
// calendar-day overdue count for each. Read-only: overdue installments stay
// pending until explicitly paid, and no late fee is applied.
func (s *Service) Overdue(ctx context.Context, asOf Date) ([]OverdueInstallment, error) {
	pending, err := s.store.ListPendingBefore(ctx, asOf)
	if err != nil {
		return nil, err
	}

	overdue := make([]OverdueInstallment, 0, len(pending))
	for _, ins := range pending {
		plan, err := s.store.GetPlan(ctx, ins.PlanID)
		if err != nil {
			return nil, err
		}
		item := OverdueInstallment{
			Installment: ins,
			DaysOverdue: DaysBetween(ins.DueDate, asOf),
		}
		if plan != nil {
			item.StudentID = plan.StudentID
			item.ConceptID = plan.ConceptID
		}
		overdue = append(overdue, item)
	}
	return overdue, nil
}
