package billing_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/billing/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestService(t *testing.T) (*billing.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	if err := mem.SaveConcept(context.Background(), billing.Concept{
		ID:        "tuition",
		Name:      "Monthly Tuition",
		Amount:    amount("100.00"),
		Frequency: "monthly",
		Status:    "active",
	}); err != nil {
		t.Fatalf("seeding concept: %v", err)
	}
	return billing.NewService(mem, nil), mem
}

// =============================================================================
// PLAN CREATION TESTS
// =============================================================================

func TestCreatePlan_BuildsFullSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	plan, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 3, date(2024, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !plan.TotalAmount.Equal(amount("300.00")) {
		t.Errorf("expected total 300.00, got %s", plan.TotalAmount)
	}
	if plan.Status != "active" {
		t.Errorf("expected active plan, got %q", plan.Status)
	}
	if len(installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(installments))
	}
	for i, ins := range installments {
		if ins.PlanID != plan.ID {
			t.Errorf("installment %d not linked to plan", i)
		}
		if ins.Status != billing.InstallmentPending {
			t.Errorf("installment %d: expected pending, got %q", i, ins.Status)
		}
	}
	if !installments[1].DueDate.Equal(date(2024, time.February, 29)) {
		t.Errorf("expected second due date 2024-02-29, got %s", installments[1].DueDate)
	}
}

func TestCreatePlan_UnknownConcept(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, _, err := svc.CreatePlan(ctx, "student-1", "no-such-concept", 3, date(2024, time.January, 1))
	if !billing.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCreatePlan_AtomicOnInstallmentFailure(t *testing.T) {
	// GIVEN: A store that fails on the second installment insert
	// WHEN: Creating a 3-installment plan
	// THEN: Neither the plan nor any installment is visible afterwards

	ctx := context.Background()
	svc, mem := newTestService(t)

	mem.FailAfterSaves(2) // plan insert + first installment succeed, then fail

	_, _, err := svc.CreatePlan(ctx, "student-1", "tuition", 3, date(2024, time.January, 1))
	if !errors.Is(err, billing.ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	summaries, err := mem.ListPlans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no plans after rollback, found %d", len(summaries))
	}
}

// =============================================================================
// INSTALLMENT SETTLEMENT TESTS
// =============================================================================

func TestPayInstallment_CreatesLinkedPayment(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	_, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 3, date(2024, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := installments[0]
	payDate := date(2024, time.February, 2)
	payment, err := svc.PayInstallment(ctx, target.ID, payDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.StudentID != "student-1" || payment.ConceptID != "tuition" {
		t.Errorf("payment not carrying plan identity: %+v", payment)
	}
	if !payment.Amount.Equal(target.Amount) {
		t.Errorf("expected payment amount %s, got %s", target.Amount, payment.Amount)
	}
	if !payment.DueDate.Equal(target.DueDate) {
		t.Errorf("expected payment to keep original due date %s, got %s", target.DueDate, payment.DueDate)
	}
	if !strings.HasPrefix(payment.ReceiptNumber, "REC-20240202-") {
		t.Errorf("unexpected receipt number %q", payment.ReceiptNumber)
	}

	settled, err := mem.GetInstallment(ctx, target.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settled.Status != billing.InstallmentPaid {
		t.Errorf("expected paid installment, got %q", settled.Status)
	}
	if settled.PaymentID == nil || *settled.PaymentID != payment.ID {
		t.Error("installment not linked to its payment")
	}
	if settled.PaymentDate == nil || !settled.PaymentDate.Equal(payDate) {
		t.Error("installment missing payment date")
	}
}

func TestPayInstallment_SecondAttemptRejected(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	_, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 2, date(2024, time.January, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target := installments[0]

	first, err := svc.PayInstallment(ctx, target.ID, date(2024, time.February, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.PayInstallment(ctx, target.ID, date(2024, time.February, 5))
	if !errors.Is(err, billing.ErrAlreadySettled) {
		t.Fatalf("expected already-settled error, got %v", err)
	}
	var settled *billing.AlreadySettledError
	if !errors.As(err, &settled) || settled.PaymentID != first.ID {
		t.Errorf("expected error to reference the existing payment %s", first.ID)
	}

	// Exactly one payment exists for the installment.
	if got := mem.CountPayments(); got != 1 {
		t.Errorf("expected 1 payment, found %d", got)
	}
}

func TestPayInstallment_UnknownInstallment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.PayInstallment(ctx, "missing", date(2024, time.February, 1))
	if !billing.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

// =============================================================================
// STANDALONE PAYMENT TESTS
// =============================================================================

func TestRecordPayment_CreatesSettledReceipt(t *testing.T) {
	// GIVEN: A known concept and no prior payments
	ctx := context.Background()
	svc, mem := newTestService(t)

	// WHEN: A walk-in payment is recorded with no explicit due date
	paid := date(2024, time.February, 2)
	p, err := svc.RecordPayment(ctx, "student-1", "tuition", amount("75.00"), paid, billing.Date{})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	// THEN: It is settled, numbered, and the due date defaults to the payment date
	if p.Status != billing.PaymentSettled {
		t.Fatalf("expected settled status, got %s", p.Status)
	}
	if !strings.HasPrefix(string(p.ReceiptNumber), "REC-20240202-") {
		t.Fatalf("unexpected receipt number %s", p.ReceiptNumber)
	}
	if !p.DueDate.Equal(paid) {
		t.Fatalf("expected due date %s, got %s", paid, p.DueDate)
	}
	if mem.CountPayments() != 1 {
		t.Fatalf("expected 1 stored payment, got %d", mem.CountPayments())
	}
}

func TestRecordPayment_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	// Non-positive amounts and missing payment dates never reach the store.
	if _, err := svc.RecordPayment(ctx, "student-1", "tuition", amount("0"), date(2024, time.March, 1), billing.Date{}); !errors.Is(err, billing.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error for zero amount, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "student-1", "tuition", amount("50.00"), billing.Date{}, billing.Date{}); !errors.Is(err, billing.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error for zero date, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "student-1", "missing", amount("50.00"), date(2024, time.March, 1), billing.Date{}); !billing.IsNotFound(err) {
		t.Fatalf("expected not-found error for unknown concept, got %v", err)
	}
	if mem.CountPayments() != 0 {
		t.Fatalf("expected no stored payments, got %d", mem.CountPayments())
	}
}

// =============================================================================
// OVERDUE PROJECTION TESTS
// =============================================================================

func TestOverdue_CountsCalendarDays(t *testing.T) {
	// GIVEN: An installment due 2024-01-31, still pending
	// WHEN: Projecting overdue as of 2024-03-01
	// THEN: It reports 30 days overdue and stays pending

	ctx := context.Background()
	svc, mem := newTestService(t)

	_, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 2, date(2024, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	overdue, err := svc.Overdue(ctx, date(2024, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 2 {
		t.Fatalf("expected 2 overdue installments, got %d", len(overdue))
	}
	if overdue[0].DaysOverdue != 30 {
		t.Errorf("expected 30 days overdue for the January installment, got %d", overdue[0].DaysOverdue)
	}
	if overdue[0].StudentID != "student-1" || overdue[0].ConceptID != "tuition" {
		t.Errorf("overdue entry missing plan identity: %+v", overdue[0])
	}

	// Projection is read-only.
	still, err := mem.GetInstallment(ctx, installments[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if still.Status != billing.InstallmentPending {
		t.Errorf("overdue projection mutated installment status to %q", still.Status)
	}
}

func TestOverdue_ExcludesDueTodayAndPaid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 2, date(2024, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Due today is not overdue: the comparison is strict.
	overdue, err := svc.Overdue(ctx, date(2024, time.January, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 0 {
		t.Errorf("expected nothing overdue on the due date itself, got %d", len(overdue))
	}

	// A paid installment never shows up, however late it was paid.
	if _, err := svc.PayInstallment(ctx, installments[0].ID, date(2024, time.June, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	overdue, err = svc.Overdue(ctx, date(2024, time.July, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, o := range overdue {
		if o.Installment.ID == installments[0].ID {
			t.Error("paid installment reported as overdue")
		}
	}
}

// =============================================================================
// PLAN PROJECTION TESTS
// =============================================================================

func TestPlans_ReportsPaidCounts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 3, date(2024, time.January, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.PayInstallment(ctx, installments[0].ID, date(2024, time.January, 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaries, err := svc.Plans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(summaries))
	}
	if summaries[0].PaidInstallments != 1 {
		t.Errorf("expected 1 paid installment, got %d", summaries[0].PaidInstallments)
	}
}

func TestPlanInstallments_UnknownPlan(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.PlanInstallments(ctx, "missing")
	if !billing.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
