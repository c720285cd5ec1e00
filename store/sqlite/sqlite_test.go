package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/inventory"
	"github.com/warp/school-office/school"
	"github.com/warp/school-office/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedConcept(t *testing.T, db *sqlite.DB) billing.Concept {
	t.Helper()
	c := billing.Concept{
		ID:        "tuition",
		Name:      "Monthly Tuition",
		Amount:    decimal.RequireFromString("150.00"),
		Frequency: "monthly",
		Status:    "active",
	}
	require.NoError(t, db.Billing().SaveConcept(context.Background(), c))
	return c
}

func seedStudent(t *testing.T, db *sqlite.DB, id, dni string) {
	t.Helper()
	require.NoError(t, db.School().SaveStudent(context.Background(), school.Student{
		ID:             school.StudentID(id),
		LastName:       "Quispe",
		FirstName:      "Ana",
		DNI:            dni,
		BirthDate:      billing.NewDate(2021, time.May, 10),
		Gender:         "F",
		Status:         "active",
		EnrollmentDate: time.Now().UTC(),
	}))
}

// =============================================================================
// BILLING STORE TESTS
// =============================================================================

func TestBillingStore_PlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedConcept(t, db)
	seedStudent(t, db, "student-1", "70000001")

	svc := billing.NewService(db.Billing(), nil)
	plan, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 3, billing.NewDate(2024, time.January, 15))
	require.NoError(t, err)

	got, err := db.Billing().GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("450.00")))
	assert.Equal(t, "2024-01-15", got.StartDate.String())

	stored, err := db.Billing().ListInstallments(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "2024-02-29", stored[1].DueDate.String())
	assert.Equal(t, installments[2].ID, stored[2].ID)
}

func TestBillingStore_CreatePlanAtomic(t *testing.T) {
	// A duplicate (plan_id, installment_number) violates the schema and must
	// roll the whole plan back.
	ctx := context.Background()
	db := newTestDB(t)
	seedConcept(t, db)
	seedStudent(t, db, "student-1", "70000001")

	err := db.Billing().WithTx(ctx, func(tx billing.Store) error {
		plan := billing.Plan{
			ID: "plan-1", StudentID: "student-1", ConceptID: "tuition",
			TotalAmount: decimal.RequireFromString("300.00"), Installments: 2,
			StartDate: billing.NewDate(2024, time.January, 1), Status: "active",
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.SavePlan(ctx, plan); err != nil {
			return err
		}
		ins := billing.Installment{
			ID: "ins-1", PlanID: "plan-1", Number: 1,
			DueDate: billing.NewDate(2024, time.January, 31),
			Amount:  decimal.RequireFromString("150.00"), Status: billing.InstallmentPending,
		}
		if err := tx.SaveInstallment(ctx, ins); err != nil {
			return err
		}
		ins.ID = "ins-2" // same number, same plan
		return tx.SaveInstallment(ctx, ins)
	})
	require.Error(t, err)

	got, err := db.Billing().GetPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Nil(t, got, "plan should have rolled back with its installments")
}

func TestBillingStore_SettleInstallmentOnlyOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedConcept(t, db)
	seedStudent(t, db, "student-1", "70000001")

	svc := billing.NewService(db.Billing(), nil)
	_, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 2, billing.NewDate(2024, time.January, 1))
	require.NoError(t, err)
	target := installments[0]

	first, err := svc.PayInstallment(ctx, target.ID, billing.NewDate(2024, time.February, 1))
	require.NoError(t, err)
	assert.Contains(t, first.ReceiptNumber, "REC-20240201-")

	_, err = svc.PayInstallment(ctx, target.ID, billing.NewDate(2024, time.February, 2))
	require.ErrorIs(t, err, billing.ErrAlreadySettled)

	var settled *billing.AlreadySettledError
	require.ErrorAs(t, err, &settled)
	assert.Equal(t, first.ID, settled.PaymentID)

	// Exactly one payment row exists.
	payments, err := db.Billing().ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestBillingStore_ConcurrentSettleSingleWinner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedConcept(t, db)
	seedStudent(t, db, "student-1", "70000001")

	svc := billing.NewService(db.Billing(), nil)
	_, installments, err := svc.CreatePlan(ctx, "student-1", "tuition", 2, billing.NewDate(2024, time.January, 1))
	require.NoError(t, err)
	target := installments[0]

	// Two goroutines race to settle the same installment.
	start := make(chan struct{})
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := svc.PayInstallment(ctx, target.ID, billing.NewDate(2024, time.February, 1))
			errs <- err
		}()
	}
	close(start)

	var succeeded, rejected int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			succeeded++
		case errors.Is(err, billing.ErrAlreadySettled):
			rejected++
		default:
			t.Fatalf("unexpected settle error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	// Exactly one payment row exists and the installment is settled.
	payments, err := db.Billing().ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	ins, err := db.Billing().GetInstallment(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InstallmentPaid, ins.Status)
}

func TestBillingStore_ReceiptNumberUnique(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedConcept(t, db)
	seedStudent(t, db, "student-1", "70000001")

	p := billing.Payment{
		ID: "pay-1", StudentID: "student-1", ConceptID: "tuition",
		Amount:        decimal.RequireFromString("150.00"),
		PaymentDate:   billing.NewDate(2024, time.February, 1),
		DueDate:       billing.NewDate(2024, time.January, 31),
		Status:        billing.PaymentSettled,
		ReceiptNumber: "REC-20240201-000001",
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Billing().SavePayment(ctx, p))

	p.ID = "pay-2"
	err := db.Billing().SavePayment(ctx, p)
	require.ErrorIs(t, err, billing.ErrStorageFailure)
}

func TestBillingStore_ListPendingBeforeIsStrict(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedConcept(t, db)
	seedStudent(t, db, "student-1", "70000001")

	svc := billing.NewService(db.Billing(), nil)
	_, _, err := svc.CreatePlan(ctx, "student-1", "tuition", 2, billing.NewDate(2024, time.January, 15))
	require.NoError(t, err)

	onDueDate, err := db.Billing().ListPendingBefore(ctx, billing.NewDate(2024, time.January, 31))
	require.NoError(t, err)
	assert.Empty(t, onDueDate)

	dayAfter, err := db.Billing().ListPendingBefore(ctx, billing.NewDate(2024, time.February, 1))
	require.NoError(t, err)
	assert.Len(t, dayAfter, 1)
}

// =============================================================================
// SCHOOL STORE TESTS
// =============================================================================

func TestSchoolStore_DuplicateDNI(t *testing.T) {
	db := newTestDB(t)
	seedStudent(t, db, "student-1", "70000001")

	err := db.School().SaveStudent(context.Background(), school.Student{
		ID: "student-2", LastName: "Mamani", FirstName: "Luis",
		DNI: "70000001", BirthDate: billing.NewDate(2020, time.March, 3),
		Gender: "M", Status: "active", EnrollmentDate: time.Now().UTC(),
	})
	require.ErrorIs(t, err, school.ErrDuplicateDNI)
}

func TestSchoolStore_StudentRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	st := school.Student{
		ID: "student-1", LastName: "Quispe", FirstName: "Ana",
		DNI: "70000001", BirthDate: billing.NewDate(2021, time.May, 10),
		Gender: "F", Nationality: "Peruvian",
		Father:  school.Guardian{Names: "Carlos Quispe", DNI: "40000001", Phone: "999111222"},
		Mother:  school.Guardian{Names: "Rosa Huaman", DNI: "40000002", Email: "rosa@example.com"},
		Emergency: school.EmergencyContact{Name: "Rosa Huaman", Relationship: "mother", Phone: "999111222"},
		Medical: school.MedicalInfo{
			BloodType: "O+", Height: 0.95, Weight: 14.5,
			Allergies: "peanuts", VaccinesUpToDate: true,
		},
		Status: "active", EnrollmentDate: time.Now().UTC(),
	}
	require.NoError(t, db.School().SaveStudent(ctx, st))

	got, err := db.School().GetStudent(ctx, "student-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Carlos Quispe", got.Father.Names)
	assert.Equal(t, "rosa@example.com", got.Mother.Email)
	assert.Equal(t, "peanuts", got.Medical.Allergies)
	assert.True(t, got.Medical.VaccinesUpToDate)
	assert.Equal(t, "2021-05-10", got.BirthDate.String())
}

func TestSchoolStore_EnrollmentTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedStudent(t, db, "student-1", "70000001")
	require.NoError(t, db.School().SaveClassroom(ctx, school.Classroom{
		ID: "room-a", Name: "3 years A", AgeRange: "3", Capacity: 1, Status: "active",
	}))

	svc := school.NewService(db.School())
	_, err := svc.Enroll(ctx, "student-1", "room-a")
	require.NoError(t, err)

	room, err := db.School().GetClassroom(ctx, "room-a")
	require.NoError(t, err)
	assert.Equal(t, 1, room.CurrentStudents)

	seedStudent(t, db, "student-2", "70000002")
	_, err = svc.Enroll(ctx, "student-2", "room-a")
	require.ErrorIs(t, err, school.ErrClassroomFull)

	enrollments, err := db.School().ListEnrollments(ctx, "room-a")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

// =============================================================================
// INVENTORY STORE TESTS
// =============================================================================

func TestInventoryStore_MovementTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Inventory().SaveMaterial(ctx, inventory.Material{
		ID: "paper", Name: "Bond paper", Category: "office",
		Stock: 100, MinStock: 20, Unit: "sheets", CreatedAt: time.Now().UTC(),
	}))

	svc := inventory.NewService(db.Inventory())
	after, err := svc.RegisterMovement(ctx, inventory.Movement{
		MaterialID: "paper", Type: inventory.MovementExit, Quantity: 90,
		Reason: "classroom use", MovedOn: billing.Today(),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, after)

	// Below minimum now.
	low, err := db.Inventory().ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, inventory.MaterialID("paper"), low[0].ID)

	// Over-draining fails and leaves stock untouched.
	_, err = svc.RegisterMovement(ctx, inventory.Movement{
		MaterialID: "paper", Type: inventory.MovementExit, Quantity: 11,
		Reason: "classroom use", MovedOn: billing.Today(),
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	m, err := db.Inventory().GetMaterial(ctx, "paper")
	require.NoError(t, err)
	assert.Equal(t, 10, m.Stock)

	movements, err := db.Inventory().ListMovements(ctx, "paper")
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestInventoryStore_AssetRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	a := inventory.Asset{
		ID: "asset-1", PatrimonialCode: "PAT-0001", Name: "Projector",
		Category: "electronics", Condition: "good",
		AcquiredOn:      billing.NewDate(2023, time.March, 15),
		AcquisitionCost: decimal.RequireFromString("1200.00"),
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, db.Inventory().SaveAsset(ctx, a))

	got, err := db.Inventory().GetAsset(ctx, "asset-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PAT-0001", got.PatrimonialCode)
	assert.True(t, got.AcquisitionCost.Equal(decimal.RequireFromString("1200.00")))

	// Patrimonial codes are unique.
	a.ID = "asset-2"
	require.Error(t, db.Inventory().SaveAsset(ctx, a))

	require.NoError(t, db.Inventory().SaveMaintenance(ctx, inventory.Maintenance{
		ID: "mnt-1", AssetID: "asset-1", Type: "preventive",
		PerformedOn: billing.NewDate(2024, time.June, 1),
		Description: "lamp replacement",
		Cost:        decimal.RequireFromString("80.00"),
		CreatedAt:   time.Now().UTC(),
	}))
	records, err := db.Inventory().ListMaintenance(ctx, "asset-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "lamp replacement", records[0].Description)
}

// =============================================================================
// USER STORE TESTS
// =============================================================================

func TestUserStore_EnsureAdminIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Users().EnsureAdmin(ctx, "admin", "hash-1"))
	require.NoError(t, db.Users().EnsureAdmin(ctx, "admin", "hash-2"))

	user, err := db.Users().GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "hash-1", user.PasswordHash, "second EnsureAdmin must not overwrite")
	assert.True(t, user.IsActive)
}
