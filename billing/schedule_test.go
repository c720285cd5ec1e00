package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/school-office/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) billing.Date {
	return billing.NewDate(y, m, d)
}

func amount(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// =============================================================================
// SCHEDULE GENERATION TESTS
// =============================================================================

func TestGenerateSchedule_MidMonthStart_MonthEndDueDates(t *testing.T) {
	// GIVEN: 100.00/month over 3 installments starting 2024-01-15
	// WHEN: Generating the schedule
	// THEN: Due dates land on the last day of Jan, Feb (leap), Mar 2024

	schedule, err := billing.GenerateSchedule(amount("100.00"), 3, date(2024, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDue := []billing.Date{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
	}
	if len(schedule) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(schedule))
	}
	for i, entry := range schedule {
		if entry.Number != i+1 {
			t.Errorf("entry %d: expected number %d, got %d", i, i+1, entry.Number)
		}
		if !entry.DueDate.Equal(wantDue[i]) {
			t.Errorf("entry %d: expected due date %s, got %s", i, wantDue[i], entry.DueDate)
		}
		if !entry.Amount.Equal(amount("100.00")) {
			t.Errorf("entry %d: expected amount 100.00, got %s", i, entry.Amount)
		}
	}
}

func TestGenerateSchedule_NumbersContiguousAndDatesIncreasing(t *testing.T) {
	schedule, err := billing.GenerateSchedule(amount("250.50"), 12, date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(schedule) != 12 {
		t.Fatalf("expected 12 entries, got %d", len(schedule))
	}
	for i, entry := range schedule {
		if entry.Number != i+1 {
			t.Errorf("expected numbers 1..12 in order, entry %d has number %d", i, entry.Number)
		}
		if i > 0 && !schedule[i-1].DueDate.Before(entry.DueDate) {
			t.Errorf("due dates not strictly increasing at entry %d: %s then %s",
				i, schedule[i-1].DueDate, entry.DueDate)
		}
	}

	total := decimal.Zero
	for _, entry := range schedule {
		total = total.Add(entry.Amount)
	}
	if !total.Equal(amount("3006.00")) {
		t.Errorf("expected schedule total 3006.00, got %s", total)
	}
}

func TestGenerateSchedule_YearRollover(t *testing.T) {
	// Starting in November, the third installment crosses into January.
	schedule, err := billing.GenerateSchedule(amount("80"), 3, date(2024, time.November, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDue := []billing.Date{
		date(2024, time.November, 30),
		date(2024, time.December, 31),
		date(2025, time.January, 31),
	}
	for i, entry := range schedule {
		if !entry.DueDate.Equal(wantDue[i]) {
			t.Errorf("entry %d: expected due date %s, got %s", i, wantDue[i], entry.DueDate)
		}
	}
}

func TestGenerateSchedule_Deterministic(t *testing.T) {
	first, err := billing.GenerateSchedule(amount("100"), 6, date(2024, time.June, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := billing.GenerateSchedule(amount("100"), 6, date(2024, time.June, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first {
		if !first[i].Amount.Equal(second[i].Amount) || first[i].Number != second[i].Number ||
			!first[i].DueDate.Equal(second[i].DueDate) {
			t.Errorf("entry %d differs between identical calls", i)
		}
	}
}

func TestGenerateSchedule_InvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		count int
		start billing.Date
	}{
		{"zero count", 0, date(2024, time.January, 1)},
		{"negative count", -3, date(2024, time.January, 1)},
		{"zero start date", 5, billing.Date{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := billing.GenerateSchedule(amount("100"), tc.count, tc.start)
			if !billing.IsClientError(err) {
				t.Errorf("expected invalid-input client error, got %v", err)
			}
		})
	}
}
