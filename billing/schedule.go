/*
schedule.go - Monthly due-date schedule generation

PURPOSE:
  Turns (monthly amount, installment count, start date) into a flat,
  deterministic schedule of due dates. No proration, no interest, no
  rounding adjustment on the final installment.

DUE-DATE RULE:
  Installment i (0-indexed) is anchored to the calendar month
  start.month + i, with year rollover, and falls due on the LAST calendar
  day of that anchor month - not on start's day-of-month. Installment 1's
  anchor is start's own month, so when the start date falls late in the
  month the first due date can precede the start date itself. That is the
  observed behavior of the system this replaces; it is pinned by tests and
  must not be "fixed" here without product sign-off.
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GenerateSchedule produces exactly count entries numbered 1..count with
// strictly increasing due dates and every amount equal to monthlyAmount.
// The output is fully deterministic for identical inputs.
func GenerateSchedule(monthlyAmount decimal.Decimal, count int, start Date) ([]ScheduleEntry, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: installment count must be positive, got %d", ErrInvalidInput, count)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}

	entries := make([]ScheduleEntry, count)
	for i := 0; i < count; i++ {
		entries[i] = ScheduleEntry{
			Number:  i + 1,
			DueDate: start.MonthStart(i).MonthEnd(),
			Amount:  monthlyAmount,
		}
	}
	return entries, nil
}
