/*
receipt.go - Receipt number allocation

PURPOSE:
  Produces the globally unique receipt identifier stamped on every payment.

FORMAT:
  REC-YYYYMMDD-NNNNNN, where NNNNNN is a random six-digit suffix.

UNIQUENESS:
  The allocator does NOT check generated numbers against existing receipts.
  Collision probability is low but non-zero; the store's UNIQUE constraint
  on receipt_number is the only enforcement, and a collision surfaces to
  the caller as a storage failure. This mirrors the system being replaced.
  Sequence-based allocation would be stronger but changes intent.
*/
package billing

import (
	"fmt"
	"math/rand"
)

// ReceiptAllocator produces receipt identifiers. The engine calls it once
// per successful payment and assumes, without enforcing, global uniqueness.
type ReceiptAllocator interface {
	Allocate(on Date) string
}

type randomReceipts struct{}

// NewReceiptAllocator returns the default date-plus-random-suffix allocator.
func NewReceiptAllocator() ReceiptAllocator {
	return randomReceipts{}
}

func (randomReceipts) Allocate(on Date) string {
	return fmt.Sprintf("REC-%s-%06d", on.Time.Format("20060102"), rand.Intn(1000000))
}
