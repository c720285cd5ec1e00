/*
store.go - Persistence interfaces for the billing engine

PURPOSE:
  Defines the interface between billing logic and the database. The engine
  never reaches through an object graph: every lookup and mutation is an
  explicit, named operation returning plain records.

KEY INTERFACES:
  Store:   Record persistence and query projections
  TxStore: Transactional wrapper (atomic multi-write operations)

TRANSACTION DISCIPLINE:
  One transaction per logical operation: plan + installments are created as
  a unit, and payment + installment update are committed as a unit. Any
  failure inside WithTx rolls back the whole operation.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - billing/store: In-memory store for testing
*/
package billing

import "context"

// Store handles persistence of billing records. Lookups return nil (no
// error) when the record does not exist; the service layer converts that
// into NotFound errors.
type Store interface {
	// GetConcept returns a concept by ID, or nil if absent.
	GetConcept(ctx context.Context, id ConceptID) (*Concept, error)

	// SavePlan inserts a plan record.
	SavePlan(ctx context.Context, p Plan) error

	// SaveInstallment inserts an installment linked to its plan.
	SaveInstallment(ctx context.Context, ins Installment) error

	// GetPlan returns a plan by ID, or nil if absent.
	GetPlan(ctx context.Context, id PlanID) (*Plan, error)

	// GetInstallment returns an installment by ID, or nil if absent.
	GetInstallment(ctx context.Context, id InstallmentID) (*Installment, error)

	// ListPlans returns all plans with paid-installment counts computed
	// at query time.
	ListPlans(ctx context.Context) ([]PlanSummary, error)

	// ListInstallments returns a plan's installments ordered by number.
	ListInstallments(ctx context.Context, planID PlanID) ([]Installment, error)

	// ListPendingBefore returns pending installments with a due date
	// strictly before the given date, across all plans.
	ListPendingBefore(ctx context.Context, before Date) ([]Installment, error)

	// SavePayment inserts a payment. A receipt-number collision violates
	// the store's UNIQUE constraint and is reported as a storage failure.
	SavePayment(ctx context.Context, p Payment) error

	// SettleInstallment marks a pending installment paid, stamping the
	// payment date and linking the payment. The update is conditional on
	// status = pending; if the row was already settled it returns
	// ErrAlreadySettled. This is the double-payment guard under
	// concurrency.
	SettleInstallment(ctx context.Context, id InstallmentID, paymentDate Date, paymentID PaymentID) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
