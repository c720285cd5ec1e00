// Package store provides billing.Store implementations.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/warp/school-office/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements billing.TxStore in memory. WithTx runs against a clone
// and swaps it in on success, so a failing operation leaves no trace - same
// observable behavior as a rolled-back SQL transaction.
type Memory struct {
	mu sync.RWMutex

	// txMu serializes WithTx calls, matching SQLite's single-writer model.
	txMu sync.Mutex

	concepts     map[billing.ConceptID]billing.Concept
	plans        map[billing.PlanID]billing.Plan
	installments map[billing.InstallmentID]billing.Installment
	payments     map[billing.PaymentID]billing.Payment
	receipts     map[string]bool

	// savesUntilFailure < 0 means never fail. Tests set it to force a
	// mid-transaction write failure for atomicity checks.
	savesUntilFailure int
}

var errForcedFailure = errors.New("forced save failure")

func NewMemory() *Memory {
	return &Memory{
		concepts:          make(map[billing.ConceptID]billing.Concept),
		plans:             make(map[billing.PlanID]billing.Plan),
		installments:      make(map[billing.InstallmentID]billing.Installment),
		payments:          make(map[billing.PaymentID]billing.Payment),
		receipts:          make(map[string]bool),
		savesUntilFailure: -1,
	}
}

// FailAfterSaves makes the store fail on the (n+1)th subsequent write.
func (m *Memory) FailAfterSaves(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savesUntilFailure = n
}

func (m *Memory) tickSave() error {
	if m.savesUntilFailure < 0 {
		return nil
	}
	if m.savesUntilFailure == 0 {
		return errForcedFailure
	}
	m.savesUntilFailure--
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) SaveConcept(_ context.Context, c billing.Concept) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concepts[c.ID] = c
	return nil
}

func (m *Memory) SavePlan(_ context.Context, p billing.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tickSave(); err != nil {
		return err
	}
	m.plans[p.ID] = p
	return nil
}

func (m *Memory) SaveInstallment(_ context.Context, ins billing.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tickSave(); err != nil {
		return err
	}
	m.installments[ins.ID] = ins
	return nil
}

func (m *Memory) SavePayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tickSave(); err != nil {
		return err
	}
	if m.receipts[p.ReceiptNumber] {
		return errors.New("receipt number already exists")
	}
	m.receipts[p.ReceiptNumber] = true
	m.payments[p.ID] = p
	return nil
}

func (m *Memory) SettleInstallment(_ context.Context, id billing.InstallmentID, paymentDate billing.Date, paymentID billing.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.installments[id]
	if !ok {
		return &billing.NotFoundError{Kind: "installment", ID: string(id)}
	}
	if ins.Status != billing.InstallmentPending {
		return &billing.AlreadySettledError{InstallmentID: id}
	}
	ins.Status = billing.InstallmentPaid
	ins.PaymentDate = &paymentDate
	ins.PaymentID = &paymentID
	m.installments[id] = ins
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) GetConcept(_ context.Context, id billing.ConceptID) (*billing.Concept, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.concepts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) GetPlan(_ context.Context, id billing.PlanID) (*billing.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) GetInstallment(_ context.Context, id billing.InstallmentID) (*billing.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ins, ok := m.installments[id]
	if !ok {
		return nil, nil
	}
	return &ins, nil
}

func (m *Memory) GetPayment(_ context.Context, id billing.PaymentID) (*billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

func (m *Memory) ListPlans(_ context.Context) ([]billing.PlanSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]billing.PlanSummary, 0, len(m.plans))
	for _, p := range m.plans {
		paid := 0
		for _, ins := range m.installments {
			if ins.PlanID == p.ID && ins.Status == billing.InstallmentPaid {
				paid++
			}
		}
		summaries = append(summaries, billing.PlanSummary{Plan: p, PaidInstallments: paid})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Plan.CreatedAt.Before(summaries[j].Plan.CreatedAt)
	})
	return summaries, nil
}

func (m *Memory) ListInstallments(_ context.Context, planID billing.PlanID) ([]billing.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.Installment
	for _, ins := range m.installments {
		if ins.PlanID == planID {
			result = append(result, ins)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (m *Memory) ListPendingBefore(_ context.Context, before billing.Date) ([]billing.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.Installment
	for _, ins := range m.installments {
		if ins.Status == billing.InstallmentPending && ins.DueDate.Before(before) {
			result = append(result, ins)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DueDate.Equal(result[j].DueDate) {
			return result[i].DueDate.Before(result[j].DueDate)
		}
		return result[i].Number < result[j].Number
	})
	return result, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx clones the store, runs fn against the clone, and commits by
// swapping the clone's state in. On error the clone is discarded.
func (m *Memory) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	clone := &Memory{
		concepts:          copyMap(m.concepts),
		plans:             copyMap(m.plans),
		installments:      copyMap(m.installments),
		payments:          copyMap(m.payments),
		receipts:          copyMap(m.receipts),
		savesUntilFailure: m.savesUntilFailure,
	}
	m.mu.Unlock()

	if err := fn(clone); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.concepts = clone.concepts
	m.plans = clone.plans
	m.installments = clone.installments
	m.payments = clone.payments
	m.receipts = clone.receipts
	m.savesUntilFailure = clone.savesUntilFailure
	return nil
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
