/*
billing.go - SQLite persistence for concepts, plans, installments, payments

Implements billing.TxStore. Dates are stored as YYYY-MM-DD text, amounts as
decimal text, timestamps as RFC3339.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/school-office/billing"
)

// BillingStore is the billing view of the database. The zero querier is the
// shared handle; WithTx substitutes a transaction.
type BillingStore struct {
	db *DB
	q  querier
}

// Billing returns the billing store view.
func (d *DB) Billing() *BillingStore {
	return &BillingStore{db: d, q: d.db}
}

// WithTx runs fn against a transactional view of the billing store.
func (s *BillingStore) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&BillingStore{db: s.db, q: tx})
	})
}

// =============================================================================
// CONCEPTS
// =============================================================================

// SaveConcept inserts or updates a concept definition. Editing a concept's
// amount never touches existing plans or installments: those are frozen
// snapshots from creation time.
func (s *BillingStore) SaveConcept(ctx context.Context, c billing.Concept) error {
	query := `
		INSERT INTO payment_concepts (id, name, description, amount, frequency, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			amount = excluded.amount,
			frequency = excluded.frequency,
			status = excluded.status
	`
	_, err := s.q.ExecContext(ctx, query,
		c.ID, c.Name, c.Description, c.Amount.String(), c.Frequency, c.Status)
	return err
}

// GetConcept retrieves a concept by ID, or nil if absent.
func (s *BillingStore) GetConcept(ctx context.Context, id billing.ConceptID) (*billing.Concept, error) {
	var (
		c                      billing.Concept
		amount                 string
		description, frequency sql.NullString
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, description, amount, frequency, status FROM payment_concepts WHERE id = ?",
		id,
	).Scan(&c.ID, &c.Name, &description, &amount, &frequency, &c.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Frequency = frequency.String
	c.Amount = parseDecimal(amount)
	return &c, nil
}

// ListConcepts returns all concepts ordered by name.
func (s *BillingStore) ListConcepts(ctx context.Context) ([]billing.Concept, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, name, description, amount, frequency, status FROM payment_concepts ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []billing.Concept
	for rows.Next() {
		var (
			c                      billing.Concept
			amount                 string
			description, frequency sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &description, &amount, &frequency, &c.Status); err != nil {
			return nil, err
		}
		c.Description = description.String
		c.Frequency = frequency.String
		c.Amount = parseDecimal(amount)
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

// =============================================================================
// PLANS + INSTALLMENTS
// =============================================================================

// SavePlan inserts a plan record.
func (s *BillingStore) SavePlan(ctx context.Context, p billing.Plan) error {
	query := `
		INSERT INTO payment_plans
		(id, student_id, concept_id, total_amount, installments, start_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.q.ExecContext(ctx, query,
		p.ID, p.StudentID, p.ConceptID, p.TotalAmount.String(),
		p.Installments, p.StartDate.String(), p.Status,
		p.CreatedAt.Format(time.RFC3339))
	return err
}

// SaveInstallment inserts an installment linked to its plan.
func (s *BillingStore) SaveInstallment(ctx context.Context, ins billing.Installment) error {
	query := `
		INSERT INTO payment_installments
		(id, plan_id, installment_number, due_date, amount, status, payment_date, payment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var paymentDate, paymentID sql.NullString
	if ins.PaymentDate != nil {
		paymentDate = nullString(ins.PaymentDate.String())
	}
	if ins.PaymentID != nil {
		paymentID = nullString(string(*ins.PaymentID))
	}
	_, err := s.q.ExecContext(ctx, query,
		ins.ID, ins.PlanID, ins.Number, ins.DueDate.String(),
		ins.Amount.String(), ins.Status, paymentDate, paymentID)
	return err
}

// GetPlan retrieves a plan by ID, or nil if absent.
func (s *BillingStore) GetPlan(ctx context.Context, id billing.PlanID) (*billing.Plan, error) {
	query := `
		SELECT id, student_id, concept_id, total_amount, installments, start_date, status, created_at
		FROM payment_plans WHERE id = ?
	`
	var (
		p                             billing.Plan
		totalAmount, start, createdAt string
	)
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.StudentID, &p.ConceptID, &totalAmount,
		&p.Installments, &start, &p.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.TotalAmount = parseDecimal(totalAmount)
	p.StartDate, _ = billing.ParseDate(start)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// GetInstallment retrieves an installment by ID, or nil if absent.
func (s *BillingStore) GetInstallment(ctx context.Context, id billing.InstallmentID) (*billing.Installment, error) {
	query := `
		SELECT id, plan_id, installment_number, due_date, amount, status, payment_date, payment_id
		FROM payment_installments WHERE id = ?
	`
	ins, err := scanInstallment(s.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ins, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstallment(row rowScanner) (*billing.Installment, error) {
	var (
		ins                    billing.Installment
		due, amount            string
		paymentDate, paymentID sql.NullString
	)
	err := row.Scan(&ins.ID, &ins.PlanID, &ins.Number, &due, &amount,
		&ins.Status, &paymentDate, &paymentID)
	if err != nil {
		return nil, err
	}
	ins.DueDate, _ = billing.ParseDate(due)
	ins.Amount = parseDecimal(amount)
	if paymentDate.Valid {
		d, err := billing.ParseDate(paymentDate.String)
		if err == nil {
			ins.PaymentDate = &d
		}
	}
	if paymentID.Valid {
		pid := billing.PaymentID(paymentID.String)
		ins.PaymentID = &pid
	}
	return &ins, nil
}

// ListPlans returns all plans with their paid-installment counts, computed
// at query time.
func (s *BillingStore) ListPlans(ctx context.Context) ([]billing.PlanSummary, error) {
	query := `
		SELECT p.id, p.student_id, p.concept_id, p.total_amount, p.installments,
		       p.start_date, p.status, p.created_at,
		       COUNT(CASE WHEN i.status = 'paid' THEN 1 END) AS paid_count
		FROM payment_plans p
		LEFT JOIN payment_installments i ON i.plan_id = p.id
		GROUP BY p.id
		ORDER BY p.created_at ASC
	`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []billing.PlanSummary
	for rows.Next() {
		var (
			p                             billing.Plan
			totalAmount, start, createdAt string
			paid                          int
		)
		if err := rows.Scan(&p.ID, &p.StudentID, &p.ConceptID, &totalAmount,
			&p.Installments, &start, &p.Status, &createdAt, &paid); err != nil {
			return nil, err
		}
		p.TotalAmount = parseDecimal(totalAmount)
		p.StartDate, _ = billing.ParseDate(start)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		summaries = append(summaries, billing.PlanSummary{Plan: p, PaidInstallments: paid})
	}
	return summaries, rows.Err()
}

// ListInstallments returns a plan's installments ordered by number.
func (s *BillingStore) ListInstallments(ctx context.Context, planID billing.PlanID) ([]billing.Installment, error) {
	query := `
		SELECT id, plan_id, installment_number, due_date, amount, status, payment_date, payment_id
		FROM payment_installments
		WHERE plan_id = ?
		ORDER BY installment_number ASC
	`
	return s.queryInstallments(ctx, query, planID)
}

// ListPendingBefore returns pending installments due strictly before the
// given date, across all plans.
func (s *BillingStore) ListPendingBefore(ctx context.Context, before billing.Date) ([]billing.Installment, error) {
	query := `
		SELECT id, plan_id, installment_number, due_date, amount, status, payment_date, payment_id
		FROM payment_installments
		WHERE status = 'pending' AND due_date < ?
		ORDER BY due_date ASC, installment_number ASC
	`
	return s.queryInstallments(ctx, query, before.String())
}

func (s *BillingStore) queryInstallments(ctx context.Context, query string, args ...any) ([]billing.Installment, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []billing.Installment
	for rows.Next() {
		ins, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, *ins)
	}
	return installments, rows.Err()
}

// SettleInstallment marks a pending installment paid. The UPDATE is
// conditional on status = 'pending'; when no row changes, the row either
// does not exist (NotFound) or was already settled (AlreadySettled). This
// is the double-payment guard: under concurrent attempts only one
// transaction's UPDATE matches.
func (s *BillingStore) SettleInstallment(ctx context.Context, id billing.InstallmentID, paymentDate billing.Date, paymentID billing.PaymentID) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE payment_installments SET status = 'paid', payment_date = ?, payment_id = ? WHERE id = ? AND status = 'pending'",
		paymentDate.String(), paymentID, id)
	if err != nil {
		return fmt.Errorf("failed to settle installment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		existing, err := s.GetInstallment(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return &billing.NotFoundError{Kind: "installment", ID: string(id)}
		}
		settled := &billing.AlreadySettledError{InstallmentID: id}
		if existing.PaymentID != nil {
			settled.PaymentID = *existing.PaymentID
		}
		return settled
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// SavePayment inserts a payment. A receipt-number collision violates the
// UNIQUE constraint; the collision is not pre-checked on purpose.
func (s *BillingStore) SavePayment(ctx context.Context, p billing.Payment) error {
	query := `
		INSERT INTO payments
		(id, student_id, concept_id, amount, payment_date, due_date, status, receipt_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.q.ExecContext(ctx, query,
		p.ID, p.StudentID, p.ConceptID, p.Amount.String(),
		p.PaymentDate.String(), p.DueDate.String(), p.Status,
		p.ReceiptNumber, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: receipt number %s collided", billing.ErrStorageFailure, p.ReceiptNumber)
		}
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by ID, or nil if absent.
func (s *BillingStore) GetPayment(ctx context.Context, id billing.PaymentID) (*billing.Payment, error) {
	query := `
		SELECT id, student_id, concept_id, amount, payment_date, due_date, status, receipt_number, created_at
		FROM payments WHERE id = ?
	`
	var (
		p                                   billing.Payment
		amount, payDate, dueDate, createdAt string
	)
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.StudentID, &p.ConceptID, &amount,
		&payDate, &dueDate, &p.Status, &p.ReceiptNumber, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Amount = parseDecimal(amount)
	p.PaymentDate, _ = billing.ParseDate(payDate)
	p.DueDate, _ = billing.ParseDate(dueDate)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// ListPayments returns the general ledger, most recent first.
func (s *BillingStore) ListPayments(ctx context.Context) ([]billing.Payment, error) {
	query := `
		SELECT id, student_id, concept_id, amount, payment_date, due_date, status, receipt_number, created_at
		FROM payments
		ORDER BY payment_date DESC, created_at DESC
	`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		var (
			p                                   billing.Payment
			amount, payDate, dueDate, createdAt string
		)
		if err := rows.Scan(&p.ID, &p.StudentID, &p.ConceptID, &amount,
			&payDate, &dueDate, &p.Status, &p.ReceiptNumber, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = parseDecimal(amount)
		p.PaymentDate, _ = billing.ParseDate(payDate)
		p.DueDate, _ = billing.ParseDate(dueDate)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// PaymentDetail is a ledger row joined with the names needed for receipt
// printing.
type PaymentDetail struct {
	billing.Payment
	StudentName string
	ConceptName string
}

// ListPaymentDetails returns the ledger with student and concept names,
// most recent first.
func (s *BillingStore) ListPaymentDetails(ctx context.Context) ([]PaymentDetail, error) {
	query := `
		SELECT p.id, p.student_id, p.concept_id, p.amount, p.payment_date, p.due_date,
		       p.status, p.receipt_number, p.created_at,
		       s.last_name || ', ' || s.first_name AS student_name,
		       c.name AS concept_name
		FROM payments p
		JOIN students s ON s.id = p.student_id
		JOIN payment_concepts c ON c.id = p.concept_id
		ORDER BY p.payment_date DESC, p.created_at DESC
	`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []PaymentDetail
	for rows.Next() {
		var (
			d                                   PaymentDetail
			amount, payDate, dueDate, createdAt string
		)
		if err := rows.Scan(&d.ID, &d.StudentID, &d.ConceptID, &amount,
			&payDate, &dueDate, &d.Status, &d.ReceiptNumber, &createdAt,
			&d.StudentName, &d.ConceptName); err != nil {
			return nil, err
		}
		d.Amount = parseDecimal(amount)
		d.PaymentDate, _ = billing.ParseDate(payDate)
		d.DueDate, _ = billing.ParseDate(dueDate)
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		details = append(details, d)
	}
	return details, rows.Err()
}

// ConceptTotal is one line of the payment report.
type ConceptTotal struct {
	ConceptID   billing.ConceptID
	ConceptName string
	Payments    int
	Total       string
}

// TotalsByConcept sums settled payments per concept. Amounts are summed as
// decimals in Go, not in SQL, so totals stay exact.
func (s *BillingStore) TotalsByConcept(ctx context.Context) ([]ConceptTotal, error) {
	query := `
		SELECT c.id, c.name, p.amount
		FROM payment_concepts c
		LEFT JOIN payments p ON p.concept_id = c.id
		ORDER BY c.name, c.id
	`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		totals []ConceptTotal
		cur    *ConceptTotal
		sum    decimal.Decimal
	)
	for rows.Next() {
		var (
			id, name string
			amount   sql.NullString
		)
		if err := rows.Scan(&id, &name, &amount); err != nil {
			return nil, err
		}
		if cur == nil || cur.ConceptID != billing.ConceptID(id) {
			totals = append(totals, ConceptTotal{
				ConceptID:   billing.ConceptID(id),
				ConceptName: name,
				Total:       "0",
			})
			cur = &totals[len(totals)-1]
			sum = decimal.Zero
		}
		if amount.Valid {
			sum = sum.Add(parseDecimal(amount.String))
			cur.Payments++
			cur.Total = sum.String()
		}
	}
	return totals, rows.Err()
}

// CountInstallmentsByStatus counts installments in the given status.
func (s *BillingStore) CountInstallmentsByStatus(ctx context.Context, status billing.InstallmentStatus) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payment_installments WHERE status = ?", string(status)).Scan(&count)
	return count, err
}

// SumPaymentsBetween totals settled payments with payment_date in [from, to].
// Used by the dashboard's collected-this-month figure.
func (s *BillingStore) SumPaymentsBetween(ctx context.Context, from, to billing.Date) (string, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT amount FROM payments WHERE payment_date >= ? AND payment_date <= ?",
		from.String(), to.String(),
	)
	if err != nil {
		return "0", err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return "0", err
		}
		total = total.Add(parseDecimal(amount))
	}
	return total.String(), rows.Err()
}

// CountPlansByStatus counts plans in the given status.
func (s *BillingStore) CountPlansByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payment_plans WHERE status = ?", status).Scan(&count)
	return count, err
}
