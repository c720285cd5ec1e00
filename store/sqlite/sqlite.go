/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements persistence for every domain package (billing, school,
  inventory) plus the user table, over a single SQLite database. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  billing.TxStore:   plans, installments, payments, concepts
  school.TxStore:    school years, classrooms, students, enrollments
  inventory.TxStore: supplies, stock materials, assets

KEY CONSTRAINTS:
  payments.receipt_number UNIQUE            global receipt uniqueness
  payment_installments(plan_id, number)     contiguous numbering per plan
  students.dni UNIQUE                       one registry entry per person
  school_years.year UNIQUE
  assets.patrimonial_code UNIQUE

TRANSACTIONS:
  Each domain view exposes WithTx; transactions are serialized through a
  single mutex, which is SQLite's effective writer model anyway. The
  installment settle is a conditional UPDATE on status = 'pending' checked
  via RowsAffected, so two transactions paying the same installment cannot
  both succeed.

WAL MODE:
  The database is opened with WAL and foreign keys on: readers don't block,
  one writer at a time, better crash recovery.

USAGE:
  db, err := sqlite.New("./data/school.db")
  if err != nil {
      log.Fatal(err)
  }
  defer db.Close()

  planner := billing.NewService(db.Billing(), nil)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go, school/enrollment.go, inventory/ledger.go: interfaces
  - billing/store/memory.go: in-memory implementation for engine tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// DB owns the database handle. Domain views (Billing, School, Inventory,
// Users) share it.
type DB struct {
	db *sql.DB
	mu sync.Mutex // serializes WithTx transactions
}

// New opens (or creates) a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so store methods run
// identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx begins a transaction, runs fn against it, and commits on nil.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// migrate creates the database schema.
func (d *DB) migrate() error {
	schema := `
	-- Users (back-office logins)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin',
		full_name TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- School years
	CREATE TABLE IF NOT EXISTS school_years (
		id TEXT PRIMARY KEY,
		year TEXT NOT NULL UNIQUE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);

	-- Classrooms
	CREATE TABLE IF NOT EXISTS classrooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age_range TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		current_students INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active'
	);

	-- Students (full registry record)
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		last_name TEXT NOT NULL,
		first_name TEXT NOT NULL,
		dni TEXT NOT NULL UNIQUE,
		birth_date TEXT NOT NULL,
		gender TEXT NOT NULL,
		nationality TEXT,
		address TEXT,
		phone TEXT,
		email TEXT,
		photo TEXT,
		father_names TEXT,
		father_dni TEXT,
		father_birth_date TEXT,
		father_phone TEXT,
		father_email TEXT,
		father_occupation TEXT,
		mother_names TEXT,
		mother_dni TEXT,
		mother_birth_date TEXT,
		mother_phone TEXT,
		mother_email TEXT,
		mother_occupation TEXT,
		emergency_contact TEXT,
		emergency_relationship TEXT,
		emergency_phone TEXT,
		emergency_address TEXT,
		blood_type TEXT,
		height REAL,
		weight REAL,
		allergies TEXT,
		medications TEXT,
		medical_conditions TEXT,
		activity_restrictions TEXT,
		vaccines_up_to_date BOOLEAN NOT NULL DEFAULT TRUE,
		medical_observations TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		enrollment_date TEXT NOT NULL
	);

	-- Enrollments
	CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		classroom_id TEXT NOT NULL REFERENCES classrooms(id),
		enrolled_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE INDEX IF NOT EXISTS idx_enrollments_student
		ON enrollments(student_id);
	CREATE INDEX IF NOT EXISTS idx_enrollments_classroom
		ON enrollments(classroom_id);

	-- Payment concepts (recurring charge definitions)
	CREATE TABLE IF NOT EXISTS payment_concepts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		amount TEXT NOT NULL,
		frequency TEXT,
		status TEXT NOT NULL DEFAULT 'active'
	);

	-- Payments (general receipt ledger; plan-originated and standalone)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		concept_id TEXT NOT NULL REFERENCES payment_concepts(id),
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'paid',
		receipt_number TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_student
		ON payments(student_id);
	CREATE INDEX IF NOT EXISTS idx_payments_payment_date
		ON payments(payment_date);

	-- Payment plans
	CREATE TABLE IF NOT EXISTS payment_plans (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		concept_id TEXT NOT NULL REFERENCES payment_concepts(id),
		total_amount TEXT NOT NULL,
		installments INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	-- Installments: numbers are contiguous 1..N within a plan
	CREATE TABLE IF NOT EXISTS payment_installments (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES payment_plans(id),
		installment_number INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_date TEXT,
		payment_id TEXT REFERENCES payments(id),
		UNIQUE(plan_id, installment_number)
	);

	CREATE INDEX IF NOT EXISTS idx_installments_plan
		ON payment_installments(plan_id);
	-- Hot path for the overdue projection
	CREATE INDEX IF NOT EXISTS idx_installments_status_due
		ON payment_installments(status, due_date);

	-- Classroom supply requirements
	CREATE TABLE IF NOT EXISTS supply_requirements (
		id TEXT PRIMARY KEY,
		classroom_id TEXT NOT NULL REFERENCES classrooms(id),
		material TEXT NOT NULL,
		quantity_needed INTEGER NOT NULL,
		specifications TEXT,
		created_at TEXT NOT NULL
	);

	-- Per-student supply deliveries
	CREATE TABLE IF NOT EXISTS supply_deliveries (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		requirement_id TEXT NOT NULL REFERENCES supply_requirements(id),
		quantity INTEGER NOT NULL,
		delivered_on TEXT,
		observations TEXT,
		created_at TEXT NOT NULL
	);

	-- Stock materials
	CREATE TABLE IF NOT EXISTS materials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		stock INTEGER NOT NULL DEFAULT 0,
		min_stock INTEGER NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT 'units',
		location TEXT,
		supplier TEXT,
		created_at TEXT NOT NULL
	);

	-- Stock movements (entry/exit ledger)
	CREATE TABLE IF NOT EXISTS stock_movements (
		id TEXT PRIMARY KEY,
		material_id TEXT NOT NULL REFERENCES materials(id),
		type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		reason TEXT NOT NULL,
		observation TEXT,
		responsible TEXT,
		moved_on TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_material
		ON stock_movements(material_id);

	-- Fixed assets
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		patrimonial_code TEXT UNIQUE,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		brand TEXT,
		model TEXT,
		serial_number TEXT,
		condition TEXT NOT NULL DEFAULT 'good',
		location TEXT,
		classroom_id TEXT REFERENCES classrooms(id),
		acquired_on TEXT,
		acquisition_cost TEXT,
		supplier TEXT,
		observations TEXT,
		created_at TEXT NOT NULL
	);

	-- Asset maintenance log
	CREATE TABLE IF NOT EXISTS maintenance_records (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES assets(id),
		type TEXT NOT NULL,
		performed_on TEXT NOT NULL,
		description TEXT NOT NULL,
		cost TEXT,
		provider TEXT,
		observation TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maintenance_asset
		ON maintenance_records(asset_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
