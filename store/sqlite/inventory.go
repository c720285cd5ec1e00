/*
inventory.go - SQLite persistence for supplies, stock materials, and assets

Implements inventory.TxStore plus the CRUD the API uses for requirements,
deliveries, assets, and maintenance records.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/inventory"
	"github.com/warp/school-office/school"
)

// InventoryStore is the inventory view of the database.
type InventoryStore struct {
	db *DB
	q  querier
}

// Inventory returns the inventory store view.
func (d *DB) Inventory() *InventoryStore {
	return &InventoryStore{db: d, q: d.db}
}

// WithTx runs fn against a transactional view of the inventory store.
func (s *InventoryStore) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&InventoryStore{db: s.db, q: tx})
	})
}

// =============================================================================
// SUPPLY REQUIREMENTS + DELIVERIES
// =============================================================================

// SaveRequirement inserts or updates a classroom supply requirement.
func (s *InventoryStore) SaveRequirement(ctx context.Context, r inventory.Requirement) error {
	query := `
		INSERT INTO supply_requirements (id, classroom_id, material, quantity_needed, specifications, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			classroom_id = excluded.classroom_id,
			material = excluded.material,
			quantity_needed = excluded.quantity_needed,
			specifications = excluded.specifications
	`
	_, err := s.q.ExecContext(ctx, query,
		r.ID, r.ClassroomID, r.Material, r.QuantityNeeded,
		nullString(r.Specifications), r.CreatedAt.Format(time.RFC3339))
	return err
}

// GetRequirement retrieves a requirement by ID, or nil if absent.
func (s *InventoryStore) GetRequirement(ctx context.Context, id inventory.RequirementID) (*inventory.Requirement, error) {
	var (
		r         inventory.Requirement
		specs     sql.NullString
		createdAt string
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT id, classroom_id, material, quantity_needed, specifications, created_at FROM supply_requirements WHERE id = ?",
		id,
	).Scan(&r.ID, &r.ClassroomID, &r.Material, &r.QuantityNeeded, &specs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Specifications = specs.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// ListRequirements returns requirements, optionally filtered to a classroom.
func (s *InventoryStore) ListRequirements(ctx context.Context, classroomID school.ClassroomID) ([]inventory.Requirement, error) {
	query := "SELECT id, classroom_id, material, quantity_needed, specifications, created_at FROM supply_requirements"
	var args []any
	if classroomID != "" {
		query += " WHERE classroom_id = ?"
		args = append(args, classroomID)
	}
	query += " ORDER BY material"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requirements []inventory.Requirement
	for rows.Next() {
		var (
			r         inventory.Requirement
			specs     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.ClassroomID, &r.Material, &r.QuantityNeeded, &specs, &createdAt); err != nil {
			return nil, err
		}
		r.Specifications = specs.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		requirements = append(requirements, r)
	}
	return requirements, rows.Err()
}

// SaveDelivery inserts a supply delivery record.
func (s *InventoryStore) SaveDelivery(ctx context.Context, d inventory.Delivery) error {
	var delivered sql.NullString
	if !d.DeliveredOn.IsZero() {
		delivered = nullString(d.DeliveredOn.String())
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO supply_deliveries (id, student_id, requirement_id, quantity, delivered_on, observations, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		d.ID, d.StudentID, d.RequirementID, d.Quantity,
		delivered, nullString(d.Observations), d.CreatedAt.Format(time.RFC3339))
	return err
}

// ListDeliveries returns deliveries against a requirement, oldest first.
func (s *InventoryStore) ListDeliveries(ctx context.Context, requirementID inventory.RequirementID) ([]inventory.Delivery, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, student_id, requirement_id, quantity, delivered_on, observations, created_at FROM supply_deliveries WHERE requirement_id = ? ORDER BY created_at ASC",
		requirementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []inventory.Delivery
	for rows.Next() {
		var (
			d            inventory.Delivery
			delivered    sql.NullString
			observations sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&d.ID, &d.StudentID, &d.RequirementID, &d.Quantity, &delivered, &observations, &createdAt); err != nil {
			return nil, err
		}
		if delivered.Valid {
			d.DeliveredOn, _ = billing.ParseDate(delivered.String)
		}
		d.Observations = observations.String
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// =============================================================================
// STOCK MATERIALS + MOVEMENTS
// =============================================================================

// SaveMaterial inserts or updates a material. Stock is only written here on
// insert; movements adjust it through SetMaterialStock.
func (s *InventoryStore) SaveMaterial(ctx context.Context, m inventory.Material) error {
	query := `
		INSERT INTO materials (id, name, category, description, stock, min_stock, unit, location, supplier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			min_stock = excluded.min_stock,
			unit = excluded.unit,
			location = excluded.location,
			supplier = excluded.supplier
	`
	_, err := s.q.ExecContext(ctx, query,
		m.ID, m.Name, m.Category, nullString(m.Description),
		m.Stock, m.MinStock, m.Unit, nullString(m.Location),
		nullString(m.Supplier), m.CreatedAt.Format(time.RFC3339))
	return err
}

// GetMaterial retrieves a material by ID, or nil if absent.
func (s *InventoryStore) GetMaterial(ctx context.Context, id inventory.MaterialID) (*inventory.Material, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, name, category, description, stock, min_stock, unit, location, supplier, created_at FROM materials WHERE id = ?",
		id)
	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMaterials returns all materials ordered by name.
func (s *InventoryStore) ListMaterials(ctx context.Context) ([]inventory.Material, error) {
	return s.queryMaterials(ctx,
		"SELECT id, name, category, description, stock, min_stock, unit, location, supplier, created_at FROM materials ORDER BY name")
}

// ListLowStock returns materials at or under their minimum stock.
func (s *InventoryStore) ListLowStock(ctx context.Context) ([]inventory.Material, error) {
	return s.queryMaterials(ctx,
		"SELECT id, name, category, description, stock, min_stock, unit, location, supplier, created_at FROM materials WHERE stock <= min_stock ORDER BY name")
}

func (s *InventoryStore) queryMaterials(ctx context.Context, query string, args ...any) ([]inventory.Material, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []inventory.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, *m)
	}
	return materials, rows.Err()
}

func scanMaterial(row rowScanner) (*inventory.Material, error) {
	var (
		m                            inventory.Material
		description, location, suppl sql.NullString
		createdAt                    string
	)
	err := row.Scan(&m.ID, &m.Name, &m.Category, &description,
		&m.Stock, &m.MinStock, &m.Unit, &location, &suppl, &createdAt)
	if err != nil {
		return nil, err
	}
	m.Description = description.String
	m.Location = location.String
	m.Supplier = suppl.String
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

// SetMaterialStock overwrites the material's current stock. Called inside
// the movement transaction only.
func (s *InventoryStore) SetMaterialStock(ctx context.Context, id inventory.MaterialID, stock int) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE materials SET stock = ? WHERE id = ?", stock, id)
	return err
}

// SaveMovement inserts a stock movement row.
func (s *InventoryStore) SaveMovement(ctx context.Context, mov inventory.Movement) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO stock_movements (id, material_id, type, quantity, reason, observation, responsible, moved_on, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		mov.ID, mov.MaterialID, mov.Type, mov.Quantity, mov.Reason,
		nullString(mov.Observation), nullString(mov.Responsible),
		mov.MovedOn.String(), mov.CreatedAt.Format(time.RFC3339))
	return err
}

// ListMovements returns a material's movement history, newest first.
func (s *InventoryStore) ListMovements(ctx context.Context, materialID inventory.MaterialID) ([]inventory.Movement, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, material_id, type, quantity, reason, observation, responsible, moved_on, created_at FROM stock_movements WHERE material_id = ? ORDER BY created_at DESC",
		materialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []inventory.Movement
	for rows.Next() {
		var (
			mov                      inventory.Movement
			observation, responsible sql.NullString
			movedOn, createdAt       string
		)
		if err := rows.Scan(&mov.ID, &mov.MaterialID, &mov.Type, &mov.Quantity,
			&mov.Reason, &observation, &responsible, &movedOn, &createdAt); err != nil {
			return nil, err
		}
		mov.Observation = observation.String
		mov.Responsible = responsible.String
		mov.MovedOn, _ = billing.ParseDate(movedOn)
		mov.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		movements = append(movements, mov)
	}
	return movements, rows.Err()
}

// =============================================================================
// FIXED ASSETS + MAINTENANCE
// =============================================================================

// SaveAsset inserts or updates an asset.
func (s *InventoryStore) SaveAsset(ctx context.Context, a inventory.Asset) error {
	query := `
		INSERT INTO assets
		(id, patrimonial_code, name, category, description, brand, model, serial_number,
		 condition, location, classroom_id, acquired_on, acquisition_cost, supplier, observations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			patrimonial_code = excluded.patrimonial_code,
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			brand = excluded.brand,
			model = excluded.model,
			serial_number = excluded.serial_number,
			condition = excluded.condition,
			location = excluded.location,
			classroom_id = excluded.classroom_id,
			acquired_on = excluded.acquired_on,
			acquisition_cost = excluded.acquisition_cost,
			supplier = excluded.supplier,
			observations = excluded.observations
	`
	var acquired, cost, classroom sql.NullString
	if !a.AcquiredOn.IsZero() {
		acquired = nullString(a.AcquiredOn.String())
	}
	if !a.AcquisitionCost.IsZero() {
		cost = nullString(a.AcquisitionCost.String())
	}
	classroom = nullString(string(a.ClassroomID))
	_, err := s.q.ExecContext(ctx, query,
		a.ID, nullString(a.PatrimonialCode), a.Name, a.Category,
		nullString(a.Description), nullString(a.Brand), nullString(a.Model),
		nullString(a.SerialNumber), a.Condition, nullString(a.Location),
		classroom, acquired, cost, nullString(a.Supplier),
		nullString(a.Observations), a.CreatedAt.Format(time.RFC3339))
	return err
}

// GetAsset retrieves an asset by ID, or nil if absent.
func (s *InventoryStore) GetAsset(ctx context.Context, id inventory.AssetID) (*inventory.Asset, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, patrimonial_code, name, category, description, brand, model, serial_number, condition, location, classroom_id, acquired_on, acquisition_cost, supplier, observations, created_at FROM assets WHERE id = ?",
		id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssets returns all assets ordered by name.
func (s *InventoryStore) ListAssets(ctx context.Context) ([]inventory.Asset, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, patrimonial_code, name, category, description, brand, model, serial_number, condition, location, classroom_id, acquired_on, acquisition_cost, supplier, observations, created_at FROM assets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []inventory.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

func scanAsset(row rowScanner) (*inventory.Asset, error) {
	var (
		a                      inventory.Asset
		code, description      sql.NullString
		brand, model, serial   sql.NullString
		location, classroom    sql.NullString
		acquired, cost         sql.NullString
		supplier, observations sql.NullString
		createdAt              string
	)
	err := row.Scan(&a.ID, &code, &a.Name, &a.Category, &description,
		&brand, &model, &serial, &a.Condition, &location, &classroom,
		&acquired, &cost, &supplier, &observations, &createdAt)
	if err != nil {
		return nil, err
	}
	a.PatrimonialCode = code.String
	a.Description = description.String
	a.Brand = brand.String
	a.Model = model.String
	a.SerialNumber = serial.String
	a.Location = location.String
	a.ClassroomID = school.ClassroomID(classroom.String)
	if acquired.Valid {
		a.AcquiredOn, _ = billing.ParseDate(acquired.String)
	}
	if cost.Valid {
		a.AcquisitionCost = parseDecimal(cost.String)
	}
	a.Supplier = supplier.String
	a.Observations = observations.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// SaveMaintenance inserts a maintenance log entry.
func (s *InventoryStore) SaveMaintenance(ctx context.Context, m inventory.Maintenance) error {
	var cost sql.NullString
	if !m.Cost.IsZero() {
		cost = nullString(m.Cost.String())
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO maintenance_records (id, asset_id, type, performed_on, description, cost, provider, observation, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.AssetID, m.Type, m.PerformedOn.String(), m.Description,
		cost, nullString(m.Provider), nullString(m.Observation),
		m.CreatedAt.Format(time.RFC3339))
	return err
}

// ListMaintenance returns an asset's maintenance log, newest first.
func (s *InventoryStore) ListMaintenance(ctx context.Context, assetID inventory.AssetID) ([]inventory.Maintenance, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, asset_id, type, performed_on, description, cost, provider, observation, created_at FROM maintenance_records WHERE asset_id = ? ORDER BY performed_on DESC",
		assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []inventory.Maintenance
	for rows.Next() {
		var (
			m                     inventory.Maintenance
			cost                  sql.NullString
			provider, observation sql.NullString
			performed, createdAt  string
		)
		if err := rows.Scan(&m.ID, &m.AssetID, &m.Type, &performed, &m.Description,
			&cost, &provider, &observation, &createdAt); err != nil {
			return nil, err
		}
		m.PerformedOn, _ = billing.ParseDate(performed)
		if cost.Valid {
			m.Cost = parseDecimal(cost.String)
		}
		m.Provider = provider.String
		m.Observation = observation.String
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, m)
	}
	return records, rows.Err()
}
