/*
Package inventory tracks supplies, stock materials, and fixed assets.

PURPOSE:
  Three ledgers from the back office:
  - Classroom supply requirements and the per-student deliveries against them
  - Stock materials with an entry/exit movement log and minimum-stock alerts
  - Fixed assets (patrimonial goods) with their maintenance history

  The only rule with teeth is in the movement ledger: an exit can never
  take a material's stock below zero, and each movement updates the stock
  in the same transaction.

SEE ALSO:
  - ledger.go: Movement application and the stock service
*/
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/school"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RequirementID string
type DeliveryID string
type MaterialID string
type MovementID string
type AssetID string
type MaintenanceID string

// =============================================================================
// CLASSROOM SUPPLIES
// =============================================================================

// Requirement is a supply item a classroom asks each student to bring.
type Requirement struct {
	ID             RequirementID
	ClassroomID    school.ClassroomID
	Material       string
	QuantityNeeded int
	Specifications string
	CreatedAt      time.Time
}

// Delivery records a student handing in (part of) a requirement.
type Delivery struct {
	ID            DeliveryID
	StudentID     school.StudentID
	RequirementID RequirementID
	Quantity      int
	DeliveredOn   billing.Date
	Observations  string
	CreatedAt     time.Time
}

// =============================================================================
// STOCK MATERIALS
// =============================================================================

type MovementType string

const (
	MovementEntry MovementType = "entry"
	MovementExit  MovementType = "exit"
)

// Material is a stock-tracked consumable.
type Material struct {
	ID          MaterialID
	Name        string
	Category    string
	Description string
	Stock       int
	MinStock    int
	Unit        string
	Location    string
	Supplier    string
	CreatedAt   time.Time
}

// Movement is one entry or exit against a material's stock.
type Movement struct {
	ID          MovementID
	MaterialID  MaterialID
	Type        MovementType
	Quantity    int
	Reason      string
	Observation string
	Responsible string
	MovedOn     billing.Date
	CreatedAt   time.Time
}

// =============================================================================
// FIXED ASSETS
// =============================================================================

// Asset is a patrimonial good, optionally assigned to a classroom.
type Asset struct {
	ID              AssetID
	PatrimonialCode string
	Name            string
	Category        string
	Description     string
	Brand           string
	Model           string
	SerialNumber    string
	Condition       string
	Location        string
	ClassroomID     school.ClassroomID
	AcquiredOn      billing.Date
	AcquisitionCost decimal.Decimal
	Supplier        string
	Observations    string
	CreatedAt       time.Time
}

// Maintenance is one service entry on an asset's log.
type Maintenance struct {
	ID          MaintenanceID
	AssetID     AssetID
	Type        string
	PerformedOn billing.Date
	Description string
	Cost        decimal.Decimal
	Provider    string
	Observation string
	CreatedAt   time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a referenced material, requirement, or
	// asset does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when an exit movement exceeds the
	// material's current stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidMovement is returned for a non-positive quantity or an
	// unknown movement type.
	ErrInvalidMovement = errors.New("invalid movement")
)

// InsufficientStockError reports how short the stock was.
type InsufficientStockError struct {
	MaterialID MaterialID
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("material %s: requested %d, only %d in stock", e.MaterialID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
