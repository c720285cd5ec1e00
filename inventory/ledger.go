/*
ledger.go - Stock movement application

PURPOSE:
  Applying a movement to a material's stock, and the service that commits
  movement + stock update as one transaction.
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Apply returns the material's stock after the movement. Exits that exceed
// the current stock fail; stock never goes negative.
func Apply(m Material, mov Movement) (int, error) {
	if mov.Quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidMovement, mov.Quantity)
	}
	switch mov.Type {
	case MovementEntry:
		return m.Stock + mov.Quantity, nil
	case MovementExit:
		if mov.Quantity > m.Stock {
			return 0, &InsufficientStockError{MaterialID: m.ID, Available: m.Stock, Requested: mov.Quantity}
		}
		return m.Stock - mov.Quantity, nil
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidMovement, mov.Type)
	}
}

// Store handles persistence of inventory records.
type Store interface {
	GetMaterial(ctx context.Context, id MaterialID) (*Material, error)
	SaveMovement(ctx context.Context, mov Movement) error

	// SetMaterialStock overwrites the material's current stock.
	SetMaterialStock(ctx context.Context, id MaterialID, stock int) error

	// ListLowStock returns materials at or under their minimum stock.
	ListLowStock(ctx context.Context) ([]Material, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Service exposes the stock ledger over a transactional store.
type Service struct {
	store TxStore
	now   func() time.Time
}

func NewService(store TxStore) *Service {
	return &Service{store: store, now: time.Now}
}

// RegisterMovement records a movement and updates the material's stock as
// one unit. Returns the material's stock after the movement.
func (s *Service) RegisterMovement(ctx context.Context, mov Movement) (int, error) {
	if mov.ID == "" {
		mov.ID = MovementID(uuid.NewString())
	}
	if mov.CreatedAt.IsZero() {
		mov.CreatedAt = s.now().UTC()
	}

	var after int
	err := s.store.WithTx(ctx, func(tx Store) error {
		material, err := tx.GetMaterial(ctx, mov.MaterialID)
		if err != nil {
			return err
		}
		if material == nil {
			return ErrNotFound
		}

		after, err = Apply(*material, mov)
		if err != nil {
			return err
		}

		if err := tx.SaveMovement(ctx, mov); err != nil {
			return err
		}
		return tx.SetMaterialStock(ctx, mov.MaterialID, after)
	})
	if err != nil {
		return 0, err
	}
	return after, nil
}

// LowStock returns materials whose stock is at or under their minimum.
func (s *Service) LowStock(ctx context.Context) ([]Material, error) {
	return s.store.ListLowStock(ctx)
}
