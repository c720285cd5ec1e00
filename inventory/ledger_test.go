package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/school-office/inventory"
)

// =============================================================================
// MOVEMENT APPLICATION TESTS
// =============================================================================

func TestApply_EntryAddsStock(t *testing.T) {
	m := inventory.Material{ID: "crayons", Stock: 10}

	after, err := inventory.Apply(m, inventory.Movement{Type: inventory.MovementEntry, Quantity: 15})
	require.NoError(t, err)
	assert.Equal(t, 25, after)
}

func TestApply_ExitGuardsNegativeStock(t *testing.T) {
	m := inventory.Material{ID: "crayons", Stock: 10}

	after, err := inventory.Apply(m, inventory.Movement{Type: inventory.MovementExit, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, after)

	_, err = inventory.Apply(m, inventory.Movement{Type: inventory.MovementExit, Quantity: 11})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var short *inventory.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 10, short.Available)
	assert.Equal(t, 11, short.Requested)
}

func TestApply_InvalidMovements(t *testing.T) {
	m := inventory.Material{ID: "crayons", Stock: 10}

	_, err := inventory.Apply(m, inventory.Movement{Type: inventory.MovementEntry, Quantity: 0})
	assert.ErrorIs(t, err, inventory.ErrInvalidMovement)

	_, err = inventory.Apply(m, inventory.Movement{Type: inventory.MovementEntry, Quantity: -5})
	assert.ErrorIs(t, err, inventory.ErrInvalidMovement)

	_, err = inventory.Apply(m, inventory.Movement{Type: "transfer", Quantity: 5})
	assert.ErrorIs(t, err, inventory.ErrInvalidMovement)
}

// =============================================================================
// SERVICE TESTS
// =============================================================================

// fakeStore is a minimal in-memory inventory.TxStore.
type fakeStore struct {
	materials map[inventory.MaterialID]inventory.Material
	movements []inventory.Movement
}

func newFakeStore() *fakeStore {
	return &fakeStore{materials: make(map[inventory.MaterialID]inventory.Material)}
}

func (f *fakeStore) GetMaterial(_ context.Context, id inventory.MaterialID) (*inventory.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeStore) SaveMovement(_ context.Context, mov inventory.Movement) error {
	f.movements = append(f.movements, mov)
	return nil
}

func (f *fakeStore) SetMaterialStock(_ context.Context, id inventory.MaterialID, stock int) error {
	m := f.materials[id]
	m.Stock = stock
	f.materials[id] = m
	return nil
}

func (f *fakeStore) ListLowStock(_ context.Context) ([]inventory.Material, error) {
	var low []inventory.Material
	for _, m := range f.materials {
		if m.Stock <= m.MinStock {
			low = append(low, m)
		}
	}
	return low, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	return fn(f)
}

func TestRegisterMovement_UpdatesStock(t *testing.T) {
	store := newFakeStore()
	store.materials["paper"] = inventory.Material{ID: "paper", Stock: 100, MinStock: 20}
	svc := inventory.NewService(store)

	after, err := svc.RegisterMovement(context.Background(), inventory.Movement{
		MaterialID: "paper",
		Type:       inventory.MovementExit,
		Quantity:   30,
		Reason:     "classroom use",
	})
	require.NoError(t, err)
	assert.Equal(t, 70, after)
	assert.Equal(t, 70, store.materials["paper"].Stock)
	require.Len(t, store.movements, 1)
	assert.NotEmpty(t, store.movements[0].ID)
}

func TestRegisterMovement_UnknownMaterial(t *testing.T) {
	svc := inventory.NewService(newFakeStore())

	_, err := svc.RegisterMovement(context.Background(), inventory.Movement{
		MaterialID: "ghost",
		Type:       inventory.MovementEntry,
		Quantity:   5,
		Reason:     "purchase",
	})
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestRegisterMovement_RejectedExitWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.materials["paper"] = inventory.Material{ID: "paper", Stock: 5}
	svc := inventory.NewService(store)

	_, err := svc.RegisterMovement(context.Background(), inventory.Movement{
		MaterialID: "paper",
		Type:       inventory.MovementExit,
		Quantity:   6,
		Reason:     "classroom use",
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Empty(t, store.movements)
	assert.Equal(t, 5, store.materials["paper"].Stock)
}

func TestLowStock(t *testing.T) {
	store := newFakeStore()
	store.materials["paper"] = inventory.Material{ID: "paper", Stock: 5, MinStock: 20}
	store.materials["glue"] = inventory.Material{ID: "glue", Stock: 50, MinStock: 10}
	svc := inventory.NewService(store)

	low, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, inventory.MaterialID("paper"), low[0].ID)
}
