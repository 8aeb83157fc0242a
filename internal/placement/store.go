package placement

import (
	"context"
	"time"

	"rdw-inventory-api/internal/models"
)

// EquipmentState is the slice of an equipment row the engine reads and writes.
type EquipmentState struct {
	ID            int64
	CurrentSlotID *int64
	Status        models.ReadinessStatus
}

// HistoryEntry is a placement_history row as written by a move.
type HistoryEntry struct {
	ID           int64
	EquipmentID  int64
	FromSlotID   *int64
	ToSlotID     int64
	StatusBefore models.ReadinessStatus
	StatusAfter  models.ReadinessStatus
	Description  *string
	PerformedBy  *int64
	CreatedAt    time.Time
}

// Store opens transactions. The callback's error aborts the transaction;
// a nil return commits it. Implementations release the connection on every
// path, including panics.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes a move needs, all inside one transaction.
type Tx interface {
	// LockEquipment reads the equipment row and holds a write lock on it
	// until the transaction ends. found is false when the row does not exist.
	LockEquipment(ctx context.Context, equipmentID int64) (state EquipmentState, found bool, err error)
	// LockSlot holds a write lock on the slot row. Concurrent moves into the
	// same slot queue here.
	LockSlot(ctx context.Context, slotID int64) (found bool, err error)
	// SlotOccupant returns the id of equipment other than excludeEquipmentID
	// whose current slot is slotID, or nil when there is none.
	SlotOccupant(ctx context.Context, slotID, excludeEquipmentID int64) (*int64, error)
	UpdatePlacement(ctx context.Context, equipmentID, slotID int64, status models.ReadinessStatus, at time.Time) error
	InsertHistory(ctx context.Context, entry HistoryEntry) (int64, error)
}
