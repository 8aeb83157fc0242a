package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rdw-inventory-api/internal/models"
	"rdw-inventory-api/internal/placement"
)

// PlacementStore runs placement moves against Postgres. Row locks on the
// equipment and the target slot serialize competing moves; the partial
// unique index on equipment.current_slot_id backs them up.
type PlacementStore struct {
	pool *pgxpool.Pool
}

var _ placement.Store = (*PlacementStore)(nil)

func NewPlacementStore(pool *pgxpool.Pool) *PlacementStore {
	return &PlacementStore{pool: pool}
}

func (s *PlacementStore) WithinTx(ctx context.Context, fn func(tx placement.Tx) error) error {
	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&placementTx{tx: tx})
	})
	return classify(err)
}

type placementTx struct {
	tx pgx.Tx
}

func (t *placementTx) LockEquipment(ctx context.Context, equipmentID int64) (placement.EquipmentState, bool, error) {
	var st placement.EquipmentState
	var status string
	err := t.tx.QueryRow(ctx, `
		SELECT equipment_id, current_slot_id, readiness_status
		FROM equipment WHERE equipment_id = $1
		FOR UPDATE`, equipmentID).Scan(&st.ID, &st.CurrentSlotID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, false, nil
	}
	if err != nil {
		return st, false, classify(err)
	}
	st.Status = models.ReadinessStatus(status)
	return st, true, nil
}

func (t *placementTx) LockSlot(ctx context.Context, slotID int64) (bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT slot_id FROM slots WHERE slot_id = $1 FOR UPDATE`, slotID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

func (t *placementTx) SlotOccupant(ctx context.Context, slotID, excludeEquipmentID int64) (*int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		SELECT equipment_id FROM equipment
		WHERE current_slot_id = $1 AND equipment_id <> $2
		LIMIT 1`, slotID, excludeEquipmentID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &id, nil
}

func (t *placementTx) UpdatePlacement(ctx context.Context, equipmentID, slotID int64, status models.ReadinessStatus, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE equipment
		SET current_slot_id = $1, readiness_status = $2, updated_at = $3
		WHERE equipment_id = $4`, slotID, string(status), at, equipmentID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() != 1 {
		return errors.New("equipment row disappeared during move")
	}
	return nil
}

func (t *placementTx) InsertHistory(ctx context.Context, e placement.HistoryEntry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO placement_history
			(equipment_id, from_slot_id, to_slot_id, status_before, status_after, description, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING history_id`,
		e.EquipmentID, e.FromSlotID, e.ToSlotID, string(e.StatusBefore), string(e.StatusAfter),
		e.Description, e.PerformedBy, e.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}
