package models

import "time"

// MoveRequest is the HTTP body of a placement move. The performer comes from
// the authenticated caller, not from the body.
type MoveRequest struct {
	ToSlotID    *int64  `json:"to_slot_id"`
	StatusAfter *string `json:"status_after,omitempty"`
	Description *string `json:"description,omitempty"`
}

// PlacementHistory is one immutable ledger row with its resolved display
// fields. Every joined field may be nil: the equipment may have been deleted,
// the move may have started unplaced, or the performer may be unknown.
type PlacementHistory struct {
	ID           int64           `json:"history_id"`
	EquipmentID  int64           `json:"equipment_id"`
	FromSlotID   *int64          `json:"from_slot_id"`
	ToSlotID     int64           `json:"to_slot_id"`
	StatusBefore ReadinessStatus `json:"status_before"`
	StatusAfter  ReadinessStatus `json:"status_after"`
	Description  *string         `json:"description"`
	PerformedBy  *int64          `json:"performed_by"`
	CreatedAt    time.Time       `json:"created_at"`

	EquipmentCode     *string `json:"equipment_code"`
	EquipmentName     *string `json:"equipment_name"`
	ClassName         *string `json:"class_name"`
	FromSlotCode      *string `json:"from_slot_code"`
	FromRackCode      *string `json:"from_rack_code"`
	FromWarehouseCode *string `json:"from_warehouse_code"`
	ToSlotCode        *string `json:"to_slot_code"`
	ToRackCode        *string `json:"to_rack_code"`
	ToWarehouseCode   *string `json:"to_warehouse_code"`
	PerformedByName   *string `json:"performed_by_name"`
}

// CreatePlacementRequest is the body of POST /placements: a move that names
// the equipment itself.
type CreatePlacementRequest struct {
	EquipmentID int64 `json:"equipment_id"`
	MoveRequest
}
