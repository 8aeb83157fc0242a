package models

import "time"

type Warehouse struct {
	ID        int64     `json:"warehouse_id"`
	Code      string    `json:"warehouse_code"`
	Name      string    `json:"warehouse_name"`
	Address   *string   `json:"address,omitempty"`
	Capacity  *int      `json:"capacity,omitempty"`
	RackCount int       `json:"rack_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateWarehouseRequest struct {
	Code     string  `json:"warehouse_code" validate:"required,max=50"`
	Name     string  `json:"warehouse_name" validate:"required,max=150"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,min=0"`
}

type UpdateWarehouseRequest struct {
	Code     *string `json:"warehouse_code,omitempty" validate:"omitempty,min=1,max=50"`
	Name     *string `json:"warehouse_name,omitempty" validate:"omitempty,min=1,max=150"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,min=0"`
}

type Rack struct {
	ID            int64     `json:"rack_id"`
	WarehouseID   int64     `json:"warehouse_id"`
	WarehouseCode string    `json:"warehouse_code"`
	Code          string    `json:"rack_code"`
	Zone          *string   `json:"zone,omitempty"`
	Capacity      *int      `json:"capacity,omitempty"`
	SlotCount     int       `json:"slot_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateRackRequest struct {
	WarehouseID int64   `json:"warehouse_id" validate:"required,gt=0"`
	Code        string  `json:"rack_code" validate:"required,max=50"`
	Zone        *string `json:"zone,omitempty" validate:"omitempty,max=50"`
	Capacity    *int    `json:"capacity,omitempty" validate:"omitempty,min=0"`
}

type UpdateRackRequest struct {
	Code     *string `json:"rack_code,omitempty" validate:"omitempty,min=1,max=50"`
	Zone     *string `json:"zone,omitempty" validate:"omitempty,max=50"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,min=0"`
}

// Slot is a storage position with its location chain and, when occupied,
// the equipment currently placed in it.
type Slot struct {
	ID            int64     `json:"slot_id"`
	RackID        int64     `json:"rack_id"`
	RackCode      string    `json:"rack_code"`
	WarehouseID   int64     `json:"warehouse_id"`
	WarehouseCode string    `json:"warehouse_code"`
	Code          string    `json:"slot_code"`
	Label         *string   `json:"slot_label,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	EquipmentID   *int64    `json:"equipment_id"`
	EquipmentCode *string   `json:"equipment_code"`
	EquipmentName *string   `json:"equipment_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Occupied reports whether an equipment currently sits in the slot.
func (s Slot) Occupied() bool { return s.EquipmentID != nil }

type CreateSlotRequest struct {
	RackID int64   `json:"rack_id" validate:"required,gt=0"`
	Code   string  `json:"slot_code" validate:"required,max=50"`
	Label  *string `json:"slot_label,omitempty" validate:"omitempty,max=100"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type UpdateSlotRequest struct {
	Code  *string `json:"slot_code,omitempty" validate:"omitempty,min=1,max=50"`
	Label *string `json:"slot_label,omitempty" validate:"omitempty,max=100"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}
