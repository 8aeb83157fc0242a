package models

import (
	"fmt"
	"strings"
	"time"
)

// ReadinessStatus is the operational state of a piece of equipment.
type ReadinessStatus string

const (
	StatusReady     ReadinessStatus = "Ready"
	StatusDisewa    ReadinessStatus = "Disewa"
	StatusServis    ReadinessStatus = "Servis"
	StatusKalibrasi ReadinessStatus = "Kalibrasi"
	StatusRusak     ReadinessStatus = "Rusak"
	StatusHilang    ReadinessStatus = "Hilang"
)

var ReadinessStatuses = []ReadinessStatus{
	StatusReady, StatusDisewa, StatusServis, StatusKalibrasi, StatusRusak, StatusHilang,
}

func (s ReadinessStatus) Valid() bool {
	for _, v := range ReadinessStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseReadinessStatus accepts the canonical spelling, ignoring case and
// surrounding whitespace.
func ParseReadinessStatus(s string) (ReadinessStatus, error) {
	s = strings.TrimSpace(s)
	for _, v := range ReadinessStatuses {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown readiness status %q", s)
}

type Class struct {
	ID          int64     `json:"class_id"`
	Code        string    `json:"class_code"`
	Name        string    `json:"class_name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateClassRequest struct {
	Code        string  `json:"class_code" validate:"required,max=50"`
	Name        string  `json:"class_name" validate:"required,max=150"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// Equipment is a single tracked item together with its display joins.
type Equipment struct {
	ID              int64           `json:"equipment_id"`
	Code            string          `json:"equipment_code"`
	Name            string          `json:"equipment_name"`
	ClassID         int64           `json:"class_id"`
	ClassCode       *string         `json:"class_code,omitempty"`
	ClassName       *string         `json:"class_name,omitempty"`
	SerialNumber    *string         `json:"serial_number,omitempty"`
	Brand           *string         `json:"brand,omitempty"`
	Model           *string         `json:"model,omitempty"`
	ConditionNote   *string         `json:"condition_note,omitempty"`
	ReadinessStatus ReadinessStatus `json:"readiness_status"`
	CurrentSlotID   *int64          `json:"current_slot_id"`
	SlotCode        *string         `json:"slot_code"`
	SlotLabel       *string         `json:"slot_label"`
	RackID          *int64          `json:"rack_id"`
	RackCode        *string         `json:"rack_code"`
	Zone            *string         `json:"zone"`
	WarehouseID     *int64          `json:"warehouse_id"`
	WarehouseCode   *string         `json:"warehouse_code"`
	WarehouseName   *string         `json:"warehouse_name"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreateEquipmentRequest registers new equipment. New equipment is always
// unplaced; it gets a slot through a move.
type CreateEquipmentRequest struct {
	Code            string  `json:"equipment_code" validate:"required,max=50"`
	Name            string  `json:"equipment_name" validate:"required,max=200"`
	ClassID         int64   `json:"class_id" validate:"required,gt=0"`
	SerialNumber    *string `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	Brand           *string `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model           *string `json:"model,omitempty" validate:"omitempty,max=100"`
	ConditionNote   *string `json:"condition_note,omitempty" validate:"omitempty,max=1000"`
	ReadinessStatus *string `json:"readiness_status,omitempty" validate:"omitempty,readiness"`
}

// UpdateEquipmentRequest lists the descriptive fields an edit may change.
// Location and readiness status are changed only by a placement move.
type UpdateEquipmentRequest struct {
	Code          *string `json:"equipment_code,omitempty" validate:"omitempty,min=1,max=50"`
	Name          *string `json:"equipment_name,omitempty" validate:"omitempty,min=1,max=200"`
	ClassID       *int64  `json:"class_id,omitempty" validate:"omitempty,gt=0"`
	SerialNumber  *string `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	Brand         *string `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model         *string `json:"model,omitempty" validate:"omitempty,max=100"`
	ConditionNote *string `json:"condition_note,omitempty" validate:"omitempty,max=1000"`
}

// Empty reports whether the request names no field at all.
func (r UpdateEquipmentRequest) Empty() bool {
	return r.Code == nil && r.Name == nil && r.ClassID == nil && r.SerialNumber == nil &&
		r.Brand == nil && r.Model == nil && r.ConditionNote == nil
}
