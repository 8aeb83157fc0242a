package testutil

import (
	"database/sql"
	"fmt"
	"testing"
)

// Layout is a seeded warehouse with one rack of slots and a class.
type Layout struct {
	WarehouseID int64
	RackID      int64
	SlotIDs     []int64
	ClassID     int64
}

// SeedLayout creates warehouse WH-<suffix> with rack R1 holding n slots.
func SeedLayout(t testing.TB, conn *sql.DB, suffix string, n int) Layout {
	t.Helper()
	var l Layout
	mustScan(t, conn.QueryRow(
		`INSERT INTO warehouses (warehouse_code, warehouse_name) VALUES ($1, $2) RETURNING warehouse_id`,
		"WH-"+suffix, "Warehouse "+suffix), &l.WarehouseID)
	mustScan(t, conn.QueryRow(
		`INSERT INTO racks (warehouse_id, rack_code) VALUES ($1, 'R1') RETURNING rack_id`,
		l.WarehouseID), &l.RackID)
	for i := 1; i <= n; i++ {
		var id int64
		mustScan(t, conn.QueryRow(
			`INSERT INTO slots (rack_id, slot_code) VALUES ($1, $2) RETURNING slot_id`,
			l.RackID, fmt.Sprintf("S%02d", i)), &id)
		l.SlotIDs = append(l.SlotIDs, id)
	}
	mustScan(t, conn.QueryRow(
		`INSERT INTO classes (class_code, class_name) VALUES ($1, $2)
		 ON CONFLICT (class_code) DO UPDATE SET class_name = EXCLUDED.class_name
		 RETURNING class_id`,
		"CLS-"+suffix, "Class "+suffix), &l.ClassID)
	return l
}

// SeedEquipment inserts an unplaced, Ready equipment row.
func SeedEquipment(t testing.TB, conn *sql.DB, classID int64, code, name string) int64 {
	t.Helper()
	var id int64
	mustScan(t, conn.QueryRow(
		`INSERT INTO equipment (equipment_code, equipment_name, class_id) VALUES ($1, $2, $3) RETURNING equipment_id`,
		code, name, classID), &id)
	return id
}

// SeedUser inserts an active user with a placeholder password hash.
func SeedUser(t testing.TB, conn *sql.DB, username, fullName, role string) int64 {
	t.Helper()
	var id int64
	mustScan(t, conn.QueryRow(
		`INSERT INTO users (username, password_hash, full_name, role) VALUES ($1, 'x', $2, $3) RETURNING user_id`,
		username, fullName, role), &id)
	return id
}

func mustScan(t testing.TB, row *sql.Row, dst ...any) {
	t.Helper()
	if err := row.Scan(dst...); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
