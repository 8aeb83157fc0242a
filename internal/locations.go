package internal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/models"
	"rdw-inventory-api/internal/storage/postgres"
)

// Warehouses

const warehouseSelect = `
	SELECT w.warehouse_id, w.warehouse_code, w.warehouse_name, w.address, w.capacity,
	       (SELECT COUNT(*) FROM racks r WHERE r.warehouse_id = w.warehouse_id),
	       w.created_at, w.updated_at
	FROM warehouses w`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarehouse(row rowScanner) (models.Warehouse, error) {
	var wh models.Warehouse
	err := row.Scan(&wh.ID, &wh.Code, &wh.Name, &wh.Address, &wh.Capacity,
		&wh.RackCount, &wh.CreatedAt, &wh.UpdatedAt)
	return wh, err
}

func (s *Server) listWarehouses(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	clauses := []string{}
	args := []any{}
	if params.q != "" {
		args = append(args, "%"+params.q+"%")
		clauses = append(clauses, fmt.Sprintf("(w.warehouse_code ILIKE $%d OR w.warehouse_name ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db().QueryRowContext(r.Context(), "SELECT COUNT(*) FROM warehouses w"+where, args...).Scan(&total); err != nil {
		s.internalError(w, r, err)
		return
	}

	allowedSort := map[string]string{
		"id":             "w.warehouse_code",
		"warehouse_code": "w.warehouse_code",
		"warehouse_name": "w.warehouse_name",
		"created_at":     "w.created_at",
	}
	sqlStr := warehouseSelect + where + buildOrderBy(params.sort, allowedSort) +
		params.limitOffset()

	rows, err := s.db().QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer rows.Close()

	out := []models.Warehouse{}
	for rows.Next() {
		wh, err := scanWarehouse(rows)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		out = append(out, wh)
	}
	if err := rows.Err(); err != nil {
		s.internalError(w, r, err)
		return
	}
	sendListResponse(w, out, total, params)
}

func (s *Server) fetchWarehouse(ctx context.Context, id int64) (models.Warehouse, error) {
	wh, err := scanWarehouse(s.db().QueryRowContext(ctx, warehouseSelect+" WHERE w.warehouse_id = $1", id))
	if isNoRows(err) {
		return wh, apperr.NotFound("warehouse_not_found", "warehouse not found")
	}
	return wh, err
}

func (s *Server) getWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wh, err := s.fetchWarehouse(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (s *Server) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var in models.CreateWarehouseRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	var id int64
	err := s.db().QueryRowContext(r.Context(), `
		INSERT INTO warehouses (warehouse_code, warehouse_name, address, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING warehouse_id`,
		strings.TrimSpace(in.Code), strings.TrimSpace(in.Name), nullIfEmpty(in.Address), in.Capacity,
	).Scan(&id)
	if err != nil {
		s.writeError(w, r, catalogWriteError(err, "warehouse_code"))
		return
	}
	wh, err := s.fetchWarehouse(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wh)
}

func (s *Server) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in models.UpdateWarehouseRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	var set updateSet
	if in.Code != nil {
		set.add("warehouse_code", strings.TrimSpace(*in.Code))
	}
	if in.Name != nil {
		set.add("warehouse_name", strings.TrimSpace(*in.Name))
	}
	if in.Address != nil {
		set.add("address", nullIfEmpty(in.Address))
	}
	if in.Capacity != nil {
		set.add("capacity", *in.Capacity)
	}
	if set.empty() {
		s.badRequest(w, r, "no fields to update")
		return
	}

	sqlStr, args := set.build("warehouses", "warehouse_id", id, true, "warehouse_id")
	if err := s.db().QueryRowContext(r.Context(), sqlStr, args...).Scan(&id); err != nil {
		if isNoRows(err) {
			s.notFound(w, r, "warehouse")
			return
		}
		s.writeError(w, r, catalogWriteError(err, "warehouse_code"))
		return
	}
	wh, err := s.fetchWarehouse(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// Racks

const rackSelect = `
	SELECT r.rack_id, r.warehouse_id, w.warehouse_code, r.rack_code, r.zone, r.capacity,
	       (SELECT COUNT(*) FROM slots s WHERE s.rack_id = r.rack_id),
	       r.created_at, r.updated_at
	FROM racks r
	JOIN warehouses w ON w.warehouse_id = r.warehouse_id`

func scanRack(row rowScanner) (models.Rack, error) {
	var rk models.Rack
	err := row.Scan(&rk.ID, &rk.WarehouseID, &rk.WarehouseCode, &rk.Code, &rk.Zone, &rk.Capacity,
		&rk.SlotCount, &rk.CreatedAt, &rk.UpdatedAt)
	return rk, err
}

func (s *Server) listRacks(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	clauses := []string{}
	args := []any{}
	if v := strings.TrimSpace(r.URL.Query().Get("warehouse_id")); v != "" {
		whID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || whID <= 0 {
			s.badRequest(w, r, "warehouse_id must be a positive integer")
			return
		}
		args = append(args, whID)
		clauses = append(clauses, fmt.Sprintf("r.warehouse_id = $%d", len(args)))
	}
	if params.q != "" {
		args = append(args, "%"+params.q+"%")
		clauses = append(clauses, fmt.Sprintf("(r.rack_code ILIKE $%d OR r.zone ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db().QueryRowContext(r.Context(),
		"SELECT COUNT(*) FROM racks r JOIN warehouses w ON w.warehouse_id = r.warehouse_id"+where, args...,
	).Scan(&total); err != nil {
		s.internalError(w, r, err)
		return
	}

	allowedSort := map[string]string{
		"id":         "w.warehouse_code, r.rack_code",
		"rack_code":  "r.rack_code",
		"zone":       "r.zone",
		"created_at": "r.created_at",
	}
	sqlStr := rackSelect + where + buildOrderBy(params.sort, allowedSort) +
		params.limitOffset()

	rows, err := s.db().QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer rows.Close()

	out := []models.Rack{}
	for rows.Next() {
		rk, err := scanRack(rows)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		out = append(out, rk)
	}
	if err := rows.Err(); err != nil {
		s.internalError(w, r, err)
		return
	}
	sendListResponse(w, out, total, params)
}

func (s *Server) fetchRack(ctx context.Context, id int64) (models.Rack, error) {
	rk, err := scanRack(s.db().QueryRowContext(ctx, rackSelect+" WHERE r.rack_id = $1", id))
	if isNoRows(err) {
		return rk, apperr.NotFound("rack_not_found", "rack not found")
	}
	return rk, err
}

func (s *Server) getRack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rk, err := s.fetchRack(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rk)
}

func (s *Server) createRack(w http.ResponseWriter, r *http.Request) {
	var in models.CreateRackRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	var id int64
	err := s.db().QueryRowContext(r.Context(), `
		INSERT INTO racks (warehouse_id, rack_code, zone, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING rack_id`,
		in.WarehouseID, strings.TrimSpace(in.Code), nullIfEmpty(in.Zone), in.Capacity,
	).Scan(&id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			s.notFound(w, r, "warehouse")
			return
		}
		s.writeError(w, r, catalogWriteError(err, "rack_code"))
		return
	}
	rk, err := s.fetchRack(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rk)
}

func (s *Server) updateRack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in models.UpdateRackRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	var set updateSet
	if in.Code != nil {
		set.add("rack_code", strings.TrimSpace(*in.Code))
	}
	if in.Zone != nil {
		set.add("zone", nullIfEmpty(in.Zone))
	}
	if in.Capacity != nil {
		set.add("capacity", *in.Capacity)
	}
	if set.empty() {
		s.badRequest(w, r, "no fields to update")
		return
	}

	sqlStr, args := set.build("racks", "rack_id", id, true, "rack_id")
	if err := s.db().QueryRowContext(r.Context(), sqlStr, args...).Scan(&id); err != nil {
		if isNoRows(err) {
			s.notFound(w, r, "rack")
			return
		}
		s.writeError(w, r, catalogWriteError(err, "rack_code"))
		return
	}
	rk, err := s.fetchRack(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rk)
}

// Slots. Occupancy is read from equipment.current_slot_id.

const slotSelect = `
	SELECT s.slot_id, s.rack_id, r.rack_code, w.warehouse_id, w.warehouse_code,
	       s.slot_code, s.slot_label, s.notes,
	       e.equipment_id, e.equipment_code, e.equipment_name,
	       s.created_at, s.updated_at
	FROM slots s
	JOIN racks r ON r.rack_id = s.rack_id
	JOIN warehouses w ON w.warehouse_id = r.warehouse_id
	LEFT JOIN equipment e ON e.current_slot_id = s.slot_id`

const slotOrder = " ORDER BY w.warehouse_code, r.rack_code, s.slot_code"

func scanSlot(row rowScanner) (models.Slot, error) {
	var sl models.Slot
	err := row.Scan(&sl.ID, &sl.RackID, &sl.RackCode, &sl.WarehouseID, &sl.WarehouseCode,
		&sl.Code, &sl.Label, &sl.Notes,
		&sl.EquipmentID, &sl.EquipmentCode, &sl.EquipmentName,
		&sl.CreatedAt, &sl.UpdatedAt)
	return sl, err
}

// slotFilter reads rack_id and warehouse_id from the query string.
func slotFilter(r *http.Request) (clauses []string, args []any, err error) {
	q := r.URL.Query()
	for _, f := range []struct{ key, col string }{
		{"rack_id", "s.rack_id"},
		{"warehouse_id", "w.warehouse_id"},
	} {
		v := strings.TrimSpace(q.Get(f.key))
		if v == "" {
			continue
		}
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || id <= 0 {
			return nil, nil, apperr.InvalidArgument("%s must be a positive integer", f.key)
		}
		args = append(args, id)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", f.col, len(args)))
	}
	return clauses, args, nil
}

func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	clauses, args, err := slotFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch strings.TrimSpace(r.URL.Query().Get("available")) {
	case "1", "true":
		clauses = append(clauses, "e.equipment_id IS NULL")
	}
	s.writeSlots(w, r, clauses, args)
}

// listEmptySlots is the target picker for a move: every slot with no
// occupant.
func (s *Server) listEmptySlots(w http.ResponseWriter, r *http.Request) {
	clauses, args, err := slotFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSlots(w, r, append(clauses, "e.equipment_id IS NULL"), args)
}

func (s *Server) writeSlots(w http.ResponseWriter, r *http.Request, clauses []string, args []any) {
	sqlStr := slotSelect
	if len(clauses) > 0 {
		sqlStr += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlStr += slotOrder

	rows, err := s.db().QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer rows.Close()

	out := []models.Slot{}
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		out = append(out, sl)
	}
	if err := rows.Err(); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "total": len(out)})
}

func (s *Server) fetchSlot(ctx context.Context, id int64) (models.Slot, error) {
	sl, err := scanSlot(s.db().QueryRowContext(ctx, slotSelect+" WHERE s.slot_id = $1", id))
	if isNoRows(err) {
		return sl, apperr.NotFound(apperr.CodeSlotNotFound, "slot not found")
	}
	return sl, err
}

func (s *Server) getSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sl, err := s.fetchSlot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

func (s *Server) createSlot(w http.ResponseWriter, r *http.Request) {
	var in models.CreateSlotRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	var id int64
	err := s.db().QueryRowContext(r.Context(), `
		INSERT INTO slots (rack_id, slot_code, slot_label, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING slot_id`,
		in.RackID, strings.TrimSpace(in.Code), nullIfEmpty(in.Label), nullIfEmpty(in.Notes),
	).Scan(&id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			s.notFound(w, r, "rack")
			return
		}
		s.writeError(w, r, catalogWriteError(err, "slot_code"))
		return
	}
	sl, err := s.fetchSlot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sl)
}

func (s *Server) updateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in models.UpdateSlotRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	var set updateSet
	if in.Code != nil {
		set.add("slot_code", strings.TrimSpace(*in.Code))
	}
	if in.Label != nil {
		set.add("slot_label", nullIfEmpty(in.Label))
	}
	if in.Notes != nil {
		set.add("notes", nullIfEmpty(in.Notes))
	}
	if set.empty() {
		s.badRequest(w, r, "no fields to update")
		return
	}

	sqlStr, args := set.build("slots", "slot_id", id, true, "slot_id")
	if err := s.db().QueryRowContext(r.Context(), sqlStr, args...).Scan(&id); err != nil {
		if isNoRows(err) {
			s.writeError(w, r, apperr.NotFound(apperr.CodeSlotNotFound, "slot not found"))
			return
		}
		s.writeError(w, r, catalogWriteError(err, "slot_code"))
		return
	}
	sl, err := s.fetchSlot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

// catalogWriteError maps a duplicate key to a 409 naming the field.
func catalogWriteError(err error, field string) error {
	if isUniqueViolation(err) {
		return apperr.Conflict("duplicate_"+field, field+" already exists")
	}
	return err
}
