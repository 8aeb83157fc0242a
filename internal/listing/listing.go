// Package listing serves the paginated, filtered equipment and placement
// history views. Every listing runs a COUNT over the filtered set and then
// fetches one page with a total order, so pages never overlap.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/models"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Lister struct {
	db Querier
}

func NewLister(db Querier) *Lister {
	return &Lister{db: db}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps q in %...% with LIKE metacharacters escaped.
func LikePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// ILikeAny matches pattern case-insensitively against any of cols.
func ILikeAny(pattern string, cols ...string) sq.Or {
	or := make(sq.Or, 0, len(cols))
	for _, c := range cols {
		or = append(or, sq.ILike{c: pattern})
	}
	return or
}

const equipmentColumns = `e.equipment_id, e.equipment_code, e.equipment_name,
	e.class_id, c.class_code, c.class_name,
	e.serial_number, e.brand, e.model, e.condition_note,
	e.readiness_status, e.current_slot_id,
	s.slot_code, s.slot_label, r.rack_id, r.rack_code, r.zone,
	w.warehouse_id, w.warehouse_code, w.warehouse_name,
	e.created_at, e.updated_at`

func equipmentBase(f EquipmentFilter) sq.SelectBuilder {
	b := psql.Select().
		From("equipment e").
		Join("classes c ON c.class_id = e.class_id").
		LeftJoin("slots s ON s.slot_id = e.current_slot_id").
		LeftJoin("racks r ON r.rack_id = s.rack_id").
		LeftJoin("warehouses w ON w.warehouse_id = r.warehouse_id")

	if f.Q != "" {
		b = b.Where(ILikeAny(LikePattern(f.Q),
			"e.equipment_code", "e.equipment_name", "e.serial_number", "e.brand", "e.model"))
	}
	if f.Status != nil {
		b = b.Where(sq.Eq{"e.readiness_status": string(*f.Status)})
	}
	if f.ClassID != nil {
		b = b.Where(sq.Eq{"e.class_id": *f.ClassID})
	}
	if f.WarehouseID != nil {
		b = b.Where(sq.Eq{"w.warehouse_id": *f.WarehouseID})
	}
	if f.Placed != nil {
		if *f.Placed {
			b = b.Where(sq.NotEq{"e.current_slot_id": nil})
		} else {
			b = b.Where(sq.Eq{"e.current_slot_id": nil})
		}
	}
	return b
}

func equipmentQueries(f EquipmentFilter) (count, page sq.SelectBuilder) {
	base := equipmentBase(f)
	count = base.Columns("COUNT(*)")
	page = base.Columns(equipmentColumns).
		OrderBy("e.created_at DESC", "e.equipment_id DESC").
		Limit(uint64(f.PageSize)).
		Offset(offset(f.Page, f.PageSize))
	return count, page
}

// ListEquipment returns one page of equipment with class and location joins,
// newest first.
func (l *Lister) ListEquipment(ctx context.Context, f EquipmentFilter) (*Page[models.Equipment], error) {
	f.Page, f.PageSize = clampPage(f.Page, f.PageSize, EquipmentDefaultPageSize, EquipmentMinPageSize)
	countQ, pageQ := equipmentQueries(f)

	total, err := l.count(ctx, countQ)
	if err != nil {
		return nil, err
	}

	query, args, err := pageQ.ToSql()
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("build equipment page: %w", err), false)
	}
	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("query equipment page: %w", err), false)
	}
	defer rows.Close()

	out := make([]models.Equipment, 0, f.PageSize)
	for rows.Next() {
		e, err := ScanEquipment(rows)
		if err != nil {
			return nil, apperr.Storage(err, false)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(fmt.Errorf("iterate equipment page: %w", err), false)
	}

	page := NewPage(out, f.Page, f.PageSize, total)
	return &page, nil
}

// ScanEquipment scans one row selected with the equipment listing columns.
func ScanEquipment(row pgx.Row) (models.Equipment, error) {
	var e models.Equipment
	var status string
	err := row.Scan(
		&e.ID, &e.Code, &e.Name,
		&e.ClassID, &e.ClassCode, &e.ClassName,
		&e.SerialNumber, &e.Brand, &e.Model, &e.ConditionNote,
		&status, &e.CurrentSlotID,
		&e.SlotCode, &e.SlotLabel, &e.RackID, &e.RackCode, &e.Zone,
		&e.WarehouseID, &e.WarehouseCode, &e.WarehouseName,
		&e.CreatedAt, &e.UpdatedAt,
	)
	e.ReadinessStatus = models.ReadinessStatus(status)
	return e, err
}

// GetEquipment returns one equipment row with the listing joins.
func (l *Lister) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	query, args, err := equipmentBase(EquipmentFilter{}).
		Columns(equipmentColumns).
		Where(sq.Eq{"e.equipment_id": id}).
		ToSql()
	if err != nil {
		return nil, apperr.Storage(err, false)
	}
	e, err := ScanEquipment(l.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(apperr.CodeEquipmentNotFound, "equipment not found")
	}
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("get equipment %d: %w", id, err), false)
	}
	return &e, nil
}

const historyColumns = `h.history_id, h.equipment_id, h.from_slot_id, h.to_slot_id,
	h.status_before, h.status_after, h.description, h.performed_by, h.created_at,
	e.equipment_code, e.equipment_name, c.class_name,
	fs.slot_code, fr.rack_code, fw.warehouse_code,
	ts.slot_code, tr.rack_code, tw.warehouse_code,
	u.full_name`

func historyBase(f HistoryFilter) sq.SelectBuilder {
	b := psql.Select().
		From("placement_history h").
		LeftJoin("equipment e ON e.equipment_id = h.equipment_id").
		LeftJoin("classes c ON c.class_id = e.class_id").
		LeftJoin("slots fs ON fs.slot_id = h.from_slot_id").
		LeftJoin("racks fr ON fr.rack_id = fs.rack_id").
		LeftJoin("warehouses fw ON fw.warehouse_id = fr.warehouse_id").
		LeftJoin("slots ts ON ts.slot_id = h.to_slot_id").
		LeftJoin("racks tr ON tr.rack_id = ts.rack_id").
		LeftJoin("warehouses tw ON tw.warehouse_id = tr.warehouse_id").
		LeftJoin("users u ON u.user_id = h.performed_by")

	if f.Q != "" {
		b = b.Where(ILikeAny(LikePattern(f.Q),
			"e.equipment_code", "e.equipment_name", "e.serial_number", "h.description", "u.full_name"))
	}
	if f.EquipmentID != nil {
		b = b.Where(sq.Eq{"h.equipment_id": *f.EquipmentID})
	}
	if f.ClassID != nil {
		b = b.Where(sq.Eq{"e.class_id": *f.ClassID})
	}
	if f.WarehouseID != nil {
		b = b.Where(sq.Or{sq.Eq{"fw.warehouse_id": *f.WarehouseID}, sq.Eq{"tw.warehouse_id": *f.WarehouseID}})
	}
	if f.PerformedBy != nil {
		b = b.Where(sq.Eq{"h.performed_by": *f.PerformedBy})
	}
	if f.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"h.created_at": *f.DateFrom})
	}
	if f.DateTo != nil {
		b = b.Where(sq.Lt{"h.created_at": f.DateTo.AddDate(0, 0, 1)})
	}
	return b
}

func historyQueries(f HistoryFilter) (count, page sq.SelectBuilder) {
	base := historyBase(f)
	count = base.Columns("COUNT(*)")
	page = base.Columns(historyColumns).
		OrderBy("h.created_at DESC", "h.history_id DESC").
		Limit(uint64(f.PageSize)).
		Offset(offset(f.Page, f.PageSize))
	return count, page
}

// ListHistory returns one page of placement history, newest first, with both
// location chains and the performer's name resolved where they still exist.
func (l *Lister) ListHistory(ctx context.Context, f HistoryFilter) (*Page[models.PlacementHistory], error) {
	f.Page, f.PageSize = clampPage(f.Page, f.PageSize, HistoryDefaultPageSize, HistoryMinPageSize)
	countQ, pageQ := historyQueries(f)

	total, err := l.count(ctx, countQ)
	if err != nil {
		return nil, err
	}

	query, args, err := pageQ.ToSql()
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("build history page: %w", err), false)
	}
	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("query history page: %w", err), false)
	}
	defer rows.Close()

	out := make([]models.PlacementHistory, 0, f.PageSize)
	for rows.Next() {
		var h models.PlacementHistory
		var before, after string
		if err := rows.Scan(
			&h.ID, &h.EquipmentID, &h.FromSlotID, &h.ToSlotID,
			&before, &after, &h.Description, &h.PerformedBy, &h.CreatedAt,
			&h.EquipmentCode, &h.EquipmentName, &h.ClassName,
			&h.FromSlotCode, &h.FromRackCode, &h.FromWarehouseCode,
			&h.ToSlotCode, &h.ToRackCode, &h.ToWarehouseCode,
			&h.PerformedByName,
		); err != nil {
			return nil, apperr.Storage(fmt.Errorf("scan history row: %w", err), false)
		}
		h.StatusBefore = models.ReadinessStatus(before)
		h.StatusAfter = models.ReadinessStatus(after)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(fmt.Errorf("iterate history page: %w", err), false)
	}

	page := NewPage(out, f.Page, f.PageSize, total)
	return &page, nil
}

func (l *Lister) count(ctx context.Context, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, apperr.Storage(fmt.Errorf("build count: %w", err), false)
	}
	var total int
	if err := l.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperr.Storage(fmt.Errorf("count rows: %w", err), false)
	}
	return total, nil
}
