package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/models"
)

const (
	EquipmentDefaultPageSize = 12
	EquipmentMinPageSize     = 5
	HistoryDefaultPageSize   = 20
	HistoryMinPageSize       = 10
	MaxPageSize              = 100
	// MaxPage keeps (page-1)*MaxPageSize well inside an int64 OFFSET.
	MaxPage = math.MaxInt32

	maxQueryLen = 100
	dateLayout  = "2006-01-02"
)

// EquipmentFilter narrows the equipment listing. Nil fields do not filter.
type EquipmentFilter struct {
	Q           string
	Status      *models.ReadinessStatus
	ClassID     *int64
	WarehouseID *int64
	Placed      *bool
	Page        int
	PageSize    int
}

// HistoryFilter narrows the placement history listing. DateFrom and DateTo
// are calendar days, both inclusive.
type HistoryFilter struct {
	Q           string
	EquipmentID *int64
	ClassID     *int64
	WarehouseID *int64
	PerformedBy *int64
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

// ParseEquipmentFilter reads q, status, class_id, warehouse_id, placed,
// page and page_size. Out-of-range page values are clamped; values that do
// not parse are rejected.
func ParseEquipmentFilter(v url.Values) (EquipmentFilter, error) {
	f := EquipmentFilter{Q: trimQuery(v.Get("q"))}
	var err error

	if s := strings.TrimSpace(v.Get("status")); s != "" {
		st, perr := models.ParseReadinessStatus(s)
		if perr != nil {
			return f, apperr.InvalidArgument("status must be one of Ready, Disewa, Servis, Kalibrasi, Rusak, Hilang")
		}
		f.Status = &st
	}
	if f.ClassID, err = optionalID(v, "class_id"); err != nil {
		return f, err
	}
	if f.WarehouseID, err = optionalID(v, "warehouse_id"); err != nil {
		return f, err
	}
	if s := strings.TrimSpace(v.Get("placed")); s != "" {
		b, perr := strconv.ParseBool(s)
		if perr != nil {
			return f, apperr.InvalidArgument("placed must be true or false")
		}
		f.Placed = &b
	}
	if f.Page, f.PageSize, err = parsePage(v, EquipmentDefaultPageSize, EquipmentMinPageSize); err != nil {
		return f, err
	}
	return f, nil
}

// ParseHistoryFilter reads q, equipment_id, class_id, warehouse_id,
// performed_by, date_from, date_to, page and page_size. Dates are
// YYYY-MM-DD in loc.
func ParseHistoryFilter(v url.Values, loc *time.Location) (HistoryFilter, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := HistoryFilter{Q: trimQuery(v.Get("q"))}
	var err error

	if f.EquipmentID, err = optionalID(v, "equipment_id"); err != nil {
		return f, err
	}
	if f.ClassID, err = optionalID(v, "class_id"); err != nil {
		return f, err
	}
	if f.WarehouseID, err = optionalID(v, "warehouse_id"); err != nil {
		return f, err
	}
	if f.PerformedBy, err = optionalID(v, "performed_by"); err != nil {
		return f, err
	}
	if f.DateFrom, err = optionalDate(v, "date_from", loc); err != nil {
		return f, err
	}
	if f.DateTo, err = optionalDate(v, "date_to", loc); err != nil {
		return f, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return f, apperr.InvalidArgument("date_from must not be after date_to")
	}
	if f.Page, f.PageSize, err = parsePage(v, HistoryDefaultPageSize, HistoryMinPageSize); err != nil {
		return f, err
	}
	return f, nil
}

func trimQuery(q string) string {
	q = strings.TrimSpace(q)
	if r := []rune(q); len(r) > maxQueryLen {
		q = string(r[:maxQueryLen])
	}
	return q
}

func optionalID(v url.Values, key string) (*int64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.InvalidArgument("%s must be a positive integer", key)
	}
	return &id, nil
}

func optionalDate(v url.Values, key string, loc *time.Location) (*time.Time, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return nil, apperr.InvalidArgument("%s must be a date in YYYY-MM-DD format", key)
	}
	return &d, nil
}

// ParsePage reads page and page_size the way the equipment and history
// listings do, for callers with their own size bounds.
func ParsePage(v url.Values, defaultSize, minSize int) (page, size int, err error) {
	return parsePage(v, defaultSize, minSize)
}

func parsePage(v url.Values, defaultSize, minSize int) (page, size int, err error) {
	page, size = 1, defaultSize
	if s := strings.TrimSpace(v.Get("page")); s != "" {
		if page, err = strconv.Atoi(s); err != nil {
			return 0, 0, apperr.InvalidArgument("page must be an integer")
		}
	}
	if s := strings.TrimSpace(v.Get("page_size")); s != "" {
		if size, err = strconv.Atoi(s); err != nil {
			return 0, 0, apperr.InvalidArgument("page_size must be an integer")
		}
	}
	page, size = clampPage(page, size, defaultSize, minSize)
	return page, size, nil
}

func clampPage(page, size, defaultSize, minSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size == 0 {
		size = defaultSize
	}
	if size < minSize {
		size = minSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
