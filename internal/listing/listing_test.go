package listing

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/models"
)

func TestParseEquipmentFilter_Defaults(t *testing.T) {
	f, err := ParseEquipmentFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, EquipmentDefaultPageSize, f.PageSize)
	assert.Empty(t, f.Q)
	assert.Nil(t, f.Status)
	assert.Nil(t, f.ClassID)
	assert.Nil(t, f.WarehouseID)
	assert.Nil(t, f.Placed)
}

func TestParseEquipmentFilter_Values(t *testing.T) {
	f, err := ParseEquipmentFilter(url.Values{
		"q":            {"  theodolite "},
		"status":       {"servis"},
		"class_id":     {"3"},
		"warehouse_id": {"2"},
		"placed":       {"false"},
		"page":         {"4"},
		"page_size":    {"25"},
	})
	require.NoError(t, err)
	assert.Equal(t, "theodolite", f.Q)
	assert.Equal(t, models.StatusServis, *f.Status)
	assert.Equal(t, int64(3), *f.ClassID)
	assert.Equal(t, int64(2), *f.WarehouseID)
	assert.False(t, *f.Placed)
	assert.Equal(t, 4, f.Page)
	assert.Equal(t, 25, f.PageSize)
}

func TestParseEquipmentFilter_Clamps(t *testing.T) {
	cases := []struct {
		page, size         string
		wantPage, wantSize int
	}{
		{"0", "1", 1, EquipmentMinPageSize},
		{"-5", "1000", 1, MaxPageSize},
		{"2", "0", 2, EquipmentDefaultPageSize},
		{"9223372036854775807", "100", MaxPage, MaxPageSize},
	}
	for _, c := range cases {
		f, err := ParseEquipmentFilter(url.Values{"page": {c.page}, "page_size": {c.size}})
		require.NoError(t, err)
		assert.Equal(t, c.wantPage, f.Page)
		assert.Equal(t, c.wantSize, f.PageSize)
	}
}

func TestEquipmentQueries_HugePageStaysInRange(t *testing.T) {
	f, err := ParseEquipmentFilter(url.Values{"page": {"9223372036854775807"}, "page_size": {"100"}})
	require.NoError(t, err)

	_, pageQ := equipmentQueries(f)
	sql, _, err := pageQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "OFFSET 214748364600")
}

func TestParseEquipmentFilter_Rejects(t *testing.T) {
	bad := []url.Values{
		{"status": {"Broken"}},
		{"class_id": {"abc"}},
		{"warehouse_id": {"-1"}},
		{"page": {"two"}},
		{"page_size": {"1.5"}},
		{"placed": {"maybe"}},
	}
	for _, v := range bad {
		_, err := ParseEquipmentFilter(v)
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "%v", v)
	}
}

func TestParseHistoryFilter(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	f, err := ParseHistoryFilter(url.Values{
		"equipment_id": {"9"},
		"performed_by": {"4"},
		"date_from":    {"2026-01-01"},
		"date_to":      {"2026-01-31"},
		"page_size":    {"5"},
	}, jakarta)
	require.NoError(t, err)
	assert.Equal(t, int64(9), *f.EquipmentID)
	assert.Equal(t, int64(4), *f.PerformedBy)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, jakarta), *f.DateFrom)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, jakarta), *f.DateTo)
	assert.Equal(t, HistoryMinPageSize, f.PageSize)
	assert.Equal(t, 1, f.Page)

	_, err = ParseHistoryFilter(url.Values{"date_from": {"31/01/2026"}}, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = ParseHistoryFilter(url.Values{"date_from": {"2026-02-01"}, "date_to": {"2026-01-01"}}, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	f, err = ParseHistoryFilter(url.Values{"date_from": {"2026-02-01"}, "date_to": {"2026-02-01"}}, nil)
	require.NoError(t, err, "a single-day range is valid")
	assert.Equal(t, HistoryDefaultPageSize, f.PageSize)
}

func TestEquipmentQueries(t *testing.T) {
	status := models.StatusReady
	wh := int64(2)
	countQ, pageQ := equipmentQueries(EquipmentFilter{
		Q:           "50%_off",
		Status:      &status,
		WarehouseID: &wh,
		Page:        3,
		PageSize:    12,
	})

	countSQL, countArgs, err := countQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, countSQL, "SELECT COUNT(*) FROM equipment e JOIN classes c ON c.class_id = e.class_id")
	assert.Contains(t, countSQL, "LEFT JOIN warehouses w ON w.warehouse_id = r.warehouse_id")
	assert.Contains(t, countSQL, "(e.equipment_code ILIKE $1 OR e.equipment_name ILIKE $2 OR e.serial_number ILIKE $3 OR e.brand ILIKE $4 OR e.model ILIKE $5)")
	assert.Contains(t, countSQL, "e.readiness_status = $6")
	assert.Contains(t, countSQL, "w.warehouse_id = $7")
	assert.NotContains(t, countSQL, "LIMIT")

	pattern := `%50\%\_off%`
	assert.Equal(t, []any{pattern, pattern, pattern, pattern, pattern, "Ready", int64(2)}, countArgs)

	pageSQL, pageArgs, err := pageQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, pageSQL, "e.equipment_id, e.equipment_code")
	assert.Contains(t, pageSQL, "ORDER BY e.created_at DESC, e.equipment_id DESC LIMIT 12 OFFSET 24")
	assert.Equal(t, countArgs, pageArgs)
}

func TestEquipmentQueries_Placement(t *testing.T) {
	no := false
	countQ, _ := equipmentQueries(EquipmentFilter{Placed: &no, Page: 1, PageSize: 12})
	sql, args, err := countQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "e.current_slot_id IS NULL")
	assert.Empty(t, args)

	yes := true
	countQ, _ = equipmentQueries(EquipmentFilter{Placed: &yes, Page: 1, PageSize: 12})
	sql, _, err = countQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "e.current_slot_id IS NOT NULL")
}

func TestHistoryQueries(t *testing.T) {
	wh := int64(5)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	countQ, pageQ := historyQueries(HistoryFilter{
		Q:           "budi",
		WarehouseID: &wh,
		DateFrom:    &from,
		DateTo:      &to,
		Page:        1,
		PageSize:    20,
	})

	countSQL, countArgs, err := countQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, countSQL, "FROM placement_history h LEFT JOIN equipment e ON e.equipment_id = h.equipment_id")
	assert.Contains(t, countSQL, "LEFT JOIN users u ON u.user_id = h.performed_by")
	assert.Contains(t, countSQL, "u.full_name ILIKE $5")
	assert.Contains(t, countSQL, "(fw.warehouse_id = $6 OR tw.warehouse_id = $7)")
	assert.Contains(t, countSQL, "h.created_at >= $8")
	assert.Contains(t, countSQL, "h.created_at < $9")
	require.Len(t, countArgs, 9)
	assert.Equal(t, from, countArgs[7])
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), countArgs[8], "date_to is inclusive")

	pageSQL, _, err := pageQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, pageSQL, "ORDER BY h.created_at DESC, h.history_id DESC LIMIT 20 OFFSET 0")
	assert.Contains(t, pageSQL, "ts.slot_code, tr.rack_code, tw.warehouse_code")
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 12))
	assert.Equal(t, 1, TotalPages(1, 12))
	assert.Equal(t, 1, TotalPages(12, 12))
	assert.Equal(t, 2, TotalPages(13, 12))
	assert.Equal(t, 9, TotalPages(100, 12))
}

func TestPagesCoverResultSetExactlyOnce(t *testing.T) {
	for _, total := range []int{0, 1, 5, 11, 12, 13, 99, 250} {
		for _, size := range []int{5, 12, 37, 100} {
			seen := make([]int, total)
			pages := TotalPages(total, size)
			for p := 1; p <= pages; p++ {
				start := int(offset(p, size))
				end := start + size
				if end > total {
					end = total
				}
				require.Less(t, start, total, "page %d of %d is empty", p, pages)
				for i := start; i < end; i++ {
					seen[i]++
				}
			}
			for i, n := range seen {
				require.Equal(t, 1, n, "row %d seen %d times (total=%d size=%d)", i, n, total, size)
			}
		}
	}
}
