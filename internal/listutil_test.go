package internal

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/listing"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		query      string
		page, size int
		tail       string
	}{
		{"", 1, 50, " LIMIT 50 OFFSET 0"},
		{"page=3&page_size=10", 3, 10, " LIMIT 10 OFFSET 20"},
		{"page_size=500", 1, 100, " LIMIT 100 OFFSET 0"},
		{"page=-1&page_size=0", 1, 50, " LIMIT 50 OFFSET 0"},
		{"page=9223372036854775807&page_size=100", listing.MaxPage, 100, " LIMIT 100 OFFSET 214748364600"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p, err := parseListParams(httptest.NewRequest("GET", "/warehouses?"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.page, p.page)
			assert.Equal(t, tt.size, p.pageSize)
			assert.Equal(t, tt.tail, p.limitOffset())
		})
	}

	_, err := parseListParams(httptest.NewRequest("GET", "/warehouses?page=abc", nil))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestSendListResponse(t *testing.T) {
	w := httptest.NewRecorder()
	sendListResponse(w, []string{"WH-A", "WH-B"}, 7, listParams{page: 2, pageSize: 2})

	assert.Equal(t, "7", w.Header().Get("X-Total-Count"))
	assert.JSONEq(t, `{"page":2,"page_size":2,"total":7,"total_pages":4,"rows":["WH-A","WH-B"]}`, w.Body.String())

	w = httptest.NewRecorder()
	sendListResponse[string](w, nil, 0, listParams{page: 1, pageSize: 50})
	assert.JSONEq(t, `{"page":1,"page_size":50,"total":0,"total_pages":0,"rows":[]}`, w.Body.String())
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{"id": "w.warehouse_id", "code": "w.warehouse_code", "name": "w.warehouse_name"}

	assert.Equal(t, " ORDER BY w.warehouse_id ASC", buildOrderBy("", allowed))
	assert.Equal(t, " ORDER BY w.warehouse_code DESC, w.warehouse_name ASC", buildOrderBy("-code,name", allowed))
	assert.Equal(t, " ORDER BY w.warehouse_id ASC", buildOrderBy("password;drop", allowed))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"admin", "manager"}, splitCSV(" admin, ,manager,"))
	assert.Empty(t, splitCSV(""))
}

func TestUpdateSet(t *testing.T) {
	var u updateSet
	assert.True(t, u.empty())

	u.add("warehouse_name", "North")
	u.add("capacity", 40)
	require.False(t, u.empty())

	q, args := u.build("warehouses", "warehouse_id", 7, true, "warehouse_id")
	assert.Equal(t,
		"UPDATE warehouses SET warehouse_name = $1, capacity = $2, updated_at = now() WHERE warehouse_id = $3 RETURNING warehouse_id",
		q)
	assert.Equal(t, []any{"North", 40, int64(7)}, args)

	// building twice does not grow the set
	q2, args2 := u.build("classes", "class_id", 9, false, "class_id")
	assert.Equal(t, "UPDATE classes SET warehouse_name = $1, capacity = $2 WHERE class_id = $3 RETURNING class_id", q2)
	assert.Len(t, args2, 3)
}

func TestSearchSourcesRender(t *testing.T) {
	for _, src := range searchSources() {
		t.Run(src.kind, func(t *testing.T) {
			q, args, err := src.query.Limit(src.limit).ToSql()
			require.NoError(t, err)
			assert.Empty(t, args)
			assert.True(t, strings.HasPrefix(q, "SELECT "))
			assert.Contains(t, q, "LIMIT")
			assert.NotEmpty(t, src.search)
		})
	}
}
