package internal

import (
	"context"
	"net/http"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"rdw-inventory-api/internal/listing"
)

const maxSearchLen = 60

// SearchResult is one hit of the global search box.
type SearchResult struct {
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type searchSource struct {
	kind   string
	limit  uint64
	query  sq.SelectBuilder
	search []string
}

func searchSources() []searchSource {
	return []searchSource{
		{
			kind:  "equipment",
			limit: 8,
			query: psql.Select(
				"e.equipment_id",
				"e.equipment_code || ' - ' || e.equipment_name",
				"e.readiness_status || COALESCE(' · SN: ' || e.serial_number, '') || ' · ' || c.class_name",
			).From("equipment e").
				Join("classes c ON c.class_id = e.class_id").
				OrderBy("e.equipment_name"),
			search: []string{"e.equipment_code", "e.equipment_name", "e.serial_number", "e.brand",
				"e.model", "e.readiness_status", "c.class_name", "c.class_code"},
		},
		{
			kind:  "class",
			limit: 6,
			query: psql.Select("c.class_id", "c.class_code || ' - ' || c.class_name", "COALESCE(c.description, '')").
				From("classes c").
				OrderBy("c.class_name"),
			search: []string{"c.class_code", "c.class_name", "c.description"},
		},
		{
			kind:  "warehouse",
			limit: 6,
			query: psql.Select("w.warehouse_id", "w.warehouse_code || ' - ' || w.warehouse_name", "COALESCE(w.address, '')").
				From("warehouses w").
				OrderBy("w.warehouse_name"),
			search: []string{"w.warehouse_code", "w.warehouse_name", "w.address"},
		},
		{
			kind:  "rack",
			limit: 8,
			query: psql.Select(
				"r.rack_id",
				"r.rack_code || COALESCE(' · ' || r.zone, '') || ' - ' || w.warehouse_name",
				"'Warehouse: ' || w.warehouse_code || COALESCE(' · Capacity: ' || r.capacity, '')",
			).From("racks r").
				Join("warehouses w ON w.warehouse_id = r.warehouse_id").
				OrderBy("w.warehouse_name", "r.rack_code"),
			search: []string{"r.rack_code", "r.zone", "w.warehouse_name", "w.warehouse_code"},
		},
		{
			kind:  "slot",
			limit: 10,
			query: psql.Select(
				"s.slot_id",
				"s.slot_code || COALESCE(' - ' || s.slot_label, '')",
				"'Rack: ' || r.rack_code || COALESCE(' · Zone: ' || r.zone, '') || ' · Warehouse: ' || w.warehouse_name",
			).From("slots s").
				Join("racks r ON r.rack_id = s.rack_id").
				Join("warehouses w ON w.warehouse_id = r.warehouse_id").
				OrderBy("w.warehouse_name", "r.rack_code", "s.slot_code"),
			search: []string{"s.slot_code", "s.slot_label", "r.rack_code", "r.zone", "w.warehouse_name", "w.warehouse_code"},
		},
	}
}

// search handles GET /search?q=. Each entity type contributes a few
// best-ordered hits.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if rs := []rune(q); len(rs) > maxSearchLen {
		q = string(rs[:maxSearchLen])
	}
	if q == "" {
		writeJSON(w, http.StatusOK, map[string]any{"q": "", "results": []SearchResult{}})
		return
	}

	pattern := listing.LikePattern(q)
	results := []SearchResult{}
	for _, src := range searchSources() {
		hits, err := s.runSearch(r.Context(), src, pattern)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		results = append(results, hits...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"q": q, "results": results})
}

func (s *Server) runSearch(ctx context.Context, src searchSource, pattern string) ([]SearchResult, error) {
	sqlStr, args, err := src.query.
		Where(listing.ILikeAny(pattern, src.search...)).
		Limit(src.limit).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		res := SearchResult{Type: src.kind}
		if err := rows.Scan(&res.ID, &res.Title, &res.Subtitle); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
