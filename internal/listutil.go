package internal

import (
	"fmt"
	"net/http"
	"strings"

	"rdw-inventory-api/internal/listing"
)

const (
	catalogDefaultPageSize = 50
	catalogMinPageSize     = 1
)

// listParams holds common query parameters for the catalog list endpoints.
// Paging follows the equipment listing: page from 1, page_size clamped.
type listParams struct {
	page     int
	pageSize int
	q        string
	sort     string
}

// parseListParams reads page, page_size, q and sort. Non-integer paging
// values are an InvalidArgument; out-of-range ones are clamped.
func parseListParams(r *http.Request) (listParams, error) {
	values := r.URL.Query()
	page, size, err := listing.ParsePage(values, catalogDefaultPageSize, catalogMinPageSize)
	if err != nil {
		return listParams{}, err
	}
	return listParams{
		page:     page,
		pageSize: size,
		q:        strings.TrimSpace(values.Get("q")),
		sort:     strings.TrimSpace(values.Get("sort")),
	}, nil
}

// limitOffset renders the LIMIT/OFFSET tail for hand-written catalog SQL.
func (p listParams) limitOffset() string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.pageSize, listing.Offset(p.page, p.pageSize))
}

// buildOrderBy builds a safe ORDER BY clause using a whitelist of allowed keys.
// allowed maps incoming sort keys (e.g., "name") to actual column identifiers.
// Input sort is comma-separated; prefix with '-' for DESC.
// Returns a string starting with " ORDER BY ...". Defaults to " ORDER BY id ASC".
func buildOrderBy(sortParam string, allowed map[string]string) string {
	if sortParam == "" {
		if col, ok := allowed["id"]; ok {
			return " ORDER BY " + col + " ASC"
		}
		return " ORDER BY id ASC"
	}

	parts := strings.Split(sortParam, ",")
	clauses := make([]string, 0, len(parts))
	for _, raw := range parts {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		desc := false
		if strings.HasPrefix(s, "-") {
			desc = true
			s = strings.TrimPrefix(s, "-")
		}
		col, ok := allowed[s]
		if !ok {
			continue
		}
		if desc {
			clauses = append(clauses, col+" DESC")
		} else {
			clauses = append(clauses, col+" ASC")
		}
	}
	if len(clauses) == 0 {
		if col, ok := allowed["id"]; ok {
			return " ORDER BY " + col + " ASC"
		}
		return " ORDER BY id ASC"
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// splitCSV splits a comma-separated query value, dropping blanks.
func splitCSV(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
