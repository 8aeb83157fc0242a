package listing

// Page is one page of a filtered listing.
type Page[T any] struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	Rows       []T `json:"rows"`
}

// TotalPages is ceil(total / pageSize); zero rows give zero pages.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// NewPage wraps one page of rows with its paging totals.
func NewPage[T any](rows []T, page, pageSize, total int) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: TotalPages(total, pageSize),
		Rows:       rows,
	}
}

// Offset is the row offset of page for pageSize rows per page.
func Offset(page, pageSize int) uint64 { return offset(page, pageSize) }

func offset(page, pageSize int) uint64 {
	return uint64((page - 1) * pageSize)
}
