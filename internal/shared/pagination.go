package shared

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 10

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata. The page is kept as given: an
// out-of-range page is legal and simply selects nothing.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + perPage - 1) / perPage
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the half-open index range [start, end) covered by the page.
func (p Pagination) Bounds() (int, int) {
	if p.Page < 1 || p.Page > p.TotalPages {
		return 0, 0
	}
	start := (p.Page - 1) * p.PerPage
	end := start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// Pages lists the selectable page numbers, 1..TotalPages.
func (p Pagination) Pages() []int {
	pages := make([]int, 0, p.TotalPages)
	for n := 1; n <= p.TotalPages; n++ {
		pages = append(pages, n)
	}
	return pages
}

// IsActive reports whether n is the current page.
func (p Pagination) IsActive(n int) bool {
	return p.Page == n
}

// Paginate returns the sub-slice of items visible on the page. The result
// shares the backing array with items.
func Paginate[T any](items []T, p Pagination) []T {
	start, end := p.Bounds()
	if end > len(items) {
		end = len(items)
	}
	if start >= end {
		return items[:0:0]
	}
	return items[start:end:end]
}
