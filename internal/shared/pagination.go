package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"limit"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	pages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, Pages: pages}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	off := (p.Page - 1) * p.PerPage
	if off < 0 {
		return 0
	}
	return off
}
