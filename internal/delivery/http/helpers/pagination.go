package helpers

import (
	"net/http"
	"strconv"

	"slotbooking/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePagination reads page and page_size from the query string. Missing, malformed or
// non-positive values fall back to defaults; page_size is capped at MaxPageSize.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	return domain.PaginationParams{
		Page:     positiveInt(q.Get("page"), DefaultPage, 0),
		PageSize: positiveInt(q.Get("page_size"), DefaultPageSize, MaxPageSize),
	}
}

// positiveInt parses s, returning def when s is not a positive integer. A ceiling of 0 means unbounded.
func positiveInt(s string, def, ceiling int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	if ceiling > 0 && v > ceiling {
		return ceiling
	}
	return v
}

// PaginationMeta is the pagination block of list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// NewPaginationMeta derives total pages and whether a next page exists.
func NewPaginationMeta(page, pageSize, total int) PaginationMeta {
	m := PaginationMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		m.TotalPages = (total + pageSize - 1) / pageSize
	}
	m.HasMore = page < m.TotalPages
	return m
}
