// Package pagination converts between the console's page-number view state
// and the remote API's limit/offset convention, and defines the page
// envelope shape shared by paginated responses.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds one-based page navigation state.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts page parameters from the echo context.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return Params{Page: page, PageSize: size}
}

// Limit returns the fetch limit for the remote API.
func (p Params) Limit() int {
	return p.PageSize
}

// Offset returns the fetch offset for the remote API.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Pages returns the total page count for a result set.
func (p Params) Pages(total int) int {
	if total <= 0 {
		return 1
	}
	pages := total / p.PageSize
	if total%p.PageSize != 0 {
		pages++
	}
	return pages
}

// HasNext reports whether a page follows the current one.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.PageSize < total
}

// HasPrevious reports whether a page precedes the current one.
func (p Params) HasPrevious() bool {
	return p.Page > 1
}

// Envelope is the canonical paginated listing shape.
type Envelope[T any] struct {
	Total     int      `json:"total"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
	Items     []T      `json:"items"`
	TotalCost *float64 `json:"total_cost,omitempty"`
}

func NewEnvelope[T any](items []T, total, limit, offset int) *Envelope[T] {
	return &Envelope[T]{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Items:  items,
	}
}
