package pagination

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Params is a normalized page request. Page is kept as requested (it may be
// out of range); PageSize is clamped.
type Params struct {
	Page     int
	PageSize int
}

// Page is the common list envelope
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// NewParams clamps pageSize into [1, maxSize], using def when it is not positive
func NewParams(page, pageSize, def, maxSize int) Params {
	if def <= 0 {
		def = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if pageSize <= 0 {
		pageSize = def
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return Params{Page: page, PageSize: pageSize}
}

func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

func (p Params) Limit() int {
	return p.PageSize
}

// TotalPages for a given total item count
func (p Params) TotalPages(total int) int {
	if total <= 0 || p.PageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(p.PageSize)))
}

// InRange reports whether Page addresses an existing page for total items
func (p Params) InRange(total int) bool {
	return p.Page >= 1 && p.Page <= p.TotalPages(total)
}

// Build assembles the envelope. Items is never nil so it encodes as [].
func Build[T any](p Params, items []T, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages(total),
		TotalItems: total,
	}
}

// Empty is an out-of-range page carrying the real totals
func Empty[T any](p Params, total int) Page[T] {
	return Build[T](p, nil, total)
}
