package valuation

import "errors"

// ErrPageOutOfRange is returned for a page index past the last page
var ErrPageOutOfRange = errors.New("page out of range")

// Page is one slice of a list. Page is one-based; callers pass zero-based indexes.
type Page[T any] struct {
	Items       []T  `json:"items"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"total_pages"`
	HasNextPage bool `json:"has_next_page"`
}

// TotalPages returns how many pages of size hold total items
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	pages := total / size
	if total%size > 0 {
		pages++
	}
	return pages
}

// Paginate returns the zero-based page of items
func Paginate[T any](items []T, page, size int) (Page[T], error) {
	totalPages := TotalPages(len(items), size)
	if page < 0 || page >= totalPages {
		return Page[T]{}, ErrPageOutOfRange
	}

	start := page * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}

	return Page[T]{
		Items:       items[start:end],
		Page:        page + 1,
		TotalPages:  totalPages,
		HasNextPage: totalPages-1 > page,
	}, nil
}
