package paginate

import (
	"fmt"

	"telegram-places-bot/apperror"
)

// Window is one page of an ordered sequence.
type Window[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	Total      int  `json:"total"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// Offset is the index in the full sequence of the first item on the page.
func (w Window[T]) Offset() int {
	return (w.Page - 1) * w.PageSize
}

// Paginate slices items into pages of pageSize and returns page number page (1-based).
// totalPages is at least 1 even for an empty sequence. A page past the end yields no items.
// pageSize <= 0 and page < 1 are rejected rather than clamped.
func Paginate[T any](items []T, pageSize, page int) (Window[T], error) {
	if pageSize <= 0 {
		return Window[T]{}, fmt.Errorf("page size %d: %w", pageSize, apperror.ErrInvalidInput)
	}
	if page < 1 {
		return Window[T]{}, fmt.Errorf("page %d: %w: %w", page, apperror.ErrInvalidPage, apperror.ErrInvalidInput)
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	w := Window[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}

	// checked before multiplying so a huge page cannot overflow start
	if page > totalPages {
		return w, nil
	}
	start := (page - 1) * pageSize
	if start >= total {
		return w, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	w.Items = items[start:end:end]
	return w, nil
}

// Map converts the items of a window, keeping its metadata.
func Map[T, U any](w Window[T], fn func(T) U) Window[U] {
	out := Window[U]{
		Items:      make([]U, 0, len(w.Items)),
		Page:       w.Page,
		PageSize:   w.PageSize,
		TotalPages: w.TotalPages,
		Total:      w.Total,
		HasPrev:    w.HasPrev,
		HasNext:    w.HasNext,
	}
	for _, item := range w.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
