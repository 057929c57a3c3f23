// sixchan/utils/pagination.go
package utils

import "sixchan/models"

// Paginate returns the condensed page-number control for page out of
// totalPages: a window of delta pages on each side of page, anchored by the
// first and last page, with one gap marker wherever consecutive numbers are
// not adjacent.
func Paginate(page, totalPages, delta int) ([]models.Page, error) {
	switch {
	case totalPages < 1:
		return nil, models.InvalidArgument("total pages must be at least 1, got %d", totalPages)
	case page < 1 || page > totalPages:
		return nil, models.InvalidArgument("page %d out of range 1..%d", page, totalPages)
	case delta < 0:
		return nil, models.InvalidArgument("delta must not be negative, got %d", delta)
	}

	lo, hi := max(page-delta, 1), min(page+delta, totalPages)
	numbers := make([]int, 0, hi-lo+3)
	if lo != 1 {
		numbers = append(numbers, 1)
	}
	for n := lo; n <= hi; n++ {
		numbers = append(numbers, n)
	}
	if hi != totalPages {
		numbers = append(numbers, totalPages)
	}

	pages := make([]models.Page, 0, len(numbers)+2)
	prev := 0
	for _, n := range numbers {
		if n-prev != 1 {
			pages = append(pages, models.Page{IsEllipsis: true})
		}
		pages = append(pages, models.Page{Number: n, IsCurrent: n == page})
		prev = n
	}
	return pages, nil
}

// EdgeCondition reports whether previous and next links should be shown.
func EdgeCondition(page, totalPages int) (hasPrev, hasNext bool) {
	return page > 1, page < totalPages
}

// Bounds is the LIMIT/OFFSET window for one page of a query.
type Bounds struct {
	Page   int
	Pages  int
	Limit  int
	Offset int
}

// Empty reports whether the underlying query had no rows at all.
func (b Bounds) Empty() bool {
	return b.Limit == 0
}

// ComputeBounds converts a 1-based page into LIMIT/OFFSET. Pages is
// total/perPage + 1, so an exact multiple of perPage reports one trailing
// empty page. A zero total yields the canonical empty bounds with no window.
func ComputeBounds(page, perPage, total int) (Bounds, error) {
	if page < 1 {
		return Bounds{}, models.InvalidArgument("page must be at least 1, got %d", page)
	}
	if perPage < 1 {
		return Bounds{}, models.InvalidArgument("per_page must be at least 1, got %d", perPage)
	}
	if total <= 0 {
		return Bounds{Page: 1, Pages: 1}, nil
	}
	return Bounds{
		Page:   page,
		Pages:  total/perPage + 1,
		Limit:  perPage,
		Offset: perPage * (page - 1),
	}, nil
}

// NewPage wraps items in the page described by b. A nil slice is replaced
// with an empty one so the JSON form is always a list.
func NewPage[T any](b Bounds, items []T) models.PageOf[T] {
	if items == nil {
		items = []T{}
	}
	return models.PageOf[T]{Page: b.Page, Pages: b.Pages, Items: items}
}

// EmptyPage is the canonical result of a query with no rows.
func EmptyPage[T any]() models.PageOf[T] {
	return models.PageOf[T]{Page: 1, Pages: 1, Items: []T{}}
}
