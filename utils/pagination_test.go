package utils

import (
	"errors"
	"fmt"
	"testing"

	"sixchan/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render flattens the control to e.g. "1 … 8 [9] 10".
func render(pages []models.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		switch {
		case p.IsEllipsis:
			out = append(out, "…")
		case p.IsCurrent:
			out = append(out, fmt.Sprintf("[%d]", p.Number))
		default:
			out = append(out, fmt.Sprint(p.Number))
		}
	}
	return out
}

func TestPaginate(t *testing.T) {
	testCases := []struct {
		name       string
		page       int
		totalPages int
		delta      int
		expected   []string
	}{
		{"Single page", 1, 1, 2, []string{"[1]"}},
		{"Window covers all", 3, 5, 2, []string{"1", "2", "[3]", "4", "5"}},
		{"Middle of many", 10, 20, 2, []string{"1", "…", "8", "9", "[10]", "11", "12", "…", "20"}},
		{"At start", 1, 20, 2, []string{"[1]", "2", "3", "…", "20"}},
		{"At end", 20, 20, 2, []string{"1", "…", "18", "19", "[20]"}},
		{"Window touches first anchor", 4, 20, 2, []string{"1", "2", "3", "[4]", "5", "6", "…", "20"}},
		{"One page hidden", 5, 20, 2, []string{"1", "…", "3", "4", "[5]", "6", "7", "…", "20"}},
		{"Zero delta", 5, 9, 0, []string{"1", "…", "[5]", "…", "9"}},
		{"Two pages", 2, 2, 2, []string{"1", "[2]"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pages, err := Paginate(tc.page, tc.totalPages, tc.delta)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, render(pages))
		})
	}
}

func TestPaginateProperties(t *testing.T) {
	for total := 1; total <= 30; total++ {
		for page := 1; page <= total; page++ {
			pages, err := Paginate(page, total, 2)
			require.NoError(t, err)

			numbers := []int{}
			current := 0
			for i, p := range pages {
				if p.IsEllipsis {
					require.Greater(t, i, 0, "gap never leads")
					require.False(t, pages[i-1].IsEllipsis, "no double gaps")
					continue
				}
				if len(numbers) > 0 {
					jump := p.Number - numbers[len(numbers)-1]
					require.Greater(t, jump, 0, "strictly increasing")
					if jump > 1 {
						require.True(t, pages[i-1].IsEllipsis, "gap before jump %d->%d", numbers[len(numbers)-1], p.Number)
					} else {
						require.False(t, pages[i-1].IsEllipsis, "no gap between adjacent pages")
					}
				}
				if p.IsCurrent {
					current++
					require.Equal(t, page, p.Number)
				}
				numbers = append(numbers, p.Number)
			}
			require.Equal(t, 1, numbers[0])
			require.Equal(t, total, numbers[len(numbers)-1])
			require.Equal(t, 1, current)
		}
	}
}

func TestPaginateRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name               string
		page, total, delta int
	}{
		{"Zero page", 0, 5, 2},
		{"Zero total", 1, 0, 2},
		{"Page past total", 6, 5, 2},
		{"Negative delta", 1, 5, -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Paginate(tc.page, tc.total, tc.delta)
			assert.True(t, errors.Is(err, models.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestEdgeCondition(t *testing.T) {
	testCases := []struct {
		page, total      int
		hasPrev, hasNext bool
	}{
		{1, 1, false, false},
		{1, 3, false, true},
		{2, 3, true, true},
		{3, 3, true, false},
	}
	for _, tc := range testCases {
		prev, next := EdgeCondition(tc.page, tc.total)
		assert.Equal(t, tc.hasPrev, prev, "page %d/%d", tc.page, tc.total)
		assert.Equal(t, tc.hasNext, next, "page %d/%d", tc.page, tc.total)
	}
}

func TestComputeBounds(t *testing.T) {
	testCases := []struct {
		name                 string
		page, perPage, total int
		expected             Bounds
	}{
		{"First page", 1, 10, 25, Bounds{Page: 1, Pages: 3, Limit: 10, Offset: 0}},
		{"Third page", 3, 10, 25, Bounds{Page: 3, Pages: 3, Limit: 10, Offset: 20}},
		{"Exact multiple keeps trailing page", 1, 10, 20, Bounds{Page: 1, Pages: 3, Limit: 10, Offset: 0}},
		{"Fewer than one page", 1, 15, 4, Bounds{Page: 1, Pages: 1, Limit: 15, Offset: 0}},
		{"Empty", 1, 10, 0, Bounds{Page: 1, Pages: 1}},
		{"Empty ignores requested page", 4, 10, 0, Bounds{Page: 1, Pages: 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := ComputeBounds(tc.page, tc.perPage, tc.total)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, b)
			assert.Equal(t, tc.total == 0, b.Empty())
		})
	}

	_, err := ComputeBounds(0, 10, 5)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
	_, err = ComputeBounds(1, 0, 5)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestEmptyPage(t *testing.T) {
	p := EmptyPage[int]()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.Pages)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)

	b, _ := ComputeBounds(2, 5, 12)
	q := NewPage[string](b, nil)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 3, q.Pages)
	assert.NotNil(t, q.Items)
}
