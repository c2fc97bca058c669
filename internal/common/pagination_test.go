package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest("GET", "/orders/history?page=2&limit=500", nil)
	page, perPage := ParsePagination(req, 20)
	require.Equal(t, 2, page)
	require.Equal(t, MaxPerPage, perPage)

	req = httptest.NewRequest("GET", "/orders/history?page=-1&limit=abc", nil)
	page, perPage = ParsePagination(req, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, meta := Paginate(items, 2, 2)
	require.Equal(t, []int{3, 4}, got)
	require.Equal(t, Pagination{Page: 2, PerPage: 2, TotalItems: 5, TotalPages: 3}, meta)

	got, _ = Paginate(items, 3, 2)
	require.Equal(t, []int{5}, got)

	got, meta = Paginate(items, 9, 2)
	require.Empty(t, got)
	require.Equal(t, 5, meta.TotalItems)

	got, meta = Paginate([]int{}, 1, 10)
	require.Empty(t, got)
	require.Equal(t, 0, meta.TotalPages)
}
