package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListParams_Normalize(t *testing.T) {
	assert.Equal(t, ListParams{Page: 1, Limit: 10}, ListParams{}.Normalize())
	assert.Equal(t, ListParams{Page: 3, Limit: 100, Search: "x"}, ListParams{Page: 3, Limit: 500, Search: "x"}.Normalize())
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Total: 21, TotalPages: 3}, NewPagination(ListParams{Page: 1, Limit: 10}, 21))
	assert.Equal(t, 0, NewPagination(ListParams{Page: 1, Limit: 10}, 0).TotalPages)
}
