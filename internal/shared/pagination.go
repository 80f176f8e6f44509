package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Page is a limit/offset window parsed from query parameters.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PageFromQuery reads limit and offset, clamping them to sane bounds.
func PageFromQuery(q url.Values) Page {
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// Listing is the JSON envelope for paginated collections.
type Listing[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page
}
