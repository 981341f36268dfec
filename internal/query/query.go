// Package query turns raw list parameters into a store query. It never
// rejects input: anything it cannot use falls back to a default.
package query

import (
	"math"
	"strconv"
	"strings"

	"innovate-ink/internal/store"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params are the list parameters exactly as received from the caller.
type Params struct {
	Search string
	Tag    string
	Page   string
	Limit  string
}

// Query is a normalised, store-ready list request.
type Query struct {
	Filter store.Filter
	Sort   store.Sort
	Page   int
	Limit  int
	Skip   int
}

// Build normalises p. Newest articles come first.
func Build(p Params) Query {
	page := positiveInt(p.Page, DefaultPage)
	limit := positiveInt(p.Limit, DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// keep (page-1)*limit inside int
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	return Query{
		Filter: store.Filter{
			Search: strings.TrimSpace(p.Search),
			Tag:    strings.TrimSpace(p.Tag),
		},
		Sort:  store.Sort{Field: store.SortCreatedAt, Descending: true},
		Page:  page,
		Limit: limit,
		Skip:  (page - 1) * limit,
	}
}

// TotalPages is ceil(total / limit).
func (q Query) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	limit := int64(q.Limit)
	return int((total + limit - 1) / limit)
}

// positiveInt parses s, using def when s is missing or not an integer and
// clamping anything below 1 to 1.
func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	return n
}
