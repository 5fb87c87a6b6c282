// Package pagination slices ordered gorm queries into numbered pages.
//
// Page numbers follow the forgiving rules readers expect from a blog: a
// missing or malformed number is page 1, a number below 1 or past the end is
// the last page, and an empty result is still one (empty) page.
package pagination

import (
	"strconv"

	"gorm.io/gorm"
)

// Page is one materialized slice of a listing plus what is needed to link
// to its neighbours.
type Page[T any] struct {
	Items        []T   `json:"items"`
	Number       int   `json:"number"`
	NumPages     int   `json:"num_pages"`
	Count        int64 `json:"count"`
	PerPage      int   `json:"per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
	NextPage     int   `json:"next_page,omitempty"`
	PreviousPage int   `json:"previous_page,omitempty"`
}

// NumPages returns how many pages count items span. Never less than one.
func NumPages(count int64, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 1
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

// Resolve turns the raw ?page= value into a valid page number.
func Resolve(raw string, count int64, perPage int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	if last := NumPages(count, perPage); n < 1 || n > last {
		return last
	}
	return n
}

// Paginate counts query, then fetches the requested page in the given order.
// query must carry its model (db.Model(...)) and filters but no ordering.
// fetch scopes (preloads and the like) only apply to the page fetch, never to
// the count.
func Paginate[T any](query *gorm.DB, order string, raw string, perPage int, fetch ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	if perPage <= 0 {
		perPage = 1
	}
	base := query.Session(&gorm.Session{})

	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, err
	}

	number := Resolve(raw, count, perPage)
	page := New[T](nil, number, count, perPage)
	if count == 0 {
		return page, nil
	}

	items := make([]T, 0, perPage)
	if err := base.Scopes(fetch...).Order(order).Offset((number - 1) * perPage).Limit(perPage).Find(&items).Error; err != nil {
		return nil, err
	}
	page.Items = items
	return page, nil
}

// New builds the page metadata around already fetched items.
func New[T any](items []T, number int, count int64, perPage int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	numPages := NumPages(count, perPage)
	p := &Page[T]{
		Items:       items,
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		PerPage:     perPage,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if p.HasNext {
		p.NextPage = number + 1
	}
	if p.HasPrevious {
		p.PreviousPage = number - 1
	}
	return p
}

// Map converts the items of a page, keeping its metadata.
func Map[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return &Page[U]{
		Items:        out,
		Number:       p.Number,
		NumPages:     p.NumPages,
		Count:        p.Count,
		PerPage:      p.PerPage,
		HasNext:      p.HasNext,
		HasPrevious:  p.HasPrevious,
		NextPage:     p.NextPage,
		PreviousPage: p.PreviousPage,
	}
}
