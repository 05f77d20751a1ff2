// Package listview derives filtered, sorted and paginated views of a
// fetched list without touching the list itself.
package listview

import (
	"sort"
	"strings"
)

// Filter returns the items for which any of fields contains term,
// case-insensitively. An empty term returns a copy of the whole list.
func Filter[T any](items []T, term string, fields func(T) []string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if term == "" || matches(fields(it), term) {
			out = append(out, it)
		}
	}
	return out
}

func matches(fields []string, term string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection defaults to descending for anything but "asc".
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Asc)) {
		return Asc
	}
	return Desc
}

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Key extracts a sortable value. Dates should be returned as Unix
// timestamps so they compare numerically.
type Key[T any] struct {
	Text   func(T) string
	Number func(T) float64
}

// ByText sorts case-insensitively on a string field.
func ByText[T any](f func(T) string) Key[T] { return Key[T]{Text: f} }

// ByNumber sorts on a numeric field.
func ByNumber[T any](f func(T) float64) Key[T] { return Key[T]{Number: f} }

func (k Key[T]) less(a, b T) bool {
	if k.Number != nil {
		return k.Number(a) < k.Number(b)
	}
	return strings.ToLower(k.Text(a)) < strings.ToLower(k.Text(b))
}

// SortStable returns a stably sorted copy of items.
func SortStable[T any](items []T, key Key[T], dir Direction) []T {
	out := append([]T(nil), items...)
	if key.Text == nil && key.Number == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if dir == Desc {
			return key.less(out[j], out[i])
		}
		return key.less(out[i], out[j])
	})
	return out
}

// Page is one page of a list. Current is 1-based.
type Page[T any] struct {
	Items      []T
	Current    int
	TotalPages int
	TotalItems int
	PageSize   int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Current > 1 }

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Current < p.TotalPages }

// Numbers lists the page numbers 1..TotalPages.
func (p Page[T]) Numbers() []int {
	n := make([]int, p.TotalPages)
	for i := range n {
		n[i] = i + 1
	}
	return n
}

// Paginate slices items into fixed-size pages. There is always at least one
// page and current is clamped into range.
func Paginate[T any](items []T, current, size int) Page[T] {
	if size <= 0 {
		size = 10
	}
	total := (len(items) + size - 1) / size
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}
	start := (current - 1) * size
	end := min(start+size, len(items))
	return Page[T]{
		Items:      items[start:end],
		Current:    current,
		TotalPages: total,
		TotalItems: len(items),
		PageSize:   size,
	}
}

// State is the search/sort/page selection of one list view.
type State struct {
	Search string
	SortBy string
	Dir    Direction
	Page   int
}

// Apply filters, sorts and paginates items according to s. keys maps
// SortBy values to sort keys; an unknown SortBy keeps the fetched order.
func Apply[T any](items []T, s State, size int, fields func(T) []string, keys map[string]Key[T]) Page[T] {
	view := Filter(items, s.Search, fields)
	if k, ok := keys[s.SortBy]; ok {
		view = SortStable(view, k, s.Dir)
	}
	return Paginate(view, s.Page, size)
}
