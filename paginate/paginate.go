// Package paginate splits an ordered item list into fixed-size, 1-indexed pages.
package paginate

import (
	"fmt"
	"strconv"
)

// DefaultSize is the feed page size.
const DefaultSize = 12

// Page describes one page of an n-item list. Start and End bound the page's
// items as a half-open range.
type Page struct {
	Number int
	Total  int
	Size   int
	Items  int
	Start  int
	End    int
}

// New returns page requested of an n-item list split into size-item pages.
// Requests outside [1, Total] clamp to the nearest bound.
func New(n, size, requested int) Page {
	if size < 1 {
		size = DefaultSize
	}
	if n < 0 {
		n = 0
	}
	total := (n + size - 1) / size
	num := requested
	if num > total {
		num = total
	}
	if num < 1 {
		num = 1
	}
	start := (num - 1) * size
	if start > n {
		start = n
	}
	end := start + size
	if end > n {
		end = n
	}
	return Page{Number: num, Total: total, Size: size, Items: n, Start: start, End: end}
}

// Parse reads a ?page= value; anything unparsable means page 1.
func Parse(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.Total }

// Prev is the previous page number, clamped.
func (p Page) Prev() int {
	if p.HasPrev() {
		return p.Number - 1
	}
	return p.Number
}

// Next is the next page number, clamped.
func (p Page) Next() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

// Label renders "Page P of T".
func (p Page) Label() string {
	total := p.Total
	if total < 1 {
		total = 1
	}
	return fmt.Sprintf("Page %d of %d", p.Number, total)
}

// Numbers lists every page number, for numbered controls.
func (p Page) Numbers() []int {
	nums := make([]int, p.Total)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// Slice returns the items on page p.
func Slice[T any](items []T, p Page) []T {
	if p.Start >= len(items) {
		return nil
	}
	end := p.End
	if end > len(items) {
		end = len(items)
	}
	return items[p.Start:end]
}
