package paginate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPageCount(t *testing.T) {
	tests := []struct{ n, size, want int }{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{25, 12, 3},
		{36, 12, 3},
		{7, 3, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.n, tt.size, 1).Total, "n=%d size=%d", tt.n, tt.size)
	}
}

func TestFirstPageHoldsLeadingItems(t *testing.T) {
	items := seq(30)
	p := New(len(items), 12, 1)
	assert.Equal(t, items[0:12], Slice(items, p))
}

func TestClamp(t *testing.T) {
	p := New(25, 12, 0)
	assert.Equal(t, 1, p.Number)

	p = New(25, 12, 4)
	assert.Equal(t, 3, p.Number)

	p = New(25, 12, -7)
	assert.Equal(t, 1, p.Number)
}

func TestEmptyList(t *testing.T) {
	p := New(0, 12, 3)
	assert.Equal(t, 1, p.Number)
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Empty(t, Slice([]string{}, p))
	assert.Equal(t, "Page 1 of 1", p.Label())
}

// 25 external posts with a page size of 12.
func TestWalkThroughThreePages(t *testing.T) {
	items := seq(25)

	p := New(len(items), 12, 1)
	assert.Equal(t, "Page 1 of 3", p.Label())
	assert.Equal(t, seq(12), Slice(items, p))
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = New(len(items), 12, p.Next())
	assert.Equal(t, items[12:24], Slice(items, p))
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = New(len(items), 12, p.Next())
	assert.Equal(t, []int{25}, Slice(items, p))
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Equal(t, 3, p.Next())
	assert.Equal(t, 2, p.Prev())
}

func TestNumbersAndParse(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, New(25, 12, 2).Numbers())
	assert.Equal(t, 4, Parse("4"))
	assert.Equal(t, 1, Parse(""))
	assert.Equal(t, 1, Parse("abc"))
}

func TestZeroSizeFallsBackToDefault(t *testing.T) {
	assert.Equal(t, DefaultSize, New(5, 0, 1).Size)
}
