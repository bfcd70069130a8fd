package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := Normalize(0, 0)
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
		assert.Equal(t, 0, p.Offset)
	})

	t.Run("negative values", func(t *testing.T) {
		p := Normalize(-3, -10)
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		p := Normalize(2, 10000)
		assert.Equal(t, MaxLimit, p.Limit)
		assert.Equal(t, MaxLimit, p.Offset)
	})

	t.Run("offset follows the page", func(t *testing.T) {
		p := Normalize(3, 10)
		assert.Equal(t, 20, p.Offset)
	})
}

func TestNewMeta(t *testing.T) {
	t.Run("middle page", func(t *testing.T) {
		m := NewMeta(45, Params{Page: 2, Limit: 10})
		assert.Equal(t, 2, m.CurrentPage)
		assert.Equal(t, 5, m.TotalPages)
		assert.EqualValues(t, 45, m.TotalCount)
		assert.True(t, m.HasNext)
		assert.True(t, m.HasPrev)
	})

	t.Run("last page", func(t *testing.T) {
		m := NewMeta(45, Params{Page: 5, Limit: 10})
		assert.False(t, m.HasNext)
		assert.True(t, m.HasPrev)
	})

	t.Run("exact multiple", func(t *testing.T) {
		m := NewMeta(40, Params{Page: 4, Limit: 10})
		assert.Equal(t, 4, m.TotalPages)
		assert.False(t, m.HasNext)
	})

	t.Run("empty result", func(t *testing.T) {
		m := NewMeta(0, Params{Page: 1, Limit: 10})
		assert.Equal(t, 0, m.TotalPages)
		assert.False(t, m.HasNext)
		assert.False(t, m.HasPrev)
	})
}
