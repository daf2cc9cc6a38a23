package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParams(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		wantSize int
	}{
		{"default size", 1, 0, 10},
		{"negative size", 1, -5, 10},
		{"clamped", 1, 500, 100},
		{"kept", 2, 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParams(tt.page, tt.size, 10, 100)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, tt.page, p.Page)
		})
	}
}

func TestParams_TotalPagesAndRange(t *testing.T) {
	p := NewParams(1, 10, 10, 100)

	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(10))
	assert.Equal(t, 3, p.TotalPages(25))

	assert.True(t, Params{Page: 3, PageSize: 10}.InRange(25))
	assert.False(t, Params{Page: 4, PageSize: 10}.InRange(25))
	assert.False(t, Params{Page: 0, PageSize: 10}.InRange(25))
	assert.False(t, Params{Page: 1, PageSize: 10}.InRange(0))
}

func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 20, Params{Page: 3, PageSize: 10}.Offset())
	assert.Equal(t, 0, Params{Page: -1, PageSize: 10}.Offset())
}

func TestEmpty(t *testing.T) {
	page := Empty[string](Params{Page: 4, PageSize: 10}, 25)

	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.TotalItems)
	assert.Equal(t, 4, page.Page)
}
