package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/wmtstiles/tms20"
)

func TestNewZoomLevel(t *testing.T) {
	z := NewZoomLevel(3, tms20.TileMatrix{ID: "3", MatrixWidth: 16, MatrixHeight: 8})
	assert.Equal(t, ZoomLevel{Index: 3, MaxTilePerRow: 16, MaxTilePerCol: 8, MaxTileCount: 128}, z)
}

func TestIdentifier_Neighbours(t *testing.T) {
	zoom := NewZoomLevel(1, tms20.TileMatrix{ID: "1", MatrixWidth: 2, MatrixHeight: 2})
	tests := []struct {
		name      string
		col, row  int
		wantRight bool
		wantLower bool
	}{
		{name: "first tile", col: 0, row: 0, wantRight: true, wantLower: true},
		{name: "last column", col: 1, row: 0, wantRight: false, wantLower: true},
		{name: "last row", col: 0, row: 1, wantRight: true, wantLower: false},
		{name: "last tile", col: 1, row: 1, wantRight: false, wantLower: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewIdentifier(tt.col, tt.row, zoom, "svc")
			right, ok := id.RightNeighbour()
			require.Equal(t, tt.wantRight, ok)
			if ok {
				assert.Equal(t, NewIdentifier(tt.col+1, tt.row, zoom, "svc"), right)
			}
			lower, ok := id.LowerNeighbour()
			require.Equal(t, tt.wantLower, ok)
			if ok {
				assert.Equal(t, NewIdentifier(tt.col, tt.row+1, zoom, "svc"), lower)
			}
		})
	}
}

func TestIdentifier_Keys(t *testing.T) {
	zoom := NewZoomLevel(4, tms20.TileMatrix{ID: "4", MatrixWidth: 16, MatrixHeight: 16})
	id := NewIdentifier(7, 9, zoom, "brt")
	assert.Equal(t, "4/7/9", id.Code())
	assert.Equal(t, "brt_4_7_9", id.CacheKey())

	other := NewIdentifier(7, 9, zoom, "luchtfoto")
	assert.NotEqual(t, id, other)
	assert.NotEqual(t, id.CacheKey(), other.CacheKey())

	set := map[Identifier]bool{id: true}
	assert.True(t, set[NewIdentifier(7, 9, zoom, "brt")])
}

func TestNewIdentifier_NonNegative(t *testing.T) {
	id := NewIdentifier(-2, -1, ZoomLevel{MaxTilePerRow: 1, MaxTilePerCol: 1}, "")
	assert.Equal(t, 0, id.Col)
	assert.Equal(t, 0, id.Row)
}
