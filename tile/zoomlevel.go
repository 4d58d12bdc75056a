package tile

import (
	"fmt"

	"github.com/pdok/wmtstiles/tms20"
)

// ZoomLevel is an index into a tile matrix set together with the tile counts of that matrix.
type ZoomLevel struct {
	Index         int
	MaxTilePerRow int
	MaxTilePerCol int
	MaxTileCount  int
}

func NewZoomLevel(index int, tm tms20.TileMatrix) ZoomLevel {
	perRow := int(tm.MatrixWidth)
	perCol := int(tm.MatrixHeight)
	return ZoomLevel{
		Index:         index,
		MaxTilePerRow: perRow,
		MaxTilePerCol: perCol,
		MaxTileCount:  perRow * perCol,
	}
}

func (z ZoomLevel) String() string {
	return fmt.Sprintf("zoom %d (%dx%d)", z.Index, z.MaxTilePerRow, z.MaxTilePerCol)
}
