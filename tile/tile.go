// Package tile holds the addressing values of a tiled layer: zoom levels, tile identifiers
// and tiles with their extent.
package tile

import (
	"strconv"
	"strings"

	"github.com/pdok/wmtstiles/crs"
)

// Identifier addresses one tile. It is comparable and used as map key.
type Identifier struct {
	Col         int
	Row         int
	Zoom        ZoomLevel
	ServiceName string
}

func NewIdentifier(col, row int, zoom ZoomLevel, serviceName string) Identifier {
	return Identifier{Col: max(col, 0), Row: max(row, 0), Zoom: zoom, ServiceName: serviceName}
}

// RightNeighbour returns the tile to the right, false at the last column of the matrix.
func (id Identifier) RightNeighbour() (Identifier, bool) {
	if id.Col+1 >= id.Zoom.MaxTilePerRow {
		return Identifier{}, false
	}
	n := id
	n.Col++
	return n, true
}

// LowerNeighbour returns the tile below, false at the last row of the matrix.
func (id Identifier) LowerNeighbour() (Identifier, bool) {
	if id.Row+1 >= id.Zoom.MaxTilePerCol {
		return Identifier{}, false
	}
	n := id
	n.Row++
	return n, true
}

// Code is "{zoom}/{col}/{row}".
func (id Identifier) Code() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(id.Zoom.Index))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(id.Col))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(id.Row))
	return sb.String()
}

// CacheKey is "{serviceName}_{zoom}_{col}_{row}".
func (id Identifier) CacheKey() string {
	var sb strings.Builder
	sb.WriteString(id.ServiceName)
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(id.Zoom.Index))
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(id.Col))
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(id.Row))
	return sb.String()
}

func (id Identifier) String() string {
	return id.ServiceName + ":" + id.Code()
}

// Tile is an identifier with the geometry derived from it. The extent is in the CRS of the
// tile matrix set, in its native axis order.
type Tile struct {
	ID         Identifier
	TileMatrix string
	Extent     crs.Envelope
	PixelSpan  float64
	Width      uint
	Height     uint
}

func (t Tile) String() string {
	return t.ID.String() + " " + t.Extent.String()
}
